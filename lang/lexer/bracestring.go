package lexer

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/dtcenter/METplus-sub003/lang/diag"
)

// Brace strings are the canonical string form. Literal text is copied as-is
// and "@[...]" blocks are interpolated:
//
//	@[name]     value of name, resolved in the string's scope chain
//	@['text']   the literal text
//	@[@]        a literal "@"

var dqPiece = regexp.MustCompile(
	`\\(?s:.)` + // escaped character
		`|@\['[^']*'\]|@\[@\]|@\[[A-Za-z_][A-Za-z_0-9.%]*\]` + // well-formed block
		`|@` + // bare at
		`|\[+|\]+` + // bracket runs
		`|[^\\@\[\]]+` + // plain text
		`|\\`, // trailing backslash
)

// DQToBrace converts the body of a double-quoted string to brace form.
// Escaped "@", "[" and "]" become literal blocks, "\n" and "\t" become a
// newline and a tab, and any other escaped character is copied without its
// backslash. A bare "@" that does not open a block and every run of square
// brackets are wrapped as literal blocks.
func DQToBrace(s string) string {
	return dqPiece.ReplaceAllStringFunc(s, func(m string) string {
		switch {
		case len(m) > 1 && m[0] == '\\':
			switch c := m[1:]; c {
			case "@", "[", "]":
				return "@['" + c + "']"
			case "n":
				return "\n"
			case "t":
				return "\t"
			default:
				return c
			}

		case strings.HasPrefix(m, "@["):
			return m

		case m == "@":
			return "@[@]"

		case m[0] == '[' || m[0] == ']':
			return "@['" + m + "']"

		default:
			return m
		}
	})
}

var literalPiece = regexp.MustCompile(`@|\[+|\]+`)

// LiteralToBrace converts raw text to a brace string that interpolates to
// exactly that text.
func LiteralToBrace(s string) string {
	return literalPiece.ReplaceAllStringFunc(s, func(m string) string {
		if m == "@" {
			return "@[@]"
		}

		return "@['" + m + "']"
	})
}

// SegmentKind distinguishes literal text from name references.
type SegmentKind int

const (
	Literal SegmentKind = iota
	Reference
)

// Segment is one piece of an interpolated brace string.
type Segment struct {
	Kind SegmentKind
	Text string
}

var refName = regexp.MustCompile(`^[A-Za-z_][A-Za-z_0-9.]*(?:%[A-Za-z_][A-Za-z_0-9.]*)*$`)

// Segments splits brace-form text into literal and reference segments.
// Adjacent literal pieces are merged.
func Segments(text string) ([]Segment, error) {
	var (
		segs []Segment
		lit  strings.Builder
	)

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, Segment{Kind: Literal, Text: lit.String()})
			lit.Reset()
		}
	}

	for text != "" {
		at := strings.Index(text, "@[")
		if at < 0 {
			lit.WriteString(text)

			break
		}

		lit.WriteString(text[:at])
		text = text[at+2:]

		switch {
		case strings.HasPrefix(text, "'"):
			end := strings.Index(text[1:], "']")
			if end < 0 {
				return nil, diag.ErrLexical.
					With(slog.String("block", "@["+text))
			}

			lit.WriteString(text[1 : 1+end])
			text = text[end+3:]

		case strings.HasPrefix(text, "@]"):
			lit.WriteByte('@')
			text = text[2:]

		default:
			end := strings.IndexByte(text, ']')
			if end < 0 || !refName.MatchString(text[:end]) {
				return nil, diag.ErrLexical.
					With(slog.String("block", "@["+text))
			}

			flush()
			segs = append(segs, Segment{Kind: Reference, Text: text[:end]})
			text = text[end+1:]
		}
	}

	flush()

	return segs, nil
}

// IsLiteral returns the interpolated text of a brace string that contains no
// references.
func IsLiteral(text string) (string, bool) {
	segs, err := Segments(text)
	if err != nil {
		return "", false
	}

	var sb strings.Builder

	for _, s := range segs {
		if s.Kind == Reference {
			return "", false
		}

		sb.WriteString(s.Text)
	}

	return sb.String(), true
}
