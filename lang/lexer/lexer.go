// Package lexer converts regression test source text into tokens.
//
// The lexer is a single regular expression built from one capture group per
// token kind. A match that captures no group is insignificant (whitespace or
// a line continuation) and is skipped. Groups are tried in declaration order,
// so longer or more specific lexemes are listed first.
package lexer

import (
	"iter"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dtcenter/METplus-sub003/lang/diag"
	"github.com/dtcenter/METplus-sub003/lang/token"
)

// badKind marks capture groups that only exist to report broken lexemes.
const badKind token.Kind = -1

type rule struct {
	kind    token.Kind
	pattern string
}

var rules = []rule{
	{token.BlankLine, `\n[ \t\r]*\n`},
	{token.EOL, `\n`},
	{token.Comment, `#[^\n]*`},
	{token.Brace, `\[\[\[(?s:.*?)\]\]\]`},
	{token.DQString, `"(?:[^"\\]|\\(?s:.))*"`},
	{token.SQString, `'[^']*'`},
	{badKind, `\[\[\[|"|'`},
	{token.Operator, `\.[A-Za-z_][A-Za-z_0-9]*\.`},
	{token.Number, `[+-]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][+-]?[0-9]+)?`},
	{token.Ident, `[A-Za-z_][A-Za-z_0-9.]*(?:%[A-Za-z_][A-Za-z_0-9.]*)*`},
	{token.RankOpen, `\(/`},
	{token.RankClose, `/\)`},
	{token.LBrace, `\{`},
	{token.RBrace, `\}`},
	{token.LParen, `\(`},
	{token.RParen, `\)`},
	{token.Comma, `,`},
	{token.Semicolon, `;`},
	{token.Colon, `:`},
	{token.Assign, `=`},
}

var lexeme = func() *regexp.Regexp {
	alt := make([]string, 0, len(rules)+1)
	for _, r := range rules {
		alt = append(alt, "("+r.pattern+")")
	}

	// Insignificant: horizontal whitespace and backslash-newline.
	alt = append(alt, `[ \t\r]+|\\\r?\n`)

	return regexp.MustCompile(`\A(?:` + strings.Join(alt, "|") + `)`)
}()

// Lexer produces tokens lazily from one source file.
type Lexer struct {
	file string
	src  []byte
	off  int
	line int
}

// New returns a lexer over src. The file name is used in token positions.
func New(file string, src []byte) *Lexer {
	return &Lexer{file: file, src: src, line: 1}
}

// Next returns the next token. After the input is exhausted it keeps
// returning an EOF token.
func (l *Lexer) Next() (token.Token, error) {
	for {
		pos := token.Pos{File: l.file, Line: l.line}

		if l.off >= len(l.src) {
			return token.Token{Kind: token.EOF, Pos: pos}, nil
		}

		rest := l.src[l.off:]

		m := lexeme.FindSubmatchIndex(rest)
		if m == nil || m[0] != 0 || m[1] == 0 {
			r, _ := utf8.DecodeRune(rest)

			return token.Token{}, diag.ErrLexical.WithPosition(pos).
				With(slog.String("char", string(r)))
		}

		text := string(rest[:m[1]])
		l.off += m[1]
		l.line += strings.Count(text, "\n")

		kind, ok := matchedKind(m)
		if !ok {
			continue
		}

		switch kind {
		case badKind:
			return token.Token{}, diag.ErrLexical.WithPosition(pos).
				With(slog.String("unterminated", text))

		case token.Brace:
			text = text[3 : len(text)-3]

		case token.DQString:
			text = DQToBrace(text[1 : len(text)-1])

		case token.SQString:
			text = LiteralToBrace(text[1 : len(text)-1])

		case token.Operator:
			text = text[1 : len(text)-1]

		case token.Comment:
			text = strings.TrimSpace(text[1:])
		}

		return token.Token{Kind: kind, Text: text, Pos: pos}, nil
	}
}

// All returns an iterator over every token up to and including EOF. The
// iteration stops at the first error, which is yielded once.
func (l *Lexer) All() iter.Seq2[token.Token, error] {
	return func(yield func(token.Token, error) bool) {
		for {
			tok, err := l.Next()
			if !yield(tok, err) || err != nil || tok.Kind == token.EOF {
				return
			}
		}
	}
}

func matchedKind(m []int) (token.Kind, bool) {
	for i := range rules {
		if m[2*(i+1)] >= 0 {
			return rules[i].kind, true
		}
	}

	return 0, false
}
