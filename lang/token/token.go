// Package token defines the lexical tokens of the regression test language.
package token

import (
	"strconv"
)

// Kind identifies the lexical class of a token.
type Kind int

const (
	EOF       Kind = iota // end of input
	BlankLine             // blank line
	EOL                   // end of line
	Comment               // comment
	Brace                 // brace string
	DQString              // double-quoted string
	SQString              // single-quoted string
	Operator              // operator
	Number                // number
	Ident                 // identifier
	RankOpen              // (/
	RankClose             // /)
	LBrace                // {
	RBrace                // }
	LParen                // (
	RParen                // )
	Comma                 // ,
	Semicolon             // ;
	Colon                 // :
	Assign                // =
)

var kindNames = [...]string{
	EOF:       "end of input",
	BlankLine: "blank line",
	EOL:       "end of line",
	Comment:   "comment",
	Brace:     "brace string",
	DQString:  "double-quoted string",
	SQString:  "single-quoted string",
	Operator:  "operator",
	Number:    "number",
	Ident:     "identifier",
	RankOpen:  "(/",
	RankClose: "/)",
	LBrace:    "{",
	RBrace:    "}",
	LParen:    "(",
	RParen:    ")",
	Comma:     ",",
	Semicolon: ";",
	Colon:     ":",
	Assign:    "=",
}

// String returns a human readable name for the kind.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// IsString reports whether the kind is one of the three string forms.
func (k Kind) IsString() bool {
	return k == Brace || k == DQString || k == SQString
}

// EndsStatement reports whether a token of this kind terminates a statement.
func (k Kind) EndsStatement() bool {
	switch k {
	case EOF, BlankLine, EOL, Comment, Comma, Semicolon:
		return true
	default:
		return false
	}
}

// Pos is a source location.
type Pos struct {
	File string
	Line int
}

// String formats the position as "file:line".
func (p Pos) String() string {
	file := p.File
	if file == "" {
		file = "<input>"
	}

	return file + ":" + strconv.Itoa(p.Line)
}

// Token is one lexeme. For string kinds Text holds the brace-form body with
// delimiters removed; for operators it holds the bare operator name; for all
// other kinds it holds the matched source text.
type Token struct {
	Kind Kind
	Text string
	Pos  Pos
}

// String describes the token for diagnostics.
func (t Token) String() string {
	switch t.Kind {
	case EOF, BlankLine, EOL:
		return t.Kind.String()
	default:
		return t.Kind.String() + " " + strconv.Quote(t.Text)
	}
}
