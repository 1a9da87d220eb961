package lexer

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dtcenter/METplus-sub003/lang/diag"
	"github.com/dtcenter/METplus-sub003/lang/token"
)

type lexed struct {
	Kind token.Kind
	Text string
	Line int
}

func scan(t *testing.T, src string) []lexed {
	t.Helper()

	var out []lexed

	for tok, err := range New("t.rt", []byte(src)).All() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out = append(out, lexed{tok.Kind, tok.Text, tok.Pos.Line})
	}

	return out
}

func TestLexer_Tokens(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []lexed
	}{
		{
			name: "assignment",
			src:  `x = 5`,
			want: []lexed{
				{token.Ident, "x", 1},
				{token.Assign, "=", 1},
				{token.Number, "5", 1},
				{token.EOF, "", 1},
			},
		},
		{
			name: "qualified name and operator",
			src:  "tgt .copy. a%b.c",
			want: []lexed{
				{token.Ident, "tgt", 1},
				{token.Operator, "copy", 1},
				{token.Ident, "a%b.c", 1},
				{token.EOF, "", 1},
			},
		},
		{
			name: "numbers",
			src:  "-1.5e3 +2 .25",
			want: []lexed{
				{token.Number, "-1.5e3", 1},
				{token.Number, "+2", 1},
				{token.Number, ".25", 1},
				{token.EOF, "", 1},
			},
		},
		{
			name: "punctuation",
			src:  "(/ a /) { } ( ) , ; :",
			want: []lexed{
				{token.RankOpen, "(/", 1},
				{token.Ident, "a", 1},
				{token.RankClose, "/)", 1},
				{token.LBrace, "{", 1},
				{token.RBrace, "}", 1},
				{token.LParen, "(", 1},
				{token.RParen, ")", 1},
				{token.Comma, ",", 1},
				{token.Semicolon, ";", 1},
				{token.Colon, ":", 1},
				{token.EOF, "", 1},
			},
		},
		{
			name: "lines and comments",
			src:  "a # note\nb\n\n  \nc",
			want: []lexed{
				{token.Ident, "a", 1},
				{token.Comment, "note", 1},
				{token.EOL, "\n", 1},
				{token.Ident, "b", 2},
				{token.BlankLine, "\n\n", 2},
				{token.EOL, "\n", 4},
				{token.Ident, "c", 5},
				{token.EOF, "", 5},
			},
		},
		{
			name: "continuation",
			src:  "a \\\n b",
			want: []lexed{
				{token.Ident, "a", 1},
				{token.Ident, "b", 2},
				{token.EOF, "", 2},
			},
		},
		{
			name: "strings",
			src:  `'a@b' "x\@y" [[[p @[q]` + "\n" + `]]]`,
			want: []lexed{
				{token.SQString, "a@[@]b", 1},
				{token.DQString, "x@['@']y", 1},
				{token.Brace, "p @[q]\n", 1},
				{token.EOF, "", 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, scan(t, tt.src)); diff != "" {
				t.Errorf("tokens mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"unknown character", "a\n$", 2},
		{"unterminated double quote", `x = "abc`, 1},
		{"unterminated brace string", "\n\n[[[ abc", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error

			for _, e := range New("bad.rt", []byte(tt.src)).All() {
				err = e
			}

			if !errors.Is(err, diag.ErrLexical) {
				t.Fatalf("expected lexical error, got %v", err)
			}

			var de *diag.Error
			if !errors.As(err, &de) || de.Pos().Line != tt.line {
				t.Errorf("expected error at line %d, got %v", tt.line, err)
			}
		})
	}
}

func TestLexer_EOFRepeats(t *testing.T) {
	l := New("", nil)

	for range 3 {
		tok, err := l.Next()
		if err != nil || tok.Kind != token.EOF {
			t.Fatalf("expected EOF, got %v, %v", tok, err)
		}
	}
}
