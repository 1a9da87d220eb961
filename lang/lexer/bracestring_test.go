package lexer

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dtcenter/METplus-sub003/lang/diag"
)

func TestDQToBrace(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"escaped at", `a\@b`, "a@['@']b"},
		{"escaped brackets", `\[x\]`, "@['[']x@[']']"},
		{"newline and tab", `a\nb\tc`, "a\nb\tc"},
		{"other escape", `\"q\"`, `"q"`},
		{"bare at", "user@host", "user@[@]host"},
		{"reference kept", "x=@[name]", "x=@[name]"},
		{"literal kept", "@['[[']", "@['[[']"},
		{"at literal kept", "@[@]", "@[@]"},
		{"bracket runs", "a[[b]]", "a@['[[']b@[']]']"},
		{"broken block", "@[1x]", "@[@]@['[']1x@[']']"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DQToBrace(tt.in); got != tt.want {
				t.Errorf("DQToBrace(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDQToBrace_FixedPoint(t *testing.T) {
	inputs := []string{
		"plain text",
		`esc \@ \[ \] done`,
		"ref @[a%b] and @['lit'] and @[@]",
		`line\nbreak`,
		"tab\tand space",
		`quote \"x\"`,
	}

	for _, in := range inputs {
		once := DQToBrace(in)
		if twice := DQToBrace(once); twice != once {
			t.Errorf("not a fixed point for %q: %q then %q", in, once, twice)
		}
	}
}

func TestLiteralToBrace_RoundTrip(t *testing.T) {
	inputs := []string{"", "abc", "a@b", "[[x]]", "@[name]", "@['q']"}

	for _, in := range inputs {
		got, ok := IsLiteral(LiteralToBrace(in))
		if !ok || got != in {
			t.Errorf("round trip of %q gave %q (literal %v)", in, got, ok)
		}
	}
}

func TestSegments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Segment
	}{
		{"empty", "", nil},
		{"literal", "abc", []Segment{{Literal, "abc"}}},
		{
			"mixed",
			"cp @[src] @['@'] x@[@]y @[a%b]",
			[]Segment{
				{Literal, "cp "},
				{Reference, "src"},
				{Literal, " @ x@y "},
				{Reference, "a%b"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Segments(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("segments mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSegments_Malformed(t *testing.T) {
	for _, in := range []string{"@[", "@['open", "@[bad name]", "@[]"} {
		if _, err := Segments(in); !errors.Is(err, diag.ErrLexical) {
			t.Errorf("Segments(%q): expected lexical error, got %v", in, err)
		}
	}
}
