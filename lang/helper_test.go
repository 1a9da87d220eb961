package lang

import (
	"errors"
	"testing"

	"github.com/dtcenter/METplus-sub003/lang/diag"
)

var testEnv = []string{"HOME=/home/rt", "SITE=hera"}

func compile(t *testing.T, src string, opts ...Option) *Compiler {
	t.Helper()

	c := New(append([]Option{WithEnv(testEnv)}, opts...)...)
	if err := c.LoadSource(t.Context(), "test.rt", []byte(src)); err != nil {
		t.Fatalf("compile error: %v", err)
	}

	return c
}

func compileErr(t *testing.T, src string, opts ...Option) error {
	t.Helper()

	c := New(append([]Option{WithEnv(testEnv)}, opts...)...)

	return c.LoadSource(t.Context(), "test.rt", []byte(src))
}

func lookup(t *testing.T, c *Compiler, name string) Object {
	t.Helper()

	v, err := c.Arena().Resolve(name, c.Root().Chain())
	if err != nil {
		t.Fatalf("resolve %s: %v", name, err)
	}

	return v
}

func stringOf(t *testing.T, c *Compiler, name string) string {
	t.Helper()

	s, err := c.String(lookup(t, c, name))
	if err != nil {
		t.Fatalf("string %s: %v", name, err)
	}

	return s
}

func shellOf(t *testing.T, c *Compiler, name string) string {
	t.Helper()

	s, err := c.Shell(lookup(t, c, name))
	if err != nil {
		t.Fatalf("shell %s: %v", name, err)
	}

	return s
}

func wantErr(t *testing.T, err, want error) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %v, got nil", want)
	}

	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func errLine(t *testing.T, err error) int {
	t.Helper()

	var e *diag.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *diag.Error, got %T", err)
	}

	return e.Pos().Line
}
