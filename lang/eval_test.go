package lang

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dtcenter/METplus-sub003/lang/diag"
)

func TestShadowing(t *testing.T) {
	c := compile(t, `x = "outer"
hash inner {
  x = "inner"
  y = "@[x]"
}
hash outer {
  y = "@[x]"
}
`)

	if got := stringOf(t, c, "inner%y"); got != "inner" {
		t.Errorf("inner%%y = %q, want %q", got, "inner")
	}

	if got := stringOf(t, c, "outer%y"); got != "outer" {
		t.Errorf("outer%%y = %q, want %q", got, "outer")
	}
}

func TestBodyOverwrite(t *testing.T) {
	c := compile(t, `hash h {
  a = 1
  a = 2
}
`)

	if got := stringOf(t, c, "h%a"); got != "2" {
		t.Errorf("h%%a = %q, want %q", got, "2")
	}
}

func TestApplyIsolation(t *testing.T) {
	c := compile(t, `hash tmpl (a) {
  b = "@[a]-x"
  inner = { v = "@[a]" }
}
i1 = tmpl(a = "one")
i2 = tmpl(a = "two")
`)

	tests := map[string]string{
		"i1%b":       "one-x",
		"i2%b":       "two-x",
		"i1%inner%v": "one",
		"i2%inner%v": "two",
		"i1%a":       "one",
	}

	for name, want := range tests {
		if got := stringOf(t, c, name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}

	tmpl := lookup(t, c, "tmpl").(*Scope)
	if v, ok := tmpl.Lookup("a"); !ok || v != nil {
		t.Errorf("template parameter modified: %v", v)
	}

	if _, err := c.String(lookup(t, c, "tmpl%inner%v")); !errors.Is(err, diag.ErrMissingArgument) {
		t.Errorf("template string resolved without argument: %v", err)
	}

	i1 := lookup(t, c, "i1").(*Scope)
	if i1.Origin != tmpl.ID {
		t.Errorf("origin = %d, want %d", i1.Origin, tmpl.ID)
	}

	inner := lookup(t, c, "i1%inner").(*Scope)
	if err := inner.Bind("v", &String{Text: "changed"}, true); err != nil {
		t.Fatal(err)
	}

	if err := i1.Bind("b", &String{Text: "changed"}, true); err != nil {
		t.Fatal(err)
	}

	for name, want := range map[string]string{
		"i1%inner%v": "changed",
		"i2%inner%v": "two",
		"i2%b":       "two-x",
	} {
		if got := stringOf(t, c, name); got != want {
			t.Errorf("after rebinding i1: %s = %q, want %q", name, got, want)
		}
	}

	if _, err := c.String(lookup(t, c, "tmpl%inner%v")); !errors.Is(err, diag.ErrMissingArgument) {
		t.Errorf("template changed by instance: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	c := compile(t, `hash tmpl (a, b = "dflt") {
  c = "@[a]/@[b]"
}
i = tmpl(a = "x", extra = 3)
j = tmpl(a = "x", b = "y")
`)

	if got := stringOf(t, c, "i%c"); got != "x/dflt" {
		t.Errorf("i%%c = %q", got)
	}

	if got := stringOf(t, c, "j%c"); got != "x/y" {
		t.Errorf("j%%c = %q", got)
	}

	if got := stringOf(t, c, "i%extra"); got != "3" {
		t.Errorf("i%%extra = %q", got)
	}
}

func TestArgumentReachesCaller(t *testing.T) {
	c := compile(t, `a = "caller"
hash tmpl (a) {
  b = "@[a]"
}
i = tmpl(a = a)
`)

	if got := stringOf(t, c, "i%b"); got != "caller" {
		t.Errorf("i%%b = %q, want %q", got, "caller")
	}
}

func TestUse(t *testing.T) {
	c := compile(t, `hash common {
  dir = "/base"
  path = "@[dir]/file"
}
hash mine {
  dir = "/mine"
  use common
}
hash plain {
  use common
}
`)

	if got := stringOf(t, c, "mine%path"); got != "/mine/file" {
		t.Errorf("mine%%path = %q", got)
	}

	if got := stringOf(t, c, "mine%dir"); got != "/mine" {
		t.Errorf("mine%%dir = %q", got)
	}

	if got := stringOf(t, c, "plain%path"); got != "/base/file" {
		t.Errorf("plain%%path = %q", got)
	}
}

func TestUseNested(t *testing.T) {
	c := compile(t, `build model {
  build = "make"
  target = "/m"
}
hash base {
  inner = { v = "@[x]" }
  w = "@[x]"
  m = model
}
hash h {
  x = "1"
  use base
}
`)

	for name, want := range map[string]string{"h%w": "1", "h%inner%v": "1"} {
		if got := stringOf(t, c, name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}

	if lookup(t, c, "h%inner") == lookup(t, c, "base%inner") {
		t.Error("nested scope shared with the used scope")
	}

	if lookup(t, c, "h%m") != lookup(t, c, "model") {
		t.Error("task copied by use")
	}

	if _, err := c.String(lookup(t, c, "base%inner%v")); !errors.Is(err, diag.ErrUndefined) {
		t.Errorf("base%%inner%%v error = %v, want %v", err, diag.ErrUndefined)
	}
}

func TestEnvironment(t *testing.T) {
	c := compile(t, `home = "@[ENV%HOME]/x"`, WithEnv([]string{"HOME=/h", "ODD=a@[b]"}))

	if got := stringOf(t, c, "home"); got != "/h/x" {
		t.Errorf("home = %q", got)
	}

	if got := stringOf(t, c, "ENV%ODD"); got != "a@[b]" {
		t.Errorf("ENV%%ODD = %q", got)
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
		line int
	}{
		{"undefined", "x = 1\n\ny = z", diag.ErrUndefined, 3},
		{"redefined", "x = 1\nx = 2", diag.ErrRedefined, 2},
		{"qualified bind", "a%b = 1", diag.ErrQualifiedBind, 1},
		{"not scope", "n = 1\nx = n%a", diag.ErrNotScope, 2},
		{"param var collision", "hash h (a) {\n  a = 2\n}", diag.ErrParamVarCollision, 2},
		{"missing argument", "hash h (a) {\n}\ni = h()", diag.ErrMissingArgument, 3},
		{"run non-task", "x = 1\nrun x", diag.ErrType, 2},
		{"dependency not task", "hash h {\n}\ntest t: h {\n}", diag.ErrType, 3},
		{"embed language", "embed python e (a)\n[[[x]]]", diag.ErrUnimplemented, 1},
		{"spawn option", "spawn s {\n  { \"a\", nodes = 2 }\n}", diag.ErrType, 2},
		{"use non-scope", "x = 1\nhash h {\n  use x\n}", diag.ErrType, 3},
		{"operator without params", "hash h {\n}\nfilters f {\n  \"a\" .h. \"b\"\n}", diag.ErrType, 4},
		{"mixed use", "filters f {\n  \"a\" .copy. \"b\"\n}\ncriteria c {\n  use f\n}", diag.ErrType, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := compileErr(t, tt.src)
			wantErr(t, err, tt.want)

			if got := errLine(t, err); got != tt.line {
				t.Errorf("line = %d, want %d (%v)", got, tt.line, err)
			}
		})
	}
}

func TestUndefinedSuggestion(t *testing.T) {
	err := compileErr(t, "target = 1\nx = targt")
	wantErr(t, err, diag.ErrUndefined)

	if !strings.Contains(err.Error(), "target") {
		t.Errorf("no suggestion in %q", err.Error())
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"main.rt":       "load \"inc/common.rt\"\nload \"/abs.rt\"\nx = \"@[y]@[z]\"\n",
		"inc/common.rt": "y = \"c\"\n",
		"abs.rt":        "z = \"a\"\n",
	}

	for name, src := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}

		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	c, err := Compile(t.Context(), filepath.Join(dir, "main.rt"), WithEnv(testEnv))
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	if got := stringOf(t, c, "x"); got != "ca" {
		t.Errorf("x = %q, want %q", got, "ca")
	}

	if got := len(c.Files()); got != 3 {
		t.Errorf("files = %d, want 3", got)
	}
}

func TestRecursiveLoad(t *testing.T) {
	dir := t.TempDir()

	for name, src := range map[string]string{
		"a.rt": "load \"b.rt\"\n",
		"b.rt": "load \"a.rt\"\n",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	_, err := Compile(t.Context(), filepath.Join(dir, "a.rt"), WithEnv(testEnv))
	wantErr(t, err, diag.ErrRecursiveLoad)
}

func TestLoadMissing(t *testing.T) {
	_, err := Compile(t.Context(), filepath.Join(t.TempDir(), "absent.rt"))
	wantErr(t, err, diag.ErrIO)
}
