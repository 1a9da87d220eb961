package lang

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dtcenter/METplus-sub003/lang/diag"
)

func runNames(l RunList) []string {
	names := make([]string, 0, len(l))
	for _, e := range l {
		names = append(names, e.Scope.Name)
	}

	return names
}

func TestRunOrder(t *testing.T) {
	c := compile(t, `build b1 {
  build = "make"
  target = "/b1"
}
test t1: b1 {
  prep = ""
  input = ""
  execute = "run"
  output = "o"
}
test t2: b1, t1 {
  prep = ""
  input = ""
  execute = "run"
  output = "o"
}
run t2
run t1
run b1
`)

	if diff := cmp.Diff([]string{"b1", "t1", "t2"}, runNames(c.Runs())); diff != "" {
		t.Errorf("run-list mismatch (-want +got):\n%s", diff)
	}
}

func TestRunDepsAfterBody(t *testing.T) {
	c := compile(t, `build b1 {
  build = "make"
  target = "/b1"
}
test t1 {
  prep = ""
  input = ""
  execute = "run"
  output = "o"
} : b1
run t1
`)

	if diff := cmp.Diff([]string{"b1", "t1"}, runNames(c.Runs())); diff != "" {
		t.Errorf("run-list mismatch (-want +got):\n%s", diff)
	}
}

func TestAddRunCycles(t *testing.T) {
	tests := []struct {
		name  string
		build func(a *Arena) *Scope
		want  error
	}{
		{
			name: "self",
			build: func(a *Arena) *Scope {
				x := a.New(KindTest, "x", nil)
				x.Deps = []ScopeID{x.ID}

				return x
			},
			want: diag.ErrSelfDependency,
		},
		{
			name: "direct",
			build: func(a *Arena) *Scope {
				x := a.New(KindTest, "x", nil)
				y := a.New(KindTest, "y", nil)
				x.Deps = []ScopeID{y.ID}
				y.Deps = []ScopeID{x.ID}

				return x
			},
			want: diag.ErrDependencyCycle,
		},
		{
			name: "indirect",
			build: func(a *Arena) *Scope {
				x := a.New(KindTest, "x", nil)
				y := a.New(KindBuild, "y", nil)
				z := a.New(KindTest, "z", nil)
				x.Deps = []ScopeID{y.ID}
				y.Deps = []ScopeID{z.ID}
				z.Deps = []ScopeID{y.ID}

				return x
			},
			want: diag.ErrDependencyCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(WithEnv(testEnv))
			s := tt.build(c.Arena())

			wantErr(t, c.AddRun(s, s.Chain()), tt.want)

			if n := len(c.Runs()); n != 0 {
				t.Errorf("run-list has %d entries after error", n)
			}
		})
	}
}

func TestAddRunDiamond(t *testing.T) {
	c := New(WithEnv(testEnv))
	a := c.Arena()

	base := a.New(KindBuild, "base", nil)
	left := a.New(KindTest, "left", nil)
	right := a.New(KindTest, "right", nil)
	top := a.New(KindTest, "top", nil)

	left.Deps = []ScopeID{base.ID}
	right.Deps = []ScopeID{base.ID}
	top.Deps = []ScopeID{left.ID, right.ID}

	if err := c.AddRun(top, top.Chain()); err != nil {
		t.Fatalf("AddRun: %v", err)
	}

	if diff := cmp.Diff([]string{"base", "left", "right", "top"}, runNames(c.Runs())); diff != "" {
		t.Errorf("run-list mismatch (-want +got):\n%s", diff)
	}

	if !c.Runs().Contains(base.ID) {
		t.Error("base not registered")
	}
}
