package lang

import (
	"log/slog"

	"github.com/dtcenter/METplus-sub003/lang/diag"
)

// Step is one named stage of a build or test.
type Step struct {
	Name  string
	Value Object
}

// Steps returns the stages of a build or test in execution order.
//
// A build runs its build step and must also bind target. A test must bind
// prep, input and execute, and either output or both make_baseline and
// verify. It runs prep, input and execute, then make_baseline in baseline
// mode or verify in compare mode, falling back to output when the mode's
// step is absent.
func (c *Compiler) Steps(s *Scope) ([]Step, error) {
	switch s.Kind {
	case KindBuild:
		b, err := c.step(s, "build")
		if err != nil {
			return nil, err
		}

		if _, err := c.step(s, "target"); err != nil {
			return nil, err
		}

		return []Step{b}, nil

	case KindTest:
		steps := make([]Step, 0, 4)

		for _, name := range []string{"prep", "input", "execute"} {
			st, err := c.step(s, name)
			if err != nil {
				return nil, err
			}

			steps = append(steps, st)
		}

		final, err := c.finalStep(s)
		if err != nil {
			return nil, err
		}

		return append(steps, final), nil
	}

	return nil, unsupported("steps", s)
}

// finalStep checks that a test can run in either mode before choosing the
// step for the current one.
func (c *Compiler) finalStep(s *Scope) (Step, error) {
	out, outErr := c.step(s, "output")
	mb, mbErr := c.step(s, "make_baseline")
	vf, vfErr := c.step(s, "verify")

	if outErr != nil && (mbErr != nil || vfErr != nil) {
		missing := "output"
		switch {
		case mbErr != nil && vfErr == nil:
			missing = "make_baseline"
		case vfErr != nil && mbErr == nil:
			missing = "verify"
		}

		return Step{}, diag.ErrMissingStep.With(
			slog.String("step", missing),
			slog.String("scope", s.Describe()),
			slog.String("mode", c.mode.String()),
		)
	}

	switch {
	case c.mode == ModeCompare && vfErr == nil:
		return vf, nil
	case c.mode != ModeCompare && mbErr == nil:
		return mb, nil
	}

	return out, nil
}

func (c *Compiler) step(s *Scope, name string) (Step, error) {
	v, ok := s.Lookup(name)
	if !ok || v == nil {
		return Step{}, diag.ErrMissingStep.With(
			slog.String("step", name),
			slog.String("scope", s.Describe()),
		)
	}

	return Step{Name: name, Value: v}, nil
}

// Command renders a step as shell commands. A string step is the command
// text itself rather than a quoted word.
func (c *Compiler) Command(o Object) (string, error) {
	if s, ok := o.(*String); ok {
		return c.String(s)
	}

	return c.Shell(o)
}
