package lang

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"log/slog"
	"os/exec"
	"slices"
	"strconv"
	"strings"

	"github.com/dtcenter/METplus-sub003/fsops"
	"github.com/dtcenter/METplus-sub003/lang/diag"
	"github.com/dtcenter/METplus-sub003/lang/lexer"
)

// maxDepth bounds nested interpolation, which only recurses this far when a
// string refers to itself.
const maxDepth = 64

func unsupported(op string, o Object) error {
	return diag.ErrContext.With(
		slog.String("context", op),
		slog.String("variant", variant(o)),
	)
}

func missing(op string) error {
	return diag.ErrMissingArgument.With(slog.String("context", op))
}

// Shell renders o as a shell fragment.
func (c *Compiler) Shell(o Object) (string, error) {
	switch v := o.(type) {
	case nil:
		return "", missing("shell")
	case *String:
		s, err := c.String(v)
		if err != nil {
			return "", err
		}

		return ShellQuote(s), nil
	case *Numeric:
		return v.String(), nil
	case *Scope:
		return c.shellScope(v)
	case *Spawn:
		return c.shellSpawn(v)
	case *Filters:
		return c.shellCalls(v.Calls())
	case *Criteria:
		return c.shellCalls(v.Calls())
	default:
		return "", unsupported("shell", o)
	}
}

// String renders o as plain text.
func (c *Compiler) String(o Object) (string, error) {
	switch v := o.(type) {
	case nil:
		return "", missing("string")
	case *String:
		return c.expand(v, c.String)
	case *Numeric:
		return v.String(), nil
	case *Scope:
		if v.Kind == KindBuild {
			t, ok := v.Lookup("target")
			if !ok {
				return "", diag.ErrMissingStep.With(
					slog.String("step", "target"),
					slog.String("scope", v.Describe()),
				)
			}

			return c.String(t)
		}
	}

	return "", unsupported("string", o)
}

// Number renders o as a number. Strings that do not parse as a number are
// evaluated as expressions.
func (c *Compiler) Number(o Object) (float64, error) {
	switch v := o.(type) {
	case nil:
		return 0, missing("number")
	case *Numeric:
		return v.Value, nil
	case *String:
		s, err := c.String(v)
		if err != nil {
			return 0, err
		}

		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, nil
		}

		return c.exprNumber(s)
	case *Spawn:
		var total float64

		for _, r := range v.Ranks {
			n, err := c.Number(r.Ranks)
			if err != nil {
				return 0, err
			}

			total += n
		}

		return total, nil
	default:
		return 0, unsupported("number", o)
	}
}

// Bool evaluates o as a condition.
func (c *Compiler) Bool(ctx context.Context, o Object) (bool, error) {
	switch v := o.(type) {
	case nil:
		return false, missing("bool")
	case *Numeric:
		return v.Value != 0, nil
	case *String:
		s, err := c.String(v)
		if err != nil {
			return false, err
		}

		if strings.TrimSpace(s) == "" {
			return false, nil
		}

		return c.exprBool(s)
	case *Scope:
		switch v.Kind {
		case KindPlatform:
			d, ok := v.Lookup("detect")
			if !ok {
				return false, diag.ErrMissingStep.With(
					slog.String("step", "detect"),
					slog.String("scope", v.Describe()),
				)
			}

			return c.Bool(ctx, d)

		case KindBitCmp:
			src, tgt, err := c.operands(v)
			if err != nil {
				return false, err
			}

			// in baseline mode the comparison delivers the baseline
			if c.mode != ModeCompare {
				if err := fsops.Copy(src, tgt); err != nil {
					return false, diag.ErrIO.Wrap(err)
				}

				return true, nil
			}

			same, err := fsops.BitCmp(src, tgt)
			if err != nil {
				return false, diag.ErrIO.Wrap(err)
			}

			return same, nil

		case KindEmbed:
			err := c.runBash(ctx, v)

			var exit *exec.ExitError
			if errors.As(err, &exit) {
				return false, nil
			}

			return err == nil, err
		}
	}

	return false, unsupported("bool", o)
}

// Execute performs o directly instead of rendering it.
func (c *Compiler) Execute(ctx context.Context, o Object) error {
	s, ok := o.(*Scope)
	if !ok {
		return unsupported("execute", o)
	}

	switch s.Kind {
	case KindEmbed:
		return c.runBash(ctx, s)
	case KindAtParse:
		return diag.ErrUnimplemented.With(slog.String("context", "execute"),
			slog.String("variant", variant(s)))
	case KindCopy, KindCopyDir, KindLink, KindBitCmp:
	default:
		return unsupported("execute", o)
	}

	src, tgt, err := c.operands(s)
	if err != nil {
		return err
	}

	switch {
	case s.Kind == KindCopyDir:
		err = fsops.CopyDir(src, tgt)
	case s.Kind == KindLink:
		err = fsops.Link(src, tgt)
	case s.Kind == KindBitCmp && c.mode == ModeCompare:
		same, cmpErr := fsops.BitCmp(src, tgt)
		if cmpErr != nil {
			return diag.ErrIO.Wrap(cmpErr)
		}

		if !same {
			return diag.ErrCompareFailed.With(slog.String("src", src), slog.String("tgt", tgt))
		}
	default:
		err = fsops.Copy(src, tgt)
	}

	if err != nil {
		return diag.ErrIO.Wrap(err)
	}

	return nil
}

// Deps returns the tasks o depends on. Objects other than tasks have none.
func (c *Compiler) Deps(o Object) []*Scope {
	s, ok := o.(*Scope)
	if !ok || !s.Kind.IsTask() {
		return nil
	}

	deps := make([]*Scope, 0, len(s.Deps))
	for _, id := range s.Deps {
		if d := c.arena.Get(id); d != nil {
			deps = append(deps, d)
		}
	}

	return deps
}

// expand interpolates a brace string, rendering each reference with render.
func (c *Compiler) expand(s *String, render func(Object) (string, error)) (string, error) {
	if c.depth >= maxDepth {
		return "", diag.ErrType.With(
			slog.String("reason", "interpolation nested too deeply"),
			slog.String("text", s.Text),
		)
	}

	c.depth++
	defer func() { c.depth-- }()

	segs, err := lexer.Segments(s.Text)
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	for _, seg := range segs {
		if seg.Kind == lexer.Literal {
			sb.WriteString(seg.Text)

			continue
		}

		v, err := c.arena.Resolve(seg.Text, s.Scopes)
		if err != nil {
			return "", err
		}

		if v == nil {
			return "", diag.ErrMissingArgument.With(slog.String("name", seg.Text))
		}

		out, err := render(v)
		if err != nil {
			return "", err
		}

		sb.WriteString(out)
	}

	return sb.String(), nil
}

// operands returns the src and tgt paths of an operator instance.
func (c *Compiler) operands(s *Scope) (src, tgt string, err error) {
	get := func(name string) (string, error) {
		v, ok := s.Lookup(name)
		if !ok || v == nil {
			return "", diag.ErrMissingArgument.With(
				slog.String("name", name),
				slog.String("scope", s.Describe()),
			)
		}

		return c.String(v)
	}

	if src, err = get(paramSrc); err != nil {
		return "", "", err
	}

	if tgt, err = get(paramTgt); err != nil {
		return "", "", err
	}

	return src, tgt, nil
}

// exports renders the exportable bindings of s as assignments.
func (c *Compiler) exports(s *Scope) ([]string, error) {
	var lines []string

	for name, v := range s.All() {
		if !exportable(name, v) {
			continue
		}

		text, err := c.String(v)
		if err != nil {
			return nil, err
		}

		lines = append(lines, "export "+name+"="+ShellQuote(text))
	}

	return lines, nil
}

func (c *Compiler) shellScope(s *Scope) (string, error) {
	switch s.Kind {
	case KindBuild, KindTest:
		return c.shellSteps(s)
	case KindEmbed:
		return c.shellEmbed(s)
	case KindCopy, KindCopyDir, KindLink, KindAtParse, KindBitCmp:
	default:
		return "", unsupported("shell", s)
	}

	src, tgt, err := c.operands(s)
	if err != nil {
		return "", err
	}

	src, tgt = ShellQuote(src), ShellQuote(tgt)

	switch s.Kind {
	case KindCopyDir:
		return "mkdir -p " + tgt + "\n" +
			"for f in " + src + "/*; do deliver_file \"$f\" " + tgt + "/\"${f##*/}\"; done", nil

	case KindLink:
		return "ln -sf " + src + " " + tgt, nil

	case KindAtParse:
		lines, err := c.exports(s)
		if err != nil {
			return "", err
		}

		lines = append(lines, "atparse < "+src+" > "+tgt)

		return "(\n  " + strings.Join(lines, "\n  ") + "\n)", nil

	case KindBitCmp:
		if c.mode == ModeCompare {
			return "bitcmp " + src + " " + tgt, nil
		}
	}

	return "deliver_file " + src + " " + tgt, nil
}

func (c *Compiler) shellEmbed(s *Scope) (string, error) {
	if s.Template == nil {
		return "", unsupported("shell", s)
	}

	lines, err := c.exports(s)
	if err != nil {
		return "", err
	}

	body, err := c.expand(s.Template, c.Shell)
	if err != nil {
		return "", err
	}

	return strings.Join(append(lines, body), "\n"), nil
}

func (c *Compiler) shellSteps(s *Scope) (string, error) {
	steps, err := c.Steps(s)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(steps))

	for _, st := range steps {
		text, err := c.Command(st.Value)
		if err != nil {
			return "", diag.WrapError(err).With(slog.String("step", st.Name))
		}

		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, "\n"), nil
}

func (c *Compiler) shellCalls(calls iter.Seq2[Object, *Scope]) (string, error) {
	var parts []string

	for _, inst := range calls {
		text, err := c.Shell(inst)
		if err != nil {
			return "", err
		}

		parts = append(parts, text)
	}

	return strings.Join(parts, "\n"), nil
}

func (c *Compiler) shellSpawn(s *Spawn) (string, error) {
	var (
		groups  []string
		threads float64
	)

	for _, r := range s.Ranks {
		cmd, err := c.String(r.Command)
		if err != nil {
			return "", err
		}

		n, err := c.count(r.Ranks, "ranks")
		if err != nil {
			return "", err
		}

		if r.Threads != nil {
			t, err := c.count(r.Threads, "threads")
			if err != nil {
				return "", err
			}

			threads = max(threads, t)
		}

		groups = append(groups, "-n "+strconv.FormatFloat(n, 'f', -1, 64)+" "+cmd)
	}

	launch := "${MPI_LAUNCHER:-mpiexec} " + strings.Join(groups, " : ")

	if threads > 0 {
		launch = "export OMP_NUM_THREADS=" + strconv.FormatFloat(threads, 'f', -1, 64) + "\n" + launch
	}

	return launch, nil
}

// count evaluates a positive whole number.
func (c *Compiler) count(o Object, what string) (float64, error) {
	n, err := c.Number(o)
	if err != nil {
		return 0, err
	}

	if n < 1 || n != float64(int64(n)) {
		return 0, diag.ErrType.With(
			slog.String(what, strconv.FormatFloat(n, 'g', -1, 64)),
			slog.String("expected", "positive integer"),
		)
	}

	return n, nil
}

// runBash executes the shell rendering of an embed instance with bash.
func (c *Compiler) runBash(ctx context.Context, s *Scope) error {
	script, err := c.Shell(s)
	if err != nil {
		return err
	}

	var out bytes.Buffer

	cmd := exec.CommandContext(ctx, "bash", "-c", script)
	cmd.Env = c.environ()
	cmd.Stdout = &out
	cmd.Stderr = &out

	err = cmd.Run()

	c.logger.DebugContext(ctx, "embedded script",
		slog.String("scope", s.Describe()),
		slog.String("output", out.String()),
		slog.Bool("ok", err == nil),
	)

	if err != nil {
		return diag.ErrExec.Wrap(err).With(slog.String("scope", s.Describe()))
	}

	return nil
}

func (c *Compiler) environ() []string {
	env := make([]string, 0, len(c.env))
	for k, v := range c.env {
		env = append(env, k+"="+v)
	}

	slices.Sort(env)

	return env
}
