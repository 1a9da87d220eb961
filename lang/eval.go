package lang

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dtcenter/METplus-sub003/lang/ast"
	"github.com/dtcenter/METplus-sub003/lang/diag"
	"github.com/dtcenter/METplus-sub003/lang/parser"
)

// frame is one entry of the evaluator's scope stack.
type frame struct {
	scope *Scope

	// overwrite lets a later binding replace an earlier one.
	overwrite bool
	// reachOuter resolves names starting after the frame's own scope, so
	// that "x = x" in an argument list refers to the caller's x.
	reachOuter bool
	// params binds assignments and bare names as parameters.
	params bool
	// filters receives the entries of a filters or criteria block.
	filters Object
}

type evaluator struct {
	c     *Compiler
	file  string
	stack []frame
}

func (c *Compiler) evalSource(ctx context.Context, file string, src []byte) error {
	e := &evaluator{c: c, file: file, stack: []frame{{scope: c.root}}}
	p := parser.New(file, src)

	for {
		stmt, err := p.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		c.logger.TraceContext(ctx, "statement",
			slog.String("file", file),
			slog.Int("line", stmt.Position().Line),
			slog.String("kind", fmt.Sprintf("%T", stmt)),
		)

		if err := e.stmt(ctx, stmt); err != nil {
			return err
		}
	}
}

func (e *evaluator) top() *frame { return &e.stack[len(e.stack)-1] }

func (e *evaluator) push(f frame) { e.stack = append(e.stack, f) }

func (e *evaluator) pop() { e.stack = e.stack[:len(e.stack)-1] }

// chain is the lookup chain for names referenced in the current frame.
func (e *evaluator) chain() []ScopeID {
	f := e.top()
	if f.reachOuter {
		return f.scope.Defscopes
	}

	return f.scope.Chain()
}

// block evaluates body with f pushed on the stack.
func (e *evaluator) block(ctx context.Context, f frame, body []ast.Stmt) error {
	e.push(f)
	defer e.pop()

	for _, s := range body {
		if err := e.stmt(ctx, s); err != nil {
			return err
		}
	}

	return nil
}

func (e *evaluator) bind(name string, v Object) error {
	f := e.top()
	if f.params {
		return f.scope.BindParam(name, v, f.overwrite)
	}

	return f.scope.Bind(name, v, f.overwrite)
}

func (e *evaluator) stmt(ctx context.Context, s ast.Stmt) error {
	return diag.At(e.eval(ctx, s), s.Position())
}

func (e *evaluator) eval(ctx context.Context, s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.Assign:
		v, err := e.expr(ctx, n.Value)
		if err != nil {
			return err
		}

		return e.bind(n.Name, v)

	case *ast.Null:
		return e.bind(n.Name, nil)

	case *ast.Use:
		return e.use(n)

	case *ast.Task:
		return e.task(ctx, n)

	case *ast.Hash:
		h := e.c.arena.New(KindHash, n.Name, e.top().scope.Chain())

		if err := e.params(ctx, h, n.Params); err != nil {
			return err
		}

		if err := e.block(ctx, frame{scope: h, overwrite: true}, n.Body); err != nil {
			return err
		}

		return e.bind(n.Name, h)

	case *ast.Embed:
		return e.embed(ctx, n)

	case *ast.Spawn:
		sp, err := e.spawn(ctx, n)
		if err != nil {
			return err
		}

		return e.bind(n.Name, sp)

	case *ast.Filters:
		return e.filters(ctx, n)

	case *ast.FilterEntry:
		return e.filterEntry(ctx, n)

	case *ast.AutoDetect:
		platforms := make([]*Scope, 0, len(n.Platforms))

		for _, ref := range n.Platforms {
			p, err := e.c.arena.ResolveScope(ref.Name, e.chain())
			if err != nil {
				return diag.At(err, ref.Position())
			}

			platforms = append(platforms, p)
		}

		p, err := e.c.AutoDetect(ctx, platforms)
		if err != nil {
			return err
		}

		return e.bind(n.Name, p)

	case *ast.Load:
		path, err := e.c.String(NewString(n.Path.Text, e.chain()))
		if err != nil {
			return err
		}

		return e.c.LoadFile(ctx, loadPath(e.file, path))

	case *ast.Run:
		v, err := e.expr(ctx, n.Value)
		if err != nil {
			return err
		}

		t, ok := v.(*Scope)
		if !ok || (t.Kind != KindBuild && t.Kind != KindTest) {
			return diag.ErrType.With(
				slog.String("statement", "run"),
				slog.String("expected", "build or test"),
				slog.String("variant", variant(v)),
			)
		}

		return e.c.AddRun(t, e.chain())
	}

	return diag.ErrUnimplemented.With(slog.String("statement", fmt.Sprintf("%T", s)))
}

func (e *evaluator) expr(ctx context.Context, x ast.Expr) (Object, error) {
	switch n := x.(type) {
	case *ast.StringLit:
		return NewString(n.Text, e.top().scope.Chain()), nil

	case *ast.NumberLit:
		return &Numeric{Text: n.Text, Value: n.Value}, nil

	case *ast.NameRef:
		return e.c.arena.Resolve(n.Name, e.chain())

	case *ast.HashLit:
		h := e.c.arena.New(KindHash, "", e.top().scope.Chain())
		if err := e.block(ctx, frame{scope: h, overwrite: true}, n.Body); err != nil {
			return nil, err
		}

		return h, nil

	case *ast.Call:
		return e.call(ctx, n.Name, n.Args)
	}

	return nil, diag.ErrUnimplemented.With(slog.String("expression", fmt.Sprintf("%T", x)))
}

// call applies an argument list to the parameterized scope named name.
func (e *evaluator) call(ctx context.Context, name string, args []ast.Stmt) (*Scope, error) {
	tmpl, err := e.c.arena.ResolveScope(name, e.chain())
	if err != nil {
		return nil, err
	}

	a := e.c.arena.New(KindArgs, "", e.top().scope.Chain())
	if err := e.block(ctx, frame{scope: a, reachOuter: true}, args); err != nil {
		return nil, err
	}

	return e.c.arena.Apply(tmpl, a)
}

// params declares the parameters of s. A nil list declares none.
func (e *evaluator) params(ctx context.Context, s *Scope, params []ast.Stmt) error {
	if params == nil {
		return nil
	}

	return e.block(ctx, frame{scope: s, reachOuter: true, params: true}, params)
}

// use merges the named object into the current frame. Names already bound
// locally keep their values; merged strings look up the current scope
// first.
func (e *evaluator) use(n *ast.Use) error {
	f := e.top()

	o, err := e.c.arena.Resolve(n.Name, e.chain())
	if err != nil {
		return err
	}

	if f.filters != nil {
		return useFilters(f.filters, o, n.Name)
	}

	src, ok := o.(*Scope)
	if !ok {
		return diag.ErrType.With(
			slog.String("name", n.Name),
			slog.String("expected", "scope"),
			slog.String("variant", variant(o)),
		)
	}

	prepend := []ScopeID{f.scope.ID}

	for name, v := range src.All() {
		if _, exists := f.scope.Lookup(name); exists {
			continue
		}

		if err := f.scope.Bind(name, e.c.arena.Rescope(v, nil, prepend), false); err != nil {
			return err
		}
	}

	return nil
}

func useFilters(dst, o Object, name string) error {
	switch d := dst.(type) {
	case *Filters:
		if src, ok := o.(*Filters); ok {
			d.Use(src)

			return nil
		}
	case *Criteria:
		if src, ok := o.(*Criteria); ok {
			d.Use(src)

			return nil
		}
	}

	return diag.ErrType.With(
		slog.String("name", name),
		slog.String("expected", variant(dst)),
		slog.String("variant", variant(o)),
	)
}

var taskKinds = map[ast.TaskKind]ScopeKind{
	ast.BuildTask:    KindBuild,
	ast.TestTask:     KindTest,
	ast.PlatformTask: KindPlatform,
}

func (e *evaluator) task(ctx context.Context, n *ast.Task) error {
	t := e.c.arena.New(taskKinds[n.Kind], n.Name, e.top().scope.Chain())

	if err := e.params(ctx, t, n.Params); err != nil {
		return err
	}

	for _, ref := range n.Deps {
		d, err := e.c.arena.ResolveScope(ref.Name, e.chain())
		if err != nil {
			return diag.At(err, ref.Position())
		}

		if d.Kind != KindBuild && d.Kind != KindTest {
			return diag.At(diag.ErrType.With(
				slog.String("dependency", ref.Name),
				slog.String("expected", "build or test"),
				slog.String("variant", variant(d)),
			), ref.Position())
		}

		t.Deps = append(t.Deps, d.ID)
	}

	if err := e.block(ctx, frame{scope: t, overwrite: true}, n.Body); err != nil {
		return err
	}

	return e.bind(n.Name, t)
}

func (e *evaluator) embed(ctx context.Context, n *ast.Embed) error {
	if n.Lang != "bash" {
		return diag.ErrUnimplemented.With(
			slog.String("embed", n.Name),
			slog.String("language", n.Lang),
		)
	}

	s := e.c.arena.New(KindEmbed, n.Name, e.top().scope.Chain())

	if err := e.params(ctx, s, n.Params); err != nil {
		return err
	}

	if err := e.block(ctx, frame{scope: s}, n.Vars); err != nil {
		return err
	}

	s.Template = NewString(n.Template.Text, s.Chain())

	return e.bind(n.Name, s)
}

func (e *evaluator) spawn(ctx context.Context, n *ast.Spawn) (*Spawn, error) {
	sp := &Spawn{Ranks: make([]Rank, 0, len(n.Ranks))}

	for _, r := range n.Ranks {
		cmd, err := e.expr(ctx, r.Command)
		if err != nil {
			return nil, diag.At(err, r.Position())
		}

		rank := Rank{Command: cmd, Ranks: NewNumeric(1)}

		for _, opt := range r.Options {
			v, err := e.expr(ctx, opt.Value)
			if err != nil {
				return nil, diag.At(err, opt.Position())
			}

			switch opt.Name {
			case "ranks":
				rank.Ranks = v
			case "threads":
				rank.Threads = v
			default:
				return nil, diag.At(diag.ErrType.With(
					slog.String("option", opt.Name),
					slog.String("expected", "ranks or threads"),
				), opt.Position())
			}
		}

		sp.Ranks = append(sp.Ranks, rank)
	}

	return sp, nil
}

func (e *evaluator) filters(ctx context.Context, n *ast.Filters) error {
	var obj Object = &Filters{}
	if n.Criteria {
		obj = &Criteria{}
	}

	if err := e.block(ctx, frame{scope: e.top().scope, filters: obj}, n.Body); err != nil {
		return err
	}

	return e.bind(n.Name, obj)
}

// filterEntry applies the entry's operator. Filters deliver the source to
// the target; criteria compare or capture the target as the source.
func (e *evaluator) filterEntry(ctx context.Context, n *ast.FilterEntry) error {
	f := e.top()

	op, err := e.c.arena.ResolveScope(n.Op, e.chain())
	if err != nil {
		return err
	}

	if !op.IsParam(paramSrc) || !op.IsParam(paramTgt) {
		return diag.ErrType.With(
			slog.String("operator", n.Op),
			slog.String("expected", "scope with src and tgt parameters"),
		)
	}

	target, err := e.expr(ctx, n.Target)
	if err != nil {
		return err
	}

	source, err := e.expr(ctx, n.Source)
	if err != nil {
		return err
	}

	args := e.c.arena.New(KindArgs, "", f.scope.Chain())

	src, tgt := source, target
	if _, ok := f.filters.(*Criteria); ok {
		src, tgt = target, source
	}

	_ = args.Bind(paramSrc, src, false)
	_ = args.Bind(paramTgt, tgt, false)

	inst, err := e.c.arena.Apply(op, args)
	if err != nil {
		return err
	}

	switch fs := f.filters.(type) {
	case *Filters:
		fs.Add(target, inst)
	case *Criteria:
		fs.Add(target, inst)
	}

	return nil
}
