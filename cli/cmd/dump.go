package cmd

import (
	"context"
	"iter"

	"github.com/goccy/go-yaml"

	"github.com/dtcenter/METplus-sub003/lang"
)

// Dump describes the compiled top-level scope as YAML. Scopes reachable
// more than once are written in full the first time and as a reference
// ("build model", "hash h") afterwards.
type Dump struct {
	Suite Suite `embed:""`
}

// Run executes the dump command.
func (d *Dump) Run(ctx context.Context) error {
	c, err := d.Suite.compile(ctx)
	if err != nil {
		return err
	}

	b, err := yaml.Marshal(describe(c))
	if err != nil {
		return ErrYAMLMarshal.Wrap(err)
	}

	if _, err := outputFrom(ctx).Write(b); err != nil {
		return ErrWriteOutput.Wrap(err)
	}

	return nil
}

// describe returns the document written by [Dump].
func describe(c *lang.Compiler) yaml.MapSlice {
	platform := any(nil)
	if p := c.Platform(); p != nil {
		platform = p.Name
	}

	runs := make([]string, 0, len(c.Runs()))
	for _, e := range c.Runs() {
		runs = append(runs, e.Scope.Describe())
	}

	d := dumper{c: c, seen: map[lang.ScopeID]bool{c.Root().ID: true}}

	return yaml.MapSlice{
		{Key: "mode", Value: c.Mode().String()},
		{Key: "platform", Value: platform},
		{Key: "files", Value: c.Files()},
		{Key: "runs", Value: runs},
		{Key: "scope", Value: d.bindings(c.Root())},
	}
}

type dumper struct {
	c    *lang.Compiler
	seen map[lang.ScopeID]bool
}

func (d *dumper) bindings(s *lang.Scope) yaml.MapSlice {
	m := yaml.MapSlice{}

	for name, v := range s.All() {
		m = append(m, yaml.MapItem{Key: name, Value: d.object(v)})
	}

	return m
}

func (d *dumper) object(o lang.Object) any {
	switch v := o.(type) {
	case nil:
		return nil

	case *lang.String:
		return v.Text

	case *lang.Numeric:
		return v.Value

	case *lang.Environment:
		return yaml.MapSlice{{Key: "kind", Value: "environment"}}

	case *lang.Spawn:
		ranks := make([]yaml.MapSlice, len(v.Ranks))
		for i, r := range v.Ranks {
			ranks[i] = yaml.MapSlice{
				{Key: "command", Value: d.object(r.Command)},
				{Key: "ranks", Value: d.object(r.Ranks)},
				{Key: "threads", Value: d.object(r.Threads)},
			}
		}

		return yaml.MapSlice{{Key: "kind", Value: "spawn"}, {Key: "ranks", Value: ranks}}

	case *lang.Filters:
		return yaml.MapSlice{{Key: "kind", Value: "filters"}, {Key: "entries", Value: d.calls(v.Calls())}}

	case *lang.Criteria:
		return yaml.MapSlice{{Key: "kind", Value: "criteria"}, {Key: "entries", Value: d.calls(v.Calls())}}

	case *lang.Scope:
		return d.scope(v)

	default:
		return nil
	}
}

func (d *dumper) scope(s *lang.Scope) any {
	if d.seen[s.ID] {
		return s.Describe()
	}

	d.seen[s.ID] = true

	m := yaml.MapSlice{{Key: "kind", Value: s.Kind.String()}}

	if s.Name != "" {
		m = append(m, yaml.MapItem{Key: "name", Value: s.Name})
	}

	if deps := d.c.Deps(s); len(deps) > 0 {
		names := make([]string, len(deps))
		for i, dep := range deps {
			names[i] = dep.Describe()
		}

		m = append(m, yaml.MapItem{Key: "deps", Value: names})
	}

	var params []string
	for name := range s.Params() {
		params = append(params, name)
	}

	if len(params) > 0 {
		m = append(m, yaml.MapItem{Key: "params", Value: params})
	}

	vars := yaml.MapSlice{}
	for name, v := range s.Vars() {
		vars = append(vars, yaml.MapItem{Key: name, Value: d.object(v)})
	}

	if len(vars) > 0 {
		m = append(m, yaml.MapItem{Key: "vars", Value: vars})
	}

	if s.Template != nil {
		m = append(m, yaml.MapItem{Key: "template", Value: s.Template.Text})
	}

	return m
}

func (d *dumper) calls(calls iter.Seq2[lang.Object, *lang.Scope]) []yaml.MapSlice {
	var out []yaml.MapSlice

	for target, op := range calls {
		out = append(out, yaml.MapSlice{
			{Key: "target", Value: d.object(target)},
			{Key: "op", Value: d.object(op)},
		})
	}

	return out
}
