package lang

import (
	"log/slog"

	"github.com/dtcenter/METplus-sub003/lang/diag"
)

// Apply instantiates the parameterized scope tmpl with the variables of
// args, which may be nil. The template is never modified. Every value stored
// in the instance is rescoped so that references to either tmpl or args
// refer to the instance instead; two instances of one template therefore
// share no scopes that could observe each other's bindings.
func (a *Arena) Apply(tmpl, args *Scope) (*Scope, error) {
	if args != nil && args.HasParams() {
		return nil, diag.ErrType.With(
			slog.String("scope", args.Describe()),
			slog.String("reason", "argument list declares parameters"),
		)
	}

	inst := a.New(tmpl.Kind, tmpl.Name, tmpl.Defscopes)
	inst.Origin = tmpl.ID

	if tmpl.Origin != 0 {
		inst.Origin = tmpl.Origin
	}

	ids := map[ScopeID]ScopeID{tmpl.ID: inst.ID}
	if args != nil {
		ids[args.ID] = inst.ID
	}

	r := &rescoper{arena: a, ids: ids}

	for name, def := range tmpl.Params() {
		v := def

		if args != nil {
			if arg, ok := args.Lookup(name); ok {
				v = arg
			}
		}

		if v == nil {
			return nil, diag.ErrMissingArgument.With(
				slog.String("name", name),
				slog.String("scope", tmpl.Describe()),
			)
		}

		if err := inst.BindParam(name, r.object(v), false); err != nil {
			return nil, err
		}
	}

	for name, v := range tmpl.Vars() {
		if err := inst.Bind(name, r.object(v), false); err != nil {
			return nil, err
		}
	}

	if args != nil {
		for name, v := range args.Vars() {
			if tmpl.IsParam(name) {
				continue
			}

			if err := inst.Bind(name, r.object(v), true); err != nil {
				return nil, err
			}
		}
	}

	for _, d := range tmpl.Deps {
		inst.Deps = append(inst.Deps, r.scopeID(d))
	}

	if tmpl.Template != nil {
		inst.Template = r.str(tmpl.Template)
	}

	return inst, nil
}
