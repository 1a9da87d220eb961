package lang

import "slices"

// rescoper substitutes scope ids throughout a value. Scopes whose lookup
// chain reaches a substituted id are copied into fresh arena scopes, as is
// every non-task scope when a chain prefix is given. Other scopes are
// shared with the original value.
type rescoper struct {
	arena   *Arena
	ids     map[ScopeID]ScopeID
	prepend []ScopeID
}

// Rescope returns a copy of o in which every reference to a scope id in ids
// is replaced by the mapped id and prepend is placed in front of every
// rescoped lookup chain. The ids map is extended with the copies made.
func (a *Arena) Rescope(o Object, ids map[ScopeID]ScopeID, prepend []ScopeID) Object {
	if ids == nil {
		ids = make(map[ScopeID]ScopeID)
	}

	r := &rescoper{arena: a, ids: ids, prepend: prepend}

	return r.object(o)
}

func (r *rescoper) object(o Object) Object {
	if o == nil {
		return nil
	}

	return o.rescope(r)
}

func (r *rescoper) chain(ids []ScopeID) []ScopeID {
	out := make([]ScopeID, 0, len(r.prepend)+len(ids))
	out = append(out, r.prepend...)

	for _, id := range ids {
		if n, ok := r.ids[id]; ok {
			id = n
		}

		// A substitution can collapse two entries onto one scope.
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}

	return out
}

// affected reports whether s must be copied. Tasks keep their identity
// under a prefix alone, since the run-list and dependency edges refer to
// them by id.
func (r *rescoper) affected(s *Scope) bool {
	if len(r.prepend) > 0 && !s.Kind.IsTask() {
		return true
	}

	for _, id := range s.Defscopes {
		if _, ok := r.ids[id]; ok {
			return true
		}
	}

	return false
}

func (r *rescoper) scopeID(id ScopeID) ScopeID {
	s := r.arena.Get(id)
	if s == nil {
		return id
	}

	return r.scope(s).ID
}

func (r *rescoper) scope(s *Scope) *Scope {
	if n, ok := r.ids[s.ID]; ok {
		return r.arena.Get(n)
	}

	if !r.affected(s) {
		return s
	}

	c := r.arena.New(s.Kind, s.Name, nil)
	r.ids[s.ID] = c.ID

	c.Origin = s.Origin
	c.Defscopes = r.chain(s.Defscopes)

	for _, b := range s.bindings {
		b.value = r.object(b.value)
		_ = c.bind(b, false)
	}

	for _, d := range s.Deps {
		c.Deps = append(c.Deps, r.scopeID(d))
	}

	if s.Template != nil {
		c.Template = r.str(s.Template)
	}

	return c
}

func (r *rescoper) str(s *String) *String {
	return &String{Text: s.Text, Scopes: r.chain(s.Scopes)}
}

func (s *String) rescope(r *rescoper) Object { return r.str(s) }

func (n *Numeric) rescope(*rescoper) Object { return n }

func (s *Scope) rescope(r *rescoper) Object { return r.scope(s) }

func (e *Environment) rescope(*rescoper) Object { return e }

func (s *Spawn) rescope(r *rescoper) Object {
	c := &Spawn{Ranks: make([]Rank, len(s.Ranks))}

	for i, rk := range s.Ranks {
		c.Ranks[i] = Rank{
			Command: r.object(rk.Command),
			Ranks:   r.object(rk.Ranks),
			Threads: r.object(rk.Threads),
		}
	}

	return c
}

func (f *Filters) rescope(r *rescoper) Object {
	return &Filters{entries: rescopeEntries(r, f.entries)}
}

func (c *Criteria) rescope(r *rescoper) Object {
	return &Criteria{entries: rescopeEntries(r, c.entries)}
}

func rescopeEntries(r *rescoper, in []filterEntry) []filterEntry {
	out := make([]filterEntry, len(in))

	for i, e := range in {
		out[i] = filterEntry{
			target: r.object(e.target),
			key:    e.key,
			calls:  make([]call, len(e.calls)),
		}

		for j, c := range e.calls {
			out[i].calls[j] = call{scope: r.scope(c.scope), key: c.key, sum: c.sum}
		}
	}

	return out
}
