package lang

import (
	"log/slog"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/dtcenter/METplus-sub003/lang/diag"
)

// qualifier separates the components of a qualified name.
const qualifier = "%"

// maxSuggestions bounds the "did you mean" list of an undefined name error.
const maxSuggestions = 3

// Resolve looks up a possibly qualified name. The first component is
// searched in each scope of chain in order; each further component is looked
// up locally in the value found so far, which must be scope-capable.
func (a *Arena) Resolve(name string, chain []ScopeID) (Object, error) {
	parts := strings.Split(name, qualifier)

	cur, ok := a.lookupChain(parts[0], chain)
	if !ok {
		return nil, a.undefined(parts[0], name, a.visible(chain))
	}

	for i, part := range parts[1:] {
		var (
			next  Object
			found bool
			names []string
		)

		switch v := cur.(type) {
		case *Scope:
			next, found = v.Lookup(part)
			names = localNames(v)
		case *Environment:
			next, found = v.Lookup(part)
			names = v.Names()
		default:
			return nil, diag.ErrNotScope.With(
				slog.String("name", name),
				slog.String("qualifier", strings.Join(parts[:i+1], qualifier)),
				slog.String("variant", variant(cur)),
			)
		}

		if !found {
			return nil, a.undefined(part, name, names)
		}

		cur = next
	}

	return cur, nil
}

// ResolveScope resolves name and requires the result to be a scope.
func (a *Arena) ResolveScope(name string, chain []ScopeID) (*Scope, error) {
	o, err := a.Resolve(name, chain)
	if err != nil {
		return nil, err
	}

	s, ok := o.(*Scope)
	if !ok {
		return nil, diag.ErrType.With(
			slog.String("name", name),
			slog.String("expected", "scope"),
			slog.String("variant", variant(o)),
		)
	}

	return s, nil
}

func (a *Arena) lookupChain(name string, chain []ScopeID) (Object, bool) {
	for _, id := range chain {
		if s := a.Get(id); s != nil {
			if v, ok := s.Lookup(name); ok {
				return v, true
			}
		}
	}

	return nil, false
}

// visible lists every name bound in chain, innermost first, without
// duplicates.
func (a *Arena) visible(chain []ScopeID) []string {
	seen := make(map[string]bool)

	var names []string

	for _, id := range chain {
		s := a.Get(id)
		if s == nil {
			continue
		}

		for name := range s.All() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	return names
}

func localNames(s *Scope) []string {
	names := make([]string, 0, s.Len())
	for name := range s.All() {
		names = append(names, name)
	}

	return names
}

func (a *Arena) undefined(part, name string, candidates []string) error {
	err := diag.ErrUndefined.With(slog.String("name", name))

	if s := suggest(part, candidates); len(s) > 0 {
		err = err.With(slog.String("suggest", strings.Join(s, " ")))
	}

	return err
}

// suggest returns up to maxSuggestions candidates that fuzzy-match word,
// best match first.
func suggest(word string, candidates []string) []string {
	var out []string

	for _, m := range fuzzy.Find(word, candidates) {
		if len(out) == maxSuggestions {
			break
		}

		out = append(out, m.Str)
	}

	if len(out) > 0 || word == "" {
		return out
	}

	// Misspellings rarely form a subsequence; retry with the first letter.
	for _, m := range fuzzy.Find(word[:1], candidates) {
		if len(out) == maxSuggestions {
			break
		}

		if strings.HasPrefix(m.Str, word[:1]) && closeLength(m.Str, word) {
			out = append(out, m.Str)
		}
	}

	return out
}

func closeLength(a, b string) bool {
	d := len(a) - len(b)

	return d >= -2 && d <= 2
}
