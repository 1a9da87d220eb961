package lang

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/dtcenter/METplus-sub003/lang/diag"
)

// RunEntry is one task scheduled to run, with the lookup chain in effect
// where it was scheduled.
type RunEntry struct {
	Scope *Scope
	Chain []ScopeID
}

// RunList is the ordered list of scheduled tasks. Every task appears after
// the tasks it depends on.
type RunList []RunEntry

// Contains reports whether the scope with the given id is scheduled.
func (l RunList) Contains(id ScopeID) bool {
	return slices.ContainsFunc(l, func(e RunEntry) bool { return e.Scope.ID == id })
}

// AddRun schedules s after its dependencies. Scheduling a task that is
// already present has no effect. Dependencies are scheduled with their own
// lookup chains. Nothing is scheduled when an error is returned.
func (c *Compiler) AddRun(s *Scope, chain []ScopeID) error {
	if c.runs.Contains(s.ID) {
		return nil
	}

	const (
		temporary = iota + 1
		permanent
	)

	var (
		marks = make(map[ScopeID]int)
		stack []*Scope
		added RunList
	)

	var visit func(n *Scope, ch []ScopeID) error

	visit = func(n *Scope, ch []ScopeID) error {
		if c.runs.Contains(n.ID) {
			return nil
		}

		switch marks[n.ID] {
		case permanent:
			return nil
		case temporary:
			return diag.ErrDependencyCycle.With(slog.String("cycle", cycleText(stack, n)))
		}

		marks[n.ID] = temporary
		stack = append(stack, n)

		for _, d := range c.Deps(n) {
			if d.ID == n.ID {
				return diag.ErrSelfDependency.With(slog.String("scope", n.Describe()))
			}

			if err := visit(d, d.Chain()); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		marks[n.ID] = permanent
		added = append(added, RunEntry{Scope: n, Chain: slices.Clone(ch)})

		return nil
	}

	if err := visit(s, chain); err != nil {
		return err
	}

	c.runs = append(c.runs, added...)

	return nil
}

// cycleText names the tasks of a cycle ending back at n.
func cycleText(stack []*Scope, n *Scope) string {
	i := slices.IndexFunc(stack, func(s *Scope) bool { return s.ID == n.ID })

	names := make([]string, 0, len(stack)-i+1)
	for _, s := range stack[i:] {
		names = append(names, s.Describe())
	}

	return strings.Join(append(names, n.Describe()), " -> ")
}
