package lang

import (
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// call is one applied operator. Its key is the canonical text of the
// instance, used for structural equality.
type call struct {
	scope *Scope
	key   string
	sum   uint64
}

func newCall(inst *Scope) call {
	key := canonical(inst)

	return call{scope: inst, key: key, sum: xxh3.HashString(key)}
}

// same compares fingerprints first and confirms with the canonical text.
func (c call) same(o call) bool {
	return c.sum == o.sum && c.key == o.key
}

type filterEntry struct {
	target Object
	key    string
	calls  []call
}

// Filters maps each target to a single operator call.
type Filters struct {
	entries []filterEntry
}

func (*Filters) isObject() {}

// Criteria maps each target to one or more distinct operator calls.
type Criteria struct {
	entries []filterEntry
}

func (*Criteria) isObject() {}

// Add records call for target. A later call for the same target replaces
// the earlier one. It reports whether anything changed.
func (f *Filters) Add(target Object, inst *Scope) bool {
	tk, cl := canonical(target), newCall(inst)

	for i, e := range f.entries {
		if e.key != tk {
			continue
		}

		if e.calls[0].same(cl) {
			return false
		}

		f.entries[i].calls = []call{cl}

		return true
	}

	f.entries = append(f.entries, filterEntry{
		target: target,
		key:    tk,
		calls:  []call{cl},
	})

	return true
}

// Use merges the entries of other whose targets are not yet present.
func (f *Filters) Use(other *Filters) {
	for _, e := range other.entries {
		if !slices.ContainsFunc(f.entries, func(x filterEntry) bool { return x.key == e.key }) {
			f.entries = append(f.entries, e)
		}
	}
}

// Add records call for target unless a structurally equal call is already
// recorded for it. It reports whether the call was added.
func (c *Criteria) Add(target Object, inst *Scope) bool {
	return c.add(canonical(target), target, newCall(inst))
}

func (c *Criteria) add(tk string, target Object, cl call) bool {
	for i, e := range c.entries {
		if e.key != tk {
			continue
		}

		if slices.ContainsFunc(e.calls, cl.same) {
			return false
		}

		c.entries[i].calls = append(c.entries[i].calls, cl)

		return true
	}

	c.entries = append(c.entries, filterEntry{target: target, key: tk, calls: []call{cl}})

	return true
}

// Use merges every call of other not already present, preserving the
// order in which targets and calls were first seen.
func (c *Criteria) Use(other *Criteria) {
	for _, e := range other.entries {
		for _, cl := range e.calls {
			c.add(e.key, e.target, cl)
		}
	}
}

// Calls iterates over (target, call) pairs in order.
func (f *Filters) Calls() iter.Seq2[Object, *Scope] { return eachCall(f.entries) }

// Calls iterates over (target, call) pairs in order.
func (c *Criteria) Calls() iter.Seq2[Object, *Scope] { return eachCall(c.entries) }

// Len returns the number of targets.
func (f *Filters) Len() int { return len(f.entries) }

// Len returns the number of targets.
func (c *Criteria) Len() int { return len(c.entries) }

func eachCall(entries []filterEntry) iter.Seq2[Object, *Scope] {
	return func(yield func(Object, *Scope) bool) {
		for _, e := range entries {
			for _, c := range e.calls {
				if !yield(e.target, c.scope) {
					return
				}
			}
		}
	}
}

// canonical renders the structure of o as text. Strings are compared by
// their brace text, scopes by kind, template and bindings; lookup chains
// and scope ids are ignored so that equal calls made in different scopes
// compare equal.
func canonical(o Object) string {
	var sb strings.Builder

	writeCanonical(&sb, o, map[ScopeID]int{})

	return sb.String()
}

func writeCanonical(sb *strings.Builder, o Object, seen map[ScopeID]int) {
	switch v := o.(type) {
	case nil:
		sb.WriteString("null")

	case *String:
		sb.WriteString("s")
		sb.WriteString(strconv.Quote(v.Text))

	case *Numeric:
		sb.WriteString("n")
		sb.WriteString(strconv.FormatFloat(v.Value, 'g', -1, 64))

	case *Environment:
		sb.WriteString("env")

	case *Scope:
		if n, ok := seen[v.ID]; ok {
			sb.WriteString("^" + strconv.Itoa(n))

			return
		}

		seen[v.ID] = len(seen)

		sb.WriteString(v.Kind.String())

		if v.Origin != 0 {
			sb.WriteString("<" + strconv.Itoa(int(v.Origin)) + ">")
		} else if v.Name != "" {
			sb.WriteString("<" + v.Name + ">")
		}

		sb.WriteString("{")

		for _, b := range v.bindings {
			sb.WriteString(b.name)

			if b.param {
				sb.WriteString("?")
			}

			sb.WriteString("=")
			writeCanonical(sb, b.value, seen)
			sb.WriteString(";")
		}

		if v.Template != nil {
			writeCanonical(sb, v.Template, seen)
		}

		sb.WriteString("}")

	case *Spawn:
		sb.WriteString("spawn[")

		for _, r := range v.Ranks {
			writeCanonical(sb, r.Command, seen)
			sb.WriteString(",")
			writeCanonical(sb, r.Ranks, seen)
			sb.WriteString(",")
			writeCanonical(sb, r.Threads, seen)
			sb.WriteString(";")
		}

		sb.WriteString("]")

	case *Filters:
		writeEntries(sb, "filters", v.entries, seen)

	case *Criteria:
		writeEntries(sb, "criteria", v.entries, seen)
	}
}

func writeEntries(sb *strings.Builder, tag string, entries []filterEntry, seen map[ScopeID]int) {
	sb.WriteString(tag)
	sb.WriteString("[")

	for _, e := range entries {
		sb.WriteString(e.key)
		sb.WriteString(":")

		for _, c := range e.calls {
			writeCanonical(sb, c.scope, seen)
		}

		sb.WriteString(";")
	}

	sb.WriteString("]")
}
