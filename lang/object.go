package lang

import (
	"maps"
	"slices"
	"strconv"
)

// Object is a value in the scope graph. The set of implementations is
// closed: [*String], [*Numeric], [*Scope], [*Environment], [*Spawn],
// [*Filters] and [*Criteria]. Evaluation dispatches on the concrete type.
type Object interface {
	isObject()
	rescope(r *rescoper) Object
}

// String is brace-form text interpolated against a lookup chain.
type String struct {
	Text   string
	Scopes []ScopeID
}

func (*String) isObject() {}

// NewString returns a string that resolves references through chain.
func NewString(text string, chain []ScopeID) *String {
	return &String{Text: text, Scopes: slices.Clone(chain)}
}

// Numeric is a number literal. Text keeps the source spelling.
type Numeric struct {
	Text  string
	Value float64
}

func (*Numeric) isObject() {}

// NewNumeric returns a numeric value.
func NewNumeric(v float64) *Numeric {
	return &Numeric{Text: strconv.FormatFloat(v, 'g', -1, 64), Value: v}
}

func (n *Numeric) String() string {
	if n.Text != "" {
		return n.Text
	}

	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

// Environment exposes process environment variables as a scope-like value,
// so that ENV%HOME resolves to the value of HOME.
type Environment struct {
	vars map[string]string
}

func (*Environment) isObject() {}

// NewEnvironment returns an environment over a copy of vars.
func NewEnvironment(vars map[string]string) *Environment {
	return &Environment{vars: maps.Clone(vars)}
}

// Lookup returns the variable as a literal string.
func (e *Environment) Lookup(name string) (Object, bool) {
	v, ok := e.vars[name]
	if !ok {
		return nil, false
	}

	return &String{Text: literalText(v)}, true
}

// Names returns the defined variable names in sorted order.
func (e *Environment) Names() []string {
	return slices.Sorted(maps.Keys(e.vars))
}

// variant names the concrete type of o for diagnostics.
func variant(o Object) string {
	switch v := o.(type) {
	case nil:
		return "null"
	case *String:
		return "string"
	case *Numeric:
		return "number"
	case *Scope:
		return v.Kind.String()
	case *Environment:
		return "environment"
	case *Spawn:
		return "spawn"
	case *Filters:
		return "filters"
	case *Criteria:
		return "criteria"
	default:
		return "object"
	}
}

// IsScalar reports whether o is a string or a number.
func IsScalar(o Object) bool {
	switch o.(type) {
	case *String, *Numeric:
		return true
	default:
		return false
	}
}
