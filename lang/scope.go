package lang

import (
	"iter"
	"log/slog"
	"strings"

	"github.com/dtcenter/METplus-sub003/lang/diag"
)

// ScopeID addresses a scope in an [Arena]. The zero value is invalid.
type ScopeID int

// ScopeKind tags what a scope represents and selects its evaluation rules.
type ScopeKind int

const (
	KindHash ScopeKind = iota
	KindBuild
	KindTest
	KindPlatform
	KindCopy
	KindCopyDir
	KindLink
	KindAtParse
	KindBitCmp
	KindEmbed
	KindArgs
	KindRoot
	KindBuiltins
)

var kindNames = [...]string{
	KindHash:     "hash",
	KindBuild:    "build",
	KindTest:     "test",
	KindPlatform: "platform",
	KindCopy:     "copy",
	KindCopyDir:  "copydir",
	KindLink:     "link",
	KindAtParse:  "atparse",
	KindBitCmp:   "bitcmp",
	KindEmbed:    "embed",
	KindArgs:     "args",
	KindRoot:     "root",
	KindBuiltins: "builtins",
}

func (k ScopeKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "scope"
}

// IsTask reports whether scopes of this kind carry dependencies.
func (k ScopeKind) IsTask() bool {
	return k == KindBuild || k == KindTest || k == KindPlatform
}

// IsOperator reports whether the kind is one of the builtin operators.
func (k ScopeKind) IsOperator() bool {
	return k >= KindCopy && k <= KindBitCmp
}

type binding struct {
	name  string
	value Object // nil for a parameter without default
	param bool
}

// Scope is a namespace of parameters and variables with an ordered lexical
// lookup chain. Scopes are owned by an [Arena].
type Scope struct {
	ID   ScopeID
	Kind ScopeKind
	Name string

	// Defscopes is the lookup chain searched after the scope itself,
	// innermost first.
	Defscopes []ScopeID

	// Deps lists the tasks this task depends on.
	Deps []ScopeID

	// Template is the script body of an embed scope.
	Template *String

	// Origin is the template this scope was instantiated from, if any.
	Origin ScopeID

	bindings []binding
	index    map[string]int
}

func (*Scope) isObject() {}

// Chain returns the scope followed by its lookup chain.
func (s *Scope) Chain() []ScopeID {
	return append([]ScopeID{s.ID}, s.Defscopes...)
}

// Lookup returns the local binding for name. A declared parameter without a
// value is reported as found with a nil Object.
func (s *Scope) Lookup(name string) (Object, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}

	return s.bindings[i].value, true
}

// IsParam reports whether name is declared as a parameter.
func (s *Scope) IsParam(name string) bool {
	i, ok := s.index[name]

	return ok && s.bindings[i].param
}

// HasParams reports whether any parameter is declared.
func (s *Scope) HasParams() bool {
	for _, b := range s.bindings {
		if b.param {
			return true
		}
	}

	return false
}

// Len returns the number of local bindings.
func (s *Scope) Len() int { return len(s.bindings) }

// All iterates over local bindings in declaration order.
func (s *Scope) All() iter.Seq2[string, Object] {
	return func(yield func(string, Object) bool) {
		for _, b := range s.bindings {
			if !yield(b.name, b.value) {
				return
			}
		}
	}
}

// Params iterates over declared parameters in declaration order.
func (s *Scope) Params() iter.Seq2[string, Object] {
	return s.filter(true)
}

// Vars iterates over plain variables in declaration order.
func (s *Scope) Vars() iter.Seq2[string, Object] {
	return s.filter(false)
}

func (s *Scope) filter(param bool) iter.Seq2[string, Object] {
	return func(yield func(string, Object) bool) {
		for _, b := range s.bindings {
			if b.param == param && !yield(b.name, b.value) {
				return
			}
		}
	}
}

// Bind sets a variable. If the name is already bound, overwrite selects
// whether it is replaced or reported as a redefinition.
func (s *Scope) Bind(name string, v Object, overwrite bool) error {
	return s.bind(binding{name: name, value: v}, overwrite)
}

// BindParam declares a parameter with an optional default.
func (s *Scope) BindParam(name string, v Object, overwrite bool) error {
	return s.bind(binding{name: name, value: v, param: true}, overwrite)
}

func (s *Scope) bind(b binding, overwrite bool) error {
	if strings.Contains(b.name, qualifier) {
		return diag.ErrQualifiedBind.With(slog.String("name", b.name))
	}

	if s.index == nil {
		s.index = make(map[string]int)
	}

	i, ok := s.index[b.name]
	if !ok {
		s.index[b.name] = len(s.bindings)
		s.bindings = append(s.bindings, b)

		return nil
	}

	if s.bindings[i].param != b.param {
		return diag.ErrParamVarCollision.With(
			slog.String("name", b.name),
			slog.String("scope", s.Describe()),
		)
	}

	if !overwrite {
		return diag.ErrRedefined.With(
			slog.String("name", b.name),
			slog.String("scope", s.Describe()),
		)
	}

	s.bindings[i] = b

	return nil
}

// Describe names the scope for diagnostics.
func (s *Scope) Describe() string {
	if s.Name == "" {
		return s.Kind.String()
	}

	return s.Kind.String() + " " + s.Name
}

// Arena owns every scope created during one compilation.
type Arena struct {
	scopes []*Scope
}

// New allocates a scope.
func (a *Arena) New(kind ScopeKind, name string, defscopes []ScopeID) *Scope {
	s := &Scope{
		ID:        ScopeID(len(a.scopes) + 1),
		Kind:      kind,
		Name:      name,
		Defscopes: append([]ScopeID(nil), defscopes...),
	}

	a.scopes = append(a.scopes, s)

	return s
}

// Get returns the scope with the given id, or nil.
func (a *Arena) Get(id ScopeID) *Scope {
	if id <= 0 || int(id) > len(a.scopes) {
		return nil
	}

	return a.scopes[id-1]
}

// Len returns the number of allocated scopes.
func (a *Arena) Len() int { return len(a.scopes) }
