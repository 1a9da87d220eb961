// Package ast defines the syntax tree produced by the parser.
//
// The tree is deliberately shallow. The parser returns one top-level
// statement at a time and the evaluator consumes it immediately, so nodes
// carry only what evaluation needs: names, nested statement lists and
// source positions.
package ast

import "github.com/dtcenter/METplus-sub003/lang/token"

// Node is implemented by every statement and expression.
type Node interface {
	Position() token.Pos
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmt()
}

// Expr is an rvalue node.
type Expr interface {
	Node
	expr()
}

// At records where a node begins.
type At struct {
	Pos token.Pos
}

// Position returns the node's source position.
func (a At) Position() token.Pos { return a.Pos }

// TaskKind distinguishes the three task statements.
type TaskKind int

const (
	BuildTask TaskKind = iota
	TestTask
	PlatformTask
)

func (k TaskKind) String() string {
	switch k {
	case BuildTask:
		return "build"
	case TestTask:
		return "test"
	case PlatformTask:
		return "platform"
	default:
		return "task"
	}
}

// Statements.
type (
	// Load reads another source file into the current top-level scope.
	Load struct {
		At
		Path *StringLit
	}

	// Use merges the bindings (or filter entries) of another object.
	Use struct {
		At
		Name string
	}

	// Run registers a runnable object and its dependencies.
	Run struct {
		At
		Value Expr
	}

	// Spawn declares an MPI launch made of one or more rank groups.
	Spawn struct {
		At
		Name  string
		Ranks []*Rank
	}

	// Filters declares a filters or criteria block.
	Filters struct {
		At
		Name     string
		Criteria bool
		Body     []Stmt // *FilterEntry and *Use
	}

	// FilterEntry is one "target .op. source" line of a filters block.
	FilterEntry struct {
		At
		Target Expr
		Op     string
		Source Expr
	}

	// AutoDetect selects exactly one platform from a list.
	AutoDetect struct {
		At
		Name      string
		Platforms []*NameRef
	}

	// Task declares a build, test or platform.
	Task struct {
		At
		Kind   TaskKind
		Name   string
		Params []Stmt // nil when no parameter list was given
		Deps   []*NameRef
		Body   []Stmt
	}

	// Hash declares a plain scope, optionally parameterized.
	Hash struct {
		At
		Name   string
		Params []Stmt
		Body   []Stmt
	}

	// Embed declares a parameterized script template.
	Embed struct {
		At
		Lang     string
		Name     string
		Params   []Stmt
		Vars     []Stmt
		Template *StringLit
	}

	// Assign binds a name to a value.
	Assign struct {
		At
		Name  string
		Value Expr
	}

	// Null declares a parameter without a default.
	Null struct {
		At
		Name string
	}
)

// Rank is one command group of a spawn statement.
type Rank struct {
	At
	Command Expr
	Options []*Assign
}

func (*Load) stmt()        {}
func (*Use) stmt()         {}
func (*Run) stmt()         {}
func (*Spawn) stmt()       {}
func (*Filters) stmt()     {}
func (*FilterEntry) stmt() {}
func (*AutoDetect) stmt()  {}
func (*Task) stmt()        {}
func (*Hash) stmt()        {}
func (*Embed) stmt()       {}
func (*Assign) stmt()      {}
func (*Null) stmt()        {}

// Expressions.
type (
	// StringLit holds brace-form text.
	StringLit struct {
		At
		Text string
	}

	// NumberLit holds a numeric literal and its source text.
	NumberLit struct {
		At
		Text  string
		Value float64
	}

	// HashLit is an anonymous "{ ... }" scope.
	HashLit struct {
		At
		Body []Stmt
	}

	// NameRef is a possibly qualified name.
	NameRef struct {
		At
		Name string
	}

	// Call applies arguments to a parameterized scope.
	Call struct {
		At
		Name string
		Args []Stmt
	}
)

func (*StringLit) expr() {}
func (*NumberLit) expr() {}
func (*HashLit) expr()   {}
func (*NameRef) expr()   {}
func (*Call) expr()      {}
