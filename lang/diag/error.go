// Package diag defines the error taxonomy shared by the lexer, parser and
// evaluator.
//
// Every error is an [*Error] derived from one of the sentinel values below.
// Derived errors keep a link to their sentinel so that [errors.Is] matches
// both the sentinel and the class it belongs to:
//
//	err := diag.ErrUndefined.WithPosition(pos).With(slog.String("name", n))
//	errors.Is(err, diag.ErrUndefined) // true
//	errors.Is(err, diag.ErrScope)     // true
package diag

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/dtcenter/METplus-sub003/lang/token"
)

// Error classes.
var (
	ErrLexical       = NewError("lexical error")
	ErrSyntax        = NewError("syntax error")
	ErrScope         = NewError("scope error")
	ErrContext       = NewError("context error")
	ErrDependency    = NewError("dependency error")
	ErrUnimplemented = NewError("not implemented")
	ErrIO            = NewError("i/o error")
	ErrConfig        = NewError("invalid configuration")
)

// Scope errors.
var (
	ErrUndefined         = ErrScope.Derive("undefined name")
	ErrRedefined         = ErrScope.Derive("illegal redefinition")
	ErrNotScope          = ErrScope.Derive("qualifier is not a scope")
	ErrQualifiedBind     = ErrScope.Derive("cannot bind a qualified name")
	ErrParamVarCollision = ErrScope.Derive("name is both parameter and variable")
	ErrMissingArgument   = ErrScope.Derive("missing value for parameter")
	ErrRecursiveLoad     = ErrScope.Derive("recursive load")
)

// Context errors.
var (
	ErrMissingStep   = ErrContext.Derive("missing required step")
	ErrType          = ErrContext.Derive("type mismatch")
	ErrCompareFailed = ErrContext.Derive("comparison failed")
	ErrExec          = ErrContext.Derive("embedded script failed")
)

// Dependency errors.
var (
	ErrSelfDependency  = ErrDependency.Derive("object depends on itself")
	ErrDependencyCycle = ErrDependency.Derive("dependency cycle")
	ErrAutodetect      = ErrDependency.Derive("platform autodetection failed")
)

// Error represents an error with an optional source position and structured
// logging attributes. It implements both error and slog.LogValuer.
type Error struct {
	msg    string
	err    error       // wrapped cause
	attrs  []slog.Attr // attributes for structured logging
	pos    token.Pos
	base   *Error // sentinel this error was derived from
	parent *Error // class of a sentinel
}

// NewError creates a new sentinel Error with a message.
func NewError(msg string) *Error {
	e := &Error{msg: msg}
	e.base = e

	return e
}

// Derive creates a new sentinel that belongs to the class of e.
func (e *Error) Derive(msg string) *Error {
	d := NewError(msg)
	d.parent = e.base

	return d
}

// WrapError converts err into an *Error, returning it unchanged if it
// already is one.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	// Build error message using the first available format,
	// depending on which fields are set:
	//
	//   1. "<pos>: <msg>: <err>"
	//   2. "<msg>: <err>"
	//   3. "<msg>"
	//   4. "<err>"
	part := make([]string, 0, 3)

	if e.pos.Line > 0 {
		part = append(part, e.pos.String())
	}

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if detail := e.detail(); detail != "" {
		part = append(part, detail)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// detail renders string attributes inline so that messages printed without
// a structured logger still identify the offending name or token.
func (e *Error) detail() string {
	var sb strings.Builder

	for _, a := range e.attrs {
		if a.Value.Kind() != slog.KindString {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString(", ")
		}

		sb.WriteString(a.Key)
		sb.WriteString("=")
		sb.WriteString(a.Value.String())
	}

	return sb.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the sentinel e was derived from or the class
// that sentinel belongs to.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}

	for b := e.base; b != nil; b = b.parent {
		if b == t {
			return true
		}
	}

	return false
}

// Pos returns the source position attached to the error, if any.
func (e *Error) Pos() token.Pos { return e.pos }

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+3)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.pos.Line > 0 {
		attrs = append(attrs, slog.String("at", e.pos.String()))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	c := e.clone()
	c.err = err

	return c
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	c := e.clone()
	c.attrs = make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(c.attrs, e.attrs)
	copy(c.attrs[len(e.attrs):], attrs)

	return c
}

// WithPosition attaches a source position to the error. An existing
// position is kept so the innermost location wins.
func (e *Error) WithPosition(pos token.Pos) *Error {
	c := e.clone()
	if c.pos.Line == 0 {
		c.pos = pos
	}

	return c
}

func (e *Error) clone() *Error {
	return &Error{
		msg:    e.msg,
		err:    e.err,
		attrs:  e.attrs, // share attrs
		pos:    e.pos,
		base:   e.base,
		parent: e.parent,
	}
}

// At attaches pos to err if err is an *Error without a position; other
// errors are wrapped in an ErrIO carrying the position.
func At(err error, pos token.Pos) error {
	if err == nil {
		return nil
	}

	ee := &Error{}
	if errors.As(err, &ee) {
		return ee.WithPosition(pos)
	}

	return ErrIO.Wrap(err).WithPosition(pos)
}
