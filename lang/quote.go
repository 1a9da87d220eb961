package lang

import (
	"regexp"
	"strings"

	"github.com/dtcenter/METplus-sub003/lang/lexer"
)

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// ShellQuote quotes s as a single shell word. Words made only of safe
// characters are returned unchanged.
func ShellQuote(s string) string {
	if shellSafe.MatchString(s) {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// exportable reports whether a binding is emitted as a shell assignment:
// the value must be a non-null scalar and the name must contain no "%" or
// "." and must not start with "__".
func exportable(name string, v Object) bool {
	return v != nil &&
		IsScalar(v) &&
		!strings.ContainsAny(name, "%.") &&
		!strings.HasPrefix(name, "__")
}

// literalText returns brace-form text that interpolates to s.
func literalText(s string) string {
	return lexer.LiteralToBrace(s)
}
