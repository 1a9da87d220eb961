// Package codegen holds what the script and workflow emitters share.
package codegen

import (
	_ "embed"
	"strings"

	"github.com/dtcenter/METplus-sub003/lang"
	"github.com/dtcenter/METplus-sub003/pkg"
)

// Functions is the shell library defining deliver_file, bitcmp and atparse.
//
//go:embed functions.sh
var Functions string

// Shebang starts every generated script.
const Shebang = "#!/usr/bin/env bash"

// Header returns the first lines of a generated script: the shebang, the
// banner and the compile mode, followed by "set -xue".
func Header(c *lang.Compiler) string {
	var sb strings.Builder

	sb.WriteString(Shebang + "\n")
	sb.WriteString("# " + pkg.Banner() + "\n")
	sb.WriteString("# mode: " + c.Mode().String())

	if p := c.Platform(); p != nil {
		sb.WriteString(", platform: " + p.Name)
	}

	sb.WriteString("\nset -xue\n")

	return sb.String()
}

// PlatformVar renders a variable of the chosen platform as a string. It
// reports false when no platform was chosen or the variable is unset.
func PlatformVar(c *lang.Compiler, name string) (string, bool, error) {
	p := c.Platform()
	if p == nil {
		return "", false, nil
	}

	v, ok := p.Lookup(name)
	if !ok || v == nil {
		return "", false, nil
	}

	s, err := c.String(v)
	if err != nil {
		return "", false, err
	}

	return s, true, nil
}
