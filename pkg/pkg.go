//nolint:gochecknoglobals
package pkg

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version is the semantic version of rtgen embedded at build time.
var Version = strings.TrimSpace(version)

const (
	// Name is the canonical command identifier. It appears in help text,
	// default config paths, and the header of every generated artifact.
	Name = "rtgen"
	// Description is a short summary used in help output.
	Description = "Regression test workflow compiler"
)

// Banner returns the comment line stamped at the top of generated scripts.
func Banner() string {
	return "Generated by " + Name + " " + Version + "; do not edit."
}
