// Package cmd implements the rtgen commands. Each command compiles one
// suite file and renders the result.
package cmd

var (
	// CacheIdentifier is the kong variable holding the runtime cache
	// directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable holding the default
	// configuration file path.
	ConfigIdentifier = "config"
)
