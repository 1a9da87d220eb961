package cli

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/dtcenter/METplus-sub003/pkg"
)

// baseConfig is the base name of the configuration file.
const baseConfig = "config.yaml"

var defaultDirMode os.FileMode = 0o700

// basePrefix names the per-user configuration and cache directories. It is
// the executable's base name with leading dots removed, or [pkg.Name] when
// running under the dlv debugger.
var basePrefix = sync.OnceValue(func() string {
	id := os.Args[0]
	if exe, err := os.Executable(); err == nil {
		id = exe
	}

	id = filepath.Base(id)
	id = strings.TrimSuffix(id, filepath.Ext(id))

	if regexp.MustCompile(`^__debug_bin\d*$`).MatchString(id) {
		return pkg.Name
	}

	if id = strings.TrimLeft(id, "."); id == "" {
		return pkg.Name
	}

	return id
})

// userDir joins basePrefix onto the directory returned by base, falling
// back to sub under the home directory, then to the working directory.
func userDir(base func() (string, error), sub string) string {
	dir, err := base()
	if err != nil {
		if home, herr := os.UserHomeDir(); herr == nil {
			dir = filepath.Join(home, sub)
		} else if dir, err = os.Getwd(); err != nil {
			dir = "."
		}
	}

	return filepath.Join(dir, basePrefix())
}

var configDir = sync.OnceValue(func() string {
	return userDir(os.UserConfigDir, ".config")
})

var cacheDir = sync.OnceValue(func() string {
	return userDir(os.UserCacheDir, ".cache")
})

// configPath joins elem onto the configuration directory.
func configPath(elem ...string) string {
	return filepath.Join(append([]string{configDir()}, elem...)...)
}

// mkdirAllRequired creates the configuration and cache directories.
func mkdirAllRequired() error {
	for _, dir := range []string{configDir(), cacheDir()} {
		if err := os.MkdirAll(dir, defaultDirMode); err != nil {
			return err
		}
	}

	return nil
}
