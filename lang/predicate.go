package lang

import (
	"log/slog"
	"maps"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/dtcenter/METplus-sub003/lang/diag"
)

// Strings that are not plain numbers are evaluated as expr-lang expressions
// in number and boolean contexts. This is how platform detection is usually
// written:
//
//	platform hera {
//	  detect = "file.isDir('/scratch1/NCEPDEV') && hostname matches '^hfe'"
//	}
//
// The expression environment holds host facts, filesystem and path helpers,
// the process environment as env and the run mode as mode.

var hostFacts = sync.OnceValue(func() map[string]any {
	facts := map[string]any{
		"os":       runtime.GOOS,
		"arch":     runtime.GOARCH,
		"hostname": "",
		"user":     "",
		"file": map[string]any{
			"exists":    fileExists,
			"isDir":     fileIsDir,
			"isRegular": fileIsRegular,
			"isSymlink": fileIsSymlink,
		},
		"path": map[string]any{
			"abs":  pathAbs,
			"cat":  filepath.Join,
			"base": filepath.Base,
			"dir":  filepath.Dir,
		},
	}

	if h, err := os.Hostname(); err == nil {
		facts["hostname"] = h
	}

	if u, err := user.Current(); err == nil {
		facts["user"] = u.Username
	}

	return facts
})

// exprEnv returns a fresh expression environment for the compiler.
func (c *Compiler) exprEnv() map[string]any {
	env := maps.Clone(hostFacts())
	env["env"] = maps.Clone(c.env)
	env["mode"] = c.mode.String()
	env["cwd"] = getCwd

	return env
}

func (c *Compiler) evalExpr(src string, opt expr.Option) (any, error) {
	env := c.exprEnv()

	program, err := expr.Compile(src, expr.Env(env), opt)
	if err != nil {
		return nil, diag.ErrType.Wrap(err).With(slog.String("expression", src))
	}

	out, err := vm.Run(program, env)
	if err != nil {
		return nil, diag.ErrType.Wrap(err).With(slog.String("expression", src))
	}

	return out, nil
}

func (c *Compiler) exprBool(src string) (bool, error) {
	out, err := c.evalExpr(src, expr.AsBool())
	if err != nil {
		return false, err
	}

	b, _ := out.(bool)

	return b, nil
}

func (c *Compiler) exprNumber(src string) (float64, error) {
	out, err := c.evalExpr(src, expr.AsFloat64())
	if err != nil {
		return 0, err
	}

	f, _ := out.(float64)

	return f, nil
}

func getCwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return pathAbs(".")
	}

	return cwd
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return !os.IsNotExist(err)
}

func fileIsDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

func fileIsRegular(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}

func fileIsSymlink(path string) bool {
	info, err := os.Lstat(path)

	return err == nil && info.Mode()&os.ModeSymlink != 0
}

func pathAbs(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return p
}
