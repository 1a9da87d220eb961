// Package rocoto emits a compiled run-list as a Rocoto batch workflow.
//
// The output directory receives:
//
//	workflow.xml            task graph and scheduler settings
//	install.sh              builds one named build
//	uninstall.sh            removes the target of one named build
//	functions.sh            shared shell functions
//	jobs/J<WORKFLOW>_<TEST> launcher run by the scheduler
//	scripts/ex<workflow>_<test>
//	                        the steps of one test
package rocoto

import (
	"bytes"
	"encoding/xml"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/ardnew/mung"

	"github.com/dtcenter/METplus-sub003/codegen"
	"github.com/dtcenter/METplus-sub003/fsops"
	"github.com/dtcenter/METplus-sub003/lang"
	"github.com/dtcenter/METplus-sub003/lang/diag"
	"github.com/dtcenter/METplus-sub003/pkg"
)

// DefaultWalltime is the walltime in minutes of a test when neither the
// test nor the platform sets one.
const DefaultWalltime = 30

// DefaultMaxTries is the number of attempts of a task when neither the
// task nor the platform sets maxtries.
const DefaultMaxTries = 1

// Options are workflow settings. Empty fields fall back to the chosen
// platform's install_dir, log_dir, cpu_account and scheduler variables.
type Options struct {
	Name       string
	InstallDir string
	LogDir     string
	Account    string
	Scheduler  string
}

// Workflow is the data rendered into workflow.xml and the scripts.
type Workflow struct {
	Options

	Builds         []Build
	Tests          []Test
	BuildTime      string
	BuildResources string
	Path           string
}

// Build is one build task of the builds metatask.
type Build struct {
	Name   string
	Script string
	Target string
}

// Test is one test task.
type Test struct {
	Name      string
	Job       string
	Exec      string
	Script    string
	MaxTries  int
	Walltime  string
	Resources string
	Deps      []string
}

var funcs = template.FuncMap{
	"xml":    escape,
	"quote":  lang.ShellQuote,
	"header": func() string { return codegen.Shebang + "\n# " + pkg.Banner() },
}

// Write generates the workflow for c into dir.
func Write(dir string, c *lang.Compiler, opts Options) error {
	w, err := Collect(c, opts)
	if err != nil {
		return err
	}

	return w.Write(dir)
}

// Collect gathers everything the workflow needs from the compiled run-list.
func Collect(c *lang.Compiler, opts Options) (*Workflow, error) {
	if opts.Name == "" {
		opts.Name = "rt"
	}

	w := &Workflow{Options: opts}

	for _, f := range []struct {
		dst *string
		key string
	}{
		{&w.InstallDir, "install_dir"},
		{&w.LogDir, "log_dir"},
		{&w.Account, "cpu_account"},
		{&w.Scheduler, "scheduler"},
	} {
		if *f.dst != "" {
			continue
		}

		v, _, err := codegen.PlatformVar(c, f.key)
		if err != nil {
			return nil, err
		}

		*f.dst = v
	}

	path, err := searchPath(c)
	if err != nil {
		return nil, err
	}

	w.Path = path

	minutes, err := number(c, nil, "walltime", DefaultWalltime)
	if err != nil {
		return nil, err
	}

	w.BuildTime = walltime(minutes)

	if w.BuildResources, _, err = codegen.PlatformVar(c, "build_resources"); err != nil {
		return nil, err
	}

	for _, e := range c.Runs() {
		var err error

		switch e.Scope.Kind {
		case lang.KindBuild:
			err = w.addBuild(c, e.Scope)
		case lang.KindTest:
			err = w.addTest(c, e.Scope)
		}

		if err != nil {
			return nil, diag.WrapError(err).With(slog.String("task", e.Scope.Describe()))
		}
	}

	return w, nil
}

func (w *Workflow) addBuild(c *lang.Compiler, s *lang.Scope) error {
	script, err := c.Shell(s)
	if err != nil {
		return err
	}

	target, err := c.String(s)
	if err != nil {
		return err
	}

	w.Builds = append(w.Builds, Build{Name: s.Name, Script: script, Target: target})

	return nil
}

func (w *Workflow) addTest(c *lang.Compiler, s *lang.Scope) error {
	script, err := c.Shell(s)
	if err != nil {
		return err
	}

	tries, err := number(c, s, "maxtries", DefaultMaxTries)
	if err != nil {
		return err
	}

	minutes, err := number(c, s, "walltime", DefaultWalltime)
	if err != nil {
		return err
	}

	size := "short"

	if v, ok := s.Lookup("size"); ok && v != nil {
		if size, err = c.String(v); err != nil {
			return err
		}
	}

	if size != "short" && size != "long" {
		return diag.ErrType.With(
			slog.String("scope", s.Describe()),
			slog.String("size", size),
			slog.String("expected", "short or long"),
		)
	}

	resources, _, err := codegen.PlatformVar(c, size+"_test_resources")
	if err != nil {
		return err
	}

	t := Test{
		Name:      s.Name,
		Job:       "J" + strings.ToUpper(w.Name+"_"+s.Name),
		Exec:      "ex" + w.Name + "_" + s.Name,
		Script:    script,
		MaxTries:  int(tries),
		Walltime:  walltime(minutes),
		Resources: resources,
	}

	for _, d := range c.Deps(s) {
		t.Deps = append(t.Deps, d.Kind.String()+"_"+d.Name)
	}

	w.Tests = append(w.Tests, t)

	return nil
}

// Write renders the workflow files into dir.
func (w *Workflow) Write(dir string) error {
	files := map[string]output{
		"workflow.xml": {workflowTmpl, w, 0o644},
		"install.sh":   {installTmpl, w, 0o755},
		"uninstall.sh": {uninstallTmpl, w, 0o755},
	}

	for _, t := range w.Tests {
		job := jobData{Workflow: w, Test: t}
		files[filepath.Join("jobs", t.Job)] = output{jobTmpl, job, 0o755}
		files[filepath.Join("scripts", t.Exec)] = output{execTmpl, job, 0o755}
	}

	for name, f := range files {
		var buf bytes.Buffer
		if err := f.tmpl.Execute(&buf, f.data); err != nil {
			return diag.ErrIO.Wrap(err).With(slog.String("file", name))
		}

		if err := writeFile(filepath.Join(dir, name), buf.Bytes(), f.mode); err != nil {
			return err
		}
	}

	return writeFile(filepath.Join(dir, "functions.sh"), []byte(codegen.Functions), 0o644)
}

type output struct {
	tmpl *template.Template
	data any
	mode os.FileMode
}

type jobData struct {
	*Workflow
	Test Test
}

func writeFile(path string, data []byte, mode os.FileMode) error {
	if err := fsops.WriteFile(path, data, mode); err != nil {
		return diag.ErrIO.Wrap(err).With(slog.String("file", path))
	}

	return nil
}

// number reads a numeric variable from s, then from the platform, then
// falls back to dflt. A nil s skips the first lookup.
func number(c *lang.Compiler, s *lang.Scope, name string, dflt float64) (float64, error) {
	for _, scope := range []*lang.Scope{s, c.Platform()} {
		if scope == nil {
			continue
		}

		if v, ok := scope.Lookup(name); ok && v != nil {
			return c.Number(v)
		}
	}

	return dflt, nil
}

// walltime formats minutes as HH:MM:SS.
func walltime(minutes float64) string {
	secs := int(minutes * 60)

	return pad(secs/3600) + ":" + pad(secs/60%60) + ":" + pad(secs%60)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}

	return strconv.Itoa(n)
}

// searchPath returns the PATH exported by launchers: the platform's path
// items ahead of the inherited $PATH.
func searchPath(c *lang.Compiler) (string, error) {
	v, ok, err := codegen.PlatformVar(c, "path")
	if err != nil || !ok {
		return "$PATH", err
	}

	var prefix []string

	for _, p := range strings.Split(v, ":") {
		if p != "" {
			prefix = append(prefix, p)
		}
	}

	return mung.Make(
		mung.WithSubjectItems("$PATH"),
		mung.WithDelim(":"),
		mung.WithPrefixItems(prefix...),
	).String(), nil
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))

	return buf.String()
}
