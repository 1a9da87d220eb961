package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"

	"github.com/dtcenter/METplus-sub003/lang/diag"
)

const suite = `build model {
  build = "make install"
  target = "/opt/model.x"
}
criteria outputs {
  "out.nc" .bitcmp. "/ref/out.nc"
}
test cold: model {
  prep = ""
  input = ""
  execute = "./model.x"
  output = outputs
}
run cold
`

func writeSuite(t *testing.T, src string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "suite.rt")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	return string(b)
}

func TestScriptStdout(t *testing.T) {
	var buf bytes.Buffer

	s := Script{Suite: Suite{Source: writeSuite(t, suite), Mode: "compare"}, Output: stdoutTarget}
	if err := s.Run(WithOutput(t.Context(), &buf)); err != nil {
		t.Fatal(err)
	}

	out := buf.String()

	for _, want := range []string{
		"#!/usr/bin/env bash\n",
		"# 1: build model\n(\nmake install\n)\n",
		"# 2: test cold\n(\n./model.x\nbitcmp out.nc /ref/out.nc\n)\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("script missing %q:\n%s", want, out)
		}
	}
}

func TestScriptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "rt.sh")

	s := Script{Suite: Suite{Source: writeSuite(t, suite)}, Output: path}
	if err := s.Run(t.Context()); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(readFile(t, path), "deliver_file out.nc /ref/out.nc") {
		t.Errorf("baseline script does not deliver outputs")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	if info.Mode().Perm()&0o100 == 0 {
		t.Errorf("script mode = %v, want executable", info.Mode())
	}
}

func TestSuiteErrors(t *testing.T) {
	tests := []struct {
		name  string
		suite Suite
		want  error
	}{
		{"bad mode", Suite{Source: writeSuite(t, suite), Mode: "replay"}, diag.ErrType},
		{"undefined", Suite{Source: writeSuite(t, "run nothing\n")}, diag.ErrUndefined},
		{"missing file", Suite{Source: filepath.Join(t.TempDir(), "none.rt")}, diag.ErrIO},
		{"unknown platform", Suite{
			Source:   writeSuite(t, "platform a {\n  detect = 1\n}\nautodetect p (/ a /)\n"),
			Platform: "b",
		}, diag.ErrAutodetect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.suite.compile(t.Context())
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWorkflow(t *testing.T) {
	dir := t.TempDir()

	w := Workflow{
		Suite:      Suite{Source: writeSuite(t, suite)},
		Dir:        dir,
		Name:       "ufs",
		InstallDir: "/scratch/rt",
		Account:    "nems",
	}
	if err := w.Run(t.Context()); err != nil {
		t.Fatal(err)
	}

	xml := readFile(t, filepath.Join(dir, "workflow.xml"))
	for _, want := range []string{
		`<!ENTITY INSTALL_DIR "/scratch/rt">`,
		`<!ENTITY ACCOUNT "nems">`,
		`<task name="test_cold"`,
	} {
		if !strings.Contains(xml, want) {
			t.Errorf("workflow.xml missing %q", want)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "jobs", "JUFS_COLD")); err != nil {
		t.Error(err)
	}
}

func TestPlan(t *testing.T) {
	var buf bytes.Buffer

	p := Plan{Suite: Suite{Source: writeSuite(t, suite)}}
	if err := p.Run(WithOutput(t.Context(), &buf)); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("plan has %d lines:\n%s", len(lines), buf.String())
	}

	if !strings.Contains(lines[0], "baseline mode, platform none") {
		t.Errorf("title = %q", lines[0])
	}

	for i, want := range [][]string{
		{"#", "KIND", "NAME", "STEPS", "DEPENDS", "ON"},
		{"1", "build", "model", "build"},
		{"2", "test", "cold", "prep,input,execute,output", "model"},
	} {
		if diff := cmp.Diff(want, strings.Fields(lines[i+1])); diff != "" {
			t.Errorf("line %d (-want +got):\n%s", i+1, diff)
		}
	}
}

func TestPlanEmpty(t *testing.T) {
	var buf bytes.Buffer

	p := Plan{Suite: Suite{Source: writeSuite(t, "h = {}\n")}}
	if err := p.Run(WithOutput(t.Context(), &buf)); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(buf.String(), "nothing to run") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestDump(t *testing.T) {
	var buf bytes.Buffer

	d := Dump{Suite: Suite{Source: writeSuite(t, suite), Mode: "compare"}}
	if err := d.Run(WithOutput(t.Context(), &buf)); err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Mode     string                    `yaml:"mode"`
		Platform *string                   `yaml:"platform"`
		Runs     []string                  `yaml:"runs"`
		Scope    map[string]map[string]any `yaml:"scope"`
	}

	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal:\n%s\n%v", buf.String(), err)
	}

	if doc.Mode != "compare" || doc.Platform != nil {
		t.Errorf("mode = %q, platform = %v", doc.Mode, doc.Platform)
	}

	if diff := cmp.Diff([]string{"build model", "test cold"}, doc.Runs); diff != "" {
		t.Errorf("runs (-want +got):\n%s", diff)
	}

	cold := doc.Scope["cold"]
	if cold["kind"] != "test" {
		t.Errorf("cold = %v", cold)
	}

	if diff := cmp.Diff([]any{"build model"}, cold["deps"]); diff != "" {
		t.Errorf("deps (-want +got):\n%s", diff)
	}

	// outputs is written in full once and referenced from cold
	if doc.Scope["outputs"]["kind"] != "criteria" {
		t.Errorf("outputs = %v", doc.Scope["outputs"])
	}
}

func TestWatch(t *testing.T) {
	src := writeSuite(t, suite)
	dir := t.TempDir()
	install := filepath.Join(dir, "install.sh")

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)

	w := Watch{
		Workflow: Workflow{Suite: Suite{Source: src}, Dir: dir, Name: "rt"},
		Delay:    20 * time.Millisecond,
	}

	go func() { done <- w.Run(ctx) }()

	waitFor := func(want string) {
		t.Helper()

		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if b, err := os.ReadFile(install); err == nil && strings.Contains(string(b), want) {
				return
			}

			time.Sleep(20 * time.Millisecond)
		}

		t.Fatalf("install.sh never contained %q", want)
	}

	waitFor("make install")

	// let the watcher register before changing the file
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(src, []byte(strings.Replace(suite, "make install", "make -j8 install", 1)), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor("make -j8 install")

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchStdin(t *testing.T) {
	w := Watch{Workflow: Workflow{Suite: Suite{Source: stdinSource}}}

	if err := w.Run(t.Context()); !errors.Is(err, ErrWatch) {
		t.Errorf("error = %v, want %v", err, ErrWatch)
	}
}
