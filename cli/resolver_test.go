package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/google/go-cmp/cmp"

	"github.com/dtcenter/METplus-sub003/lang/diag"
)

func TestResolveFlatten(t *testing.T) {
	r, err := resolve(strings.NewReader(`
log:
  level: debug
  pretty: false
install_dir: /scratch/rt
Account: nems
delay: 500
tags: [1, two]
`))
	if err != nil {
		t.Fatal(err)
	}

	want := config{
		"log-level":   "debug",
		"log-pretty":  false,
		"install-dir": "/scratch/rt",
		"account":     "nems",
		"delay":       "500",
		"tags":        []any{"1", "two"},
	}

	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestResolveFlag(t *testing.T) {
	r, err := resolve(strings.NewReader("log_time_layout: kitchen\n"))
	if err != nil {
		t.Fatal(err)
	}

	for name, want := range map[string]any{
		"log-time-layout": "kitchen",
		"log-level":       nil,
	} {
		got, err := r.Resolve(nil, nil, &kong.Flag{Value: &kong.Value{Name: name}})
		if err != nil {
			t.Fatal(err)
		}

		if got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
}

func TestResolveEmpty(t *testing.T) {
	r, err := resolve(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}

	if len(r.(config)) != 0 {
		t.Errorf("config = %v, want empty", r)
	}
}

func TestResolveInvalid(t *testing.T) {
	if _, err := resolve(strings.NewReader("log: [level\n")); !errors.Is(err, diag.ErrConfig) {
		t.Errorf("error = %v, want %v", err, diag.ErrConfig)
	}
}
