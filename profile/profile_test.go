package profile

import (
	"slices"
	"testing"
)

func TestStartDisabled(t *testing.T) {
	for _, p := range []Profiler{
		{},
		{Mode: "nonsense", Path: t.TempDir()},
	} {
		s := p.Start()
		if _, ok := s.(ignore); !ok {
			t.Errorf("Start(%+v) = %T, want no-op", p, s)
		}

		s.Stop()
	}
}

func TestModesSorted(t *testing.T) {
	if m := Modes(); !slices.IsSorted(m) {
		t.Errorf("Modes() = %v, not sorted", m)
	}
}
