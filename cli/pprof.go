package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/dtcenter/METplus-sub003/log"
	"github.com/dtcenter/METplus-sub003/profile"
)

// pprofConfig selects a profiling session. Without the pprof build tag
// [profile.Modes] is empty, so only the empty mode is accepted.
type pprofConfig struct {
	Mode string `default:""            enum:",${pprofModeEnum}" help:"Enable profiling (${pprofModeEnum})." placeholder:"MODE"`
	Dir  string `default:"${pprofDir}"                          help:"Profile output directory."              type:"path"`
}

func (pprofConfig) vars() kong.Vars {
	return kong.Vars{
		"pprofModeEnum": strings.Join(profile.Modes(), ","),
		"pprofDir":      filepath.Join(cacheDir(), profile.Tag),
	}
}

func (pprofConfig) group() kong.Group {
	return kong.Group{Key: "pprof", Title: "Profiling (pprof build tag)"}
}

// start begins profiling if a mode was chosen. The returned func stops it.
func (f pprofConfig) start(ctx context.Context) (stop func()) {
	if f.Mode == "" {
		return func() {}
	}

	log.DebugContext(ctx, "pprof start",
		slog.String("mode", f.Mode),
		slog.String("dir", f.Dir),
	)

	s := profile.Profiler{Mode: f.Mode, Path: f.Dir, Quiet: true}.Start()

	return func() {
		s.Stop()
		log.DebugContext(ctx, "pprof stop", slog.String("mode", f.Mode))
	}
}
