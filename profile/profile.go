package profile

// Tag is the build tag that enables profiling. It also names the default
// output subdirectory.
const Tag = "pprof"

// Profiler describes one profiling session.
type Profiler struct {
	Mode  string // one of [Modes]; empty disables profiling
	Path  string // output directory
	Quiet bool   // suppress the profiler's own log lines
}

// Stopper ends a profiling session and flushes its output.
type Stopper interface{ Stop() }

// Start begins profiling. It returns a no-op [Stopper] when Mode is empty,
// when Mode is unknown, or when the binary was built without the pprof tag.
func (p Profiler) Start() Stopper {
	if p.Mode == "" {
		return ignore{}
	}

	return start(p)
}

type ignore struct{}

func (ignore) Stop() {}
