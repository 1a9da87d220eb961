// Package profile wraps [github.com/pkg/profile] behind the pprof build tag.
//
// Without the tag, [Modes] is empty and [Profiler.Start] does nothing:
//
//	go build -tags pprof ./...
//
// With it, the supported modes are allocs, block, clock, cpu, goroutine,
// heap, mem, mutex, thread and trace. Each session writes <mode>.pprof (or
// trace.out) into [Profiler.Path]:
//
//	s := profile.Profiler{Mode: "cpu", Path: dir, Quiet: true}.Start()
//	defer s.Stop()
package profile
