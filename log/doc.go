// Package log provides a concurrency-safe logging interface based on
// [log/slog] with an extra trace level.
//
// # Basic Usage
//
//	logger := log.Make(os.Stderr, log.WithLevel(log.LevelDebug))
//	logger.Info("compiled", slog.Int("tasks", n))
//
// A zero [Logger] discards everything, so components can hold one without
// checking whether logging was configured.
//
// # Package Logger
//
// The package-level functions ([Info], [ErrorContext], ...) write through a
// default logger on standard error. [Config] reconfigures it:
//
//	log.Config(log.WithLevel(log.ParseLevel("trace")), log.WithFormat(log.FormatJSON))
//
// [Default] returns it for handing to components that accept a [Logger].
//
// # Levels and Formats
//
// Levels are [LevelTrace], [LevelDebug], [LevelInfo], [LevelWarn] and
// [LevelError]. Messages below the configured level are discarded.
//
// Output is [FormatText] or [FormatJSON]. Text output is colorized unless
// [WithPretty] disables it; colors are dropped automatically when the
// output is not a terminal.
//
// # Time Formatting
//
// [WithTimeLayout] accepts the names of the [time] package layouts or a
// custom layout. "none" omits timestamps.
package log
