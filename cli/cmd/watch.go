package cmd

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dtcenter/METplus-sub003/log"
)

// Watch regenerates a workflow each time the suite or any file it loads
// changes. Compilation errors are logged and watching continues.
type Watch struct {
	Workflow Workflow `embed:""`

	Delay time.Duration `default:"250ms" help:"Wait this long after the last change before regenerating."`
}

// Run executes the watch command until ctx is canceled.
func (w *Watch) Run(ctx context.Context) error {
	if w.Workflow.Suite.Source == stdinSource {
		return ErrWatch.With(slog.String("suite", "standard input cannot be watched"))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return ErrWatch.Wrap(err)
	}
	defer watcher.Close()

	files := w.regenerate(ctx)
	dirs := map[string]bool{}

	if err := w.track(watcher, dirs, files); err != nil {
		return err
	}

	timer := time.NewTimer(w.Delay)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !files[filepath.Clean(ev.Name)] || ev.Op == fsnotify.Chmod {
				continue
			}

			log.DebugContext(ctx, "change",
				slog.String("file", ev.Name),
				slog.String("op", ev.Op.String()),
			)
			timer.Reset(w.Delay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			log.WarnContext(ctx, "watch error", slog.Any("error", err))

		case <-timer.C:
			files = w.regenerate(ctx)

			if err := w.track(watcher, dirs, files); err != nil {
				return err
			}
		}
	}
}

// regenerate compiles and writes the workflow once, logging any error. It
// returns the set of files the compilation read, which always includes the
// suite itself.
func (w *Watch) regenerate(ctx context.Context) map[string]bool {
	c, err := w.Workflow.Suite.load(ctx)

	if err == nil {
		err = w.Workflow.write(ctx, c)
	}

	if err != nil {
		log.ErrorContext(ctx, "regenerate failed", slog.Any("error", err))
	}

	files := map[string]bool{}

	if abs, err := filepath.Abs(w.Workflow.Suite.Source); err == nil {
		files[abs] = true
	}

	if c != nil {
		for _, f := range c.Files() {
			if abs, err := filepath.Abs(f); err == nil {
				files[abs] = true
			}
		}
	}

	return files
}

// track watches the directory of every file. Directories are watched
// rather than files so that editors replacing a file by rename are seen.
func (*Watch) track(watcher *fsnotify.Watcher, dirs, files map[string]bool) error {
	for f := range files {
		dir := filepath.Dir(f)
		if dirs[dir] {
			continue
		}

		if err := watcher.Add(dir); err != nil {
			return ErrWatch.Wrap(err).With(slog.String("dir", dir))
		}

		dirs[dir] = true
	}

	return nil
}
