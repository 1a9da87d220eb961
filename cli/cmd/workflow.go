package cmd

import (
	"context"
	"log/slog"

	"github.com/dtcenter/METplus-sub003/codegen/rocoto"
	"github.com/dtcenter/METplus-sub003/lang"
	"github.com/dtcenter/METplus-sub003/log"
)

// Workflow writes a Rocoto workflow directory. Empty settings fall back to
// the detected platform's variables.
type Workflow struct {
	Suite Suite `embed:""`

	Dir        string `default:"."  help:"Output directory."                               short:"d" type:"path"`
	Name       string `default:"rt" help:"Workflow name, used in job and script names."`
	InstallDir string `             help:"Directory the workflow is installed in."        type:"path"`
	LogDir     string `             help:"Directory for scheduler logs."                  type:"path"`
	Account    string `             help:"Batch account."`
	Scheduler  string `             help:"Batch scheduler (slurm, pbspro, lsf, ...)."`
}

func (w *Workflow) options() rocoto.Options {
	return rocoto.Options{
		Name:       w.Name,
		InstallDir: w.InstallDir,
		LogDir:     w.LogDir,
		Account:    w.Account,
		Scheduler:  w.Scheduler,
	}
}

// Run executes the workflow command.
func (w *Workflow) Run(ctx context.Context) error {
	c, err := w.Suite.compile(ctx)
	if err != nil {
		return err
	}

	return w.write(ctx, c)
}

func (w *Workflow) write(ctx context.Context, c *lang.Compiler) error {
	wf, err := rocoto.Collect(c, w.options())
	if err != nil {
		return err
	}

	if err := wf.Write(w.Dir); err != nil {
		return err
	}

	log.InfoContext(ctx, "wrote workflow",
		slog.String("dir", w.Dir),
		slog.Int("builds", len(wf.Builds)),
		slog.Int("tests", len(wf.Tests)),
	)

	return nil
}
