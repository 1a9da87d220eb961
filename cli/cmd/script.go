package cmd

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/dtcenter/METplus-sub003/codegen/shell"
	"github.com/dtcenter/METplus-sub003/fsops"
	"github.com/dtcenter/METplus-sub003/log"
)

// stdoutTarget names standard output as the script file.
const stdoutTarget = "-"

// Script writes the run-list as one bash script.
type Script struct {
	Suite Suite `embed:""`

	Output string `default:"-" help:"Write the script to FILE instead of standard output." placeholder:"FILE" short:"o"`
}

// Run executes the script command.
func (s *Script) Run(ctx context.Context) error {
	c, err := s.Suite.compile(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := shell.Write(&buf, c); err != nil {
		return err
	}

	if s.Output == stdoutTarget {
		if _, err := outputFrom(ctx).Write(buf.Bytes()); err != nil {
			return ErrWriteOutput.Wrap(err)
		}

		return nil
	}

	if err := fsops.WriteFile(s.Output, buf.Bytes(), 0o755); err != nil {
		return ErrWriteOutput.Wrap(err).With(slog.String("file", s.Output))
	}

	log.InfoContext(ctx, "wrote script",
		slog.String("file", s.Output),
		slog.Int("runs", len(c.Runs())),
	)

	return nil
}
