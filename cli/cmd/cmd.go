package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/dtcenter/METplus-sub003/lang"
	"github.com/dtcenter/METplus-sub003/lang/diag"
	"github.com/dtcenter/METplus-sub003/log"
)

type (
	contextKey struct{}
	outputKey  struct{}
)

// WithContext returns a copy of ctx carrying the parsed kong context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, _ := ctx.Value(contextKey{}).(*kong.Context)

	return ktx
}

// WithOutput returns a copy of ctx whose commands print to w instead of
// standard output.
func WithOutput(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, outputKey{}, w)
}

func outputFrom(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(outputKey{}).(io.Writer); ok {
		return w
	}

	if ktx := kongContextFrom(ctx); ktx != nil && ktx.Stdout != nil {
		return ktx.Stdout
	}

	return os.Stdout
}

// stdinSource names standard input as the suite file.
const stdinSource = "-"

// Suite selects the file to compile and how to compile it.
type Suite struct {
	Source   string `arg:""                                          help:"Suite file, or '-' for standard input." name:"suite"`
	Mode     string `default:"baseline" enum:"baseline,compare"      help:"Run mode (${enum})."                    short:"m"`
	Platform string `                                                help:"Use the named platform instead of autodetecting."`
}

func (s *Suite) options() ([]lang.Option, error) {
	mode, err := lang.ParseMode(s.Mode)
	if err != nil {
		return nil, err
	}

	opts := []lang.Option{
		lang.WithMode(mode),
		lang.WithLogger(log.Default().With(slog.String("suite", s.Source))),
	}

	if s.Platform != "" {
		opts = append(opts, lang.WithPlatform(s.Platform))
	}

	return opts, nil
}

// load compiles the suite. The compiler is returned even when loading
// fails, so callers can still see which files were read.
func (s *Suite) load(ctx context.Context) (*lang.Compiler, error) {
	opts, err := s.options()
	if err != nil {
		return nil, err
	}

	c := lang.New(opts...)

	if s.Source == stdinSource {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			return c, diag.ErrIO.Wrap(err).With(slog.String("file", "<stdin>"))
		}

		return c, c.LoadSource(ctx, "<stdin>", src)
	}

	return c, c.LoadFile(ctx, s.Source)
}

// compile is load without the partial result.
func (s *Suite) compile(ctx context.Context) (*lang.Compiler, error) {
	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	log.DebugContext(ctx, "compiled",
		slog.String("suite", s.Source),
		slog.String("mode", c.Mode().String()),
		slog.Int("runs", len(c.Runs())),
		slog.Int("files", len(c.Files())),
	)

	return c, nil
}
