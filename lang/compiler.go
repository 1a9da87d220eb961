package lang

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/readahead"

	"github.com/dtcenter/METplus-sub003/lang/diag"
	"github.com/dtcenter/METplus-sub003/log"
)

// Mode selects how comparison operators behave.
type Mode int

const (
	// ModeBaseline captures outputs as the new reference.
	ModeBaseline Mode = iota
	// ModeCompare checks outputs against the reference.
	ModeCompare
)

func (m Mode) String() string {
	if m == ModeCompare {
		return "compare"
	}

	return "baseline"
}

// ParseMode converts "baseline" or "compare" to a [Mode].
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "baseline", "":
		return ModeBaseline, nil
	case "compare":
		return ModeCompare, nil
	default:
		return 0, diag.ErrType.With(
			slog.String("mode", s),
			slog.String("expected", "baseline or compare"),
		)
	}
}

// Option configures a [Compiler].
type Option func(*Compiler)

// WithMode sets the run mode.
func WithMode(m Mode) Option {
	return func(c *Compiler) { c.mode = m }
}

// WithEnv sets the process environment seen by ENV and by expressions.
// The format is []string{"KEY=VALUE", ...}. If nil, os.Environ() is used.
func WithEnv(env []string) Option {
	return func(c *Compiler) { c.env = envMap(env) }
}

// WithLogger sets the structured logger for trace-level debugging.
// If not provided, the logger is zero-valued and all logging is a no-op.
func WithLogger(logger log.Logger) Option {
	return func(c *Compiler) { c.logger = logger }
}

// WithPlatform forces autodetection to choose the named platform.
func WithPlatform(name string) Option {
	return func(c *Compiler) { c.forced = name }
}

// Compiler holds the state of one compilation: the scope arena, the run
// mode, the run-list and the chosen platform.
type Compiler struct {
	arena    *Arena
	builtins *Scope
	root     *Scope

	mode   Mode
	env    map[string]string
	logger log.Logger
	forced string

	platform *Scope
	runs     RunList

	loading []string // files being loaded, outermost first
	files   []string // every file read, in load order
	depth   int      // interpolation nesting
}

// New returns a compiler with an empty top-level scope.
func New(opts ...Option) *Compiler {
	c := &Compiler{arena: &Arena{}}

	for _, opt := range opts {
		opt(c)
	}

	if c.env == nil {
		c.env = envMap(os.Environ())
	}

	c.builtins = c.arena.newBuiltins(c.env)
	c.root = c.arena.New(KindRoot, "", []ScopeID{c.builtins.ID})

	return c
}

// Compile reads and evaluates the source file at path.
func Compile(ctx context.Context, path string, opts ...Option) (*Compiler, error) {
	c := New(opts...)

	if err := c.LoadFile(ctx, path); err != nil {
		return nil, err
	}

	return c, nil
}

// Arena returns the scope arena.
func (c *Compiler) Arena() *Arena { return c.arena }

// Root returns the top-level scope.
func (c *Compiler) Root() *Scope { return c.root }

// Builtins returns the scope holding the builtin operators and ENV.
func (c *Compiler) Builtins() *Scope { return c.builtins }

// Mode returns the run mode.
func (c *Compiler) Mode() Mode { return c.mode }

// Platform returns the platform chosen by autodetect, or nil.
func (c *Compiler) Platform() *Scope { return c.platform }

// Runs returns the dependency-ordered run-list.
func (c *Compiler) Runs() RunList { return slices.Clone(c.runs) }

// Files returns every source file read so far, in load order.
func (c *Compiler) Files() []string { return slices.Clone(c.files) }

// LoadFile reads path and evaluates it into the top-level scope.
func (c *Compiler) LoadFile(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return diag.ErrIO.Wrap(err).With(slog.String("path", path))
	}

	if slices.Contains(c.loading, abs) {
		return diag.ErrRecursiveLoad.With(
			slog.String("path", path),
			slog.String("chain", strings.Join(append(c.loading, abs), " -> ")),
		)
	}

	src, err := readFile(abs)
	if err != nil {
		return diag.ErrIO.Wrap(err).With(slog.String("path", path))
	}

	c.loading = append(c.loading, abs)
	c.files = append(c.files, abs)

	defer func() { c.loading = c.loading[:len(c.loading)-1] }()

	c.logger.TraceContext(ctx, "load", slog.String("path", abs), slog.Int("bytes", len(src)))

	return c.LoadSource(ctx, path, src)
}

// LoadSource evaluates src into the top-level scope. The file name is used
// for positions and as the base directory of nested loads.
func (c *Compiler) LoadSource(ctx context.Context, file string, src []byte) error {
	return c.evalSource(ctx, file, src)
}

// readFile reads a whole source file through a read-ahead buffer.
func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ra := readahead.NewReader(f)
	defer ra.Close()

	return io.ReadAll(ra)
}

// loadPath resolves the argument of a load statement. Relative and absolute
// paths alike are taken relative to the directory of the loading file.
func loadPath(from, path string) string {
	return filepath.Join(filepath.Dir(from), path)
}

func envMap(env []string) map[string]string {
	m := make(map[string]string, len(env))

	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}

	return m
}

// Env returns a copy of the process environment seen by the compiler.
func (c *Compiler) Env() map[string]string { return maps.Clone(c.env) }
