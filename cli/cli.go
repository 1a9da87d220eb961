// Package cli is the rtgen command line.
//
//	rtgen [flags] <command> SUITE ...
//
// Commands:
//
//	script    write the run-list as one bash script
//	workflow  write a Rocoto workflow directory
//	plan      list the run-list
//	dump      describe the top-level scope as YAML
//	watch     rewrite the workflow whenever a loaded file changes
//
// Flags may also be set in $XDG_CONFIG_HOME/rtgen/config.yaml or in the
// file named by --config. Command-line flags win.
package cli

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/dtcenter/METplus-sub003/cli/cmd"
	"github.com/dtcenter/METplus-sub003/pkg"
)

// CLI is the top-level command-line interface for rtgen.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Config  kong.ConfigFlag  `help:"Read flags from a YAML file."    placeholder:"FILE"`
	Version kong.VersionFlag `help:"Print version and exit."`

	Script   cmd.Script   `cmd:"" help:"Write the run-list as a bash script."`
	Workflow cmd.Workflow `cmd:"" help:"Write a Rocoto workflow."`
	Plan     cmd.Plan     `cmd:"" help:"List the run-list in execution order."`
	Dump     cmd.Dump     `cmd:"" help:"Describe the top-level scope as YAML."`
	Watch    cmd.Watch    `cmd:"" help:"Rewrite the workflow whenever a loaded file changes."`
}

// Run parses args and executes the selected command. kong calls exit for
// --help, --version and usage errors.
func Run(ctx context.Context, exit func(code int), args ...string) error {
	var cli CLI

	if err := mkdirAllRequired(); err != nil {
		return err
	}

	vars := kong.Vars{
		cmd.ConfigIdentifier: configPath(baseConfig),
		cmd.CacheIdentifier:  cacheDir(),
		"version":            pkg.Name + " " + pkg.Version,
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups([]kong.Group{cli.Log.group(), cli.Pprof.group()}),
		// ctx is read when a command first asks for it, after WithContext
		kong.BindSingletonProvider(func() context.Context { return ctx }),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			Summary:             true,
			Tree:                true,
			NoExpandSubcommands: true,
		}),
		kong.Configuration(resolve, configPath(baseConfig)),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	ctx = cmd.WithContext(ctx, ktx)

	cli.Log.start(ctx)

	defer cli.Pprof.start(ctx)()

	return ktx.Run()
}
