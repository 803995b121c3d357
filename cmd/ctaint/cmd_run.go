package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/funvibe/ctaint/internal/config"
	"github.com/funvibe/ctaint/internal/pipeline"
	"github.com/urfave/cli/v2"
)

var runFlags = []cli.Flag{
	&cli.Int64Flag{
		Name:  "nondet-value",
		Usage: "Value returned by the non-deterministic sources",
	},
	&cli.StringFlag{
		Name:  "error-function",
		Usage: "Name of the function whose call marks the error location",
	},
	&cli.StringFlag{
		Name:  "memory-limit",
		Usage: `Memory the program may use, e.g. "16MiB" or "unlimited"`,
	},
	&cli.BoolFlag{
		Name:  "trace",
		Usage: "Log evaluation and taint events to stderr",
	},
	&cli.BoolFlag{
		Name:  "stats",
		Usage: "Print memory and step statistics after the run",
	},
}

// CmdRun runs a program.
var CmdRun = cli.Command{
	Name:      "run",
	Usage:     "Run a C program",
	ArgsUsage: "<program.c> [args...]",
	Flags:     runFlags,
	Action:    runProgram,
}

func runProgram(c *cli.Context) error {
	ctx, err := newContext(c, pipeline.CommandRun)
	if err != nil {
		return err
	}
	ctx = pipeline.Standard().Run(ctx)
	report(c, ctx)
	return exitWith(ctx.ExitCode)
}

// newContext prepares the pipeline from the command line: the program and
// its arguments, the configuration and the flag overrides.
func newContext(c *cli.Context, command string) (*pipeline.PipelineContext, error) {
	if c.NArg() == 0 {
		return nil, errors.New("no program given")
	}
	program := c.Args().First()

	cfg, err := config.Resolve(c.String("config"), program)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(c, cfg); err != nil {
		return nil, err
	}

	ctx := pipeline.NewPipelineContext(command, program)
	ctx.Ctx = c.Context
	ctx.Config = cfg
	ctx.Args = c.Args().Slice()
	ctx.Out = c.App.Writer
	ctx.Warn = log.New(c.App.ErrWriter, "warning: ", 0)
	return ctx, nil
}

func applyFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet("nondet-value") {
		v := c.Int64("nondet-value")
		cfg.NonDetValue = &v
	}
	if c.IsSet("trace") {
		cfg.Trace = c.Bool("trace")
	}
	changed := false
	if c.IsSet("error-function") {
		cfg.ErrorFunction = c.String("error-function")
		changed = true
	}
	if c.IsSet("memory-limit") {
		cfg.MemoryLimit = c.String("memory-limit")
		changed = true
	}
	if !changed {
		return nil
	}
	if err := cfg.Revalidate(); err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	return nil
}
