package main

import (
	"github.com/funvibe/ctaint/internal/pipeline"
	"github.com/urfave/cli/v2"
)

// CmdCheck validates a violation witness against a program.
var CmdCheck = cli.Command{
	Name:  "check",
	Usage: "Validate a violation witness against a C program",
	Description: `Runs the program while a witness automaton follows it. Assumptions on the
witness edges pin non-deterministic variables to concrete values. The exit
status is 0 when the witness is validated, 5 when the error function is
never called, and one of 240-251 when the run stops early.`,
	ArgsUsage: "<program.c> [args...]",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:     "witness",
			Aliases:  []string{"w"},
			Usage:    "GraphML violation witness",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "trace-states",
			Usage: "Log every program state the automaton sees",
		},
	}, runFlags...),
	Action: runCheck,
}

func runCheck(c *cli.Context) error {
	ctx, err := newContext(c, pipeline.CommandCheck)
	if err != nil {
		return err
	}
	ctx.WitnessPath = c.String("witness")
	if c.IsSet("trace-states") {
		ctx.Config.TraceStates = c.Bool("trace-states")
	}
	ctx = pipeline.Standard().Run(ctx)
	report(c, ctx)
	return exitWith(ctx.ExitCode)
}
