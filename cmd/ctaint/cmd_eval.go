package main

import (
	"fmt"
	"log"
	"os"

	"github.com/funvibe/ctaint/internal/config"
	"github.com/funvibe/ctaint/internal/evaluator"
	"github.com/funvibe/ctaint/internal/pipeline"
	"github.com/urfave/cli/v2"
)

// CmdEval evaluates expressions against a program's globals.
var CmdEval = cli.Command{
	Name:      "eval",
	Usage:     "Evaluate C expressions",
	ArgsUsage: "<expression>...",
	Description: `Each argument is evaluated in the global scope, after the declarations of
--program (its main is not called). With --assume the arguments are witness
assumptions instead: a comparison of a non-deterministic variable with a
value pins the variable.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "program",
			Aliases: []string{"p"},
			Usage:   "C file whose declarations are loaded first",
		},
		&cli.BoolFlag{
			Name:  "assume",
			Usage: "Evaluate the arguments as witness assumptions",
		},
	},
	Action: runEval,
}

func runEval(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("no expression given")
	}
	program := c.String("program")
	cfg, err := config.Resolve(c.String("config"), program)
	if err != nil {
		return err
	}

	ec := cfg.EvalConfig()
	ec.Out = c.App.Writer
	ec.Warn = log.New(c.App.ErrWriter, "warning: ", 0)
	in := evaluator.New(ec)
	r := newReporter(c)

	if program != "" {
		src, err := os.ReadFile(program)
		if err != nil {
			return err
		}
		if err := in.Load(program, string(src)); err != nil {
			r.error(err)
			return exitWith(pipeline.ExitCode(0, err))
		}
	}

	status := 0
	for _, expr := range c.Args().Slice() {
		if c.Bool("assume") {
			holds, err := in.EvalAssumption(expr)
			if err != nil {
				r.error(err)
				status = pipeline.ExitCode(0, err)
				continue
			}
			fmt.Fprintf(c.App.Writer, "%s: %t\n", expr, holds)
			continue
		}
		v, err := in.EvalExpression(expr)
		if err != nil {
			r.error(err)
			status = pipeline.ExitCode(0, err)
			continue
		}
		fmt.Fprintf(c.App.Writer, "%s = %s\n", expr, in.Format(v))
	}
	return exitWith(status)
}
