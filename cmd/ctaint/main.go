package main

import (
	"fmt"
	"os"

	"github.com/funvibe/ctaint/internal/config"
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "ctaint"
	app.Usage = "Run C programs and track non-deterministic values"
	app.Description = `ctaint interprets a subset of C. Values produced by the non-deterministic
sources (__VERIFIER_nondet_* by default) are tainted, and branching on them
is a fault. The check command replays a GraphML violation witness against
the program and reports whether it is validated.`
	app.Version = config.Version
	app.HideHelpCommand = true
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file (default: nearest " + config.ConfigFileName + ")",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored diagnostics",
		},
	}
	app.Commands = []*cli.Command{
		&CmdRun,
		&CmdCheck,
		&CmdEval,
		&CmdResults,
	}
	return app
}

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		// exit codes are handled by the cli package; this is a usage or
		// setup problem
		fmt.Fprintf(os.Stderr, "%s: %v\n", app.Name, err)
		os.Exit(config.ExitUsage)
	}
}

// exitWith ends the command with code without printing anything more.
func exitWith(code int) error {
	if code == 0 {
		return nil
	}
	return cli.Exit("", code)
}
