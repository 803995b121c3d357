package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/funvibe/ctaint/internal/config"
	"github.com/funvibe/ctaint/internal/results"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

var dbFlag = &cli.StringFlag{
	Name:  "db",
	Usage: "Results database (default: results.path of the configuration)",
}

// CmdResults inspects recorded runs.
var CmdResults = cli.Command{
	Name:  "results",
	Usage: "Inspect recorded runs",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "List runs, newest first",
			Flags: []cli.Flag{
				dbFlag,
				&cli.StringFlag{Name: "program", Usage: "Only runs of this program"},
				&cli.StringFlag{Name: "verdict", Usage: "Only runs with this verdict"},
				&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Maximum number of runs"},
			},
			Action: runResultsList,
		},
		{
			Name:      "show",
			Usage:     "Show one run",
			ArgsUsage: "<id>",
			Flags:     []cli.Flag{dbFlag},
			Action:    runResultsShow,
		},
	},
}

func openResults(c *cli.Context) (*results.Store, error) {
	path := c.String("db")
	if path == "" {
		cfg, err := config.Resolve(c.String("config"), config.ConfigFileName)
		if err != nil {
			return nil, err
		}
		path = cfg.Results.Path
	}
	return results.Open(c.Context, path)
}

func runResultsList(c *cli.Context) error {
	store, err := openResults(c)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(c.Context, results.Filter{
		Program: c.String("program"),
		Verdict: c.String("verdict"),
		Limit:   c.Int("limit"),
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tCOMMAND\tPROGRAM\tVERDICT\tSTATUS")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			r.ID, humanize.Time(r.Started), r.Command, r.Program, r.Verdict, r.Status)
	}
	return w.Flush()
}

func runResultsShow(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected one run id")
	}
	id, err := uuid.Parse(c.Args().First())
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}
	store, err := openResults(c)
	if err != nil {
		return err
	}
	defer store.Close()

	r, err := store.Get(c.Context, id)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "id:\t%s\n", r.ID)
	fmt.Fprintf(w, "command:\t%s\n", r.Command)
	fmt.Fprintf(w, "program:\t%s\n", r.Program)
	if r.Witness != "" {
		fmt.Fprintf(w, "witness:\t%s\n", r.Witness)
	}
	fmt.Fprintf(w, "verdict:\t%s (status %d)\n", r.Verdict, r.Status)
	fmt.Fprintf(w, "error function called:\t%t\n", r.ErrorCalled)
	fmt.Fprintf(w, "steps:\t%s\n", humanize.Comma(int64(r.Steps)))
	fmt.Fprintf(w, "peak memory:\t%s\n", humanize.IBytes(uint64(r.PeakMemory)))
	fmt.Fprintf(w, "started:\t%s\n", r.Started.Format(time.RFC3339))
	fmt.Fprintf(w, "duration:\t%s\n", r.Duration)
	if r.Error != "" {
		fmt.Fprintf(w, "error:\t%s\n", r.Error)
	}
	return w.Flush()
}
