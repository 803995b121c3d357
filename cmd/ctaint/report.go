package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/funvibe/ctaint/internal/config"
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/evaluator"
	"github.com/funvibe/ctaint/internal/pipeline"
	"github.com/funvibe/ctaint/internal/witness"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
)

// reporter writes diagnostics and summaries to stderr.
type reporter struct {
	w     io.Writer
	color bool
}

func newReporter(c *cli.Context) *reporter {
	return &reporter{
		w:     c.App.ErrWriter,
		color: !c.Bool("no-color") && colorable(c.App.ErrWriter),
	}
}

// colorable reports whether w is a terminal that accepts ANSI colors.
func colorable(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *reporter) paint(color, s string) string {
	if !r.color {
		return s
	}
	return color + s + ansiReset
}

// error prints err, giving diagnostics their position and category.
func (r *reporter) error(err error) {
	var d *diagnostics.DiagnosticError
	if !errors.As(err, &d) {
		fmt.Fprintf(r.w, "%s %v\n", r.paint(ansiRed+ansiBold, "error:"), err)
		return
	}
	pos := d.File
	if d.Token.Line > 0 {
		pos = fmt.Sprintf("%s:%d:%d", d.File, d.Token.Line, d.Token.Column)
	}
	if pos != "" {
		pos = r.paint(ansiBold, pos+":") + " "
	}
	fmt.Fprintf(r.w, "%s%s %s\n", pos, r.paint(ansiRed+ansiBold, d.Category()+" ["+string(d.Code)+"]:"), d.Msg)
}

func (r *reporter) verdict(v *witness.Verdict) {
	color := ansiYellow
	switch v.Name {
	case config.VerdictValidated:
		color = ansiGreen
	case config.VerdictError:
		color = ansiRed
	}
	fmt.Fprintf(r.w, "%s %s (status %d", r.paint(ansiBold, "verdict:"), r.paint(color, v.Name), v.Status)
	if v.State != "" {
		fmt.Fprintf(r.w, ", state %s", v.State)
	}
	fmt.Fprintln(r.w, ")")
	if v.Message != "" {
		fmt.Fprintf(r.w, "  %s\n", v.Message)
	}
}

func (r *reporter) stats(ctx *pipeline.PipelineContext) {
	fmt.Fprintf(r.w, "%s %s steps in %s\n", r.paint(ansiBold, "stats:"),
		humanize.Comma(int64(ctx.Interpreter.Steps)), ctx.Duration)
	fmt.Fprintf(r.w, "  %s\n", ctx.Stats)
	if ctx.Record != nil {
		fmt.Fprintf(r.w, "  recorded as %s\n", ctx.Record.ID)
	}
}

// report prints what a pipeline run produced besides the program's own
// output.
func report(c *cli.Context, ctx *pipeline.PipelineContext) {
	r := newReporter(c)
	for _, err := range ctx.Errors {
		r.error(err)
	}
	if ctx.RunErr != nil && !quietStop(ctx.RunErr) {
		r.error(ctx.RunErr)
	}
	if ctx.Verdict != nil {
		r.verdict(ctx.Verdict)
	}
	if c.Bool("stats") && ctx.Interpreter != nil {
		r.stats(ctx)
	}
}

// quietStop reports whether err is an ordinary end of the run: exit() or
// the validator stopping the program.
func quietStop(err error) bool {
	var exit *evaluator.ExitError
	var stop *witness.StopError
	return errors.As(err, &exit) || errors.As(err, &stop)
}
