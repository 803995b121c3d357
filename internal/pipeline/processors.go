package pipeline

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/funvibe/ctaint/internal/config"
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/evaluator"
	"github.com/funvibe/ctaint/internal/results"
	"github.com/funvibe/ctaint/internal/witness"
)

// Commands understood by the stages.
const (
	CommandRun   = "run"
	CommandCheck = "check"
)

// ConfigProcessor resolves the configuration: the explicit file, the
// nearest ctaint.yaml or the defaults.
type ConfigProcessor struct{}

func (p *ConfigProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Config != nil {
		return ctx
	}
	cfg, err := config.Resolve(ctx.ConfigPath, ctx.ProgramPath)
	if err != nil {
		ctx.ExitCode = config.ExitUsage
		return ctx.fail(err)
	}
	ctx.Config = cfg
	return ctx
}

// SourceProcessor reads the program.
type SourceProcessor struct{}

func (p *SourceProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if len(ctx.Errors) > 0 || ctx.Source != "" {
		return ctx
	}
	data, err := os.ReadFile(ctx.ProgramPath)
	if err != nil {
		ctx.ExitCode = diagnostics.ExitFailure
		return ctx.fail(fmt.Errorf("reading program: %w", err))
	}
	ctx.Source = string(data)
	return ctx
}

// WitnessProcessor loads the witness of a check and builds its validator.
// A check without a witness still gets a validator; it reports that there
// is nothing to validate against.
type WitnessProcessor struct{}

func (p *WitnessProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if len(ctx.Errors) > 0 || ctx.Command != CommandCheck {
		return ctx
	}
	if ctx.WitnessPath == "" {
		ctx.Validator = witness.NewValidator(nil)
		return ctx
	}
	w, err := witness.Load(ctx.WitnessPath)
	if err != nil {
		ctx.ExitCode = config.ExitBadWitness
		return ctx.fail(err)
	}
	a, err := witness.NewAutomaton(w, ctx.Warn)
	if err != nil {
		ctx.ExitCode = config.ExitBadWitness
		return ctx.fail(fmt.Errorf("%s: %w", ctx.WitnessPath, err))
	}
	if ctx.Config.Trace {
		a.Trace = log.New(ctx.Warn.Writer(), "witness: ", 0)
	}
	ctx.Validator = witness.NewValidator(a)
	if ctx.Config.TraceStates {
		ctx.Validator.States = log.New(ctx.Warn.Writer(), "state: ", 0)
	}
	return ctx
}

// ExecutionProcessor runs the program, under the validator when there is
// one.
type ExecutionProcessor struct{}

func (p *ExecutionProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if len(ctx.Errors) > 0 {
		return ctx
	}
	ec := ctx.Config.EvalConfig()
	ec.Out = ctx.Out
	ec.Warn = ctx.Warn
	if ctx.Config.Trace {
		ec.Trace = log.New(ctx.Warn.Writer(), "trace: ", 0)
	}
	if ctx.Validator != nil {
		ec.StatementHook = ctx.Validator.Hook
	}

	in := evaluator.New(ec)
	if ctx.Validator != nil {
		ctx.Validator.Attach(in)
	}
	ctx.Interpreter = in

	ctx.Started = time.Now()
	ctx.Status, ctx.RunErr = in.Run(ctx.ProgramPath, ctx.Source, ctx.Args)
	ctx.Duration = time.Since(ctx.Started)
	ctx.Stats = in.Mem.Stats()
	return ctx
}

// VerdictProcessor decides the exit code: the witness verdict for a
// check, the program's own status otherwise.
type VerdictProcessor struct{}

func (p *VerdictProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Interpreter == nil {
		return ctx
	}
	if ctx.Validator != nil {
		v := ctx.Validator.Decide(ctx.RunErr)
		ctx.Verdict = &v
		ctx.ExitCode = v.Status
		return ctx
	}
	ctx.ExitCode = ExitCode(ctx.Status, ctx.RunErr)
	return ctx
}

// ExitCode is the process status for a finished run.
func ExitCode(status int, runErr error) int {
	if runErr == nil {
		return status
	}
	var exit *evaluator.ExitError
	if errors.As(runErr, &exit) {
		return exit.Code
	}
	var d *diagnostics.DiagnosticError
	if errors.As(runErr, &d) {
		return d.ExitStatus()
	}
	return diagnostics.ExitFailure
}

// RecordProcessor stores the run in the results database when the
// configuration asks for it. Failing to record is only a warning.
type RecordProcessor struct{}

func (p *RecordProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Config == nil || !ctx.Config.Results.Record {
		return ctx
	}
	r := &results.Run{
		Command:  ctx.Command,
		Program:  ctx.ProgramPath,
		Witness:  ctx.WitnessPath,
		Status:   ctx.ExitCode,
		Verdict:  config.VerdictRun,
		Started:  ctx.Started,
		Duration: ctx.Duration,
	}
	if in := ctx.Interpreter; in != nil {
		r.ErrorCalled = in.ErrorFunctionCalled
		r.Steps = in.Steps
		r.PeakMemory = ctx.Stats.PeakTotal
	}
	switch {
	case ctx.Verdict != nil:
		r.Verdict = ctx.Verdict.Name
	case len(ctx.Errors) > 0:
		r.Verdict = config.VerdictError
	}
	var errs []error
	errs = append(errs, ctx.Errors...)
	if ctx.RunErr != nil {
		errs = append(errs, ctx.RunErr)
	}
	if err := errors.Join(errs...); err != nil {
		r.Error = err.Error()
	}

	store, err := results.Open(ctx.Ctx, ctx.Config.Results.Path)
	if err != nil {
		ctx.Warn.Printf("results: %v", err)
		return ctx
	}
	defer store.Close()
	if err := store.Record(ctx.Ctx, r); err != nil {
		ctx.Warn.Printf("results: %v", err)
		return ctx
	}
	ctx.Record = r
	return ctx
}
