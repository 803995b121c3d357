package pipeline

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/funvibe/ctaint/internal/config"
	"github.com/funvibe/ctaint/internal/evaluator"
	"github.com/funvibe/ctaint/internal/memory"
	"github.com/funvibe/ctaint/internal/results"
	"github.com/funvibe/ctaint/internal/witness"
)

// Processor is one stage of a pipeline.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// PipelineContext carries a program through the stages: its inputs, the
// configuration, the interpreter and what the run produced.
type PipelineContext struct {
	Ctx context.Context

	Command     string
	ProgramPath string
	WitnessPath string
	ConfigPath  string
	Args        []string

	Out  io.Writer
	Warn *log.Logger

	Config      *config.Config
	Source      string
	Validator   *witness.Validator
	Interpreter *evaluator.Interpreter

	Status   int
	RunErr   error
	Verdict  *witness.Verdict
	Stats    memory.Stats
	Started  time.Time
	Duration time.Duration
	Record   *results.Run

	// ExitCode is the status the process should exit with.
	ExitCode int
	// Errors stop the stages that need their predecessors' output.
	Errors []error
}

// NewPipelineContext prepares a run of the program at path.
func NewPipelineContext(command, path string) *PipelineContext {
	return &PipelineContext{
		Ctx:         context.Background(),
		Command:     command,
		ProgramPath: path,
		Out:         os.Stdout,
		Warn:        log.New(os.Stderr, "warning: ", 0),
	}
}

func (ctx *PipelineContext) fail(err error) *PipelineContext {
	ctx.Errors = append(ctx.Errors, err)
	return ctx
}
