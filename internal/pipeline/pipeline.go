package pipeline

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
		// Later stages still run after an error so the run can be
		// recorded with what is known.
	}
	return ctx
}

// Standard assembles the stages of the run and check commands.
func Standard() *Pipeline {
	return New(
		&ConfigProcessor{},
		&SourceProcessor{},
		&WitnessProcessor{},
		&ExecutionProcessor{},
		&VerdictProcessor{},
		&RecordProcessor{},
	)
}
