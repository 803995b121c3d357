package witness

import (
	"errors"
	"fmt"
	"log"

	"github.com/funvibe/ctaint/internal/config"
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/evaluator"
)

// StopError ends a validation run early with a verdict status.
type StopError struct {
	Status int
	Reason string
}

func (e *StopError) Error() string {
	return fmt.Sprintf("validation stopped (%d): %s", e.Status, e.Reason)
}

// Validator drives an automaton from the statement hook of an
// interpreter.
type Validator struct {
	Automaton *Automaton
	// States, when set, receives every program state consumed.
	States *log.Logger

	in *evaluator.Interpreter
}

func NewValidator(a *Automaton) *Validator {
	return &Validator{Automaton: a}
}

// Attach binds the validator to in. The interpreter is created with Hook
// as its StatementHook, so it can only be attached afterwards; states
// reported before that are ignored.
func (v *Validator) Attach(in *evaluator.Interpreter) {
	v.in = in
}

// Hook consumes one program state. It stops the run once the witness is
// validated, and fails it when the automaton can no longer follow the
// program.
func (v *Validator) Hook(st evaluator.ProgramState) error {
	if v.in == nil {
		return nil
	}
	if v.States != nil {
		v.States.Printf("%s", formatState(st))
	}
	a := v.Automaton
	if a == nil {
		return &StopError{config.ExitNoWitness, "no witness automaton to validate against"}
	}
	if a.Illegal() {
		return &StopError{config.ExitIllegalState, "witness automaton is in an illegal state"}
	}
	if a.InSink() {
		return &StopError{config.ExitWitnessInSink, "witness automaton reached a sink without a violation"}
	}
	if err := a.Consume(st, v.in.ErrorFunctionCalled, v.in); err != nil {
		return err
	}
	if a.Validated() {
		return evaluator.ErrStop
	}
	return nil
}

func formatState(st evaluator.ProgramState) string {
	s := fmt.Sprintf("%s --- Line: %d, Pos: %d", st.File, st.Line, st.Column)
	if st.Control != evaluator.BranchNone {
		s += ", Control: " + st.Control.String()
	}
	if st.EnterFunction != "" {
		s += ", Enter: " + st.EnterFunction
	}
	if st.ReturnFromFunction != "" {
		s += ", Return: " + st.ReturnFromFunction
	}
	return s
}

// Verdict is the outcome of validating a witness.
type Verdict struct {
	// Status is the process exit status of the check.
	Status int
	// Name is one of the config.Verdict* names.
	Name string
	// State is the automaton's final node.
	State       string
	Violation   bool
	ErrorCalled bool
	// ProgramStatus is the status the run itself ended with.
	ProgramStatus int
	Message       string
}

// ProgramStatus maps the result of Interpreter.Run to the validator's
// status protocol: a program that returns normally finished without
// confirming the witness.
func ProgramStatus(runErr error) int {
	if runErr == nil {
		return config.ExitProgramFinished
	}
	var stop *StopError
	if errors.As(runErr, &stop) {
		return stop.Status
	}
	var exit *evaluator.ExitError
	if errors.As(runErr, &exit) {
		return exit.Code
	}
	var d *diagnostics.DiagnosticError
	if errors.As(runErr, &d) {
		switch d.Code {
		case diagnostics.ErrR001:
			return config.ExitUndefined
		case diagnostics.ErrR002:
			return config.ExitAlreadyDefined
		}
		return d.ExitStatus()
	}
	return diagnostics.ExitFailure
}

// Decide turns the run result into a verdict. Statuses from 240 to 246
// mean the run ended without an answer; they are refined by what the
// automaton saw.
func (v *Validator) Decide(runErr error) Verdict {
	a := v.Automaton
	status := ProgramStatus(runErr)
	verdict := Verdict{ProgramStatus: status}
	if a == nil {
		verdict.Status, verdict.Name = config.ExitNoWitness, config.VerdictError
		verdict.Message = "no witness automaton to validate against"
		return verdict
	}
	verdict.Violation = a.InViolation()
	verdict.ErrorCalled = a.ErrorCalled() || (v.in != nil && v.in.ErrorFunctionCalled)
	if cur := a.Current(); cur != nil {
		verdict.State = cur.ID
	}

	switch {
	case !(verdict.Violation && verdict.ErrorCalled) &&
		status >= config.ExitNoWitness && status <= config.ExitAlreadyDefined:
		verdict.Status, verdict.Name = status, config.VerdictUnvalidated
		verdict.Message = "wasn't able to validate the witness"
		if verdict.Violation {
			verdict.Status = config.ExitUnvalidatedViolation
			verdict.Message += ", violation state reached"
		}
		if verdict.ErrorCalled {
			verdict.Status = config.ExitFinishedViolation
			verdict.Message += ", error function called"
		}
	case verdict.Violation && !verdict.ErrorCalled:
		verdict.Status, verdict.Name = config.ExitErrorNotCalled, config.VerdictUnvalidated
		verdict.Message = "the error function was never called, even though the witness is in a violation state"
	case verdict.Violation && verdict.ErrorCalled:
		verdict.Status, verdict.Name = config.ExitValidated, config.VerdictValidated
		verdict.Message = fmt.Sprintf("the violation state %s has been reached", verdict.State)
	default:
		verdict.Status, verdict.Name = config.ExitUnknown, config.VerdictError
		verdict.Message = "a different error occurred"
		if runErr != nil {
			verdict.Message += ": " + runErr.Error()
		}
	}
	return verdict
}
