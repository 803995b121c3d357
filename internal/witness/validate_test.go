package witness

import (
	"bytes"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/funvibe/ctaint/internal/config"
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/evaluator"
	"github.com/funvibe/ctaint/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const program = `void reach_error() {}
int main() {
	int x = __VERIFIER_nondet_int();
	if (x == 7) {
		reach_error();
	}
	return 0;
}
`

// validate runs program against the witness graph and returns the verdict
// and the states log.
func validate(t *testing.T, graph, src string) (Verdict, string) {
	t.Helper()
	w := mustParse(t, graphml(graph))
	a, err := NewAutomaton(w, log.New(io.Discard, "", 0))
	require.NoError(t, err)

	var states bytes.Buffer
	v := NewValidator(a)
	v.States = log.New(&states, "", 0)

	cfg := evaluator.DefaultConfig()
	cfg.Out = io.Discard
	cfg.Warn = log.New(io.Discard, "", 0)
	cfg.StatementHook = v.Hook
	in := evaluator.New(cfg)
	v.Attach(in)

	_, runErr := in.Run("prog.c", src, nil)
	return v.Decide(runErr), states.String()
}

const violationPath = `
  <node id="N0"><data key="entry">true</data></node>
  <node id="N1"/>
  <node id="N2"/>
  <node id="N3"><data key="violation">true</data></node>
  <node id="sink"><data key="sink">true</data></node>
  <edge source="N0" target="N1"><data key="startline">4</data><data key="assumption">x == 7;</data></edge>
  <edge source="N1" target="N2"><data key="startline">4</data><data key="control">%s</data></edge>
  <edge source="N2" target="N3"><data key="startline">5</data><data key="enterFunction">reach_error</data></edge>
`

func TestValidateViolation(t *testing.T) {
	graph := strings.Replace(violationPath, "%s", "condition-true", 1)
	verdict, states := validate(t, graph, program)

	assert.Equal(t, config.ExitValidated, verdict.Status, verdict.Message)
	assert.Equal(t, config.VerdictValidated, verdict.Name)
	assert.Equal(t, "N3", verdict.State)
	assert.True(t, verdict.Violation)
	assert.True(t, verdict.ErrorCalled)
	assert.Equal(t, 0, verdict.ProgramStatus)
	assert.Contains(t, states, "prog.c --- Line: 4")
	assert.Contains(t, states, "Control: condition-true")
	assert.Contains(t, states, "Enter: reach_error")
}

func TestValidateWrongBranch(t *testing.T) {
	graph := strings.Replace(violationPath, "%s", "condition-false", 1)
	verdict, _ := validate(t, graph, program)

	assert.Equal(t, config.ExitFinishedViolation, verdict.Status, verdict.Message)
	assert.Equal(t, config.VerdictUnvalidated, verdict.Name)
	assert.Equal(t, "N1", verdict.State)
	assert.False(t, verdict.Violation)
	assert.True(t, verdict.ErrorCalled)
	assert.Equal(t, config.ExitProgramFinished, verdict.ProgramStatus)
}

func TestValidateSink(t *testing.T) {
	verdict, _ := validate(t, `
  <node id="N0"><data key="entry">true</data></node>
  <node id="N1"/>
  <node id="sink"><data key="sink">true</data></node>
  <edge source="N0" target="sink"><data key="startline">3</data></edge>
  <edge source="N0" target="N1"><data key="startline">99</data></edge>
`, program)
	assert.Equal(t, config.ExitWitnessInSink, verdict.Status, verdict.Message)
	assert.Equal(t, "sink", verdict.State)
	assert.False(t, verdict.ErrorCalled)
}

func TestValidatePrefersEdgesOverSink(t *testing.T) {
	verdict, _ := validate(t, `
  <node id="N0"><data key="entry">true</data></node>
  <node id="N1"/>
  <node id="V"><data key="violation">true</data></node>
  <node id="sink"><data key="sink">true</data></node>
  <edge source="N0" target="sink"><data key="startline">4</data></edge>
  <edge source="N0" target="N1"><data key="startline">4</data><data key="assumption">x == 7</data></edge>
  <edge source="N1" target="V"><data key="enterFunction">reach_error</data></edge>
`, program)
	assert.Equal(t, config.ExitValidated, verdict.Status, verdict.Message)
}

func TestValidateIllegalState(t *testing.T) {
	verdict, _ := validate(t, `
  <node id="N0"><data key="entry">true</data></node>
  <node id="N1"/>
  <edge source="N0" target="N1"><data key="startline">3</data></edge>
`, program)
	assert.Equal(t, config.ExitIllegalState, verdict.Status, verdict.Message)
	assert.Equal(t, config.VerdictUnvalidated, verdict.Name)
}

func TestValidateErrorNotCalled(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		src    string
		status int
	}{
		{"program finished", "7", program, config.ExitUnvalidatedViolation},
		{"program exited", "1", "int main() {\n\texit(3);\n}\n", config.ExitErrorNotCalled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, _ := validate(t, `
  <node id="N0"><data key="entry">true</data></node>
  <node id="V"><data key="violation">true</data></node>
  <edge source="N0" target="V"><data key="startline">`+tt.line+`</data></edge>
`, tt.src)
			assert.Equal(t, tt.status, verdict.Status, verdict.Message)
			assert.Equal(t, config.VerdictUnvalidated, verdict.Name)
			assert.True(t, verdict.Violation)
			assert.False(t, verdict.ErrorCalled)
		})
	}
}

func TestValidateUndefinedIdentifier(t *testing.T) {
	verdict, _ := validate(t, `
  <node id="N0"><data key="entry">true</data></node>
  <node id="N1"/>
  <edge source="N0" target="N1"><data key="startline">40</data></edge>
`, `int main() { return missing; }`)
	assert.Equal(t, config.ExitUndefined, verdict.Status, verdict.Message)
}

func TestValidateFatalAssumption(t *testing.T) {
	verdict, _ := validate(t, `
  <node id="N0"><data key="entry">true</data></node>
  <node id="N1"/>
  <edge source="N0" target="N1"><data key="startline">4</data><data key="assumption">x &lt; 7</data></edge>
`, program)
	assert.Equal(t, config.ExitNonDetMisuse, verdict.ProgramStatus)
	assert.Equal(t, config.ExitUnknown, verdict.Status, verdict.Message)
	assert.Equal(t, config.VerdictError, verdict.Name)
}

func TestNewAutomatonWithoutEntry(t *testing.T) {
	w := mustParse(t, graphml(`<node id="A"/><edge source="A" target="A"/>`))
	_, err := NewAutomaton(w, nil)
	assert.ErrorIs(t, err, ErrNoEntry)
}

func TestNewAutomatonDropsDanglingEdges(t *testing.T) {
	var warn bytes.Buffer
	w := mustParse(t, graphml(`
  <node id="A"><data key="entry">true</data></node>
  <edge source="A" target="B"/>
  <edge source="C" target="A"/>
  <edge source="A" target="A"/>`))
	a, err := NewAutomaton(w, log.New(&warn, "", 0))
	require.NoError(t, err)
	assert.Len(t, a.succ["A"], 1)
	assert.Contains(t, warn.String(), `target node "B"`)
	assert.Contains(t, warn.String(), `source node "C"`)
}

func TestProgramStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"finished", nil, config.ExitProgramFinished},
		{"stopped", &StopError{Status: config.ExitWitnessInSink}, config.ExitWitnessInSink},
		{"exit", &evaluator.ExitError{Code: 3}, 3},
		{"undefined", diagnostics.NewError(diagnostics.ErrR001, tokenAt(1)), config.ExitUndefined},
		{"redefined", diagnostics.NewError(diagnostics.ErrR002, tokenAt(1)), config.ExitAlreadyDefined},
		{"assertion", diagnostics.NewError(diagnostics.ErrR011, tokenAt(1), "assertion failed"), config.ExitAssertionFailed},
		{"out of memory", diagnostics.NewError(diagnostics.ErrR006, tokenAt(1)), config.ExitOutOfMemory},
		{"other", diagnostics.NewError(diagnostics.ErrR005, tokenAt(1)), diagnostics.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProgramStatus(tt.err))
		})
	}
}

func TestDecideWithoutAutomaton(t *testing.T) {
	v := NewValidator(nil)
	assert.Nil(t, v.Hook(evaluator.ProgramState{}), "unattached validators ignore states")
	verdict := v.Decide(nil)
	assert.Equal(t, config.ExitNoWitness, verdict.Status)
}

func tokenAt(line int) token.Token {
	return token.Token{Line: line, Column: 1}
}
