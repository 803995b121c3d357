package evaluator

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"testing"

	"github.com/funvibe/ctaint/internal/ctype"
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInterpreter(opts ...func(*EvalConfig)) (*Interpreter, *bytes.Buffer) {
	var out bytes.Buffer
	cfg := DefaultConfig()
	cfg.Out = &out
	cfg.Warn = log.New(io.Discard, "", 0)
	for _, opt := range opts {
		opt(&cfg)
	}
	return New(cfg), &out
}

// runProgram runs src and returns what it printed and its exit status.
func runProgram(src string, opts ...func(*EvalConfig)) (string, int, error) {
	in, out := newTestInterpreter(opts...)
	status, err := in.Run("test.c", src, nil)
	return out.String(), status, err
}

// loadGlobals loads src and evaluates steps in order at file scope.
func loadGlobals(t *testing.T, src string, steps ...string) *Interpreter {
	t.Helper()
	in, _ := newTestInterpreter()
	require.NoError(t, in.Load("test.c", src))
	for _, s := range steps {
		_, err := in.EvalExpression(s)
		require.NoError(t, err, s)
	}
	return in
}

func diagCode(t *testing.T, err error) diagnostics.ErrorCode {
	t.Helper()
	var d *diagnostics.DiagnosticError
	require.True(t, errors.As(err, &d), "want a diagnostic, got %v", err)
	return d.Code
}

func TestRunExitStatus(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		status int
	}{
		{"return value", "int main() { return 3; }", 3},
		{"falls off main", "int main() { }", 0},
		{"void main", "void main() { }", 0},
		{"argc", "int main(int argc, char **argv) { return argc; }", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, status, err := runProgram(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestCallMainArguments(t *testing.T) {
	in, out := newTestInterpreter()
	src := `int main(int argc, char **argv) {
		for (int i = 0; i < argc; i++) printf("%s;", argv[i]);
		return argc;
	}`
	require.NoError(t, in.Load("args.c", src))
	status, err := in.CallMain([]string{"prog", "-v"})
	require.NoError(t, err)
	assert.Equal(t, 2, status)
	assert.Equal(t, "prog;-v;", out.String())
}

func TestExitAndAbort(t *testing.T) {
	_, _, err := runProgram(`int main() { exit(5); return 1; }`)
	var exit *ExitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 5, exit.Code)

	_, _, err = runProgram(`int main() { abort(); }`)
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 134, exit.Code)
}

func TestMissingMainWarns(t *testing.T) {
	var warn bytes.Buffer
	status, err := func() (int, error) {
		in, _ := newTestInterpreter(func(c *EvalConfig) { c.Warn = log.New(&warn, "", 0) })
		return in.Run("lib.c", "int f() { return 1; }", nil)
	}()
	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Contains(t, warn.String(), "main() is not defined")
}

func TestMissingReturnWarns(t *testing.T) {
	var warn bytes.Buffer
	_, _, err := runProgram(`int f() { } int main() { f(); return 0; }`,
		func(c *EvalConfig) { c.Warn = log.New(&warn, "", 0) })
	require.NoError(t, err)
	assert.Contains(t, warn.String(), "no value returned from f()")
}

func TestEvalExpressionScenarios(t *testing.T) {
	tests := []struct {
		expr string
		kind ctype.Kind
		want float64
	}{
		{"1 + 2 * 3", ctype.Int, 7},
		{"(1 + 2) * 3", ctype.Int, 9},
		{"(double)1 / 2", ctype.Double, 0.5},
		{"1L << (int)2", ctype.Long, 4},
		{"(char)1 << 3L", ctype.Int, 8},
		{"7 / 2", ctype.Int, 3},
		{"-7 / 2", ctype.Int, -3},
		{"-7 % 3", ctype.Int, -1},
		{"1.5 + 1", ctype.Double, 2.5},
		{"1.5f + 1", ctype.Float, 2.5},
		{"'a' + 1", ctype.Int, 98},
		{"(char)300", ctype.Char, 44},
		{"(unsigned char)-1", ctype.UnsignedChar, 255},
		{"-1 < 0u", ctype.Int, 0},
		{"1 + 2u", ctype.UnsignedInt, 3},
		{"1 + 2L", ctype.Long, 3},
		{"!0", ctype.Int, 1},
		{"~0", ctype.Int, -1},
		{"10 >> 1 | 1", ctype.Int, 5},
		{"3 > 2 && 2 > 1", ctype.Int, 1},
		{"0 || 0", ctype.Int, 0},
		{"1 ? 0 ? 10 : 20 : 30", ctype.Int, 20},
		{"0 ? 1 : 0 ? 2 : 3", ctype.Int, 3},
		{"sizeof(int)", ctype.UnsignedLong, 4},
		{"sizeof(long) * 2", ctype.UnsignedLong, 16},
		{"sizeof(int) - 5 > 0", ctype.Int, 1},
		{"1 / -0.0", ctype.Double, math.Inf(-1)},
		{"1 / -(0.0f)", ctype.Float, math.Inf(-1)},
		{"-(1.5)", ctype.Double, -1.5},
		{"EXIT_FAILURE", ctype.Int, 1},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			in, _ := newTestInterpreter()
			v, err := in.EvalExpression(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.want, v.Float64())
			assert.False(t, v.NonDet)
		})
	}
}

func TestEvalExpressionErrors(t *testing.T) {
	tests := []struct {
		expr string
		code diagnostics.ErrorCode
	}{
		{"1 % 1.0", diagnostics.ErrT002},
		{"1.0 & 1", diagnostics.ErrT002},
		{"1 / 0", diagnostics.ErrR005},
		{"undefined + 1", diagnostics.ErrR001},
		{"(1 + 2", diagnostics.ErrP002},
		{"1 = 2", diagnostics.ErrL001},
		{"*(int*)0", diagnostics.ErrR003},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			in, _ := newTestInterpreter()
			_, err := in.EvalExpression(tt.expr)
			require.Error(t, err)
			assert.Equal(t, tt.code, diagCode(t, err))
		})
	}
}

func TestEvalExpressionSeesGlobals(t *testing.T) {
	in := loadGlobals(t, `int a[3] = {1, 2, 3}; const int k = 4;`)

	v, err := in.EvalExpression("a[1]++")
	require.NoError(t, err)
	assert.EqualValues(t, 2, v.Int64())

	for i, want := range []int64{1, 3, 3} {
		v, err := in.EvalExpression(fmt.Sprintf("a[%d]", i))
		require.NoError(t, err)
		assert.Equal(t, want, v.Int64())
	}

	_, err = in.EvalExpression("k = 1")
	assert.Equal(t, diagnostics.ErrL002, diagCode(t, err))
}

func TestPointerArithmetic(t *testing.T) {
	in := loadGlobals(t, `int arr[5] = {10, 20, 30, 40, 50}; int *p = &arr[0];`)
	tests := []struct {
		expr string
		want int64
	}{
		{"*(p + 2) == arr[2]", 1},
		{"*(p + 2)", 30},
		{"(p + 2) - p", 2},
		{"p[4]", 50},
		{"*(arr + 1)", 20},
		{"&arr[3] - &arr[1]", 2},
		{"p == arr", 1},
		{"p != 0", 1},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			v, err := in.EvalExpression(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Int64())
		})
	}

	_, err := in.EvalExpression("arr[5]")
	assert.Equal(t, diagnostics.ErrR004, diagCode(t, err))
}

func TestShortCircuitSkipsSideEffects(t *testing.T) {
	in := loadGlobals(t, `int calls = 0; int f() { calls++; return 0; } int g() { calls += 10; return 1; } int h(int x) { calls += x; return x; }`)
	tests := []struct {
		expr  string
		want  int64
		calls int64
	}{
		{"f() && g()", 0, 1},
		{"g() || f()", 1, 10},
		{"f() || g()", 1, 11},
		{"g() ? f() : g()", 0, 11},
		{"f() ? g() : (calls = calls + 100)", 101, 101},
		{"h(1) ? (h(0) ? h(10) : h(20)) : h(40)", 20, 21},
		{"h(0) ? h(1) ? h(10) : h(20) : h(40)", 40, 40},
		{"h(2) ? h(0) ? h(10) : h(20) : h(40)", 20, 22},
		{"h(0) ? h(1) : h(3) ? h(10) : h(20)", 10, 13},
		{"h(1) ? h(1) ? h(10) : h(20) : h(40)", 10, 12},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := in.EvalExpression("calls = 0")
			require.NoError(t, err)
			v, err := in.EvalExpression(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Int64())
			c, err := in.EvalExpression("calls")
			require.NoError(t, err)
			assert.Equal(t, tt.calls, c.Int64())
		})
	}
}

func TestStatementHook(t *testing.T) {
	var states []ProgramState
	src := `int f(int x) { return x + 1; }
int main() {
	int y = f(1);
	if (y > 1) y = 0;
	return y;
}`
	_, status, err := runProgram(src, func(c *EvalConfig) {
		c.StatementHook = func(s ProgramState) error {
			states = append(states, s)
			return nil
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 0, status)

	var entered, returned []string
	var branches []Branch
	for _, s := range states {
		assert.Equal(t, "test.c", s.File)
		if s.EnterFunction != "" {
			entered = append(entered, s.EnterFunction)
		}
		if s.ReturnFromFunction != "" {
			returned = append(returned, s.ReturnFromFunction)
		}
		if s.Control != BranchNone {
			branches = append(branches, s.Control)
		}
	}
	assert.Equal(t, []string{"f"}, entered)
	assert.Contains(t, returned, "f")
	assert.Equal(t, []Branch{BranchTrue}, branches)
}

func TestStatementHookStops(t *testing.T) {
	n := 0
	out, _, err := runProgram(`int main() { printf("a"); printf("b"); return 0; }`,
		func(c *EvalConfig) {
			c.StatementHook = func(s ProgramState) error {
				n++
				if s.Line == 1 && n > 2 {
					return ErrStop
				}
				return nil
			}
		})
	var exit *ExitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 0, exit.Code)
	assert.NotEqual(t, "ab", out)

	boom := errors.New("boom")
	_, _, err = runProgram(`int main() { return 0; }`, func(c *EvalConfig) {
		c.StatementHook = func(ProgramState) error { return boom }
	})
	assert.ErrorIs(t, err, boom)
}

func TestCallDepthLimit(t *testing.T) {
	_, _, err := runProgram(`int f(int n) { return f(n + 1); } int main() { return f(0); }`,
		func(c *EvalConfig) { c.MaxCallDepth = 50 })
	assert.Equal(t, diagnostics.ErrR012, diagCode(t, err))
}

func TestMemoryLimit(t *testing.T) {
	_, _, err := runProgram(`int main() { char *p = malloc(4096); return 0; }`,
		func(c *EvalConfig) { c.MemoryLimit = 1024 })
	require.Error(t, err)
	assert.Equal(t, diagnostics.ErrR006, diagCode(t, err))
	var d *diagnostics.DiagnosticError
	require.ErrorAs(t, err, &d)
	assert.Equal(t, diagnostics.ExitOutOfMemory, d.ExitStatus())
}

func TestErrorsCarryPosition(t *testing.T) {
	_, _, err := runProgram("int main() {\n  int x = 1;\n  return x / 0;\n}")
	var d *diagnostics.DiagnosticError
	require.ErrorAs(t, err, &d)
	assert.Equal(t, diagnostics.ErrR005, d.Code)
	assert.Equal(t, "test.c", d.File)
	assert.Equal(t, 3, d.Token.Line)
}
