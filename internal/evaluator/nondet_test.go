package evaluator

import (
	"testing"

	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaintPropagation(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		steps []string
		taint map[string]bool
	}{
		{
			name:  "uninitialized is tainted",
			src:   "int x; int y = 1;",
			taint: map[string]bool{"x": true, "y": false},
		},
		{
			name:  "deterministic write clears",
			src:   "int x;",
			steps: []string{"x = 5"},
			taint: map[string]bool{"x": false},
		},
		{
			name:  "tainted write taints",
			src:   "int x; int y = 1;",
			steps: []string{"y = x"},
			taint: map[string]bool{"y": true},
		},
		{
			name: "operators",
			src:  "int x; int y = 2;",
			taint: map[string]bool{
				"x + y": true, "y * 2": false, "x == 1": true, "x && 0": true,
				"-x": true, "!x": true, "(long)x": true, "x ? 1 : 2": false,
			},
		},
		{
			name:  "compound assignment keeps taint",
			src:   "int x; int y = 1;",
			steps: []string{"x += 1", "y += x"},
			taint: map[string]bool{"x": true, "y": true},
		},
		{
			name:  "increment keeps taint",
			src:   "int x;",
			steps: []string{"x++"},
			taint: map[string]bool{"x": true},
		},
		{
			name:  "array element cleared alone",
			src:   "int a[3];",
			steps: []string{"a[1] = 7"},
			taint: map[string]bool{"a[0]": true, "a[1]": false, "a[2]": true},
		},
		{
			name:  "array element tainted alone",
			src:   "int a[3] = {1, 2, 3}; int x;",
			steps: []string{"a[2] = x"},
			taint: map[string]bool{"a[0]": false, "a[1]": false, "a[2]": true},
		},
		{
			name:  "matrix element cleared alone",
			src:   "int m[2][3];",
			steps: []string{"m[1][2] = 5"},
			taint: map[string]bool{"m[1][2]": false, "m[1][0]": true, "m[1][1]": true, "m[0][2]": true},
		},
		{
			name:  "matrix element tainted alone",
			src:   "int x; int m[2][2] = {{1, 2}, {3, 4}};",
			steps: []string{"m[0][1] = x"},
			taint: map[string]bool{"m[0][0]": false, "m[0][1]": true, "m[1][0]": false, "m[1][1]": false},
		},
		{
			name:  "matrix initializer taint",
			src:   "int x; int m[2][2] = {{1, x}, {3, 4}};",
			taint: map[string]bool{"m[0][0]": false, "m[0][1]": true, "m[1][0]": false, "m[1][1]": false},
		},
		{
			name:  "initializer element taint",
			src:   "int x; int a[3] = {1, x, 3};",
			taint: map[string]bool{"a[0]": false, "a[1]": true, "a[2]": false},
		},
		{
			name:  "write through pointer",
			src:   "int x; int *p = &x;",
			steps: []string{"*p = 3"},
			taint: map[string]bool{"x": false, "p": false},
		},
		{
			name:  "pointer into array",
			src:   "int a[4]; int *p = &a[0];",
			steps: []string{"*(p + 3) = 0"},
			taint: map[string]bool{"a[3]": false, "a[2]": true},
		},
		{
			name:  "nondet source",
			src:   "int n = __VERIFIER_nondet_int(); unsigned char c = __VERIFIER_nondet_uchar();",
			taint: map[string]bool{"n": true, "c": true},
		},
		{
			name:  "function arguments carry taint",
			src:   "int x; int id(int v) { return v; } int r = 0;",
			steps: []string{"r = id(x)"},
			taint: map[string]bool{"r": true},
		},
		{
			name:  "heap bytes",
			src:   "char *p;",
			steps: []string{"p = malloc(4)", "p[0] = 1"},
			taint: map[string]bool{"p": false, "p[0]": false, "p[1]": true, "p[3]": true},
		},
		{
			name:  "calloc is deterministic",
			src:   "char *p;",
			steps: []string{"p = calloc(2, 2)"},
			taint: map[string]bool{"p[0]": false, "p[3]": false},
		},
		{
			name:  "memset clears",
			src:   "char buf[8];",
			steps: []string{"memset(buf, 0, 4)"},
			taint: map[string]bool{"buf[3]": false, "buf[4]": true},
		},
		{
			name:  "memcpy moves taint",
			src:   "char src[4]; char dst[4] = {1, 2, 3, 4};",
			steps: []string{"src[0] = 9", "memcpy(dst, src, 2)"},
			taint: map[string]bool{"dst[0]": false, "dst[1]": true, "dst[2]": false},
		},
		{
			name:  "abs passes taint",
			src:   "int x; int a = 0;",
			steps: []string{"a = abs(x)"},
			taint: map[string]bool{"a": true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := loadGlobals(t, tt.src, tt.steps...)
			for expr, want := range tt.taint {
				v, err := in.EvalExpression(expr)
				require.NoError(t, err, expr)
				assert.Equal(t, want, v.NonDet, expr)
			}
		})
	}
}

func TestNonDetValue(t *testing.T) {
	in, _ := newTestInterpreter(func(c *EvalConfig) { c.NonDetValue = 42 })
	require.NoError(t, in.Load("t.c", "double d = __VERIFIER_nondet_double(); void *p = __VERIFIER_nondet_pointer();"))

	v, err := in.EvalExpression("d")
	require.NoError(t, err)
	assert.Equal(t, 42.0, v.Float64())
	assert.True(t, v.NonDet)

	v, err = in.EvalExpression("p == NULL")
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.Int64())
}

func TestLenientNonDet(t *testing.T) {
	in, _ := newTestInterpreter(func(c *EvalConfig) { c.StrictNonDet = false })
	require.NoError(t, in.Load("t.c", `int g;
int local() { int l; static int s; return l; }
int r;`))

	v, err := in.EvalExpression("g")
	require.NoError(t, err)
	assert.False(t, v.NonDet)

	v, err = in.EvalExpression("r = local()")
	require.NoError(t, err)
	assert.True(t, v.NonDet, "automatic locals stay tainted")
}

func TestNonDetSourcePrototypes(t *testing.T) {
	in, _ := newTestInterpreter(func(c *EvalConfig) {
		c.NonDetSources = matchPrefix("nondet_")
		c.NonDetValue = 7
	})
	require.NoError(t, in.Load("t.c", `extern int nondet_value(void);
int other(void);
int v = nondet_value();`))

	v, err := in.EvalExpression("v")
	require.NoError(t, err)
	assert.EqualValues(t, 7, v.Int64())
	assert.True(t, v.NonDet)

	_, err = in.EvalExpression("other()")
	assert.Equal(t, diagnostics.ErrR013, diagCode(t, err))
}

type matchPrefix string

func (p matchPrefix) Match(name string) bool {
	return len(name) >= len(p) && name[:len(p)] == string(p)
}

func TestSkipIntrinsics(t *testing.T) {
	in, _ := newTestInterpreter(func(c *EvalConfig) { c.SkipIntrinsics = matchPrefix("str") })
	assert.NotContains(t, in.Intrinsics(), "strlen")
	assert.Contains(t, in.Intrinsics(), "printf")

	_, err := in.EvalExpression(`strlen("abc")`)
	assert.Equal(t, diagnostics.ErrR001, diagCode(t, err))
}

func TestEvalAssumption(t *testing.T) {
	in := loadGlobals(t, "int x; int y; int z = 2;")

	holds, err := in.EvalAssumption("x == 5; y == 3")
	require.NoError(t, err)
	assert.True(t, holds)
	assert.Equal(t, []string{"x", "y"}, in.Resolved)

	for expr, want := range map[string]int64{"x": 5, "y": 3} {
		v, err := in.EvalExpression(expr)
		require.NoError(t, err)
		assert.Equal(t, want, v.Int64())
		assert.False(t, v.NonDet)
	}

	holds, err = in.EvalAssumption("z == 2")
	require.NoError(t, err)
	assert.True(t, holds)

	holds, err = in.EvalAssumption("z == 3")
	require.NoError(t, err)
	assert.False(t, holds)

	assert.False(t, in.Config().AssumptionMode, "assumption mode is scoped to the call")
}

func TestEvalAssumptionAssignmentResolves(t *testing.T) {
	in := loadGlobals(t, "int x;")
	holds, err := in.EvalAssumption("x = 9")
	require.NoError(t, err)
	assert.True(t, holds)
	v, err := in.EvalExpression("x")
	require.NoError(t, err)
	assert.EqualValues(t, 9, v.Int64())
}

func TestEvalAssumptionMisuse(t *testing.T) {
	in := loadGlobals(t, "int x;")
	_, err := in.EvalAssumption("x < 5")
	require.Error(t, err)
	assert.Equal(t, diagnostics.ErrN001, diagCode(t, err))

	var d *diagnostics.DiagnosticError
	require.ErrorAs(t, err, &d)
	assert.Equal(t, diagnostics.ExitNonDetMisuse, d.ExitStatus())
	assert.True(t, d.Fatal())
}

func TestAssumptionModeProgram(t *testing.T) {
	assumeAll := func(c *EvalConfig) { c.AssumptionMode = true }

	_, status, err := runProgram("int main() { int x = 1; x = 2; return x; }", assumeAll)
	require.NoError(t, err)
	assert.Equal(t, 2, status)

	_, status, err = runProgram(`int main() {
		int y;
		y = __VERIFIER_nondet_int();
		if (y == 4) { return y; }
		return 0;
	}`, assumeAll)
	require.NoError(t, err)
	assert.Equal(t, 4, status)

	_, _, err = runProgram("int main() { int y = __VERIFIER_nondet_int(); return y < 3; }", assumeAll)
	assert.Equal(t, diagnostics.ErrN001, diagCode(t, err))
}

func TestSplitAssumption(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"x == 1; y == 2;", []string{"x == 1", " y == 2", ""}},
		{"c == ';'", []string{"c == ';'"}},
		{`s[0] == '\''; t == 1`, []string{`s[0] == '\''`, " t == 1"}},
		{`strcmp(p, "a;b") == 0`, []string{`strcmp(p, "a;b") == 0`}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, splitAssumption(tt.src))
		})
	}
}

func TestEvalAssumptionCharLiteral(t *testing.T) {
	in := loadGlobals(t, "char c;")
	holds, err := in.EvalAssumption("c == ';';")
	require.NoError(t, err)
	assert.True(t, holds)
	v, err := in.EvalExpression("c")
	require.NoError(t, err)
	assert.EqualValues(t, ';', v.Int64())
}
