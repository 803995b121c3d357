package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/ctaint/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

type runResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

func runTestApp(t *testing.T, args ...string) (runResult, error) {
	t.Helper()
	app := newApp()
	outBuf := new(strings.Builder)
	errBuf := new(strings.Builder)
	app.Writer = outBuf
	app.ErrWriter = errBuf

	exitCode := -1
	savedExiter, savedErrWriter := cli.OsExiter, cli.ErrWriter
	defer func() { cli.OsExiter, cli.ErrWriter = savedExiter, savedErrWriter }()
	cli.ErrWriter = errBuf
	cli.OsExiter = func(code int) {
		if exitCode == -1 {
			exitCode = code
			app.Writer, app.ErrWriter, cli.ErrWriter = io.Discard, io.Discard, io.Discard
		}
	}
	err := app.Run(append([]string{"ctaint"}, args...))
	return runResult{outBuf.String(), errBuf.String(), exitCode}, err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const testProgram = `void reach_error() {}
int main(int argc, char **argv) {
	int x = __VERIFIER_nondet_int();
	printf("x=%d argc=%d\n", x, argc);
	if (x == 7) {
		reach_error();
	}
	return x;
}
`

const testWitness = `<?xml version="1.0" encoding="UTF-8"?>
<graphml xmlns="http://graphml.graphdrawing.org/xmlns">
 <key attr.name="isEntryNode" attr.type="boolean" for="node" id="entry"/>
 <key attr.name="isViolationNode" attr.type="boolean" for="node" id="violation"/>
 <key attr.name="startline" attr.type="int" for="edge" id="startline"/>
 <key attr.name="assumption" attr.type="string" for="edge" id="assumption"/>
 <key attr.name="enterFunction" attr.type="string" for="edge" id="enterFunction"/>
 <graph edgedefault="directed">
  <node id="N0"><data key="entry">true</data></node>
  <node id="N1"/>
  <node id="N2"><data key="violation">true</data></node>
  <edge source="N0" target="N1"><data key="startline">4</data><data key="assumption">x == 7;</data></edge>
  <edge source="N1" target="N2"><data key="enterFunction">reach_error</data></edge>
 </graph>
</graphml>`

func TestRun(t *testing.T) {
	dir := t.TempDir()
	prog := writeFile(t, dir, "prog.c", testProgram)

	r, err := runTestApp(t, "run", "--nondet-value", "3", prog, "a", "b")
	assert.Error(t, err)
	assert.Equal(t, 3, r.ExitCode)
	assert.Equal(t, "x=3 argc=3\n", r.Stdout)
	assert.Empty(t, r.Stderr)

	r, err = runTestApp(t, "run", "--nondet-value", "0", "--stats", prog)
	assert.NoError(t, err)
	assert.Equal(t, -1, r.ExitCode)
	assert.Equal(t, "x=0 argc=1\n", r.Stdout)
	assert.Contains(t, r.Stderr, "stats:")
}

func TestRunFault(t *testing.T) {
	dir := t.TempDir()
	prog := writeFile(t, dir, "fault.c", "int main() {\n\tassert(0);\n\treturn 0;\n}\n")

	r, err := runTestApp(t, "run", "--no-color", prog)
	assert.Error(t, err)
	assert.Equal(t, config.ExitAssertionFailed, r.ExitCode)
	assert.Contains(t, r.Stderr, "fault.c:2:")
	assert.Contains(t, r.Stderr, "RuntimeFault [R011]:")
}

func TestRunUsage(t *testing.T) {
	_, err := runTestApp(t, "run")
	assert.EqualError(t, err, "no program given")

	dir := t.TempDir()
	prog := writeFile(t, dir, "prog.c", testProgram)
	_, err = runTestApp(t, "run", "--memory-limit", "lots", prog)
	assert.ErrorContains(t, err, "memory_limit")
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	prog := writeFile(t, dir, "prog.c", testProgram)
	wit := writeFile(t, dir, "prog.graphml", testWitness)

	r, err := runTestApp(t, "check", "-w", wit, prog)
	assert.NoError(t, err)
	assert.Equal(t, -1, r.ExitCode)
	assert.Equal(t, "x=7 argc=1\n", r.Stdout)
	assert.Contains(t, r.Stderr, "verdict: validated (status 0")

	bad := writeFile(t, dir, "bad.graphml", "<graphml/>")
	r, err = runTestApp(t, "check", "-w", bad, prog)
	assert.Error(t, err)
	assert.Equal(t, config.ExitBadWitness, r.ExitCode)
}

func TestEval(t *testing.T) {
	r, err := runTestApp(t, "eval", "1 + 2", "'a'")
	assert.NoError(t, err)
	assert.Equal(t, "1 + 2 = 3\n'a' = 97\n", r.Stdout)

	dir := t.TempDir()
	prog := writeFile(t, dir, "globals.c", "int x;\nint y = 5;\n")
	r, err = runTestApp(t, "eval", "-p", prog, "--assume", "x == 4; y == 5")
	assert.NoError(t, err)
	assert.Equal(t, "x == 4; y == 5: true\n", r.Stdout)

	r, err = runTestApp(t, "eval", "-p", prog, "y * 2")
	assert.NoError(t, err)
	assert.Equal(t, "y * 2 = 10\n", r.Stdout)
}

func TestResults(t *testing.T) {
	dir := t.TempDir()
	prog := writeFile(t, dir, "prog.c", testProgram)
	writeFile(t, dir, config.ConfigFileName, "results:\n  record: true\n  path: runs.db\n")

	_, err := runTestApp(t, "run", "--nondet-value", "0", prog)
	require.NoError(t, err)

	db := filepath.Join(dir, "runs.db")
	r, err := runTestApp(t, "results", "list", "--db", db)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(r.Stdout), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "VERDICT")
	assert.Contains(t, lines[1], prog)
	assert.Contains(t, lines[1], config.VerdictRun)

	id := strings.Fields(lines[1])[0]
	r, err = runTestApp(t, "results", "show", "--db", db, id)
	require.NoError(t, err)
	assert.Contains(t, r.Stdout, "command:")
	assert.Contains(t, r.Stdout, "peak memory:")

	_, err = runTestApp(t, "results", "show", "--db", db, "not-a-uuid")
	assert.ErrorContains(t, err, "run id")
}
