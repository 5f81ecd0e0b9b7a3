package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"calcc/pkg/target"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const program = `void main() {
    show(SCALE * 2);
}

void show() {
asm {
    b_call(_DispHL)
}
}
`

func writeFile(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

// captureExit stops cli.Exit from ending the test binary and collects
// diagnostics written to stderr.
func captureExit(t *testing.T) (*int, *bytes.Buffer) {
	t.Helper()
	code := -1
	var stderr bytes.Buffer

	oldExiter, oldErr, oldErrWriter := cli.OsExiter, color.Error, cli.ErrWriter
	cli.OsExiter = func(c int) { code = c }
	color.Error = &stderr
	cli.ErrWriter = &stderr
	t.Cleanup(func() {
		cli.OsExiter, color.Error, cli.ErrWriter = oldExiter, oldErr, oldErrWriter
	})
	return &code, &stderr
}

func TestDefines(t *testing.T) {
	got := defines([]string{"SCALE=4", "DEBUG", " PAD =x=y"})
	assert.Equal(t, map[string]string{"SCALE": "4", "DEBUG": "1", "PAD": "x=y"}, got)
}

func TestBuildCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "prog.c", program)

	require.NoError(t, newApp().Run([]string{"calcc", "-D", "SCALE=21", "build", in}))

	data, err := os.ReadFile(filepath.Join(dir, "prog.z80"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "ProgramStart:\n    ; show(21 * 2)\n    ld hl, 42\n    call show\n    ret\n")
	assert.Contains(t, string(data), "show:\n\n    b_call(_DispHL)\n    ret\n")
}

func TestBuildCommandOutputFlag(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "prog.c", program)
	out := filepath.Join(dir, "elsewhere.asm")

	require.NoError(t, newApp().Run([]string{"calcc", "-D", "SCALE=1", "build", "-o", out, in}))
	_, err := os.Stat(out)
	assert.NoError(t, err)
}

func TestBuildCommandReportsDiagnostics(t *testing.T) {
	code, stderr := captureExit(t)
	dir := t.TempDir()
	in := writeFile(t, dir, "bad.c", "void main() {\n    show(1 / 0);\n}\n")

	_ = newApp().Run([]string{"calcc", "build", in})
	assert.Equal(t, 1, *code)
	assert.Contains(t, stderr.String(), in+":2:12: eval error: division by zero")

	_, err := os.Stat(filepath.Join(dir, "bad.z80"))
	assert.True(t, os.IsNotExist(err))
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()
	a := writeFile(t, dir, "a.c", "void main() { _DispHL(1); }\n")
	b := writeFile(t, dir, "b.c", "void main() { _DispHL(2); }\n")

	require.NoError(t, newApp().Run([]string{"calcc", "batch", "-j", "2", "--out-dir", outDir, a, b}))

	for name, want := range map[string]string{"a.z80": "ld hl, 1", "b.z80": "ld hl, 2"} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err)
		assert.Contains(t, string(data), want)
	}
}

func TestBatchOutputsCollide(t *testing.T) {
	dests, err := batchOutputs([]string{filepath.Join("a", "x.c"), filepath.Join("b", "x.c")}, "")
	require.NoError(t, err)
	assert.Len(t, dests, 2)

	_, err = batchOutputs([]string{filepath.Join("a", "x.c"), filepath.Join("b", "x.c")}, "out")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "would both write "+filepath.Join("out", "x.z80"))
}

func TestBatchCommandRefusesCollidingOutputs(t *testing.T) {
	code, stderr := captureExit(t)
	dir, outDir := t.TempDir(), t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "a"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "b"), 0o755))
	a := writeFile(t, filepath.Join(dir, "a"), "x.c", "void main() { _DispHL(1); }\n")
	b := writeFile(t, filepath.Join(dir, "b"), "x.c", "void main() { _DispHL(2); }\n")

	_ = newApp().Run([]string{"calcc", "batch", "--out-dir", outDir, a, b})
	assert.Equal(t, 2, *code)
	assert.Contains(t, stderr.String(), "would both write")

	_, err := os.Stat(filepath.Join(outDir, "x.z80"))
	assert.True(t, os.IsNotExist(err))
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "calcc.yaml")

	require.NoError(t, newApp().Run([]string{"calcc", "init", file}))
	p, err := target.Load(file)
	require.NoError(t, err)
	assert.Equal(t, target.Default(), p)

	code, _ := captureExit(t)
	_ = newApp().Run([]string{"calcc", "init", file})
	assert.Equal(t, 1, *code)
}

func TestTargetFlag(t *testing.T) {
	dir := t.TempDir()
	profile := writeFile(t, dir, "brass.yaml", "label_prefix: fn_\ncomments: false\n")
	in := writeFile(t, dir, "prog.c", program)

	require.NoError(t, newApp().Run([]string{"calcc", "--target", profile, "-D", "SCALE=1", "build", in}))
	data, err := os.ReadFile(filepath.Join(dir, "prog.z80"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "    call fn_show\n")
	assert.NotContains(t, string(data), "; show")
}
