package compiler

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"calcc/pkg/target"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileFixture(t *testing.T) {
	out, err := Compile(fixture)
	require.NoError(t, err)
	assert.Equal(t, fixtureAsm, out.String())
	assert.Len(t, out.Program.Decls, 4)
	assert.Equal(t, out.String(), out.Listing.String())
}

func TestCompileIsIdempotent(t *testing.T) {
	a, err := Compile(fixture)
	require.NoError(t, err)
	b, err := Compile(fixture)
	require.NoError(t, err)
	assert.Equal(t, a.String(), b.String())
}

func TestAsmBlockForIsVerbatim(t *testing.T) {
	blocks := map[string]string{
		"clearScreen": "\n    b_call(_ClrLCDFull)\n    xor a\n    ld (curRow), a\n    ld (curCol), a\n",
		"tabs":        "\tld a, 1\t; tab\r\n\tret",
		"empty":       "",
		"unicode":     " ; αβγ \n",
	}
	var src strings.Builder
	src.WriteString("void main() {}\n")
	for name, body := range blocks {
		src.WriteString("void " + name + "() { asm {" + body + "} }\n")
	}

	out, err := Compile(src.String())
	require.NoError(t, err)
	for name, body := range blocks {
		got, ok := out.AsmBlockFor(name)
		require.True(t, ok, name)
		assert.Equal(t, body, got, name)
	}

	_, ok := out.AsmBlockFor("main")
	assert.False(t, ok)
}

func TestCompileErrorsCarryPhaseAndPosition(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		phase Phase
		pos   Pos
	}{
		{"lex", "void main() { $ }", PhaseLex, Pos{1, 15}},
		{"parse", "void main() {\n  y = 2;\n}", PhaseParse, Pos{2, 3}},
		{"duplicate", "void main() {}\nvoid main() {}", PhaseParse, Pos{2, 6}},
		{"eval", "void main() { _DispHL(1 / 0); }", PhaseEval, Pos{1, 25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compile(tt.src)
			require.Error(t, err)
			assert.Nil(t, out)

			ce, ok := AsCompileError(err)
			require.True(t, ok, "error %v is not a CompileError", err)
			assert.Equal(t, tt.phase, ce.Phase())
			assert.Equal(t, tt.pos, ce.Position())
		})
	}
}

func TestCompileRejectsInvalidProfile(t *testing.T) {
	profile := target.Default()
	profile.Call = ""
	_, err := New(profile).Compile(fixture)
	require.Error(t, err)
	_, ok := AsCompileError(err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "call must not be empty")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("device full") }

func TestOutputWriteTo(t *testing.T) {
	out, err := Compile(fixture)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := out.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(fixtureAsm)), n)
	assert.Equal(t, fixtureAsm, buf.String())

	_, err = out.WriteTo(failingWriter{})
	var ee *EmitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, PhaseEmit, ee.Phase())
	assert.EqualError(t, err, "emit error: device full")
}

func TestDiagnostic(t *testing.T) {
	src := "void main() {\n\tx = 1;\n}"
	_, err := Compile(src)
	require.Error(t, err)

	want := "prog.c:2:2: parse error: unknown statement form starting with \"x\"\n" +
		"   2 |  x = 1;\n" +
		"     |  ^"
	assert.Equal(t, want, Diagnostic("prog.c", src, err))
}

func TestDiagnosticWithoutPosition(t *testing.T) {
	got := Diagnostic("prog.c", "", errors.New("boom"))
	assert.Equal(t, "prog.c: boom", got)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "lex", PhaseLex.String())
	assert.Equal(t, "parse", PhaseParse.String())
	assert.Equal(t, "eval", PhaseEval.String())
	assert.Equal(t, "emit", PhaseEmit.String())
	assert.Equal(t, "Phase(9)", Phase(9).String())
}
