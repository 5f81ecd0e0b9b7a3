package compiler

import (
	"testing"

	"calcc/pkg/target"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSource(t *testing.T, src string, profile *target.Profile) (*Program, error) {
	t.Helper()
	tokens, err := Lex(src)
	require.NoError(t, err)
	return Parse(tokens, profile)
}

func TestParseProgram(t *testing.T) {
	src := `
void main() {
    clear();
    putNum(8 - (3 + 2));
    1 + 1;
    _GetKey();
}

void clear(void) {
    _ClrLCDFull();
}

int putNum() {
    asm {
        b_call(_DispHL)
    };
}
`
	prog, err := parseSource(t, src, nil)
	require.NoError(t, err)
	require.Len(t, prog.Decls, 3)

	main := prog.Decls[0]
	assert.Equal(t, "main", main.Name)
	assert.Equal(t, "void", main.ReturnType)
	assert.Equal(t, Normal, main.Convention)
	assert.Equal(t, Pos{2, 6}, main.Pos)
	require.Len(t, main.Stmts, 4)

	clr := main.Stmts[0].(*CallStmt)
	assert.Equal(t, "clear", clr.Name)
	assert.Nil(t, clr.Arg)
	assert.Equal(t, Local, clr.Target)

	put := main.Stmts[1].(*CallStmt)
	assert.Equal(t, int16(3), put.Value)
	assert.Equal(t, "putNum(8 - (3 + 2))", put.String())
	assert.Equal(t, Local, put.Target)

	expr := main.Stmts[2].(*ExprStmt)
	assert.Equal(t, int16(2), expr.Value)
	assert.Equal(t, Pos{5, 5}, expr.Pos)

	key := main.Stmts[3].(*CallStmt)
	assert.Equal(t, External, key.Target)

	putNum := prog.Decls[2]
	assert.Equal(t, Raw, putNum.Convention)
	assert.Equal(t, "int", putNum.ReturnType)
	assert.Equal(t, "\n        b_call(_DispHL)\n    ", putNum.Asm.Text)
	assert.Equal(t, Pos{14, 10}, putNum.Asm.Pos)

	assert.Equal(t, []string{"_ClrLCDFull", "_GetKey"}, prog.Table.Externals())
}

func TestParseForwardReference(t *testing.T) {
	prog, err := parseSource(t, "void main() { later(); } void later() {}", nil)
	require.NoError(t, err)
	call := prog.Decls[0].Stmts[0].(*CallStmt)
	assert.Equal(t, Local, call.Target)
	decl, ok := prog.Table.Lookup(call.Name)
	require.True(t, ok)
	assert.Same(t, prog.Decls[1], decl)
}

func TestLocalDeclarationWinsOverExternalPattern(t *testing.T) {
	prog, err := parseSource(t, "void main() { _DispHL(1); } void _DispHL() { asm { ret } }", nil)
	require.NoError(t, err)
	call := prog.Decls[0].Stmts[0].(*CallStmt)
	assert.Equal(t, Local, call.Target)
	assert.Empty(t, prog.Table.Externals())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		pos  Pos
		msg  string
	}{
		{
			name: "Assignment",
			src:  "void main() {\n    x = 1;\n}",
			pos:  Pos{2, 5},
			msg:  `unknown statement form starting with "x"`,
		},
		{
			name: "Bare Identifier",
			src:  "void main() { foo; }",
			pos:  Pos{1, 15},
			msg:  "unknown statement form",
		},
		{
			name: "Keyword Statement",
			src:  "void main() { int x; }",
			pos:  Pos{1, 15},
			msg:  "unknown statement form",
		},
		{
			name: "Duplicate Declaration",
			src:  "void main() {}\nvoid f() {}\nint f() {}",
			pos:  Pos{3, 5},
			msg:  `function "f" redeclared (first declared at 2:6)`,
		},
		{
			name: "Undeclared Call",
			src:  "void main() {\n  nothing();\n}",
			pos:  Pos{2, 3},
			msg:  `call to undeclared function "nothing"`,
		},
		{
			name: "Missing Entry",
			src:  "void f() {}\n",
			pos:  Pos{2, 1},
			msg:  `program has no entry function "main"`,
		},
		{
			name: "Parameters",
			src:  "void main(int x) {}",
			pos:  Pos{1, 11},
			msg:  "the argument arrives in the accumulator",
		},
		{
			name: "Two Arguments",
			src:  "void main() { _DispHL(1, 2); }",
			pos:  Pos{1, 24},
			msg:  "more than one argument",
		},
		{
			name: "Missing Semicolon",
			src:  "void main() { _DispHL(1) }",
			pos:  Pos{1, 26},
			msg:  "expected ';', got \"}\"",
		},
		{
			name: "Missing Closing Brace",
			src:  "void main() { _DispHL(1);",
			pos:  Pos{1, 26},
			msg:  "got end of input",
		},
		{
			name: "Not A Declaration",
			src:  "main() {}",
			pos:  Pos{1, 1},
			msg:  "expected a function declaration",
		},
		{
			name: "Asm After Statements",
			src:  "void main() { _DispHL(); asm { ret } }",
			pos:  Pos{1, 26},
			msg:  "asm block must be the whole body",
		},
		{
			name: "Statements After Asm",
			src:  "void main() { asm { ret } _DispHL(); }",
			pos:  Pos{1, 27},
			msg:  "asm block must be the whole body",
		},
		{
			name: "String Argument",
			src:  `void main() { _PutS("hi"); }`,
			pos:  Pos{1, 21},
			msg:  "string literals are not supported",
		},
		{
			name: "Identifier In Expression",
			src:  "void main() { _DispHL(1 + x); }",
			pos:  Pos{1, 27},
			msg:  `"x" is not a constant`,
		},
		{
			name: "Unclosed Paren",
			src:  "void main() { _DispHL((1 + 2); }",
			pos:  Pos{1, 30},
			msg:  "expected ')'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSource(t, tt.src, nil)
			require.Error(t, err)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.pos, pe.Pos)
			assert.Contains(t, pe.Msg, tt.msg)
		})
	}
}

func TestParseEvalErrorStopsParsing(t *testing.T) {
	_, err := parseSource(t, "void main() {\n  _DispHL(4 / (2 - 2));\n}", nil)
	var ee *EvalError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, Pos{2, 13}, ee.Pos)
}

func TestStrictExternalPolicy(t *testing.T) {
	profile := target.Default()
	profile.Strict = true
	profile.Symbols = []string{"_DispHL"}

	_, err := parseSource(t, "void main() { _DispHL(1); }", profile)
	require.NoError(t, err)

	_, err = parseSource(t, "void main() { _GetKey(); }", profile)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Msg, "not in the target's symbol list")
}

func TestCustomEntry(t *testing.T) {
	profile := target.Default()
	profile.Entry = "start"

	_, err := parseSource(t, "void start() {}", profile)
	require.NoError(t, err)

	_, err = parseSource(t, "void main() {}", profile)
	require.Error(t, err)
}
