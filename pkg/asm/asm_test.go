package asm

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitFormatsItems(t *testing.T) {
	var l Listing
	l.Directive(".org userMem-2")
	l.Blank()
	l.Label("ProgramStart")
	l.Comment("putNum(%d)", 3)
	l.Instr("ld", "hl", "3")
	l.Instr("call", "putNum")
	l.Macro("b_call", "_GetKey")
	l.Instr("ret")

	want := `.org userMem-2

ProgramStart:
    ; putNum(3)
    ld hl, 3
    call putNum
    b_call(_GetKey)
    ret
`
	assert.Equal(t, want, l.String())
}

func TestEmitRawBlockIsVerbatim(t *testing.T) {
	raw := "\n    b_call(_DispHL)\n\tb_call(_NewLine)   ; keep me\n"
	var l Listing
	l.Label("putNum")
	l.Raw("putNum", raw)
	l.Instr("ret")

	var sb strings.Builder
	layout, err := Emit(&sb, &l)
	require.NoError(t, err)

	out := sb.String()
	span, ok := layout.Blocks["putNum"]
	require.True(t, ok)
	assert.Equal(t, raw, out[span.Start:span.End])
	assert.Equal(t, "putNum:\n"+raw+"    ret\n", out)
	assert.Equal(t, len(out), layout.Size)
}

func TestEmitRawBlockWithoutTrailingNewline(t *testing.T) {
	var l Listing
	l.Label("f")
	l.Raw("f", " ret")
	l.Directive(".end")

	var sb strings.Builder
	layout, err := Emit(&sb, &l)
	require.NoError(t, err)
	assert.Equal(t, "f:\n ret\n.end\n", sb.String())
	span := layout.Blocks["f"]
	assert.Equal(t, " ret", sb.String()[span.Start:span.End])
}

type failingWriter struct {
	after int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("disk full")
	}
	w.after--
	return len(p), nil
}

func TestEmitReportsWriterError(t *testing.T) {
	var l Listing
	l.Label("a")
	l.Instr("ret")
	l.Label("b")

	_, err := Emit(&failingWriter{after: 2}, &l)
	require.Error(t, err)
	assert.Equal(t, "disk full", err.Error())
}

func TestInstructions(t *testing.T) {
	var l Listing
	l.Label("x")
	l.Comment("c")
	l.Instr("ld", "hl", "1")
	l.Macro("b_call", "_DispHL")

	ins := l.Instructions()
	require.Len(t, ins, 2)
	assert.Equal(t, "ld", ins[0].Op)
	assert.True(t, ins[1].Macro)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Line
	}{
		{"blank", "   ", Line{}},
		{"comment only", "  ; hello", Line{}},
		{"plain", "    ld (curRow), a", Line{Mnemonic: "ld", Operands: []string{"(curRow)", "a"}}},
		{"upper case", "\tRET", Line{Mnemonic: "ret"}},
		{"conditional", "    ret nz ; done", Line{Mnemonic: "ret", Operands: []string{"nz"}}},
		{"macro", "    b_call(_ClrLCDFull)", Line{Mnemonic: "b_call", Operands: []string{"_ClrLCDFull"}, Macro: true}},
		{"colon label", "loop: djnz loop", Line{Labels: []string{"loop"}, Mnemonic: "djnz", Operands: []string{"loop"}}},
		{"column zero label", "Done ret", Line{Labels: []string{"Done"}, Mnemonic: "ret"}},
		{"label only", "Done:", Line{Labels: []string{"Done"}}},
		{"directive at column zero", ".db 1, 2", Line{Mnemonic: ".db", Operands: []string{"1", "2"}}},
		{"quoted comma", `    .db "a;b", 0`, Line{Mnemonic: ".db", Operands: []string{`"a;b"`, "0"}}},
		{"tab separated", "\tjp\t(hl)", Line{Mnemonic: "jp", Operands: []string{"(hl)"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLine(tt.raw, 0)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLastInstruction(t *testing.T) {
	text := "\n    b_call(_GetKey)\n    jp Exit   ; leave\n  ; trailing comment\nEnd:\n"
	line, ok := LastInstruction(text)
	require.True(t, ok)
	assert.Equal(t, "jp", line.Mnemonic)
	assert.Equal(t, []string{"Exit"}, line.Operands)
	assert.Equal(t, 3, line.LineNo)

	_, ok = LastInstruction("\n ; nothing here\n")
	assert.False(t, ok)
}
