package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ztrue/tracerr"
)

// Phase names the pipeline stage that produced an error.
type Phase int

const (
	PhaseLex Phase = iota + 1
	PhaseParse
	PhaseEval
	PhaseEmit
)

func (p Phase) String() string {
	switch p {
	case PhaseLex:
		return "lex"
	case PhaseParse:
		return "parse"
	case PhaseEval:
		return "eval"
	case PhaseEmit:
		return "emit"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// CompileError is implemented by every error the compiler reports.
type CompileError interface {
	error
	Phase() Phase
	Position() Pos
}

// LexError reports a malformed token or an unterminated block.
type LexError struct {
	Pos Pos
	Msg string
}

func (e *LexError) Error() string { return fmt.Sprintf("%s: lex error: %s", e.Pos, e.Msg) }
func (e *LexError) Phase() Phase  { return PhaseLex }
func (e *LexError) Position() Pos { return e.Pos }

func lexErrorf(pos Pos, format string, args ...any) *LexError {
	return &LexError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// ParseError reports a grammar violation, an unresolved call target or a
// duplicate declaration.
type ParseError struct {
	Pos Pos
	Msg string
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s: parse error: %s", e.Pos, e.Msg) }
func (e *ParseError) Phase() Phase  { return PhaseParse }
func (e *ParseError) Position() Pos { return e.Pos }

// EvalError reports a constant expression that cannot be folded.
type EvalError struct {
	Pos Pos
	Msg string
}

func (e *EvalError) Error() string { return fmt.Sprintf("%s: eval error: %s", e.Pos, e.Msg) }
func (e *EvalError) Phase() Phase  { return PhaseEval }
func (e *EvalError) Position() Pos { return e.Pos }

// EmitError wraps a failure of the output sink. It is the only error a
// caller may reasonably retry.
type EmitError struct {
	Err error
}

func (e *EmitError) Error() string { return "emit error: " + e.Err.Error() }
func (e *EmitError) Unwrap() error { return e.Err }
func (e *EmitError) Phase() Phase  { return PhaseEmit }
func (e *EmitError) Position() Pos { return Pos{} }

// AsCompileError extracts the CompileError from err, looking through the
// stack-trace wrapper added by Compile.
func AsCompileError(err error) (CompileError, bool) {
	var ce CompileError
	if errors.As(tracerr.Unwrap(err), &ce) {
		return ce, true
	}
	return nil, false
}

// Diagnostic renders err against src the way the CLI prints it:
//
//	file:3:5: parse error: unknown statement form
//	   3 |     x = 1;
//	     |     ^
func Diagnostic(file, src string, err error) string {
	ce, ok := AsCompileError(err)
	if !ok {
		return fmt.Sprintf("%s: %v", file, tracerr.Unwrap(err))
	}
	pos := ce.Position()

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:%s: %s error: %s", file, pos, ce.Phase(), message(ce))

	lines := strings.Split(src, "\n")
	if pos.Line < 1 || pos.Line > len(lines) {
		return sb.String()
	}
	text := strings.ReplaceAll(strings.TrimRight(lines[pos.Line-1], "\r"), "\t", " ")
	gutter := fmt.Sprintf("%4d | ", pos.Line)
	fmt.Fprintf(&sb, "\n%s%s", gutter, text)
	if pos.Col >= 1 {
		fmt.Fprintf(&sb, "\n%s| %s^", strings.Repeat(" ", len(gutter)-2), strings.Repeat(" ", pos.Col-1))
	}
	return sb.String()
}

func message(ce CompileError) string {
	switch e := ce.(type) {
	case *LexError:
		return e.Msg
	case *ParseError:
		return e.Msg
	case *EvalError:
		return e.Msg
	case *EmitError:
		return e.Err.Error()
	}
	return ce.Error()
}
