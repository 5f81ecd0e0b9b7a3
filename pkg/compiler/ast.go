package compiler

import (
	"fmt"
	"strings"
)

//  Expression nodes

// Expr is implemented by every node of a constant expression. Trees own
// their operands; nothing is shared.
type Expr interface {
	exprNode()
	Position() Pos
	String() string
}

// Literal is an integer constant, stored as the 16-bit pattern it loads
// into the accumulator.
//
//	putNum(0x10);
//	       ^^^^  Literal{Value: 16}
type Literal struct {
	Value uint16
	Text  string
	Pos   Pos
}

func (*Literal) exprNode()        {}
func (l *Literal) Position() Pos  { return l.Pos }
func (l *Literal) String() string { return l.Text }

// BinaryExpr represents Left Op Right. Pos is the operator's position.
//
//	8 - (3 + 2)
//	^ ^ ^^^^^^^
//	| | Right
//	| Op
//	Left
type BinaryExpr struct {
	Op    TokenType
	Left  Expr
	Right Expr
	Pos   Pos
}

func (*BinaryExpr) exprNode()       {}
func (b *BinaryExpr) Position() Pos { return b.Pos }
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, opText[b.Op], b.Right)
}

// UnaryExpr represents Op Right for -, + and ~.
type UnaryExpr struct {
	Op    TokenType
	Right Expr
	Pos   Pos
}

func (*UnaryExpr) exprNode()        {}
func (u *UnaryExpr) Position() Pos  { return u.Pos }
func (u *UnaryExpr) String() string { return fmt.Sprintf("(%s%s)", opText[u.Op], u.Right) }

var opText = map[TokenType]string{
	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	PERCENT: "%",
	AMP:     "&",
	PIPE:    "|",
	CARET:   "^",
	TILDE:   "~",
	SHL:     "<<",
	SHR:     ">>",
}

//  Statement nodes

// Stmt is implemented by every statement of a Normal function body.
type Stmt interface {
	stmtNode()
	Position() Pos
	String() string
}

// CallStmt represents name(arg); The argument, when present, is folded at
// parse time and travels to the callee in the accumulator. Without an
// argument the accumulator keeps whatever value it already holds.
type CallStmt struct {
	Name   string
	Arg    Expr // nil when the call has no argument
	Value  int16
	Target Binding
	Pos    Pos
}

func (*CallStmt) stmtNode()       {}
func (c *CallStmt) Position() Pos { return c.Pos }
func (c *CallStmt) String() string {
	if c.Arg == nil {
		return c.Name + "()"
	}
	return fmt.Sprintf("%s(%s)", c.Name, trimParens(c.Arg.String()))
}

// ExprStmt is a bare expression; its value is left in the accumulator for
// the next call to pick up.
type ExprStmt struct {
	Expr  Expr
	Value int16
	Pos   Pos
}

func (*ExprStmt) stmtNode()        {}
func (e *ExprStmt) Position() Pos  { return e.Pos }
func (e *ExprStmt) String() string { return trimParens(e.Expr.String()) }

func trimParens(s string) string {
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		return s[1 : len(s)-1]
	}
	return s
}

//  Declarations

// Convention says how a function's body is lowered. It is fixed when the
// declaration is parsed.
type Convention int

const (
	// Normal bodies are call sequences generated by the compiler.
	Normal Convention = iota
	// Raw bodies are asm blocks copied verbatim. The compiler adds no
	// prologue, epilogue or register saves around them.
	Raw
)

func (c Convention) String() string {
	if c == Raw {
		return "raw"
	}
	return "normal"
}

// AsmBlock is the verbatim text of an asm { ... } body.
type AsmBlock struct {
	Text string
	Pos  Pos // position of the first byte of Text
}

// FunctionDecl represents type name() { body }.
type FunctionDecl struct {
	Name       string
	ReturnType string // accepted, never checked
	Convention Convention
	Stmts      []Stmt    // Normal bodies
	Asm        *AsmBlock // Raw bodies
	Pos        Pos       // position of the name
}

func (f *FunctionDecl) String() string {
	if f.Convention == Raw {
		return fmt.Sprintf("FunctionDecl(%s %s, raw, %d bytes)", f.ReturnType, f.Name, len(f.Asm.Text))
	}
	return fmt.Sprintf("FunctionDecl(%s %s, %d stmts)", f.ReturnType, f.Name, len(f.Stmts))
}

// Program is the ordered list of declarations of one compilation.
type Program struct {
	Decls []*FunctionDecl
	Table *DeclTable
}
