package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // function name
	INTEGER    // decimal, 0x hex or 0b binary literal
	STRING     // string literal "..." (lexed, never accepted by the parser)
	RAWTEXT    // body of an asm { ... } block, verbatim

	// Keywords
	VOID // "void"
	INT  // "int"
	CHAR // "char"
	ASM  // "asm"

	// Paired delimiters
	LBRACE // {
	RBRACE // }
	LPAREN // (
	RPAREN // )

	// Punctuation
	SEMICOLON // ;
	COMMA     // ,
	ASSIGN    // =

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	AMP     // &
	PIPE    // |
	CARET   // ^
	TILDE   // ~
	SHL     // <<
	SHR     // >>
)

// tokenNames is indexed by TokenType.
var tokenNames = [...]string{
	EOF:        "EOF",
	IDENTIFIER: "IDENTIFIER",
	INTEGER:    "INTEGER",
	STRING:     "STRING",
	RAWTEXT:    "RAWTEXT",
	VOID:       "VOID",
	INT:        "INT",
	CHAR:       "CHAR",
	ASM:        "ASM",
	LBRACE:     "LBRACE",
	RBRACE:     "RBRACE",
	LPAREN:     "LPAREN",
	RPAREN:     "RPAREN",
	SEMICOLON:  "SEMICOLON",
	COMMA:      "COMMA",
	ASSIGN:     "ASSIGN",
	PLUS:       "PLUS",
	MINUS:      "MINUS",
	STAR:       "STAR",
	SLASH:      "SLASH",
	PERCENT:    "PERCENT",
	AMP:        "AMP",
	PIPE:       "PIPE",
	CARET:      "CARET",
	TILDE:      "TILDE",
	SHL:        "SHL",
	SHR:        "SHR",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// isTypeKeyword reports whether tt can start a declaration.
func (tt TokenType) isTypeKeyword() bool {
	return tt == VOID || tt == INT || tt == CHAR
}

// Pos is a 1-based source position. Col counts runes.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Pos    Pos
}

func (t Token) String() string {
	if t.Type == RAWTEXT {
		return fmt.Sprintf("%-10s %-14s  %s", t.Type, fmt.Sprintf("<%d bytes>", len(t.Lexeme)), t.Pos)
	}
	return fmt.Sprintf("%-10s %-14q  %s", t.Type, t.Lexeme, t.Pos)
}
