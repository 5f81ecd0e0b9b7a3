package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"calcc/pkg/target"
)

// Parser consumes the flat token slice produced by the Lexer and builds the
// declaration list.
//
// Grammar:
//
//	program        = declaration* EOF
//	declaration    = type IDENTIFIER "(" ["void"] ")" "{" body "}"
//	type           = "void" | "int" | "char"
//	body           = "asm" "{" RAWTEXT "}" [";"] | statement*
//	statement      = IDENTIFIER "(" [expression] ")" ";"
//	               | expression ";"
//	expression     = bitwise_or
//	bitwise_or     = bitwise_xor ("|" bitwise_xor)*
//	bitwise_xor    = bitwise_and ("^" bitwise_and)*
//	bitwise_and    = shift ("&" shift)*
//	shift          = additive (("<<" | ">>") additive)*
//	additive       = multiplicative (("+" | "-") multiplicative)*
//	multiplicative = unary (("*" | "/" | "%") unary)*
//	unary          = ("-" | "+" | "~") unary | primary
//	primary        = INTEGER | "(" expression ")"
type Parser struct {
	tokens  []Token
	pos     int
	profile *target.Profile
	table   *DeclTable
	calls   []*CallStmt
}

func NewParser(tokens []Token, profile *target.Profile) *Parser {
	if profile == nil {
		profile = target.Default()
	}
	return &Parser{tokens: tokens, profile: profile, table: NewDeclTable(profile)}
}

// Parse builds and resolves a program from tokens.
func Parse(tokens []Token, profile *target.Profile) (*Program, error) {
	return NewParser(tokens, profile).Parse()
}

func (p *Parser) errorf(tok Token, format string, args ...any) error {
	return &ParseError{Pos: tok.Pos, Msg: fmt.Sprintf(format, args...)}
}

// describe renders a token for error messages.
func describe(tok Token) string {
	switch tok.Type {
	case EOF:
		return "end of input"
	case RAWTEXT:
		return "asm text"
	}
	return strconv.Quote(tok.Lexeme)
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	return p.peekAt(0)
}

// peekAt returns the token at the given offset from the current position.
func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		if len(p.tokens) > 0 {
			return Token{Type: EOF, Pos: p.tokens[len(p.tokens)-1].Pos}
		}
		return Token{Type: EOF, Pos: Pos{Line: 1, Col: 1}}
	}
	return p.tokens[p.pos+offset]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it matches tt, otherwise returns an error.
func (p *Parser) expect(tt TokenType, what string) (Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, p.errorf(tok, "expected %s, got %s", what, describe(tok))
	}
	return p.advance(), nil
}

// Parse reads every declaration, then resolves call targets. Forward
// references are allowed because resolution happens only after the last
// declaration has been read.
func (p *Parser) Parse() (*Program, error) {
	prog := &Program{Table: p.table}
	for p.peek().Type != EOF {
		decl, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		if err := p.table.Declare(decl); err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, decl)
	}

	for _, call := range p.calls {
		b, err := p.table.Resolve(call.Name, call.Pos)
		if err != nil {
			return nil, err
		}
		call.Target = b
	}

	if _, ok := p.table.Lookup(p.profile.Entry); !ok {
		return nil, p.errorf(p.peek(), "program has no entry function %q", p.profile.Entry)
	}
	return prog, nil
}

func (p *Parser) parseDeclaration() (*FunctionDecl, error) {
	typeTok := p.peek()
	if !typeTok.Type.isTypeKeyword() {
		return nil, p.errorf(typeTok, "expected a function declaration (void, int or char), got %s", describe(typeTok))
	}
	p.advance()

	nameTok, err := p.expect(IDENTIFIER, "function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN, "'('"); err != nil {
		return nil, err
	}
	if p.peek().Type == VOID && p.peekAt(1).Type == RPAREN {
		p.advance()
	}
	if tok := p.peek(); tok.Type != RPAREN {
		return nil, p.errorf(tok, "functions take no parameters; the argument arrives in the accumulator")
	}
	p.advance()

	if _, err := p.expect(LBRACE, "'{'"); err != nil {
		return nil, err
	}

	decl := &FunctionDecl{
		Name:       nameTok.Lexeme,
		ReturnType: typeTok.Lexeme,
		Pos:        nameTok.Pos,
	}

	if p.peek().Type == ASM {
		block, err := p.parseAsmBody()
		if err != nil {
			return nil, err
		}
		decl.Convention = Raw
		decl.Asm = block
	} else {
		decl.Convention = Normal
		for p.peek().Type != RBRACE {
			if p.peek().Type == EOF {
				return nil, p.errorf(p.peek(), "expected '}' to close function %q, got end of input", decl.Name)
			}
			if p.peek().Type == ASM {
				return nil, p.errorf(p.peek(), "an asm block must be the whole body of a function")
			}
			stmt, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			decl.Stmts = append(decl.Stmts, stmt)
		}
	}

	if _, err := p.expect(RBRACE, "'}'"); err != nil {
		return nil, err
	}
	return decl, nil
}

// parseAsmBody parses asm { RAWTEXT } [;] and requires it to be the last
// thing in the body.
func (p *Parser) parseAsmBody() (*AsmBlock, error) {
	p.advance() // asm
	if _, err := p.expect(LBRACE, "'{' after asm"); err != nil {
		return nil, err
	}
	raw, err := p.expect(RAWTEXT, "asm text")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RBRACE, "'}' closing asm"); err != nil {
		return nil, err
	}
	if p.peek().Type == SEMICOLON {
		p.advance()
	}
	if tok := p.peek(); tok.Type != RBRACE && tok.Type != EOF {
		return nil, p.errorf(tok, "an asm block must be the whole body of a function")
	}
	return &AsmBlock{Text: raw.Lexeme, Pos: raw.Pos}, nil
}

func (p *Parser) parseStatement() (Stmt, error) {
	tok := p.peek()
	switch tok.Type {
	case IDENTIFIER:
		if p.peekAt(1).Type == LPAREN {
			return p.parseCall()
		}
	case INTEGER, LPAREN, MINUS, PLUS, TILDE:
		expr, value, err := p.parseFoldedExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(SEMICOLON, "';'"); err != nil {
			return nil, err
		}
		return &ExprStmt{Expr: expr, Value: value, Pos: tok.Pos}, nil
	}
	return nil, p.errorf(tok, "unknown statement form starting with %s", describe(tok))
}

// parseCall parses name([expression]); The argument is folded here.
func (p *Parser) parseCall() (Stmt, error) {
	nameTok := p.advance()
	p.advance() // (

	call := &CallStmt{Name: nameTok.Lexeme, Pos: nameTok.Pos}
	if p.peek().Type != RPAREN {
		expr, value, err := p.parseFoldedExpression()
		if err != nil {
			return nil, err
		}
		call.Arg, call.Value = expr, value
		if tok := p.peek(); tok.Type == COMMA {
			return nil, p.errorf(tok, "call to %q has more than one argument; only the accumulator is passed", call.Name)
		}
	}
	if _, err := p.expect(RPAREN, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON, "';'"); err != nil {
		return nil, err
	}
	p.calls = append(p.calls, call)
	return call, nil
}

// parseFoldedExpression parses an expression and folds it at once.
func (p *Parser) parseFoldedExpression() (Expr, int16, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, 0, err
	}
	value, err := Fold(expr)
	if err != nil {
		return nil, 0, err
	}
	return expr, value, nil
}

// parseExpression is the entry point for expression parsing.
func (p *Parser) parseExpression() (Expr, error) {
	return p.parseBinary(0)
}

// binaryLevels lists the binary operators from lowest to highest
// precedence. Every level is left associative.
var binaryLevels = [][]TokenType{
	{PIPE},
	{CARET},
	{AMP},
	{SHL, SHR},
	{PLUS, MINUS},
	{STAR, SLASH, PERCENT},
}

func (p *Parser) parseBinary(level int) (Expr, error) {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for isOneOf(p.peek().Type, binaryLevels[level]) {
		op := p.advance()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op.Type, Left: left, Right: right, Pos: op.Pos}
	}
	return left, nil
}

func isOneOf(tt TokenType, set []TokenType) bool {
	for _, t := range set {
		if tt == t {
			return true
		}
	}
	return false
}

// parseUnary handles prefix -, + and ~.
func (p *Parser) parseUnary() (Expr, error) {
	switch tok := p.peek(); tok.Type {
	case MINUS, PLUS, TILDE:
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: tok.Type, Right: right, Pos: tok.Pos}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case INTEGER:
		p.advance()
		value, err := parseIntLiteral(tok)
		if err != nil {
			return nil, err
		}
		return &Literal{Value: value, Text: tok.Lexeme, Pos: tok.Pos}, nil

	case LPAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN, "')'"); err != nil {
			return nil, err
		}
		return expr, nil

	case STRING:
		return nil, p.errorf(tok, "string literals are not supported")

	case IDENTIFIER:
		return nil, p.errorf(tok, "%q is not a constant; expressions may only use integer literals", tok.Lexeme)
	}
	return nil, p.errorf(tok, "expected an expression, got %s", describe(tok))
}

// parseIntLiteral converts a decimal, 0x or 0b literal. Leading zeros on a
// decimal literal do not make it octal.
func parseIntLiteral(tok Token) (uint16, error) {
	lex := strings.ToLower(tok.Lexeme)
	base := 10
	switch {
	case strings.HasPrefix(lex, "0x"):
		lex, base = lex[2:], 16
	case strings.HasPrefix(lex, "0b"):
		lex, base = lex[2:], 2
	}
	v, err := strconv.ParseUint(lex, base, 64)
	if err != nil || v > 0xFFFF {
		return 0, &EvalError{Pos: tok.Pos, Msg: fmt.Sprintf("integer literal %s does not fit in 16 bits", tok.Lexeme)}
	}
	return uint16(v), nil
}
