package compiler

import (
	"iter"
	"unicode"
	"unicode/utf8"
)

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"void": VOID,
	"int":  INT,
	"char": CHAR,
	"asm":  ASM,
}

// Lexer holds all mutable state for a single scanning pass over src.
// It works on byte offsets so that asm blocks can be sliced out of the
// source unchanged.
type Lexer struct {
	src  string
	pos  int // byte offset of the next rune to consume
	line int // current 1-based source line
	col  int // current 1-based rune column

	afterAsm bool    // the previous token was the asm keyword
	queue    []Token // tokens already scanned by the asm sub-mode
}

func newLexer(src string) *Lexer {
	l := &Lexer{src: src}
	l.Reset()
	return l
}

// Reset rewinds the lexer to the start of its source.
func (l *Lexer) Reset() {
	l.pos, l.line, l.col = 0, 1, 1
	l.afterAsm = false
	l.queue = nil
}

func (l *Lexer) here() Pos {
	return Pos{Line: l.line, Col: l.col}
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

// peek2 returns the rune one position ahead of the current position.
func (l *Lexer) peek2() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	_, size := utf8.DecodeRuneInString(l.src[l.pos:])
	if l.pos+size >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos+size:])
	return r
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.src)
}

// skipTrivia discards whitespace and both comment styles.
func (l *Lexer) skipTrivia() error {
	for {
		for !l.atEnd() && unicode.IsSpace(l.peek()) {
			l.advance()
		}
		switch {
		case l.peek() == '/' && l.peek2() == '/':
			for !l.atEnd() && l.peek() != '\n' {
				l.advance()
			}
		case l.peek() == '/' && l.peek2() == '*':
			start := l.here()
			l.advance()
			l.advance()
			closed := false
			for !l.atEnd() {
				if l.peek() == '*' && l.peek2() == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				l.advance()
			}
			if !closed {
				return lexErrorf(start, "unterminated block comment")
			}
		default:
			return nil
		}
	}
}

// scanIdent collects a full identifier or keyword token.
func (l *Lexer) scanIdent() Token {
	pos := l.here()
	start := l.pos
	for !l.atEnd() {
		r := l.peek()
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		l.advance()
	}
	lexeme := l.src[start:l.pos]
	tt := IDENTIFIER
	if kw, ok := keywords[lexeme]; ok {
		tt = kw
	}
	return Token{Type: tt, Lexeme: lexeme, Pos: pos}
}

// scanInt collects a decimal, 0x hex or 0b binary literal. The value is
// checked by the parser; here only the shape matters.
func (l *Lexer) scanInt() (Token, error) {
	pos := l.here()
	start := l.pos

	isDigit := func(r rune) bool { return r >= '0' && r <= '9' }
	if l.peek() == '0' && (l.peek2() == 'x' || l.peek2() == 'X') {
		l.advance()
		l.advance()
		isDigit = func(r rune) bool {
			return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
		}
	} else if l.peek() == '0' && (l.peek2() == 'b' || l.peek2() == 'B') {
		l.advance()
		l.advance()
		isDigit = func(r rune) bool { return r == '0' || r == '1' }
	}

	digits := 0
	for !l.atEnd() && isDigit(l.peek()) {
		l.advance()
		digits++
	}
	if r := l.peek(); digits == 0 || unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
		for !l.atEnd() && (unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_') {
			l.advance()
		}
		return Token{}, lexErrorf(pos, "malformed integer literal %q", l.src[start:l.pos])
	}
	return Token{Type: INTEGER, Lexeme: l.src[start:l.pos], Pos: pos}, nil
}

// scanString collects a string literal "..." on a single line.
func (l *Lexer) scanString() (Token, error) {
	pos := l.here()
	l.advance() // opening "
	start := l.pos
	for !l.atEnd() {
		switch l.peek() {
		case '"':
			lexeme := l.src[start:l.pos]
			l.advance()
			return Token{Type: STRING, Lexeme: lexeme, Pos: pos}, nil
		case '\n':
			return Token{}, lexErrorf(pos, "unterminated string literal")
		case '\\':
			l.advance()
		}
		l.advance()
	}
	return Token{}, lexErrorf(pos, "unterminated string literal")
}

// scanAsmBlock runs the verbatim sub-mode entered after the asm keyword. It
// queues LBRACE, RAWTEXT and RBRACE. Braces inside the block are not
// counted: the first '}' ends it.
func (l *Lexer) scanAsmBlock() error {
	if err := l.skipTrivia(); err != nil {
		return err
	}
	open := l.here()
	if l.peek() != '{' {
		if l.atEnd() {
			return lexErrorf(open, "expected '{' after asm, got end of input")
		}
		return lexErrorf(open, "expected '{' after asm, got %q", l.peek())
	}
	l.advance()

	rawPos := l.here()
	start := l.pos
	for !l.atEnd() && l.peek() != '}' {
		l.advance()
	}
	if l.atEnd() {
		return lexErrorf(open, "unterminated asm block")
	}
	raw := l.src[start:l.pos]
	closePos := l.here()
	l.advance()

	l.queue = append(l.queue,
		Token{Type: LBRACE, Lexeme: "{", Pos: open},
		Token{Type: RAWTEXT, Lexeme: raw, Pos: rawPos},
		Token{Type: RBRACE, Lexeme: "}", Pos: closePos},
	)
	return nil
}

// Next returns the next token. After EOF it keeps returning EOF.
func (l *Lexer) Next() (Token, error) {
	if len(l.queue) > 0 {
		tok := l.queue[0]
		l.queue = l.queue[1:]
		return tok, nil
	}
	if l.afterAsm {
		l.afterAsm = false
		if err := l.scanAsmBlock(); err != nil {
			return Token{}, err
		}
		return l.Next()
	}

	if err := l.skipTrivia(); err != nil {
		return Token{}, err
	}
	pos := l.here()
	if l.atEnd() {
		return Token{Type: EOF, Pos: pos}, nil
	}

	ch := l.peek()
	if unicode.IsLetter(ch) || ch == '_' {
		tok := l.scanIdent()
		if tok.Type == ASM {
			l.afterAsm = true
		}
		return tok, nil
	}
	if unicode.IsDigit(ch) {
		return l.scanInt()
	}
	if ch == '"' {
		return l.scanString()
	}

	l.advance()
	switch ch {
	case '{':
		return Token{LBRACE, "{", pos}, nil
	case '}':
		return Token{RBRACE, "}", pos}, nil
	case '(':
		return Token{LPAREN, "(", pos}, nil
	case ')':
		return Token{RPAREN, ")", pos}, nil
	case ';':
		return Token{SEMICOLON, ";", pos}, nil
	case ',':
		return Token{COMMA, ",", pos}, nil
	case '=':
		return Token{ASSIGN, "=", pos}, nil
	case '+':
		return Token{PLUS, "+", pos}, nil
	case '-':
		return Token{MINUS, "-", pos}, nil
	case '*':
		return Token{STAR, "*", pos}, nil
	case '/':
		return Token{SLASH, "/", pos}, nil
	case '%':
		return Token{PERCENT, "%", pos}, nil
	case '&':
		return Token{AMP, "&", pos}, nil
	case '|':
		return Token{PIPE, "|", pos}, nil
	case '^':
		return Token{CARET, "^", pos}, nil
	case '~':
		return Token{TILDE, "~", pos}, nil
	case '<':
		if l.peek() == '<' {
			l.advance()
			return Token{SHL, "<<", pos}, nil
		}
	case '>':
		if l.peek() == '>' {
			l.advance()
			return Token{SHR, ">>", pos}, nil
		}
	}
	return Token{}, lexErrorf(pos, "unexpected character %q", ch)
}

// Tokens returns a lazy token sequence over src that ends with EOF or with
// the first error. Every range over it starts scanning from the beginning.
func Tokens(src string) iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		l := newLexer(src)
		for {
			tok, err := l.Next()
			if !yield(tok, err) || err != nil || tok.Type == EOF {
				return
			}
		}
	}
}

// Lex tokenises src and returns all tokens including the final EOF token.
// It returns a non-nil error on the first illegal character or unterminated
// comment, string or asm block.
func Lex(src string) ([]Token, error) {
	var tokens []Token
	for tok, err := range Tokens(src) {
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}
