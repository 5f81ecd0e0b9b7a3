package asm

import (
	"strings"
)

// Line is the syntactic shape of one line of Z80 assembler source.
type Line struct {
	LineNo   int
	Labels   []string
	Mnemonic string // lower case; empty for label-only, comment or blank lines
	Operands []string
	Macro    bool // written as mnemonic(operands)
}

// ParseLine splits raw into labels, mnemonic and operands. It never fails:
// anything it does not recognise is treated as an instruction so that
// callers can reason about the last mnemonic of arbitrary text.
//
// A label is either a word ending in ':' or, as SPASM and Brass accept, any
// word starting at column 0 that is not a directive.
func ParseLine(raw string, lineNo int) Line {
	p := Line{LineNo: lineNo}

	line := stripComments(raw)
	if strings.TrimSpace(line) == "" {
		return p
	}

	startsAtColumnZero := line[0] != ' ' && line[0] != '\t'
	line = strings.TrimSpace(line)

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}
		before := strings.TrimSpace(line[:colon])
		if !isIdentifier(before) {
			break
		}
		p.Labels = append(p.Labels, before)
		line = strings.TrimSpace(line[colon+1:])
		startsAtColumnZero = false
		if line == "" {
			return p
		}
	}

	if startsAtColumnZero && !isDirective(line) {
		word, rest, _ := strings.Cut(line, " ")
		if isIdentifier(word) {
			p.Labels = append(p.Labels, word)
			line = strings.TrimSpace(rest)
			if line == "" {
				return p
			}
		}
	}

	// Macro form: b_call(_DispHL)
	if open := strings.IndexByte(line, '('); open > 0 && isIdentifier(strings.TrimSpace(line[:open])) {
		if strings.HasSuffix(line, ")") && !strings.ContainsAny(line[:open], " \t") {
			p.Mnemonic = strings.ToLower(line[:open])
			p.Operands = splitOperands(line[open+1 : len(line)-1])
			p.Macro = true
			return p
		}
	}

	mnemonic, rest, _ := strings.Cut(line, " ")
	if tab := strings.IndexByte(mnemonic, '\t'); tab >= 0 {
		rest = mnemonic[tab+1:] + " " + rest
		mnemonic = mnemonic[:tab]
	}
	p.Mnemonic = strings.ToLower(mnemonic)
	p.Operands = splitOperands(rest)
	return p
}

// ParseText runs ParseLine over every line of text.
func ParseText(text string) []Line {
	raw := strings.Split(text, "\n")
	lines := make([]Line, 0, len(raw))
	for i, r := range raw {
		lines = append(lines, ParseLine(r, i+1))
	}
	return lines
}

// LastInstruction returns the last line of text that carries a mnemonic.
func LastInstruction(text string) (Line, bool) {
	lines := ParseText(text)
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i].Mnemonic != "" {
			return lines[i], true
		}
	}
	return Line{}, false
}

// splitOperands splits on commas that are not inside parentheses or quotes.
func splitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var (
		out   []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == ',' && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}

func stripComments(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"':
			quote = c
		case c == ';':
			return line[:i]
		}
	}
	return line
}

func isDirective(s string) bool {
	return strings.HasPrefix(s, ".") || strings.HasPrefix(s, "#")
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || r == '.' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}
