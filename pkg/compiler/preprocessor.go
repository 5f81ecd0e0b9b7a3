package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Macro represents a defined macro, either simple or function-like.
type Macro struct {
	Args []string // Empty for simple macros
	Body string
}

// Preprocess expands `#include "file"` and `#define` directives. Includes
// are resolved relative to baseDir and may nest; an include cycle is an
// error. seed holds definitions made on the command line.
//
// Directive lines become blank lines so positions in the main file are
// preserved. The body of an asm { ... } block is copied unchanged: macros
// are not expanded inside it and '#' lines inside it are not directives.
func Preprocess(src, baseDir string, seed map[string]string) (string, error) {
	pp := &preprocessor{
		defines:   make(map[string]Macro, len(seed)),
		processed: make(map[string]bool),
	}
	for name, value := range seed {
		pp.defines[name] = Macro{Body: value}
	}
	return pp.run(src, baseDir, make(map[string]bool))
}

type scanState int

const (
	stateCode scanState = iota
	stateBlockComment
	stateAsmPending // after the asm keyword, before '{'
	stateAsmBody
)

type preprocessor struct {
	defines   map[string]Macro
	processed map[string]bool // files already included once
	state     scanState
}

func (pp *preprocessor) run(src, baseDir string, stack map[string]bool) (string, error) {
	lines := strings.Split(src, "\n")
	var result strings.Builder

	for i, line := range lines {
		if i > 0 {
			result.WriteString("\n")
		}
		trimmed := strings.TrimSpace(line)

		if pp.state == stateCode && strings.HasPrefix(trimmed, "#define") {
			if err := pp.define(strings.TrimSpace(strings.TrimPrefix(trimmed, "#define"))); err != nil {
				return "", fmt.Errorf("line %d: %w", i+1, err)
			}
			continue
		}

		if pp.state == stateCode && strings.HasPrefix(trimmed, "#include") {
			content, err := pp.include(trimmed, baseDir, stack)
			if err != nil {
				return "", fmt.Errorf("line %d: %w", i+1, err)
			}
			result.WriteString(content)
			continue
		}

		result.WriteString(pp.expandLine(line))
	}
	return result.String(), nil
}

// define records `NAME value` or `NAME(a, b) body`.
func (pp *preprocessor) define(rest string) error {
	if rest == "" {
		return fmt.Errorf("#define without a name")
	}
	nameEnd := 0
	for nameEnd < len(rest) {
		r := rest[nameEnd]
		if r == ' ' || r == '\t' || r == '(' {
			break
		}
		nameEnd++
	}
	name := rest[:nameEnd]
	rest = rest[nameEnd:]

	var args []string
	// A '(' directly after the name makes the macro function-like.
	if len(rest) > 0 && rest[0] == '(' {
		closeParen := strings.Index(rest, ")")
		if closeParen == -1 {
			return fmt.Errorf("unterminated macro parameter list")
		}
		argStr := rest[1:closeParen]
		if strings.TrimSpace(argStr) != "" {
			for _, arg := range strings.Split(argStr, ",") {
				args = append(args, strings.TrimSpace(arg))
			}
		}
		rest = rest[closeParen+1:]
	}

	value := strings.TrimSpace(rest)
	if len(args) == 0 {
		value = applyDefines(value, pp.defines)
	}
	pp.defines[name] = Macro{Args: args, Body: value}
	return nil
}

func (pp *preprocessor) include(directive, baseDir string, stack map[string]bool) (string, error) {
	parts := strings.SplitN(directive, "\"", 3)
	if len(parts) < 3 {
		return "", fmt.Errorf("invalid include directive: %s", directive)
	}
	filename := parts[1]

	// Relative to the including file first, then to the working directory.
	fullPath := filepath.Join(baseDir, filename)
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		if cwdPath, absErr := filepath.Abs(filename); absErr == nil {
			if _, err := os.Stat(cwdPath); err == nil {
				fullPath = cwdPath
			}
		}
	}

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", err
	}
	if stack[absPath] {
		return "", fmt.Errorf("circular include detected: %s", filename)
	}
	if pp.processed[absPath] {
		return "", nil
	}
	pp.processed[absPath] = true

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to read included file %s: %w", filename, err)
	}

	// Copy the stack so diamond includes are not mistaken for cycles.
	newStack := make(map[string]bool, len(stack)+1)
	for k, v := range stack {
		newStack[k] = v
	}
	newStack[absPath] = true

	out, err := pp.run(string(content), filepath.Dir(fullPath), newStack)
	if err != nil {
		return "", fmt.Errorf("in %s: %w", filename, err)
	}
	if pp.state != stateCode {
		pp.state = stateCode
		return "", fmt.Errorf("in %s: file ends inside a comment or asm block", filename)
	}
	return out, nil
}

// expandLine applies the defines to the code parts of line. Comments,
// asm bodies and string literals pass through as written. The scan state
// carries over to the next line.
func (pp *preprocessor) expandLine(line string) string {
	var sb strings.Builder
	code := 0 // start of the code not yet written
	flush := func(end int) {
		sb.WriteString(applyDefines(line[code:end], pp.defines))
		code = end
	}
	verbatim := func(end int) {
		sb.WriteString(line[code:end])
		code = end
	}

	i := 0
	for i < len(line) {
		switch pp.state {
		case stateAsmBody:
			j := strings.IndexByte(line[i:], '}')
			if j < 0 {
				verbatim(len(line))
				return sb.String()
			}
			i += j + 1
			verbatim(i)
			pp.state = stateCode

		case stateBlockComment:
			j := strings.Index(line[i:], "*/")
			if j < 0 {
				verbatim(len(line))
				return sb.String()
			}
			i += j + 2
			verbatim(i)
			pp.state = stateCode

		case stateAsmPending:
			switch c := line[i]; {
			case c == ' ' || c == '\t' || c == '\r':
				i++
			case c == '{':
				i++
				verbatim(i)
				pp.state = stateAsmBody
			default:
				pp.state = stateCode
			}

		default:
			c := line[i]
			switch {
			case c == '"':
				i++
				for i < len(line) && line[i] != '"' {
					if line[i] == '\\' {
						i++
					}
					i++
				}
				i++
			case strings.HasPrefix(line[i:], "//"):
				flush(i)
				verbatim(len(line))
				return sb.String()
			case strings.HasPrefix(line[i:], "/*"):
				flush(i)
				i += 2
				pp.state = stateBlockComment
			case isIdentStart(rune(c)):
				start := i
				for i < len(line) && isIdentPart(rune(line[i])) {
					i++
				}
				if line[start:i] == "asm" {
					flush(i)
					pp.state = stateAsmPending
				}
			default:
				i++
			}
		}
	}

	if i > len(line) {
		i = len(line)
	}
	if pp.state == stateCode {
		flush(len(line))
	} else {
		verbatim(len(line))
	}
	return sb.String()
}

// applyDefines replaces occurrences of keys in defines with their values.
// Replacements happen only on word boundaries and never inside string
// literals.
func applyDefines(input string, defines map[string]Macro) string {
	if len(defines) == 0 {
		return input
	}

	var sb strings.Builder
	n := len(input)
	i := 0

	for i < n {
		if input[i] == '"' {
			sb.WriteByte(input[i])
			i++
			for i < n {
				char := input[i]
				sb.WriteByte(char)
				i++
				if char == '\\' {
					if i < n {
						sb.WriteByte(input[i])
						i++
					}
				} else if char == '"' {
					break
				}
			}
			continue
		}

		if !isIdentStart(rune(input[i])) {
			sb.WriteByte(input[i])
			i++
			continue
		}

		start := i
		for i < n && isIdentPart(rune(input[i])) {
			i++
		}
		word := input[start:i]
		macro, ok := defines[word]
		if !ok {
			sb.WriteString(word)
			continue
		}
		if len(macro.Args) == 0 {
			sb.WriteString(macro.Body)
			continue
		}

		args, end, ok := macroArgs(input, i)
		if !ok || len(args) != len(macro.Args) {
			sb.WriteString(word)
			continue
		}
		// One pass over the body with every parameter bound, so an
		// argument's text is never substituted again by a later parameter.
		argMap := make(map[string]Macro, len(macro.Args))
		for k, argName := range macro.Args {
			argMap[argName] = Macro{Body: args[k]}
		}
		sb.WriteString(applyDefines(applyDefines(macro.Body, argMap), defines))
		i = end
	}
	return sb.String()
}

// macroArgs reads a parenthesised argument list starting at or after
// input[i]. It returns the arguments and the offset just past ')'.
func macroArgs(input string, i int) ([]string, int, bool) {
	n := len(input)
	j := i
	for j < n && (input[j] == ' ' || input[j] == '\t') {
		j++
	}
	if j >= n || input[j] != '(' {
		return nil, 0, false
	}
	j++

	var args []string
	var current strings.Builder
	depth := 1
	for ; j < n && depth > 0; j++ {
		switch c := input[j]; {
		case c == '(':
			depth++
			current.WriteByte(c)
		case c == ')':
			depth--
			if depth > 0 {
				current.WriteByte(c)
			}
		case c == ',' && depth == 1:
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	if depth != 0 {
		return nil, 0, false
	}
	return append(args, strings.TrimSpace(current.String())), j, true
}

func isIdentStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}
