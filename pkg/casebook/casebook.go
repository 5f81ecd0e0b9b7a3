// Package casebook reads compiler test cases written as Markdown.
//
// A case starts at a heading "Test: name". Its fenced code blocks are
// classified by their info string:
//
//	calc      the program to compile (exactly one)
//	profile   YAML overlaid on the default target profile (optional)
//	asm       the exact expected assembly
//	contains  lines that must appear in the output, in this order
//	error     the expected start of the diagnostic
//
// Every case needs an input and at least one assertion.
package casebook

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// AssertionType is the info string of an assertion fence.
type AssertionType string

const (
	AssertAsm      AssertionType = "asm"
	AssertContains AssertionType = "contains"
	AssertError    AssertionType = "error"
)

const (
	fenceInput   = "calc"
	fenceProfile = "profile"
)

// Assertion is one expectation of a case.
type Assertion struct {
	Type    AssertionType
	Content string
	Line    int // line of the fence in the Markdown file
}

// Case is one test case.
type Case struct {
	Name       string
	Input      string
	Profile    string // empty when the case uses the default profile
	Assertions []Assertion
	Line       int
}

// Extract parses a Markdown document and returns its cases in order.
func Extract(markdown []byte) ([]Case, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(markdown))

	var cases []Case
	var current *Case
	finish := func() error {
		if current == nil {
			return nil
		}
		if err := validate(current); err != nil {
			return err
		}
		cases = append(cases, *current)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			heading := nodeText(n, markdown)
			if !strings.HasPrefix(heading, "Test: ") {
				return ast.WalkContinue, nil
			}
			if err := finish(); err != nil {
				return ast.WalkStop, err
			}
			current = &Case{
				Name: strings.TrimSpace(strings.TrimPrefix(heading, "Test: ")),
				Line: lineOf(n, markdown),
			}
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock:
			lang := string(n.Language(markdown))
			line := lineOf(n, markdown)
			if current == nil {
				if isKnownFence(lang) {
					return ast.WalkStop, fmt.Errorf("line %d: %s fence outside of a test case", line, lang)
				}
				return ast.WalkContinue, nil
			}
			content := blockContent(n, markdown)

			switch lang {
			case fenceInput:
				if current.Input != "" {
					return ast.WalkStop, fmt.Errorf("line %d: test %q has more than one calc fence", line, current.Name)
				}
				current.Input = content
			case fenceProfile:
				current.Profile = content
			case string(AssertAsm), string(AssertContains), string(AssertError):
				current.Assertions = append(current.Assertions, Assertion{
					Type:    AssertionType(lang),
					Content: content,
					Line:    line,
				})
			default:
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence %q in test %q", line, lang, current.Name)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return cases, nil
}

// Load reads every file matching pattern and returns its cases keyed by
// file base name.
func Load(pattern string) (map[string][]Case, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]Case, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		cases, err := Extract(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		out[strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))] = cases
	}
	return out, nil
}

// Lines splits a contains assertion into its non-blank lines.
func (a Assertion) Lines() []string {
	var out []string
	for _, l := range strings.Split(a.Content, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func isKnownFence(lang string) bool {
	switch lang {
	case fenceInput, fenceProfile, string(AssertAsm), string(AssertContains), string(AssertError):
		return true
	}
	return false
}

func validate(c *Case) error {
	if c.Input == "" {
		return fmt.Errorf("line %d: test %q has no calc fence", c.Line, c.Name)
	}
	if len(c.Assertions) == 0 {
		return fmt.Errorf("line %d: test %q has no assertion fences", c.Line, c.Name)
	}
	return nil
}

func nodeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := n.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// blockContent returns the fence body exactly as written.
func blockContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

func lineOf(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	start := node.Lines().At(0).Start
	return bytes.Count(source[:min(start, len(source))], []byte("\n")) + 1
}
