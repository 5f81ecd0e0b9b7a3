package compiler

import (
	"io"
	"strings"

	"calcc/pkg/asm"
	"calcc/pkg/target"

	"github.com/ztrue/tracerr"
)

// Compiler turns source text into assembly for one target profile. It
// holds no state between calls and is safe for concurrent use.
type Compiler struct {
	Profile *target.Profile
}

// New returns a Compiler for profile, or for target.Default when nil.
func New(profile *target.Profile) *Compiler {
	if profile == nil {
		profile = target.Default()
	}
	return &Compiler{Profile: profile}
}

// Compile runs the pipeline with the default profile.
func Compile(src string) (*Output, error) {
	return New(nil).Compile(src)
}

// Compile lexes, parses, folds and generates src. The first error of any
// phase stops the pipeline; it carries a stack trace and unwraps to a
// CompileError via AsCompileError.
func (c *Compiler) Compile(src string) (*Output, error) {
	if err := c.Profile.Validate(); err != nil {
		return nil, tracerr.Wrap(err)
	}

	tokens, err := Lex(src)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}

	prog, err := Parse(tokens, c.Profile)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}

	listing, err := Generate(prog, c.Profile)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}

	var sb strings.Builder
	layout, err := asm.Emit(&sb, listing)
	if err != nil {
		return nil, tracerr.Wrap(&EmitError{Err: err})
	}

	return &Output{Program: prog, Listing: listing, text: sb.String(), layout: layout}, nil
}

// Output is the result of a successful compilation.
type Output struct {
	Program *Program
	Listing *asm.Listing

	text   string
	layout *asm.Layout
}

// String returns the assembly text.
func (o *Output) String() string { return o.text }

// AsmBlockFor returns the emitted text of the asm body of the named
// function. It is byte-identical to the text between the braces in the
// source.
func (o *Output) AsmBlockFor(name string) (string, bool) {
	span, ok := o.layout.Blocks[name]
	if !ok {
		return "", false
	}
	return o.text[span.Start:span.End], true
}

// WriteTo writes the assembly text to w. Any failure is an *EmitError.
func (o *Output) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, o.text)
	if err == nil && n < len(o.text) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return int64(n), &EmitError{Err: err}
	}
	return int64(n), nil
}
