// Package asm holds the instruction listing produced by the code generator
// and turns it into Z80 assembler source text.
package asm

import (
	"fmt"
	"strings"
)

// Kind identifies what a listing Item represents.
type Kind int

const (
	KindDirective Kind = iota // emitted verbatim at column 0
	KindLabel                 // name:
	KindInstr                 // op arg, arg
	KindRaw                   // programmer-supplied text, emitted byte for byte
	KindComment               // ; text
	KindBlank                 // empty line
)

var kindNames = [...]string{
	KindDirective: "directive",
	KindLabel:     "label",
	KindInstr:     "instr",
	KindRaw:       "raw",
	KindComment:   "comment",
	KindBlank:     "blank",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Item is one line (or, for KindRaw, one block of lines) of output.
type Item struct {
	Kind Kind
	Text string // directive, label name, raw block or comment text

	Op    string
	Args  []string
	Macro bool // render as Op(Args) rather than Op Args, e.g. b_call(_DispHL)

	Owner string // function a raw block belongs to
}

// String renders the item the way Emit writes it, without the trailing
// newline.
func (it Item) String() string {
	switch it.Kind {
	case KindDirective:
		return it.Text
	case KindLabel:
		return it.Text + ":"
	case KindInstr:
		if it.Macro {
			return Indent + it.Op + "(" + strings.Join(it.Args, ", ") + ")"
		}
		if len(it.Args) == 0 {
			return Indent + it.Op
		}
		return Indent + it.Op + " " + strings.Join(it.Args, ", ")
	case KindRaw:
		return strings.TrimSuffix(it.Text, "\n")
	case KindComment:
		return Indent + "; " + it.Text
	default:
		return ""
	}
}

// Indent prefixes every generated instruction.
const Indent = "    "

// Listing is an ordered sequence of output items.
type Listing struct {
	Items []Item
}

func (l *Listing) add(it Item) {
	l.Items = append(l.Items, it)
}

func (l *Listing) Directive(text string) {
	l.add(Item{Kind: KindDirective, Text: text})
}

func (l *Listing) Label(name string) {
	l.add(Item{Kind: KindLabel, Text: name})
}

// Instr appends a plain instruction: op a, b.
func (l *Listing) Instr(op string, args ...string) {
	l.add(Item{Kind: KindInstr, Op: op, Args: args})
}

// Macro appends a macro invocation: op(a, b).
func (l *Listing) Macro(op string, args ...string) {
	l.add(Item{Kind: KindInstr, Op: op, Args: args, Macro: true})
}

// Raw appends a verbatim block owned by the named function.
func (l *Listing) Raw(owner, text string) {
	l.add(Item{Kind: KindRaw, Text: text, Owner: owner})
}

func (l *Listing) Comment(format string, args ...any) {
	l.add(Item{Kind: KindComment, Text: fmt.Sprintf(format, args...)})
}

func (l *Listing) Blank() {
	l.add(Item{Kind: KindBlank})
}

// Instructions returns the KindInstr items in order.
func (l *Listing) Instructions() []Item {
	var out []Item
	for _, it := range l.Items {
		if it.Kind == KindInstr {
			out = append(out, it)
		}
	}
	return out
}

// String renders the whole listing. It cannot fail.
func (l *Listing) String() string {
	var sb strings.Builder
	Emit(&sb, l) // strings.Builder never returns an error
	return sb.String()
}
