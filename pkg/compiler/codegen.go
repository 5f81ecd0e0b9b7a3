package compiler

import (
	"fmt"
	"strconv"

	"calcc/pkg/asm"
	"calcc/pkg/target"
)

// CodeGen walks a resolved program and builds the instruction listing.
type CodeGen struct {
	profile *target.Profile
	table   *DeclTable
	out     *asm.Listing
}

func newCodeGen(profile *target.Profile, table *DeclTable) *CodeGen {
	return &CodeGen{profile: profile, table: table, out: &asm.Listing{}}
}

// Generate lowers prog into a listing. The entry function comes first under
// the program-start label; the rest follow in source order.
func Generate(prog *Program, profile *target.Profile) (*asm.Listing, error) {
	if profile == nil {
		profile = target.Default()
	}
	cg := newCodeGen(profile, prog.Table)

	entry, ok := prog.Table.Lookup(profile.Entry)
	if !ok {
		return nil, &ParseError{Pos: Pos{Line: 1, Col: 1}, Msg: fmt.Sprintf("program has no entry function %q", profile.Entry)}
	}

	decls := prog.Decls
	if profile.StripUnused {
		decls = eliminateUnused(prog, profile.Entry)
	}

	for _, line := range profile.Header {
		cg.out.Directive(line)
	}
	cg.out.Blank()

	cg.genFunction(entry)
	for _, d := range decls {
		if d == entry {
			continue
		}
		cg.out.Blank()
		cg.genFunction(d)
	}

	if len(profile.Footer) > 0 {
		cg.out.Blank()
	}
	for _, line := range profile.Footer {
		cg.out.Directive(line)
	}
	return cg.out, nil
}

// label returns the assembler label of a declared function.
func (cg *CodeGen) label(d *FunctionDecl) string {
	if d.Name == cg.profile.Entry {
		return cg.profile.StartLabel
	}
	return cg.profile.LabelPrefix + d.Name
}

func (cg *CodeGen) genFunction(d *FunctionDecl) {
	cg.out.Label(cg.label(d))
	switch d.Convention {
	case Raw:
		cg.genRaw(d)
	default:
		cg.genNormal(d)
	}
}

// genNormal lowers a call sequence. Every call gets at most one load of the
// accumulator, placed immediately before it.
func (cg *CodeGen) genNormal(d *FunctionDecl) {
	for _, stmt := range d.Stmts {
		switch s := stmt.(type) {
		case *CallStmt:
			if cg.profile.Comments {
				cg.out.Comment("%s", s)
			}
			if s.Arg != nil {
				cg.load(s.Value)
			}
			cg.call(s)

		case *ExprStmt:
			if cg.profile.Comments {
				cg.out.Comment("%s", s)
			}
			cg.load(s.Value)
		}
	}
	cg.exit(d)
}

func (cg *CodeGen) load(v int16) {
	cg.out.Instr(cg.profile.Load, cg.profile.Accumulator, strconv.Itoa(int(v)))
}

func (cg *CodeGen) call(s *CallStmt) {
	if s.Target == External {
		cg.out.Macro(cg.profile.OSCall, s.Name)
		return
	}
	callee, _ := cg.table.Lookup(s.Name)
	cg.out.Instr(cg.profile.Call, cg.label(callee))
}

// genRaw copies the asm text unchanged. No prologue or register saves are
// added; a return is appended only when the text can fall off its end.
func (cg *CodeGen) genRaw(d *FunctionDecl) {
	cg.out.Raw(d.Name, d.Asm.Text)
	if last, ok := asm.LastInstruction(d.Asm.Text); ok && cg.profile.IsTransfer(last.Mnemonic, len(last.Operands)) {
		return
	}
	cg.exit(d)
}

// exit ends a function: the profile's exit sequence for the entry function,
// a plain return for everything else.
func (cg *CodeGen) exit(d *FunctionDecl) {
	if d.Name != cg.profile.Entry {
		cg.out.Instr(cg.profile.Return)
		return
	}
	for _, text := range cg.profile.Exit {
		line := asm.ParseLine(asm.Indent+text, 0)
		if line.Macro {
			cg.out.Macro(line.Mnemonic, line.Operands...)
		} else {
			cg.out.Instr(line.Mnemonic, line.Operands...)
		}
	}
}
