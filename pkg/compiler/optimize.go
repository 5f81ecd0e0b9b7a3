package compiler

import (
	"calcc/pkg/asm"
)

// eliminateUnused returns the declarations reachable from entry, in source
// order. Raw bodies are scanned for operands naming a declared function,
// so a routine that is only reached from hand-written assembly survives.
func eliminateUnused(prog *Program, entry string) []*FunctionDecl {
	funcs := make(map[string]*FunctionDecl, len(prog.Decls))
	for _, d := range prog.Decls {
		funcs[d.Name] = d
	}

	reachable := make(map[string]bool)
	var worklist []string

	addReachable := func(name string) {
		if _, declared := funcs[name]; !declared {
			return // external
		}
		if !reachable[name] {
			reachable[name] = true
			worklist = append(worklist, name)
		}
	}
	addReachable(entry)

	for len(worklist) > 0 {
		curr := funcs[worklist[0]]
		worklist = worklist[1:]

		calls := make(map[string]bool)
		findCalls(curr, calls)
		for call := range calls {
			addReachable(call)
		}
	}

	var kept []*FunctionDecl
	for _, d := range prog.Decls {
		if reachable[d.Name] {
			kept = append(kept, d)
		}
	}
	return kept
}

// findCalls records every name d may transfer control to.
func findCalls(d *FunctionDecl, calls map[string]bool) {
	if d.Convention == Raw {
		for _, line := range asm.ParseText(d.Asm.Text) {
			for _, op := range line.Operands {
				calls[op] = true
			}
		}
		return
	}
	for _, s := range d.Stmts {
		if c, ok := s.(*CallStmt); ok {
			calls[c.Name] = true
		}
	}
}
