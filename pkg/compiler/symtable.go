package compiler

import (
	"fmt"
	"sort"
	"strings"

	"calcc/pkg/target"
)

// Binding says what a call target resolved to.
type Binding int

const (
	Unresolved Binding = iota // not looked up yet
	Local                     // a declaration in this program
	External                  // an OS routine matched by the profile's patterns
)

func (b Binding) String() string {
	switch b {
	case Local:
		return "local"
	case External:
		return "external"
	}
	return "unresolved"
}

// DeclTable maps function names to their declarations. Names are unique
// within a program; external names are recorded with their first use.
type DeclTable struct {
	decls     map[string]*FunctionDecl
	order     []string
	externals map[string]Pos
	profile   *target.Profile
}

func NewDeclTable(profile *target.Profile) *DeclTable {
	return &DeclTable{
		decls:     make(map[string]*FunctionDecl),
		externals: make(map[string]Pos),
		profile:   profile,
	}
}

// Declare adds d. A second declaration of the same name is an error; it
// never shadows the first. So is a name whose label is the program-start
// label reserved for the entry function.
func (t *DeclTable) Declare(d *FunctionDecl) error {
	if prev, ok := t.decls[d.Name]; ok {
		return &ParseError{
			Pos: d.Pos,
			Msg: fmt.Sprintf("function %q redeclared (first declared at %s)", d.Name, prev.Pos),
		}
	}
	if p := t.profile; p != nil && d.Name != p.Entry && p.LabelPrefix+d.Name == p.StartLabel {
		return &ParseError{
			Pos: d.Pos,
			Msg: fmt.Sprintf("function %q would share the label %q with the entry function %q", d.Name, p.StartLabel, p.Entry),
		}
	}
	t.decls[d.Name] = d
	t.order = append(t.order, d.Name)
	return nil
}

// Lookup returns the declaration of name.
func (t *DeclTable) Lookup(name string) (*FunctionDecl, bool) {
	d, ok := t.decls[name]
	return d, ok
}

// Resolve binds a call to name made at pos. Local declarations win over
// external patterns.
func (t *DeclTable) Resolve(name string, pos Pos) (Binding, error) {
	if _, ok := t.decls[name]; ok {
		return Local, nil
	}
	if t.profile.IsExternal(name) {
		if _, seen := t.externals[name]; !seen {
			t.externals[name] = pos
		}
		return External, nil
	}
	msg := fmt.Sprintf("call to undeclared function %q", name)
	if t.profile.Strict && len(t.profile.Symbols) > 0 {
		msg += " (not in the target's symbol list)"
	}
	return Unresolved, &ParseError{Pos: pos, Msg: msg}
}

// Decls returns the declarations in source order.
func (t *DeclTable) Decls() []*FunctionDecl {
	out := make([]*FunctionDecl, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.decls[name])
	}
	return out
}

// Externals returns the external names referenced, sorted.
func (t *DeclTable) Externals() []string {
	names := make([]string, 0, len(t.externals))
	for name := range t.externals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExternalPos returns where name was first called.
func (t *DeclTable) ExternalPos(name string) (Pos, bool) {
	p, ok := t.externals[name]
	return p, ok
}

// String returns a deterministically ordered dump of the table.
func (t *DeclTable) String() string {
	var sb strings.Builder
	if len(t.order) > 0 {
		sb.WriteString("Functions:\n")
		names := append([]string(nil), t.order...)
		sort.Strings(names)
		for _, name := range names {
			d := t.decls[name]
			fmt.Fprintf(&sb, "  %-20s  %-6s  %-5s  at %s\n", name, d.Convention, d.ReturnType, d.Pos)
		}
	} else {
		sb.WriteString("Functions: (empty)\n")
	}
	if len(t.externals) > 0 {
		sb.WriteString("Externals:\n")
		for _, name := range t.Externals() {
			fmt.Fprintf(&sb, "  %-20s  first call at %s\n", name, t.externals[name])
		}
	}
	return sb.String()
}
