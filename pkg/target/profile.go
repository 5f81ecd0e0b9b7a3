// Package target describes the assembler dialect and calling conventions of
// the calculator the compiler emits code for.
package target

import (
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v2"
)

// Profile holds every target-specific string the code generator emits.
// The zero value is not usable; start from Default.
type Profile struct {
	Name string `yaml:"name"`

	// Header and Footer are copied verbatim around the generated code.
	Header []string `yaml:"header"`
	Footer []string `yaml:"footer"`

	// Entry is the name of the function the program starts in. It is
	// emitted first, under StartLabel instead of its own name.
	Entry      string `yaml:"entry"`
	StartLabel string `yaml:"start_label"`
	// Exit is the instruction sequence that ends the entry function.
	Exit []string `yaml:"exit"`

	// Accumulator is the register pair that carries the single implicit
	// argument of every call.
	Accumulator string `yaml:"accumulator"`
	Load        string `yaml:"load"`
	Call        string `yaml:"call"`
	OSCall      string `yaml:"os_call"`
	Return      string `yaml:"return"`

	// Transfers lists mnemonics that leave a function unconditionally when
	// they appear without a condition operand.
	Transfers []string `yaml:"transfers"`

	// External holds path.Match patterns for names that resolve to OS
	// routines without a local declaration.
	External []string `yaml:"external"`
	// Symbols is the allow-list consulted when Strict is set.
	Symbols []string `yaml:"symbols,omitempty"`
	Strict  bool     `yaml:"strict"`

	LabelPrefix string `yaml:"label_prefix,omitempty"`
	Comments    bool   `yaml:"comments"`
	StripUnused bool   `yaml:"strip_unused"`
}

// Default returns the TI-83 Plus / TI-84 Plus profile for SPASM and Brass.
func Default() *Profile {
	return &Profile{
		Name: "ti83plus",
		Header: []string{
			".nolist",
			`#include "ti83plus.inc"`,
			".list",
			".org userMem-2",
			".db t2ByteTok, tAsmCmp",
		},
		Footer:      []string{".end"},
		Entry:       "main",
		StartLabel:  "ProgramStart",
		Exit:        []string{"ret"},
		Accumulator: "hl",
		Load:        "ld",
		Call:        "call",
		OSCall:      "b_call",
		Return:      "ret",
		Transfers:   []string{"ret", "reti", "retn", "jp", "jr", "b_jump", "bjump"},
		External:    []string{"_*"},
		Comments:    true,
	}
}

// Load reads a YAML profile. Keys missing from the file keep their
// Default values.
func Load(file string) (*Profile, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML profile on top of Default.
func Parse(data []byte) (*Profile, error) {
	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("target profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Save writes p as YAML.
func (p *Profile) Save(file string) error {
	out, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(file, out, 0o644)
}

// Validate reports the first field that would make generated code unusable.
func (p *Profile) Validate() error {
	required := []struct {
		key, val string
	}{
		{"entry", p.Entry},
		{"start_label", p.StartLabel},
		{"accumulator", p.Accumulator},
		{"load", p.Load},
		{"call", p.Call},
		{"os_call", p.OSCall},
		{"return", p.Return},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return fmt.Errorf("target profile: %s must not be empty", r.key)
		}
	}
	for _, pat := range p.External {
		if _, err := path.Match(pat, ""); err != nil {
			return fmt.Errorf("target profile: bad external pattern %q: %w", pat, err)
		}
	}
	return nil
}

// IsExternal reports whether name is resolved by the OS rather than by a
// declaration in the program.
func (p *Profile) IsExternal(name string) bool {
	matched := false
	for _, pat := range p.External {
		if ok, _ := path.Match(pat, name); ok {
			matched = true
			break
		}
	}
	if !matched || !p.Strict {
		return matched
	}
	for _, s := range p.Symbols {
		if s == name {
			return true
		}
	}
	return false
}

// IsTransfer reports whether mnemonic, with the given operand count, always
// leaves the current function.
func (p *Profile) IsTransfer(mnemonic string, operands int) bool {
	m := strings.ToLower(mnemonic)
	for _, t := range p.Transfers {
		if strings.ToLower(t) != m {
			continue
		}
		switch m {
		case "ret", "reti", "retn":
			return operands == 0
		case "jp", "jr":
			return operands == 1
		default:
			return true
		}
	}
	return false
}
