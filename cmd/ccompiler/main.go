// Command ccompiler prints every stage of a compilation: the preprocessed
// source, the tokens, the declarations, the listing and the function table.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"calcc/pkg/compiler"
	"calcc/pkg/target"

	"github.com/alecthomas/repr"
)

const testSource = `void main() {
    clearScreen();
    putNum(8 - (3 + 2));
    getKey();
}

void clearScreen() {
asm {
    b_call(_ClrLCDFull)
}
}

void putNum() {
asm {
    b_call(_DispHL)
    b_call(_NewLine)
}
}

void getKey() {
asm {
    b_call(_GetKey)
}
}
`

func main() {
	src := testSource
	baseDir := "."
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
		baseDir = filepath.Dir(os.Args[1])
	}

	// Preprocess
	var err error
	src, err = compiler.Preprocess(src, baseDir, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "preprocess error:", err)
		os.Exit(1)
	}

	fmt.Printf("Source:\n%s\n", src)

	// Lex
	tokens, err := compiler.Lex(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, compiler.Diagnostic("input", src, err))
		os.Exit(1)
	}

	fmt.Printf("Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Println(" ", tok)
	}
	fmt.Println()

	// Parse
	profile := target.Default()
	prog, err := compiler.Parse(tokens, profile)
	if err != nil {
		fmt.Fprintln(os.Stderr, compiler.Diagnostic("input", src, err))
		os.Exit(1)
	}

	fmt.Println("AST")
	repr.Println(prog.Decls, repr.Indent("  "), repr.OmitEmpty(true))
	fmt.Println()

	// Code generation
	listing, err := compiler.Generate(prog, profile)
	if err != nil {
		fmt.Fprintln(os.Stderr, compiler.Diagnostic("input", src, err))
		os.Exit(1)
	}

	fmt.Println("Generated Assembly")
	fmt.Print(listing)
	fmt.Println()
	fmt.Print(prog.Table)
}
