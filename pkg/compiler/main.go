// Package compiler translates a small C-like language into Z80 assembly for
// TI graphing calculators.
//
// Pipeline: source → Lex → Parse (folding every expression) → Generate →
// asm.Emit.
//
// The language has no variables and no parameters. Each call may carry one
// constant argument, which is loaded into the accumulator (hl) immediately
// before the call; a call without one leaves the accumulator untouched, so
// the callee sees whatever the previous statement put there. Functions
// whose body is an asm { ... } block are copied verbatim and are
// responsible for their own register discipline.
package compiler
