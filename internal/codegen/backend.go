// Package codegen turns optimized internal/lower.WordDef bodies into a
// target artifact, via one of two pluggable backends: an LLVM-class SSA
// emitter for ahead-of-time builds, and a hand-rolled "direct" backend for
// fast JIT turnaround during REPL sessions. Both honor the ForthInternal
// calling convention (spec sec 5): five pinned VM-state registers carried
// across every word call instead of a conventional C-style argument list,
// since a stack-machine call only ever needs to hand off "where the stack
// currently is", not a fixed argument count.
package codegen

import "github.com/dekarrin/vorth/internal/lower"

// Register names one of the five ForthInternal calling-convention registers
// pinned across every call boundary.
type Register int

const (
	// RegDSP is the data-stack pointer: the address one past the last
	// pushed cell.
	RegDSP Register = iota
	// RegTOS caches the top-of-stack value so the hottest primitives
	// (DUP, +, DROP) never have to round-trip through memory.
	RegTOS
	// RegNOS caches the next-on-stack value, backing two-operand
	// primitives without a memory load.
	RegNOS
	// Reg3OS caches the third-from-top value, backing ROT without a
	// memory load.
	Reg3OS
	// RegRSP is the return-stack pointer, used for call/return addresses
	// and DO/LOOP's loop-control frame.
	RegRSP
)

func (r Register) String() string {
	switch r {
	case RegDSP:
		return "DSP"
	case RegTOS:
		return "TOS"
	case RegNOS:
		return "NOS"
	case Reg3OS:
		return "3OS"
	case RegRSP:
		return "RSP"
	default:
		return "REG(?)"
	}
}

// CallingConvention lists the registers live across every ForthInternal
// call, in the fixed order a callee expects them.
var CallingConvention = []Register{RegDSP, RegTOS, RegNOS, Reg3OS, RegRSP}

// Mode selects whether Backend.Emit produces a standalone artifact (AOT) or
// an in-process callable thunk (JIT), per spec sec 5.
type Mode int

const (
	ModeAOT Mode = iota
	ModeJIT
)

// Artifact is whatever a Backend produced: an AOT backend returns object or
// executable bytes in Bytes; a JIT backend returns an in-process Thunk
// instead and leaves Bytes nil.
type Artifact struct {
	Mode  Mode
	Bytes []byte
	Thunk Thunk
}

// Thunk is an in-process callable compiled word, as produced by a JIT
// backend. Args and results are passed as a flat stack slice matching the
// word's StackEffect, since the compiled code still obeys the same stack
// discipline the IR does.
type Thunk func(args []int64) []int64

// Backend is the capability set internal/session drives compilation
// through. Not every backend supports every mode: the direct backend is
// JIT-only, and the LLVM-class backend is AOT-only in this implementation
// (MCJIT support is left to the consumer's own LLVM build, not something
// this package drives itself).
type Backend interface {
	// Name identifies the backend for diagnostics and the CLI's --backend
	// flag.
	Name() string
	// Supports reports whether this backend can run in the given Mode.
	Supports(m Mode) bool
	// Emit compiles every word in words into a single Artifact. entry names
	// the word that becomes the program's top-level entry point.
	Emit(words []lower.WordDef, entry string, m Mode) (*Artifact, error)
}
