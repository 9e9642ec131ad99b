// Package lower linearizes SSA (internal/ssa) into the stack-machine IR that
// internal/optimize transforms and internal/codegen finally emits, per spec
// sec 4.5. Phi (block-parameter) elimination inserts no copies: Linearize
// drops block parameters and jump arguments outright, relying on the SSA
// builder having threaded the operand stack through them in push/pop order.
package lower

import "github.com/dekarrin/vorth/internal/types"

// OpCode names one stack-IR instruction. Superinstructions (fused pairs the
// optimizer introduces) get their own OpCode rather than reusing two plain
// ones, so the backend can pattern-match them directly.
type OpCode int

const (
	OpPushInt OpCode = iota
	OpPushFloat
	OpPushString
	OpDup
	OpDrop
	OpSwap
	OpOver
	OpRot
	OpNip
	OpTuck
	OpIAdd
	OpISub
	OpIMul
	OpIDiv
	OpIMod
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpEq
	OpLt
	OpGt
	OpAnd
	OpOr
	OpXor
	OpNot
	OpFetch
	OpStore
	OpCall
	OpLabel
	OpJump
	OpJumpIfZero
	OpJumpIfNotZero
	OpReturn
	OpLoadIndex // "I"/"J" materialized as an explicit read of the loop-index register
	// Superinstructions, fused by internal/optimize from common adjacent
	// pairs (spec sec 4.6's "superinstruction fusion").
	OpFusedDupMul // DUP * in one dispatch
	OpFusedSwapDrop
)

func (op OpCode) String() string {
	names := [...]string{
		"PUSH.I", "PUSH.F", "PUSH.S", "DUP", "DROP", "SWAP", "OVER", "ROT", "NIP", "TUCK",
		"I.ADD", "I.SUB", "I.MUL", "I.DIV", "I.MOD", "F.ADD", "F.SUB", "F.MUL", "F.DIV",
		"EQ", "LT", "GT", "AND", "OR", "XOR", "NOT", "FETCH", "STORE", "CALL", "LABEL",
		"JUMP", "JZ", "JNZ", "RET", "LOADIDX", "FUSED.DUP_MUL", "FUSED.SWAP_DROP",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "OP(?)"
}

// Instr is one stack-IR instruction. Operand meaning depends on Op: Label
// for jumps/labels/calls, IntVal/FloatVal/StrVal for pushes.
type Instr struct {
	Op       OpCode
	Label    string
	IntVal   int64
	FloatVal float64
	StrVal   string
	// Cost is a backend-agnostic relative execution-cost estimate, used by
	// internal/optimize's inlining bloat-budget check.
	Cost int
	// PrefetchHint marks an OpFetch internal/optimize's reordering pass has
	// proven independent of its neighbors, a hint the backend may use to
	// issue the load early.
	PrefetchHint bool
	// StackDepthHint is the simulated data-stack depth immediately before
	// this instruction executes, within its enclosing basic block. Set by
	// internal/optimize's stack-caching pass (O3) so the backend can keep
	// the top few slots in registers instead of memory.
	StackDepthHint int
}

// WordDef is a fully-lowered word ready for optimization and codegen, per
// spec sec 4.5's instruction-set description.
type WordDef struct {
	Name        string
	Body        []Instr
	Effect      types.StackEffect
	InlineHint  bool
	IsPrimitive bool
	// NeverInline is set for words participating in a recursive cycle
	// (internal/callgraph.RecursiveWords), which would otherwise expand
	// into an infinite inlining tree.
	NeverInline bool
}

func defaultCost(op OpCode) int {
	switch op {
	case OpCall:
		return 5
	case OpJump, OpJumpIfZero, OpJumpIfNotZero:
		return 2
	case OpFetch, OpStore:
		return 3
	default:
		return 1
	}
}
