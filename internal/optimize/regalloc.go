package optimize

import "github.com/dekarrin/vorth/internal/lower"

// stackDelta reports how many values op nets onto the data stack, used by
// AssignStackCache to simulate depth without a full interpreter.
func stackDelta(op lower.OpCode) int {
	switch op {
	case lower.OpPushInt, lower.OpPushFloat, lower.OpPushString, lower.OpDup, lower.OpOver, lower.OpTuck:
		return 1
	case lower.OpDrop, lower.OpNip, lower.OpIAdd, lower.OpISub, lower.OpIMul, lower.OpIDiv, lower.OpIMod,
		lower.OpFAdd, lower.OpFSub, lower.OpFMul, lower.OpFDiv,
		lower.OpEq, lower.OpLt, lower.OpGt, lower.OpAnd, lower.OpOr, lower.OpXor,
		lower.OpJumpIfZero, lower.OpJumpIfNotZero:
		return -1
	case lower.OpStore:
		return -2
	case lower.OpFusedDupMul:
		return 0 // DUP (+1) then * (-1)
	case lower.OpFusedSwapDrop:
		return -1 // SWAP (0) then DROP (-1)
	default:
		return 0
	}
}

// AssignStackCache annotates each instruction with the simulated data-stack
// depth immediately before it executes, reset at each OpLabel since a block
// boundary may be reached from more than one predecessor with different
// live-value counts otherwise unknowable without the dominance-frontier
// data internal/ssa already discarded by this stage. The backend uses the
// hint to keep shallow slots (depth below some small constant) in
// registers instead of spilling to the data-stack memory region, per spec
// sec 4.6's stack-caching pass.
func AssignStackCache(words []lower.WordDef) []lower.WordDef {
	out := make([]lower.WordDef, len(words))
	for i, w := range words {
		w.Body = assignDepths(w.Body)
		out[i] = w
	}
	return out
}

func assignDepths(body []lower.Instr) []lower.Instr {
	out := make([]lower.Instr, len(body))
	copy(out, body)
	depth := 0
	for i, in := range out {
		if in.Op == lower.OpLabel {
			depth = 0
		}
		out[i].StackDepthHint = depth
		depth += stackDelta(in.Op)
		if depth < 0 {
			depth = 0
		}
	}
	return out
}
