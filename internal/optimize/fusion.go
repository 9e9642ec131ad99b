package optimize

import "github.com/dekarrin/vorth/internal/lower"

// fusionPairs maps an adjacent (first, second) opcode pair onto the fused
// superinstruction that replaces it, per spec sec 4.6. Cost is the sum of
// the pair's per-dispatch overhead folded into one, saving one dispatch.
var fusionPairs = map[[2]lower.OpCode]lower.OpCode{
	{lower.OpDup, lower.OpIMul}:  lower.OpFusedDupMul,
	{lower.OpSwap, lower.OpDrop}: lower.OpFusedSwapDrop,
}

// FuseSuperinstructions rewrites known hot adjacent-instruction pairs into a
// single superinstruction opcode, cutting one dispatch per occurrence. Only
// fuses within a basic block: it never looks across an OpLabel boundary,
// since a jump could land between the pair at runtime.
func FuseSuperinstructions(words []lower.WordDef) []lower.WordDef {
	out := make([]lower.WordDef, len(words))
	for i, w := range words {
		w.Body = fuseBody(w.Body)
		out[i] = w
	}
	return out
}

func fuseBody(body []lower.Instr) []lower.Instr {
	var out []lower.Instr
	for i := 0; i < len(body); i++ {
		if i+1 < len(body) {
			key := [2]lower.OpCode{body[i].Op, body[i+1].Op}
			if fused, ok := fusionPairs[key]; ok {
				out = append(out, lower.Instr{Op: fused, Cost: body[i].Cost + body[i+1].Cost - 1})
				i++
				continue
			}
		}
		out = append(out, body[i])
	}
	return out
}
