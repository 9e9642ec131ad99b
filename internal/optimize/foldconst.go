package optimize

import "github.com/dekarrin/vorth/internal/lower"

// ConstantFold collapses a pushed literal pair followed by a binary
// arithmetic op into a single pre-computed push, per spec sec 4.6. It only
// folds integer operations: float folding is skipped since IEEE-754 results
// computed at compile time could differ from the target's runtime rounding,
// and the spec doesn't require bit-exact cross-backend float folding.
func ConstantFold(words []lower.WordDef) []lower.WordDef {
	out := make([]lower.WordDef, len(words))
	for i, w := range words {
		w.Body = foldBody(w.Body)
		out[i] = w
	}
	return out
}

func foldBody(body []lower.Instr) []lower.Instr {
	var out []lower.Instr
	for i := 0; i < len(body); i++ {
		if i+2 < len(body) {
			a, b, op := body[i], body[i+1], body[i+2]
			if a.Op == lower.OpPushInt && b.Op == lower.OpPushInt {
				if folded, ok := foldIntOp(a.IntVal, b.IntVal, op.Op); ok {
					out = append(out, lower.Instr{Op: lower.OpPushInt, IntVal: folded, Cost: op.Cost})
					i += 2
					continue
				}
			}
		}
		out = append(out, body[i])
	}
	return out
}

func foldIntOp(a, b int64, op lower.OpCode) (int64, bool) {
	switch op {
	case lower.OpIAdd:
		return a + b, true
	case lower.OpISub:
		return a - b, true
	case lower.OpIMul:
		return a * b, true
	case lower.OpIDiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case lower.OpIMod:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	default:
		return 0, false
	}
}
