package lower

import (
	"fmt"

	"github.com/dekarrin/vorth/internal/ssa"
	"github.com/dekarrin/vorth/internal/types"
)

// primitiveOp maps a primitive word name directly onto a dedicated IR
// opcode, so the backend never has to dispatch through a generic call for
// the hottest operations.
var primitiveOp = map[string]OpCode{
	"DUP": OpDup, "DROP": OpDrop, "SWAP": OpSwap, "OVER": OpOver, "ROT": OpRot,
	"NIP": OpNip, "TUCK": OpTuck,
	"=": OpEq, "<": OpLt, ">": OpGt,
	"AND": OpAnd, "OR": OpOr, "XOR": OpXor, "NOT": OpNot, "INVERT": OpNot,
	"@": OpFetch, "!": OpStore,
}

// blockLabel names a block uniquely within a lowered word, stable across
// optimizer passes that reorder or delete surrounding blocks.
func blockLabel(word string, b *ssa.BasicBlock) string {
	return fmt.Sprintf("%s.%s.%d", word, b.Name, b.ID)
}

// Linearize lowers f's SSA into a flat stack-IR instruction stream.
//
// Because internal/ssa's Builder always threads the *entire* current
// operand stack through block parameters and jump/branch arguments in
// strict push/pop order, the SSA form it produces is already a valid
// stack-machine execution trace: translating each block's instructions in
// place, in block order, reproduces the original stack discipline with no
// value-to-register bookkeeping and no phi-copy insertion required. Block
// parameters exist purely to carry merged SSA types through internal/types
// and internal/optimize; at this level they vanish.
func Linearize(f *ssa.Function, wordTypes map[string]types.StackEffect) WordDef {
	var out []Instr

	emit := func(op OpCode, cost int) {
		out = append(out, Instr{Op: op, Cost: cost})
	}

	for _, b := range f.Blocks {
		out = append(out, Instr{Op: OpLabel, Label: blockLabel(f.Name, b)})

		for _, in := range b.Instrs {
			switch in.Op {
			case ssa.OpConstInt:
				out = append(out, Instr{Op: OpPushInt, IntVal: in.IntVal, Cost: defaultCost(OpPushInt)})
			case ssa.OpConstFloat:
				out = append(out, Instr{Op: OpPushFloat, FloatVal: in.FloatVal, Cost: defaultCost(OpPushFloat)})
			case ssa.OpConstString:
				out = append(out, Instr{Op: OpPushString, StrVal: in.StrVal, Cost: defaultCost(OpPushString)})

			case ssa.OpCall:
				if op, ok := primitiveOp[in.Word]; ok {
					emit(op, defaultCost(op))
					continue
				}
				switch in.Word {
				case "+":
					emit(arithOp(in, OpIAdd, OpFAdd), 1)
				case "-":
					emit(arithOp(in, OpISub, OpFSub), 1)
				case "*":
					emit(arithOp(in, OpIMul, OpFMul), 1)
				case "/":
					emit(arithOp(in, OpIDiv, OpFDiv), 1)
				case "MOD":
					emit(OpIMod, 1)
				default:
					out = append(out, Instr{Op: OpCall, Label: in.Word, Cost: defaultCost(OpCall)})
				}

			case ssa.OpJump:
				out = append(out, Instr{Op: OpJump, Label: blockLabel(f.Name, in.Targets[0]), Cost: defaultCost(OpJump)})

			case ssa.OpBranch:
				// then=Targets[0], else=Targets[1]; JZ to else, fall through
				// to an explicit jump to then so block layout order never
				// matters.
				out = append(out, Instr{Op: OpJumpIfZero, Label: blockLabel(f.Name, in.Targets[1]), Cost: defaultCost(OpJumpIfZero)})
				out = append(out, Instr{Op: OpJump, Label: blockLabel(f.Name, in.Targets[0]), Cost: defaultCost(OpJump)})

			case ssa.OpReturn:
				out = append(out, Instr{Op: OpReturn, Cost: defaultCost(OpReturn)})
			}
		}
	}

	return WordDef{Name: f.Name, Body: out, Effect: wordTypes[f.Name]}
}

// arithOp picks the typed variant of a polymorphic arithmetic primitive
// based on its first argument's type, per spec sec 4.6's "typed variant"
// requirement ahead of superinstruction fusion. Since the SSA builder
// doesn't resolve primitive calls' type variables against the final
// substitution (see internal/ssa's Builder doc comment), this falls back to
// the integer variant whenever the static type isn't already concrete. No
// later pass rewrites the opcode chosen here, so a float-typed call site
// whose argument type is still a type variable at this point keeps the
// integer variant.
func arithOp(in *ssa.Instr, intOp, floatOp OpCode) OpCode {
	if len(in.Args) > 0 && in.Args[0].Type.Kind == types.KindFloat {
		return floatOp
	}
	return intOp
}
