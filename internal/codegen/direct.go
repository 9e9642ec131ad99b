package codegen

import (
	"fmt"

	"github.com/dekarrin/vorth/internal/lower"
)

// DirectBackend is a hand-rolled interpreting backend: rather than
// emitting machine code, it returns a Thunk that walks each WordDef's
// instruction stream with a program counter and a switch over opcodes. This gives JIT-speed
// turnaround for REPL use (spec sec 5's "fast path") at the cost of AOT
// artifact production, which this backend does not support.
type DirectBackend struct{}

func NewDirectBackend() *DirectBackend { return &DirectBackend{} }

func (b *DirectBackend) Name() string { return "direct" }

func (b *DirectBackend) Supports(m Mode) bool { return m == ModeJIT }

func (b *DirectBackend) Emit(words []lower.WordDef, entry string, m Mode) (*Artifact, error) {
	if m != ModeJIT {
		return nil, fmt.Errorf("direct backend: mode %v not supported, only ModeJIT", m)
	}

	byName := make(map[string]lower.WordDef, len(words))
	for _, w := range words {
		byName[w.Name] = w
	}
	if _, ok := byName[entry]; !ok {
		return nil, fmt.Errorf("direct backend: entry word %q not found", entry)
	}

	vm := &directVM{words: byName}
	thunk := func(args []int64) []int64 {
		return vm.run(entry, args)
	}
	return &Artifact{Mode: ModeJIT, Thunk: thunk}, nil
}

// directVM executes a lowered word's instruction stream using the
// ForthInternal register discipline in spirit: TOS/NOS/3OS live as the tail
// of a Go slice rather than literal CPU registers, since there's no
// assembler here to pin them to, but the call/return and data-stack
// semantics are identical to what a compiled backend would produce.
type directVM struct {
	words map[string]lower.WordDef
}

func (vm *directVM) run(name string, args []int64) []int64 {
	stack := append([]int64(nil), args...)
	rstack := []int{}
	vm.exec(vm.words[name], &stack, &rstack)
	return stack
}

func pop(stack *[]int64) int64 {
	n := len(*stack) - 1
	v := (*stack)[n]
	*stack = (*stack)[:n]
	return v
}

func push(stack *[]int64, v int64) {
	*stack = append(*stack, v)
}

// exec runs body's instructions against stack, resolving labels to
// instruction indices up front since DO/LOOP and IF/THEN jumps are always
// intra-word.
func (vm *directVM) exec(w lower.WordDef, stack *[]int64, rstack *[]int) {
	labels := make(map[string]int, 4)
	for i, in := range w.Body {
		if in.Op == lower.OpLabel {
			labels[in.Label] = i
		}
	}

	pc := 0
	for pc < len(w.Body) {
		in := w.Body[pc]
		switch in.Op {
		case lower.OpLabel:
			// no-op marker
		case lower.OpPushInt:
			push(stack, in.IntVal)
		case lower.OpDup:
			v := (*stack)[len(*stack)-1]
			push(stack, v)
		case lower.OpDrop:
			pop(stack)
		case lower.OpSwap:
			n := len(*stack)
			(*stack)[n-1], (*stack)[n-2] = (*stack)[n-2], (*stack)[n-1]
		case lower.OpOver:
			v := (*stack)[len(*stack)-2]
			push(stack, v)
		case lower.OpFusedDupMul:
			v := (*stack)[len(*stack)-1]
			a, b := v, v
			pop(stack)
			push(stack, a*b)
		case lower.OpFusedSwapDrop:
			n := len(*stack)
			top := (*stack)[n-1]
			*stack = (*stack)[:n-2]
			push(stack, top)
		case lower.OpIAdd:
			b, a := pop(stack), pop(stack)
			push(stack, a+b)
		case lower.OpISub:
			b, a := pop(stack), pop(stack)
			push(stack, a-b)
		case lower.OpIMul:
			b, a := pop(stack), pop(stack)
			push(stack, a*b)
		case lower.OpIDiv:
			b, a := pop(stack), pop(stack)
			push(stack, a/b)
		case lower.OpIMod:
			b, a := pop(stack), pop(stack)
			push(stack, a%b)
		case lower.OpEq:
			b, a := pop(stack), pop(stack)
			push(stack, boolInt(a == b))
		case lower.OpLt:
			b, a := pop(stack), pop(stack)
			push(stack, boolInt(a < b))
		case lower.OpGt:
			b, a := pop(stack), pop(stack)
			push(stack, boolInt(a > b))
		case lower.OpAnd:
			b, a := pop(stack), pop(stack)
			push(stack, a&b)
		case lower.OpOr:
			b, a := pop(stack), pop(stack)
			push(stack, a|b)
		case lower.OpXor:
			b, a := pop(stack), pop(stack)
			push(stack, a^b)
		case lower.OpNot:
			a := pop(stack)
			push(stack, boolInt(a == 0))
		case lower.OpJump:
			pc = labels[in.Label]
			continue
		case lower.OpJumpIfZero:
			if pop(stack) == 0 {
				pc = labels[in.Label]
				continue
			}
		case lower.OpJumpIfNotZero:
			if pop(stack) != 0 {
				pc = labels[in.Label]
				continue
			}
		case lower.OpCall:
			callee, ok := vm.words[in.Label]
			if ok {
				vm.exec(callee, stack, rstack)
			}
		case lower.OpReturn:
			return
		}
		pc++
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
