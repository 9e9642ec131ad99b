// Package ssa builds static single-assignment form over a word's body once
// it has a valid stack effect, per spec sec 4.4: one Value per stack slot,
// block-parameters standing in for phi nodes at merge points (IF/ELSE joins,
// loop headers). There is no separate return-stack region: RECURSE is an
// ordinary OpCall of the word itself and EXIT is a jump to the exit block
// or an OpReturn.
package ssa

import "github.com/dekarrin/vorth/internal/types"

// Op tags what an Instr computes.
type Op int

const (
	OpConstInt Op = iota
	OpConstFloat
	OpConstString
	OpCall   // invoke a primitive or user-defined word
	OpLoad   // VARIABLE fetch (@)
	OpStore  // VARIABLE store (!)
	OpBranch // conditional transfer to one of two successor blocks
	OpJump   // unconditional transfer to a successor block, passing block args
	OpReturn // fall off the end of the function (or EXIT), passing final stack
	OpLoopIndex // DO/LOOP's "I" or "J" made explicit once lowered out of the primitive table
)

// Value is one SSA definition: either the result of an Instr, or a block
// parameter representing values merged from multiple predecessors (the
// "phi" of spec sec 4.4, expressed as block arguments the way modern
// register-based SSA IRs do instead of a dedicated Phi instruction).
type Value struct {
	ID   int
	Type types.Type
	Def  *Instr // nil for block parameters
}

// Instr is one operation within a BasicBlock. Results is usually
// length-0-or-1, except OpCall into a word with multiple outputs.
type Instr struct {
	ID      int
	Op      Op
	Word    string // set for OpCall
	IntVal  int64
	FloatVal float64
	StrVal  string
	Args    []*Value
	Results []*Value

	// Targets holds successor blocks for control instructions: one entry
	// for OpJump, two (then, else) for OpBranch, none for OpReturn.
	Targets []*BasicBlock
	// BlockArgs holds, parallel to Targets, the values passed as that
	// successor's block parameters.
	BlockArgs [][]*Value
}

// BasicBlock is a straight-line sequence of Instrs ending in exactly one
// control instruction (OpBranch, OpJump, or OpReturn).
type BasicBlock struct {
	ID     int
	Name   string
	Params []*Value
	Instrs []*Instr
	Preds  []*BasicBlock
}

// Function is one word's SSA body.
type Function struct {
	Name    string
	Entry   *BasicBlock
	Blocks  []*BasicBlock
	nextVal int
	nextBlk int
	nextIns int
}

func NewFunction(name string) *Function {
	f := &Function{Name: name}
	f.Entry = f.NewBlock("entry")
	return f
}

func (f *Function) NewBlock(name string) *BasicBlock {
	b := &BasicBlock{ID: f.nextBlk, Name: name}
	f.nextBlk++
	f.Blocks = append(f.Blocks, b)
	return b
}

func (f *Function) NewValue(t types.Type) *Value {
	v := &Value{ID: f.nextVal, Type: t}
	f.nextVal++
	return v
}

func (f *Function) newInstr(op Op) *Instr {
	in := &Instr{ID: f.nextIns, Op: op}
	f.nextIns++
	return in
}

// Emit appends instr to the end of b's instruction list. Callers are
// responsible for ensuring a block's last instruction is always a control
// instruction (OpBranch/OpJump/OpReturn).
func (b *BasicBlock) Emit(instr *Instr) {
	b.Instrs = append(b.Instrs, instr)
}

// AddParam adds a new block parameter (phi site) of type t and returns it.
func (f *Function) AddParam(b *BasicBlock, t types.Type) *Value {
	v := f.NewValue(t)
	b.Params = append(b.Params, v)
	return v
}

func addPred(to, from *BasicBlock) {
	to.Preds = append(to.Preds, from)
}

// Jump terminates b with an unconditional transfer to target, passing args
// as target's block-parameter values.
func (f *Function) Jump(b, target *BasicBlock, args []*Value) {
	in := f.newInstr(OpJump)
	in.Targets = []*BasicBlock{target}
	in.BlockArgs = [][]*Value{args}
	b.Emit(in)
	addPred(target, b)
}

// Branch terminates b with a conditional transfer to thenBlk or elseBlk
// based on cond, passing the respective block args.
func (f *Function) Branch(b *BasicBlock, cond *Value, thenBlk, elseBlk *BasicBlock, thenArgs, elseArgs []*Value) {
	in := f.newInstr(OpBranch)
	in.Args = []*Value{cond}
	in.Targets = []*BasicBlock{thenBlk, elseBlk}
	in.BlockArgs = [][]*Value{thenArgs, elseArgs}
	b.Emit(in)
	addPred(thenBlk, b)
	addPred(elseBlk, b)
}

// Return terminates b, yielding final as the function's result values.
func (f *Function) Return(b *BasicBlock, final []*Value) {
	in := f.newInstr(OpReturn)
	in.Args = final
	b.Emit(in)
}

// ConstInt emits a constant-int instruction in b and returns its result.
func (f *Function) ConstInt(b *BasicBlock, n int64) *Value {
	in := f.newInstr(OpConstInt)
	in.IntVal = n
	v := f.NewValue(types.Int())
	in.Results = []*Value{v}
	b.Emit(in)
	return v
}

func (f *Function) ConstFloat(b *BasicBlock, n float64) *Value {
	in := f.newInstr(OpConstFloat)
	in.FloatVal = n
	v := f.NewValue(types.Float())
	in.Results = []*Value{v}
	b.Emit(in)
	return v
}

func (f *Function) ConstString(b *BasicBlock, s string) *Value {
	in := f.newInstr(OpConstString)
	in.StrVal = s
	v := f.NewValue(types.StringT())
	in.Results = []*Value{v}
	b.Emit(in)
	return v
}

// Call emits a call to word with the given argument values and result
// types, returning the produced Values.
func (f *Function) Call(b *BasicBlock, word string, args []*Value, resultTypes []types.Type) []*Value {
	in := f.newInstr(OpCall)
	in.Word = word
	in.Args = args
	results := make([]*Value, len(resultTypes))
	for i, t := range resultTypes {
		results[i] = f.NewValue(t)
	}
	in.Results = results
	b.Emit(in)
	return results
}
