package ssa

import (
	"fmt"

	"github.com/dekarrin/vorth/internal/ast"
	"github.com/dekarrin/vorth/internal/types"
)

// WordEffects is the resolved per-word stack effect table produced by
// internal/types' Inferencer, keyed by word name.
type WordEffects map[string]types.StackEffect

// Builder lowers one already-type-checked definition into SSA, per spec
// sec 4.4. Block parameters stand in for phi nodes at every merge point
// (IF/ELSE join, loop header), placed unconditionally rather than only
// where a dominance-frontier computation says a value actually needs one.
// The redundant ones are never removed from the SSA; internal/lower drops
// all block parameters when it linearizes, which keeps this builder simple.
type Builder struct {
	f       *Function
	effects WordEffects
	gen     *types.VarGen

	// loopIndex tracks, for nested DO loops, the current block-param Value
	// representing "I" (innermost) down to "J" (one level out).
	loopIndex []*Value

	selfEffect types.StackEffect
}

func NewBuilder(effects WordEffects, gen *types.VarGen) *Builder {
	return &Builder{effects: effects, gen: gen}
}

// Build constructs the SSA function for def, whose effect must already be
// present in the Builder's WordEffects table (i.e. internal/types has run).
func (b *Builder) Build(def *ast.Definition) (*Function, error) {
	eff, ok := b.effects[def.Name]
	if !ok {
		return nil, fmt.Errorf("ssa: no inferred stack effect for %q", def.Name)
	}

	b.f = NewFunction(def.Name)
	b.selfEffect = eff
	cur := b.f.Entry
	stack := make([]*Value, len(eff.Inputs))
	for i, t := range eff.Inputs {
		stack[i] = b.f.AddParam(cur, t)
	}

	final, err := b.emitBody(cur, stack, def.Body, nil)
	if err != nil {
		return nil, err
	}
	b.f.Return(final.block, final.stack)

	return b.f, nil
}

// cursor bundles the current insertion block with the stack state reaching
// it, since every emit* helper below both mutates and relocates both.
type cursor struct {
	block *BasicBlock
	stack []*Value
}

func (b *Builder) pop(c *cursor) *Value {
	n := len(c.stack)
	v := c.stack[n-1]
	c.stack = c.stack[:n-1]
	return v
}

func (b *Builder) push(c *cursor, v *Value) {
	c.stack = append(c.stack, v)
}

// emitBody threads a cursor through body's nodes, returning the final
// cursor position. exitTarget, if non-nil, is the block EXIT should jump
// to (used when emitBody is itself inside a definition whose fallthrough
// point has already been fixed, e.g. nested inside a branch).
func (b *Builder) emitBody(block *BasicBlock, stack []*Value, body []ast.Node, exitTarget *cursor) (*cursor, error) {
	c := &cursor{block: block, stack: stack}
	for _, n := range body {
		nc, err := b.emitNode(c, n, exitTarget)
		if err != nil {
			return nil, err
		}
		c = nc
	}
	return c, nil
}

func (b *Builder) emitNode(c *cursor, n ast.Node, exitTarget *cursor) (*cursor, error) {
	switch v := n.(type) {
	case *ast.Literal:
		var val *Value
		switch v.Kind {
		case ast.IntLiteral:
			val = b.f.ConstInt(c.block, v.Int)
		case ast.FloatLiteral:
			val = b.f.ConstFloat(c.block, v.Float)
		case ast.StringLiteral:
			val = b.f.ConstString(c.block, v.Str)
		}
		b.push(c, val)
		return c, nil

	case *ast.WordRef:
		if len(b.loopIndex) > 0 && v.Name == "I" {
			b.push(c, b.loopIndex[len(b.loopIndex)-1])
			return c, nil
		}
		if len(b.loopIndex) > 1 && v.Name == "J" {
			b.push(c, b.loopIndex[len(b.loopIndex)-2])
			return c, nil
		}
		eff, ok := b.effects[v.Name]
		if !ok {
			eff, ok = types.PrimitiveTable(v.Name, b.gen)
		}
		if !ok {
			return nil, fmt.Errorf("ssa: unresolved word %q (sema should have caught this)", v.Name)
		}
		args := make([]*Value, len(eff.Inputs))
		for i := len(eff.Inputs) - 1; i >= 0; i-- {
			args[i] = b.pop(c)
		}
		results := b.f.Call(c.block, v.Name, args, eff.Outputs)
		for _, r := range results {
			b.push(c, r)
		}
		return c, nil

	case *ast.Recurse:
		eff := b.selfEffect
		args := make([]*Value, len(eff.Inputs))
		for i := len(eff.Inputs) - 1; i >= 0; i-- {
			args[i] = b.pop(c)
		}
		results := b.f.Call(c.block, b.f.Name, args, eff.Outputs)
		for _, r := range results {
			b.push(c, r)
		}
		return c, nil

	case *ast.Exit:
		if exitTarget != nil {
			b.f.Jump(c.block, exitTarget.block, c.stack)
		} else {
			b.f.Return(c.block, c.stack)
		}
		dead := b.f.NewBlock("after.exit")
		return &cursor{block: dead, stack: c.stack}, nil

	case *ast.Variable, *ast.Constant:
		return c, nil

	case *ast.If:
		return b.emitIf(c, v, exitTarget)

	case *ast.BeginUntil:
		return b.emitBeginUntil(c, v, exitTarget)

	case *ast.BeginWhileRepeat:
		return b.emitBeginWhileRepeat(c, v, exitTarget)

	case *ast.DoLoop:
		return b.emitDoLoop(c, v, exitTarget)

	default:
		return c, nil
	}
}

func cloneStack(s []*Value) []*Value {
	cp := make([]*Value, len(s))
	copy(cp, s)
	return cp
}

func (b *Builder) emitIf(c *cursor, n *ast.If, exitTarget *cursor) (*cursor, error) {
	cond := b.pop(c)

	thenBlk := b.f.NewBlock("if.then")
	mergeBlk := b.f.NewBlock("if.merge")

	if n.Else == nil {
		b.f.Branch(c.block, cond, thenBlk, mergeBlk, nil, cloneStack(c.stack))
		mergeParams := make([]*Value, len(c.stack))
		for i, v := range c.stack {
			mergeParams[i] = b.f.AddParam(mergeBlk, v.Type)
		}
		thenFinal, err := b.emitBody(thenBlk, cloneStack(c.stack), n.Then, exitTarget)
		if err != nil {
			return nil, err
		}
		b.f.Jump(thenFinal.block, mergeBlk, thenFinal.stack)
		return &cursor{block: mergeBlk, stack: mergeParams}, nil
	}

	elseBlk := b.f.NewBlock("if.else")
	b.f.Branch(c.block, cond, thenBlk, elseBlk, nil, nil)

	thenFinal, err := b.emitBody(thenBlk, cloneStack(c.stack), n.Then, exitTarget)
	if err != nil {
		return nil, err
	}
	elseFinal, err := b.emitBody(elseBlk, cloneStack(c.stack), n.Else, exitTarget)
	if err != nil {
		return nil, err
	}

	mergeParams := make([]*Value, len(thenFinal.stack))
	for i, v := range thenFinal.stack {
		mergeParams[i] = b.f.AddParam(mergeBlk, v.Type)
	}
	b.f.Jump(thenFinal.block, mergeBlk, thenFinal.stack)
	b.f.Jump(elseFinal.block, mergeBlk, elseFinal.stack)

	return &cursor{block: mergeBlk, stack: mergeParams}, nil
}

func (b *Builder) emitBeginUntil(c *cursor, n *ast.BeginUntil, exitTarget *cursor) (*cursor, error) {
	header := b.f.NewBlock("until.header")
	headerParams := make([]*Value, len(c.stack))
	for i, v := range c.stack {
		headerParams[i] = b.f.AddParam(header, v.Type)
	}
	b.f.Jump(c.block, header, c.stack)

	bodyFinal, err := b.emitBody(header, cloneStack(headerParams), n.Body, exitTarget)
	if err != nil {
		return nil, err
	}
	cond := b.pop(bodyFinal)

	exit := b.f.NewBlock("until.exit")
	exitParams := make([]*Value, len(bodyFinal.stack))
	for i, v := range bodyFinal.stack {
		exitParams[i] = b.f.AddParam(exit, v.Type)
	}
	b.f.Branch(bodyFinal.block, cond, exit, header, exitParams, bodyFinal.stack)

	return &cursor{block: exit, stack: exitParams}, nil
}

func (b *Builder) emitBeginWhileRepeat(c *cursor, n *ast.BeginWhileRepeat, exitTarget *cursor) (*cursor, error) {
	header := b.f.NewBlock("while.header")
	headerParams := make([]*Value, len(c.stack))
	for i, v := range c.stack {
		headerParams[i] = b.f.AddParam(header, v.Type)
	}
	b.f.Jump(c.block, header, c.stack)

	condFinal, err := b.emitBody(header, cloneStack(headerParams), n.Cond, exitTarget)
	if err != nil {
		return nil, err
	}
	cond := b.pop(condFinal)

	bodyBlk := b.f.NewBlock("while.body")
	exit := b.f.NewBlock("while.exit")
	exitParams := make([]*Value, len(condFinal.stack))
	for i, v := range condFinal.stack {
		exitParams[i] = b.f.AddParam(exit, v.Type)
	}
	b.f.Branch(condFinal.block, cond, bodyBlk, exit, cloneStack(condFinal.stack), condFinal.stack)

	bodyFinal, err := b.emitBody(bodyBlk, cloneStack(condFinal.stack), n.Body, exitTarget)
	if err != nil {
		return nil, err
	}
	b.f.Jump(bodyFinal.block, header, bodyFinal.stack)

	return &cursor{block: exit, stack: exitParams}, nil
}

// zeroValue emits a block-local constant of t's kind, used as the initial
// value fed into a DO/LOOP header's growth-accumulator params on the
// zero-iteration path, before any real value of that type exists yet.
func zeroValue(b *Builder, blk *BasicBlock, t types.Type) *Value {
	switch t.Kind {
	case types.KindFloat:
		return b.f.ConstFloat(blk, 0)
	case types.KindString:
		return b.f.ConstString(blk, "")
	default:
		return b.f.ConstInt(blk, 0)
	}
}

// emitDoLoop builds DO/LOOP and DO/+LOOP. A body is allowed to leave more on
// the stack than it started with (spec sec 8's loop10: a bare I pushes one
// more Int every pass) -- internal/types' processDoLoop already permits
// this, requiring only that the body not shrink below its invariant depth.
// Only that invariant prefix is threaded back around the header's phi on
// the loop's back edge, since it's the only part later iterations actually
// read; growth beyond it is exposed to the exit block as its own set of
// header-carried params (one representative value per grown slot, seeded
// with a zero value before the first iteration and overwritten by the most
// recent iteration's value on every trip around). internal/lower's
// Linearize replays body's real instructions the number of times the loop
// actually executes and never consults block-parameter arities, so this is
// bookkeeping to keep the SSA's own stack model internally consistent, not
// a constraint on the instructions actually emitted.
func (b *Builder) emitDoLoop(c *cursor, n *ast.DoLoop, exitTarget *cursor) (*cursor, error) {
	start := b.pop(c)
	limit := b.pop(c)

	header := b.f.NewBlock("do.header")
	headerParams := make([]*Value, len(c.stack))
	for i, v := range c.stack {
		headerParams[i] = b.f.AddParam(header, v.Type)
	}
	idxParam := b.f.AddParam(header, types.Int())

	body := b.f.NewBlock("do.body")
	b.loopIndex = append(b.loopIndex, idxParam)
	bodyFinal, err := b.emitBody(body, cloneStack(headerParams), n.Body, exitTarget)
	if err != nil {
		return nil, err
	}
	b.loopIndex = b.loopIndex[:len(b.loopIndex)-1]

	// +LOOP's step amount is consumed off the top of whatever the body
	// leaves, before what remains is classified as loop-carried invariant
	// vs. per-iteration growth.
	var step *Value
	if n.StepVariant == ast.PlusLoop {
		step = b.pop(bodyFinal)
	} else {
		step = b.f.ConstInt(bodyFinal.block, 1)
	}

	invariantLen := len(headerParams)
	growth := bodyFinal.stack[invariantLen:]
	growthParams := make([]*Value, len(growth))
	for i, g := range growth {
		growthParams[i] = b.f.AddParam(header, g.Type)
	}

	initArgs := append(cloneStack(c.stack), start)
	for _, g := range growth {
		initArgs = append(initArgs, zeroValue(b, c.block, g.Type))
	}
	b.f.Jump(c.block, header, initArgs)

	cmpResults := b.f.Call(header, "<", []*Value{idxParam, limit}, []types.Type{types.Bool()})

	nextIdx := b.f.Call(bodyFinal.block, "+", []*Value{idxParam, step}, []types.Type{types.Int()})
	backArgs := append(cloneStack(bodyFinal.stack[:invariantLen]), nextIdx[0])
	backArgs = append(backArgs, growth...)
	b.f.Jump(bodyFinal.block, header, backArgs)

	exit := b.f.NewBlock("do.exit")
	exitParams := make([]*Value, len(headerParams))
	for i, v := range headerParams {
		exitParams[i] = b.f.AddParam(exit, v.Type)
	}
	exitArgs := cloneStack(headerParams)
	for i, g := range growth {
		exitParams = append(exitParams, b.f.AddParam(exit, g.Type))
		exitArgs = append(exitArgs, growthParams[i])
	}
	b.f.Branch(header, cmpResults[0], body, exit, nil, exitArgs)

	return &cursor{block: exit, stack: exitParams}, nil
}
