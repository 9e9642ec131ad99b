package ssa_test

import (
	"testing"

	"github.com/dekarrin/vorth/internal/parser"
	"github.com/dekarrin/vorth/internal/ssa"
	"github.com/dekarrin/vorth/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFirstDef(t *testing.T, src string) (*ssa.Function, ssa.WordEffects) {
	t.Helper()
	prog, perr, lerr := parser.Parse([]byte(src))
	require.Nil(t, lerr)
	require.Nil(t, perr)

	inf := types.NewInferencer()
	errs := inf.InferProgram(prog)
	require.Empty(t, errs)

	effects := make(ssa.WordEffects)
	for _, def := range prog.Definitions {
		eff, ok := inf.WordEffect(def.Name)
		require.True(t, ok)
		effects[def.Name] = eff
	}

	b := ssa.NewBuilder(effects, &types.VarGen{})
	f, err := b.Build(prog.Definitions[0])
	require.Nil(t, err)
	return f, effects
}

func Test_Build_Square_SingleBlock(t *testing.T) {
	f, _ := buildFirstDef(t, `: square ( n -- n^2 ) DUP * ;`)
	assert.Equal(t, "square", f.Name)
	// DUP * with no control flow should all live in the entry block.
	assert.Len(t, f.Blocks, 1)
	assert.Len(t, f.Entry.Params, 1)
}

func Test_Build_IfThen_CreatesMergeBlockWithParams(t *testing.T) {
	f, _ := buildFirstDef(t, `: abs ( n -- n ) DUP 0 < IF -1 * THEN ;`)
	assert.Greater(t, len(f.Blocks), 1)

	var merge *ssa.BasicBlock
	for _, b := range f.Blocks {
		if b.Name == "if.merge" {
			merge = b
		}
	}
	require.NotNil(t, merge)
	assert.Len(t, merge.Params, 1)
	assert.Len(t, merge.Preds, 2)
}

func Test_Build_Factorial_Recursive(t *testing.T) {
	f, _ := buildFirstDef(t, `: factorial ( n -- n! ) DUP 2 < IF DROP 1 ELSE DUP 1 - RECURSE * THEN ;`)
	var sawRecurseCall bool
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			if in.Op == ssa.OpCall && in.Word == "factorial" {
				sawRecurseCall = true
			}
		}
	}
	assert.True(t, sawRecurseCall)
}

func Test_Build_DoLoop_HeaderHasIndexParam(t *testing.T) {
	f, _ := buildFirstDef(t, `: tenloop ( -- ) 10 0 DO I DROP LOOP ;`)
	var header *ssa.BasicBlock
	for _, b := range f.Blocks {
		if b.Name == "do.header" {
			header = b
		}
	}
	require.NotNil(t, header)
	assert.NotEmpty(t, header.Params)
}

func Test_Build_DoLoop_AccumulatingBody_BackEdgeMatchesHeaderArity(t *testing.T) {
	f, _ := buildFirstDef(t, `: loop10 10 0 DO I LOOP ;`)

	var header *ssa.BasicBlock
	for _, b := range f.Blocks {
		if b.Name == "do.header" {
			header = b
		}
	}
	require.NotNil(t, header)

	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			if in.Op != ssa.OpJump {
				continue
			}
			if in.Targets[0] != header {
				continue
			}
			assert.Len(t, in.BlockArgs[0], len(header.Params),
				"every jump into do.header must supply exactly one argument per header param")
		}
	}
}

func Test_Build_DoLoop_AccumulatingBody_ExitExposesGrowth(t *testing.T) {
	f, _ := buildFirstDef(t, `: loop10 10 0 DO I LOOP ;`)

	var exit *ssa.BasicBlock
	for _, b := range f.Blocks {
		if b.Name == "do.exit" {
			exit = b
		}
	}
	require.NotNil(t, exit)
	assert.Len(t, exit.Params, 1)
}

func Test_Dominators_StraightLine(t *testing.T) {
	f, _ := buildFirstDef(t, `: square ( n -- n^2 ) DUP * ;`)
	dt := ssa.ComputeDominators(f)
	assert.True(t, dt.Dominates(f.Entry.ID, f.Entry.ID))
}

func Test_Dominators_IfMergeDominatedByEntry(t *testing.T) {
	f, _ := buildFirstDef(t, `: abs ( n -- n ) DUP 0 < IF -1 * THEN ;`)
	dt := ssa.ComputeDominators(f)
	for _, b := range f.Blocks {
		assert.True(t, dt.Dominates(f.Entry.ID, b.ID), "entry must dominate block %q", b.Name)
	}
}

func Test_DominanceFrontier_MergeBlockInEntryFrontier(t *testing.T) {
	f, _ := buildFirstDef(t, `: abs ( n -- n ) DUP 0 < IF -1 * THEN ;`)
	dt := ssa.ComputeDominators(f)
	df := ssa.DominanceFrontier(f, dt)

	var thenID int
	for _, b := range f.Blocks {
		if b.Name == "if.then" {
			thenID = b.ID
		}
	}
	frontier := df[thenID]
	var foundMerge bool
	for _, id := range frontier {
		for _, b := range f.Blocks {
			if b.ID == id && b.Name == "if.merge" {
				foundMerge = true
			}
		}
	}
	assert.True(t, foundMerge)
}
