package lower_test

import (
	"testing"

	"github.com/dekarrin/vorth/internal/lower"
	"github.com/dekarrin/vorth/internal/parser"
	"github.com/dekarrin/vorth/internal/ssa"
	"github.com/dekarrin/vorth/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lowerFirstDef(t *testing.T, src string) lower.WordDef {
	t.Helper()
	prog, perr, lerr := parser.Parse([]byte(src))
	require.Nil(t, lerr)
	require.Nil(t, perr)

	inf := types.NewInferencer()
	require.Empty(t, inf.InferProgram(prog))

	effects := make(ssa.WordEffects)
	wordTypes := make(map[string]types.StackEffect)
	for _, def := range prog.Definitions {
		eff, ok := inf.WordEffect(def.Name)
		require.True(t, ok)
		effects[def.Name] = eff
		wordTypes[def.Name] = eff
	}

	b := ssa.NewBuilder(effects, &types.VarGen{})
	f, err := b.Build(prog.Definitions[0])
	require.Nil(t, err)

	return lower.Linearize(f, wordTypes)
}

func Test_Linearize_Square_HasDupAndMul(t *testing.T) {
	wd := lowerFirstDef(t, `: square ( n -- n^2 ) DUP * ;`)
	var sawDup, sawMul bool
	for _, in := range wd.Body {
		if in.Op == lower.OpDup {
			sawDup = true
		}
		if in.Op == lower.OpIMul {
			sawMul = true
		}
	}
	assert.True(t, sawDup)
	assert.True(t, sawMul)
}

func Test_Linearize_IfThen_HasJumpIfZero(t *testing.T) {
	wd := lowerFirstDef(t, `: abs ( n -- n ) DUP 0 < IF -1 * THEN ;`)
	var sawJZ, sawRet bool
	for _, in := range wd.Body {
		if in.Op == lower.OpJumpIfZero {
			sawJZ = true
		}
		if in.Op == lower.OpReturn {
			sawRet = true
		}
	}
	assert.True(t, sawJZ)
	assert.True(t, sawRet)
}

func Test_Linearize_EveryJumpTargetHasMatchingLabel(t *testing.T) {
	wd := lowerFirstDef(t, `: tenloop ( -- ) 10 0 DO I DROP LOOP ;`)
	labels := map[string]bool{}
	for _, in := range wd.Body {
		if in.Op == lower.OpLabel {
			labels[in.Label] = true
		}
	}
	for _, in := range wd.Body {
		switch in.Op {
		case lower.OpJump, lower.OpJumpIfZero, lower.OpJumpIfNotZero:
			assert.Truef(t, labels[in.Label], "jump target %q has no matching label", in.Label)
		}
	}
}
