package codegen

import (
	"testing"

	"github.com/dekarrin/vorth/internal/lower"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func instr(op lower.OpCode) lower.Instr { return lower.Instr{Op: op} }

func pushInt(n int64) lower.Instr { return lower.Instr{Op: lower.OpPushInt, IntVal: n} }

func Test_DirectBackend_Supports_JITOnly(t *testing.T) {
	b := NewDirectBackend()
	assert.True(t, b.Supports(ModeJIT))
	assert.False(t, b.Supports(ModeAOT))
}

func Test_DirectBackend_Emit_RejectsAOT(t *testing.T) {
	b := NewDirectBackend()
	_, err := b.Emit(nil, "main", ModeAOT)
	assert.Error(t, err)
}

func Test_DirectBackend_Emit_RejectsMissingEntry(t *testing.T) {
	b := NewDirectBackend()
	_, err := b.Emit(nil, "main", ModeJIT)
	assert.Error(t, err)
}

func Test_DirectBackend_Thunk_RunsArithmetic(t *testing.T) {
	words := []lower.WordDef{
		{
			Name: "main",
			Body: []lower.Instr{
				pushInt(2),
				pushInt(3),
				instr(lower.OpIAdd),
				pushInt(4),
				instr(lower.OpIMul),
				instr(lower.OpReturn),
			},
		},
	}

	b := NewDirectBackend()
	art, err := b.Emit(words, "main", ModeJIT)
	require.NoError(t, err)
	require.NotNil(t, art.Thunk)

	out := art.Thunk(nil)
	require.Len(t, out, 1)
	assert.Equal(t, int64(20), out[0])
}

func Test_DirectBackend_Thunk_CallsOtherWord(t *testing.T) {
	words := []lower.WordDef{
		{
			Name: "double",
			Body: []lower.Instr{
				instr(lower.OpDup),
				instr(lower.OpIAdd),
				instr(lower.OpReturn),
			},
		},
		{
			Name: "main",
			Body: []lower.Instr{
				pushInt(21),
				{Op: lower.OpCall, Label: "double"},
				instr(lower.OpReturn),
			},
		},
	}

	b := NewDirectBackend()
	art, err := b.Emit(words, "main", ModeJIT)
	require.NoError(t, err)

	out := art.Thunk(nil)
	require.Len(t, out, 1)
	assert.Equal(t, int64(42), out[0])
}

func Test_DirectBackend_Thunk_LoopsWithJumpIfZero(t *testing.T) {
	// counts down a value pushed by the caller to zero, leaving 0 on the stack.
	words := []lower.WordDef{
		{
			Name: "main",
			Body: []lower.Instr{
				{Op: lower.OpLabel, Label: "loop"},
				instr(lower.OpDup),
				{Op: lower.OpJumpIfZero, Label: "done"},
				pushInt(1),
				instr(lower.OpISub),
				{Op: lower.OpJump, Label: "loop"},
				{Op: lower.OpLabel, Label: "done"},
				instr(lower.OpReturn),
			},
		},
	}

	b := NewDirectBackend()
	art, err := b.Emit(words, "main", ModeJIT)
	require.NoError(t, err)

	out := art.Thunk([]int64{5})
	require.Len(t, out, 1)
	assert.Equal(t, int64(0), out[0])
}
