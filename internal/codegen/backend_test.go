package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_CallingConvention_PinsFiveRegistersInOrder(t *testing.T) {
	assert.Equal(t, []Register{RegDSP, RegTOS, RegNOS, Reg3OS, RegRSP}, CallingConvention)
}

func Test_Register_String(t *testing.T) {
	assert.Equal(t, "DSP", RegDSP.String())
	assert.Equal(t, "RSP", RegRSP.String())
}

func Test_Backends_SupportDisjointModes(t *testing.T) {
	direct := NewDirectBackend()
	llvm := NewLLVMBackend()

	assert.True(t, direct.Supports(ModeJIT))
	assert.False(t, direct.Supports(ModeAOT))

	assert.True(t, llvm.Supports(ModeAOT))
	assert.False(t, llvm.Supports(ModeJIT))
}
