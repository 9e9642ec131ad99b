package optimize_test

import (
	"testing"

	"github.com/dekarrin/vorth/internal/callgraph"
	"github.com/dekarrin/vorth/internal/lower"
	"github.com/dekarrin/vorth/internal/optimize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func push(n int64) lower.Instr { return lower.Instr{Op: lower.OpPushInt, IntVal: n, Cost: 1} }
func op(o lower.OpCode) lower.Instr { return lower.Instr{Op: o, Cost: 1} }
func call(label string) lower.Instr { return lower.Instr{Op: lower.OpCall, Label: label, Cost: 5} }
func label(l string) lower.Instr    { return lower.Instr{Op: lower.OpLabel, Label: l} }

func Test_ConstantFold_FoldsAdjacentPushAdd(t *testing.T) {
	words := []lower.WordDef{
		{Name: "w", Body: []lower.Instr{push(2), push(3), op(lower.OpIAdd), op(lower.OpReturn)}},
	}
	out := optimize.ConstantFold(words)
	require.Len(t, out[0].Body, 2)
	assert.Equal(t, lower.OpPushInt, out[0].Body[0].Op)
	assert.Equal(t, int64(5), out[0].Body[0].IntVal)
}

func Test_ConstantFold_SkipsDivisionByZero(t *testing.T) {
	words := []lower.WordDef{
		{Name: "w", Body: []lower.Instr{push(5), push(0), op(lower.OpIDiv)}},
	}
	out := optimize.ConstantFold(words)
	assert.Len(t, out[0].Body, 3)
}

func Test_DeadWordElim_RemovesUnreachableWord(t *testing.T) {
	words := []lower.WordDef{
		{Name: "main", Body: []lower.Instr{call("helper")}},
		{Name: "helper", Body: nil},
		{Name: "orphan", Body: nil},
	}
	g := callgraph.Build(words)
	out := optimize.DeadWordElim(words, g, []string{"main"})
	require.Len(t, out, 2)
	names := map[string]bool{}
	for _, w := range out {
		names[w.Name] = true
	}
	assert.True(t, names["main"])
	assert.True(t, names["helper"])
	assert.False(t, names["orphan"])
}

func Test_DeadWordElim_NeverIncreasesInstrCount(t *testing.T) {
	words := []lower.WordDef{
		{Name: "main", Body: []lower.Instr{call("helper")}},
		{Name: "helper", Body: []lower.Instr{push(1)}},
		{Name: "orphan", Body: []lower.Instr{push(1), push(2), push(3)}},
	}
	before := 0
	for _, w := range words {
		before += len(w.Body)
	}
	g := callgraph.Build(words)
	out := optimize.DeadWordElim(words, g, []string{"main"})
	after := 0
	for _, w := range out {
		after += len(w.Body)
	}
	assert.LessOrEqual(t, after, before)
}

func Test_FuseSuperinstructions_DupMul(t *testing.T) {
	words := []lower.WordDef{
		{Name: "square", Body: []lower.Instr{op(lower.OpDup), op(lower.OpIMul), op(lower.OpReturn)}},
	}
	out := optimize.FuseSuperinstructions(words)
	require.Len(t, out[0].Body, 2)
	assert.Equal(t, lower.OpFusedDupMul, out[0].Body[0].Op)
}

func Test_Inline_NeverInlinesRecursiveWord(t *testing.T) {
	words := []lower.WordDef{
		{Name: "main", Body: []lower.Instr{call("factorial")}},
		{Name: "factorial", Body: []lower.Instr{label("factorial.entry"), call("factorial"), op(lower.OpReturn)}},
	}
	g := callgraph.Build(words)
	out := optimize.Inline(words, g, 3)
	var main lower.WordDef
	for _, w := range out {
		if w.Name == "main" {
			main = w
		}
	}
	sawCall := false
	for _, in := range main.Body {
		if in.Op == lower.OpCall && in.Label == "factorial" {
			sawCall = true
		}
	}
	assert.True(t, sawCall, "recursive word must stay a call, never inlined")
}

func Test_Inline_ExpandsStraightLineCallee(t *testing.T) {
	words := []lower.WordDef{
		{Name: "main", Body: []lower.Instr{call("addone"), op(lower.OpReturn)}},
		{Name: "addone", Body: []lower.Instr{label("addone.entry"), push(1), op(lower.OpIAdd), op(lower.OpReturn)}},
	}
	g := callgraph.Build(words)
	out := optimize.Inline(words, g, 3)
	var main lower.WordDef
	for _, w := range out {
		if w.Name == "main" {
			main = w
		}
	}
	sawCall := false
	for _, in := range main.Body {
		if in.Op == lower.OpCall {
			sawCall = true
		}
	}
	assert.False(t, sawCall, "straight-line callee within budget should be inlined away")
}

func Test_Pipeline_O3_ReachesFixedPoint(t *testing.T) {
	words := []lower.WordDef{
		{Name: "main", Body: []lower.Instr{push(2), push(3), op(lower.OpIAdd), op(lower.OpReturn)}},
	}
	p := optimize.NewPipeline(optimize.O3, []string{"main"})
	out1, stats1 := p.Run(words)
	out2, stats2 := p.Run(out1)
	assert.Equal(t, stats1.InstrCountAfter, stats2.InstrCountAfter)
	assert.Equal(t, len(out1[0].Body), len(out2[0].Body))
}

func Test_Pipeline_O0_LeavesWordsUnchanged(t *testing.T) {
	words := []lower.WordDef{
		{Name: "main", Body: []lower.Instr{push(2), push(3), op(lower.OpIAdd), op(lower.OpReturn)}},
	}
	p := optimize.NewPipeline(optimize.O0, []string{"main"})
	out, stats := p.Run(words)
	assert.Equal(t, len(words[0].Body), len(out[0].Body))
	assert.Equal(t, stats.InstrCountBefore, stats.InstrCountAfter)
}

func Test_Specialize_ClonesAndRewritesCallSite(t *testing.T) {
	words := []lower.WordDef{
		{Name: "identity", Body: []lower.Instr{label("identity.entry"), op(lower.OpReturn)}},
		{Name: "main", Body: []lower.Instr{call("identity"), op(lower.OpReturn)}},
	}
	out := optimize.Specialize(words, map[string][]string{"identity": {"int"}}, map[string]string{"main:0": "int"})
	names := map[string]bool{}
	for _, w := range out {
		names[w.Name] = true
	}
	assert.True(t, names["identity$int"])

	var main lower.WordDef
	for _, w := range out {
		if w.Name == "main" {
			main = w
		}
	}
	assert.Equal(t, "identity$int", main.Body[0].Label)
}

func Test_ReorderMemoryAccess_MarksRunsOfTwoOrMoreFetches(t *testing.T) {
	words := []lower.WordDef{
		{Name: "w", Body: []lower.Instr{op(lower.OpFetch), op(lower.OpFetch), op(lower.OpStore)}},
	}
	out := optimize.ReorderMemoryAccess(words)
	assert.True(t, out[0].Body[0].PrefetchHint)
	assert.True(t, out[0].Body[1].PrefetchHint)
	assert.False(t, out[0].Body[2].PrefetchHint)
}

func Test_ReorderMemoryAccess_SingleFetchNotMarked(t *testing.T) {
	words := []lower.WordDef{
		{Name: "w", Body: []lower.Instr{op(lower.OpFetch), op(lower.OpStore)}},
	}
	out := optimize.ReorderMemoryAccess(words)
	assert.False(t, out[0].Body[0].PrefetchHint)
}

func Test_AssignStackCache_ResetsAtLabel(t *testing.T) {
	words := []lower.WordDef{
		{Name: "w", Body: []lower.Instr{push(1), push(2), label("w.loop"), push(3)}},
	}
	out := optimize.AssignStackCache(words)
	assert.Equal(t, 0, out[0].Body[0].StackDepthHint)
	assert.Equal(t, 1, out[0].Body[1].StackDepthHint)
	assert.Equal(t, 0, out[0].Body[3].StackDepthHint)
}
