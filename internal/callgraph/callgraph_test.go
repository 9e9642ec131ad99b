package callgraph_test

import (
	"testing"

	"github.com/dekarrin/vorth/internal/callgraph"
	"github.com/dekarrin/vorth/internal/lower"
	"github.com/stretchr/testify/assert"
)

func call(label string) lower.Instr { return lower.Instr{Op: lower.OpCall, Label: label} }

func Test_Build_CountsCallSites(t *testing.T) {
	words := []lower.WordDef{
		{Name: "a", Body: []lower.Instr{call("b"), call("b"), call("c")}},
		{Name: "b", Body: nil},
		{Name: "c", Body: nil},
	}
	g := callgraph.Build(words)
	assert.Equal(t, 2, g.CallCount("a", "b"))
	assert.Equal(t, 1, g.CallCount("a", "c"))
}

func Test_RecursiveWords_DirectSelfRecursion(t *testing.T) {
	words := []lower.WordDef{
		{Name: "factorial", Body: []lower.Instr{call("factorial")}},
		{Name: "square", Body: []lower.Instr{call("DUP")}}, // DUP becomes a callee node, but square is on no cycle
	}
	g := callgraph.Build(words)
	rec := g.RecursiveWords()
	assert.True(t, rec["factorial"])
	assert.False(t, rec["square"])
}

func Test_RecursiveWords_MutualRecursion(t *testing.T) {
	words := []lower.WordDef{
		{Name: "isEven", Body: []lower.Instr{call("isOdd")}},
		{Name: "isOdd", Body: []lower.Instr{call("isEven")}},
	}
	g := callgraph.Build(words)
	rec := g.RecursiveWords()
	assert.True(t, rec["isEven"])
	assert.True(t, rec["isOdd"])
}

func Test_SCCs_AcyclicGraphHasSingletonComponents(t *testing.T) {
	words := []lower.WordDef{
		{Name: "a", Body: []lower.Instr{call("b")}},
		{Name: "b", Body: []lower.Instr{call("c")}},
		{Name: "c", Body: nil},
	}
	g := callgraph.Build(words)
	for _, comp := range g.SCCs() {
		assert.Len(t, comp, 1)
	}
}
