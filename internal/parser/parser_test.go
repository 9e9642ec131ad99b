package parser

import (
	"strings"
	"testing"

	"github.com/dekarrin/vorth/internal/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, perr, lerr := Parse([]byte(src))
	require.Nil(t, lerr)
	require.Nil(t, perr)
	require.NotNil(t, prog)
	return prog
}

func Test_Parse_SquareDefinition(t *testing.T) {
	prog := mustParse(t, `: square ( n -- n^2 ) DUP * ;`)
	require.Len(t, prog.Definitions, 1)
	def := prog.Definitions[0]
	assert.Equal(t, "square", def.Name)
	require.NotNil(t, def.DeclaredEffect)
	assert.Equal(t, []string{"n"}, def.DeclaredEffect.Inputs)
	assert.Equal(t, []string{"n^2"}, def.DeclaredEffect.Outputs)
	require.Len(t, def.Body, 2)
}

func Test_Parse_EmptyDefinition(t *testing.T) {
	prog := mustParse(t, `: x ;`)
	require.Len(t, prog.Definitions, 1)
	assert.Empty(t, prog.Definitions[0].Body)
}

func Test_Parse_IfThen(t *testing.T) {
	prog := mustParse(t, `: abs ( n -- n ) DUP 0 < IF -1 * THEN ;`)
	def := prog.Definitions[0]
	var found bool
	for _, n := range def.Body {
		if ifNode, ok := n.(*ast.If); ok {
			found = true
			assert.Len(t, ifNode.Then, 2)
			assert.Nil(t, ifNode.Else)
		}
	}
	assert.True(t, found, "expected an If node in body")
}

func Test_Parse_Recurse(t *testing.T) {
	prog := mustParse(t, `: factorial ( n -- n! ) DUP 2 < IF DROP 1 ELSE DUP 1 - RECURSE * THEN ;`)
	def := prog.Definitions[0]
	ifNode := def.Body[len(def.Body)-1].(*ast.If)
	var hasRecurse bool
	for _, n := range ifNode.Else {
		if _, ok := n.(*ast.Recurse); ok {
			hasRecurse = true
		}
	}
	assert.True(t, hasRecurse)
}

func Test_Parse_ImmediateFlag(t *testing.T) {
	prog := mustParse(t, `: noop ; IMMEDIATE`)
	assert.True(t, prog.Definitions[0].Immediate)
}

func Test_Parse_ConstantConsumesPrecedingLiteral(t *testing.T) {
	prog := mustParse(t, `5 CONSTANT FIVE`)
	require.Len(t, prog.TopLevel, 1)
	c, ok := prog.TopLevel[0].(*ast.Constant)
	require.True(t, ok)
	assert.Equal(t, "FIVE", c.Name)
	assert.Equal(t, int64(5), c.Value.Int)
}

func Test_Parse_ConstantWithoutValue_IsError(t *testing.T) {
	_, perr, _ := Parse([]byte(`CONSTANT FIVE`))
	require.NotNil(t, perr)
	assert.Equal(t, ConstantWithoutValue, perr.Kind)
}

func Test_Parse_VariableDeclaration(t *testing.T) {
	prog := mustParse(t, `VARIABLE counter`)
	v, ok := prog.TopLevel[0].(*ast.Variable)
	require.True(t, ok)
	assert.Equal(t, "counter", v.Name)
}

func Test_Parse_UnterminatedIf_CitesOpenerNotEOF(t *testing.T) {
	_, perr, _ := Parse([]byte(`: bad DUP IF DROP ;`))
	require.NotNil(t, perr)
	assert.Equal(t, UnterminatedIf, perr.Kind)
	require.NotNil(t, perr.Opener)
	assert.Equal(t, 1, perr.Opener.Line)
}

func Test_Parse_UnterminatedDefinition(t *testing.T) {
	_, perr, _ := Parse([]byte(`: bad DUP DUP`))
	require.NotNil(t, perr)
	assert.Equal(t, UnterminatedDefinition, perr.Kind)
}

func Test_Parse_BeginUntil(t *testing.T) {
	prog := mustParse(t, `: spin BEGIN DUP 1 - DUP 0 = UNTIL ;`)
	def := prog.Definitions[0]
	_, ok := def.Body[len(def.Body)-1].(*ast.BeginUntil)
	assert.True(t, ok)
}

func Test_Parse_BeginWhileRepeat(t *testing.T) {
	prog := mustParse(t, `: spin BEGIN DUP WHILE 1 - REPEAT ;`)
	def := prog.Definitions[0]
	_, ok := def.Body[len(def.Body)-1].(*ast.BeginWhileRepeat)
	assert.True(t, ok)
}

func Test_Parse_DoLoopAndPlusLoop(t *testing.T) {
	prog := mustParse(t, `: tenloop 10 0 DO I LOOP ;`)
	def := prog.Definitions[0]
	dl, ok := def.Body[len(def.Body)-1].(*ast.DoLoop)
	require.True(t, ok)
	assert.Equal(t, ast.Loop, dl.StepVariant)

	prog2 := mustParse(t, `: stepped 10 0 DO 1 +LOOP ;`)
	dl2 := prog2.Definitions[0].Body[len(prog2.Definitions[0].Body)-1].(*ast.DoLoop)
	assert.Equal(t, ast.PlusLoop, dl2.StepVariant)
}

func Test_Parse_DeepIfNesting_NoOverflow(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(": deep ")
	for i := 0; i < 150; i++ {
		sb.WriteString("1 IF ")
	}
	for i := 0; i < 150; i++ {
		sb.WriteString("THEN ")
	}
	sb.WriteString(";")

	prog := mustParse(t, sb.String())
	require.Len(t, prog.Definitions, 1)
}

func Test_Parse_PrettyPrintRoundTrip(t *testing.T) {
	prog := mustParse(t, `: square ( n -- n^2 ) DUP * ;`)
	printed := prog.String()
	reparsed := mustParse(t, printed)
	assert.True(t, prog.Equal(reparsed), "expected round-trip AST equality:\n%s", printed)
}
