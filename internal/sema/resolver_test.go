package sema_test

import (
	"testing"

	"github.com/dekarrin/vorth/internal/parser"
	"github.com/dekarrin/vorth/internal/sema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Resolve_UndefinedWord_Flagged(t *testing.T) {
	prog, perr, lerr := parser.Parse([]byte(`: square ( n -- n^2 ) DOOP * ;`))
	require.Nil(t, lerr)
	require.Nil(t, perr)

	r := sema.NewResolver(sema.RedefineWarn)
	r.Resolve(prog)

	require.Len(t, r.Errors(), 1)
	assert.Equal(t, sema.UndefinedWord, r.Errors()[0].Kind)
	assert.Equal(t, "DOOP", r.Errors()[0].Word)
}

func Test_Resolve_UndefinedWord_SuggestsCloseMatch(t *testing.T) {
	prog, _, _ := parser.Parse([]byte(`: foo ( n -- n ) DUUP ;`))
	r := sema.NewResolver(sema.RedefineWarn)
	r.Resolve(prog)

	require.Len(t, r.Errors(), 1)
	assert.Contains(t, r.Errors()[0].Candidates, "DUP")
}

func Test_Resolve_KnownWordsNotFlagged(t *testing.T) {
	prog, _, _ := parser.Parse([]byte(`
		: square ( n -- n^2 ) DUP * ;
		5 square DROP
	`))
	r := sema.NewResolver(sema.RedefineWarn)
	r.Resolve(prog)
	assert.Empty(t, r.Errors())
}

func Test_Resolve_Redefinition_WarnPolicy(t *testing.T) {
	prog, _, _ := parser.Parse([]byte(`
		: dbl ( n -- n*2 ) DUP + ;
		: dbl ( n -- n*2 ) 2 * ;
	`))
	r := sema.NewResolver(sema.RedefineWarn)
	r.Resolve(prog)
	assert.Empty(t, r.Errors())
	require.Len(t, r.Warnings(), 1)
	assert.Equal(t, "dbl", r.Warnings()[0].Word)
}

func Test_Resolve_Redefinition_ErrorPolicy(t *testing.T) {
	prog, _, _ := parser.Parse([]byte(`
		: dbl ( n -- n*2 ) DUP + ;
		: dbl ( n -- n*2 ) 2 * ;
	`))
	r := sema.NewResolver(sema.RedefineError)
	r.Resolve(prog)
	require.Len(t, r.Errors(), 1)
	assert.Equal(t, sema.Redefined, r.Errors()[0].Kind)
}

func Test_Resolve_Redefinition_ShadowPolicy_Silent(t *testing.T) {
	prog, _, _ := parser.Parse([]byte(`
		: dbl ( n -- n*2 ) DUP + ;
		: dbl ( n -- n*2 ) 2 * ;
	`))
	r := sema.NewResolver(sema.RedefineShadow)
	r.Resolve(prog)
	assert.Empty(t, r.Errors())
	assert.Empty(t, r.Warnings())
}

func Test_Resolve_ConstantsAndVariablesKnown(t *testing.T) {
	prog, _, _ := parser.Parse([]byte(`
		5 CONSTANT FIVE
		VARIABLE counter
		FIVE counter !
	`))
	r := sema.NewResolver(sema.RedefineWarn)
	r.Resolve(prog)
	assert.Empty(t, r.Errors())
}
