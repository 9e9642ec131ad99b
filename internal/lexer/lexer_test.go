package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_All_WordsAndPunctuation(t *testing.T) {
	toks, err := All([]byte(`: square ( n -- n^2 ) DUP * ;`))
	assert.Nil(t, err)

	var kinds []Kind
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}

	assert.Equal(t, []Kind{
		KindColon, KindWord, KindStackEffectComment, KindWord, KindWord, KindSemicolon, KindEOF,
	}, kinds)
}

func Test_All_StackEffectComment_ParsesInputsOutputs(t *testing.T) {
	toks, err := All([]byte(`( a b -- c )`))
	assert.Nil(t, err)
	assert.Equal(t, KindStackEffectComment, toks[0].Kind)
	assert.Equal(t, []string{"a", "b"}, toks[0].StackEffect.Inputs)
	assert.Equal(t, []string{"c"}, toks[0].StackEffect.Outputs)
}

func Test_All_PlainParenComment_NotStackEffect(t *testing.T) {
	toks, err := All([]byte(`( just a note )`))
	assert.Nil(t, err)
	assert.Equal(t, KindParenComment, toks[0].Kind)
}

func Test_All_NestedParenComment(t *testing.T) {
	toks, err := All([]byte(`( outer ( inner ) still outer ) DUP`))
	assert.Nil(t, err)
	assert.Equal(t, KindParenComment, toks[0].Kind)
	assert.Equal(t, KindWord, toks[1].Kind)
}

func Test_All_UnterminatedParenComment(t *testing.T) {
	_, err := All([]byte(`( never closes`))
	assert.NotNil(t, err)
	assert.Equal(t, UnterminatedComment, err.Kind)
}

func Test_All_LineComment(t *testing.T) {
	toks, err := All([]byte("\\ this is a note\nDUP"))
	assert.Nil(t, err)
	assert.Equal(t, KindLineComment, toks[0].Kind)
	assert.Equal(t, "this is a note", toks[0].Text)
	assert.Equal(t, KindWord, toks[1].Kind)
}

func Test_All_StringLiteral_Escapes(t *testing.T) {
	toks, err := All([]byte(`." hi\n\tthere\\\"" `))
	assert.Nil(t, err)
	assert.Equal(t, KindString, toks[0].Kind)
	assert.Equal(t, "hi\n\tthere\\\"", toks[0].StringVal)
}

func Test_All_UnterminatedString(t *testing.T) {
	_, err := All([]byte(`." no closing quote`))
	assert.NotNil(t, err)
	assert.Equal(t, UnterminatedString, err.Kind)
}

func Test_All_IntegerBoundaries(t *testing.T) {
	toks, err := All([]byte(`-9223372036854775808 9223372036854775807`))
	assert.Nil(t, err)
	assert.Equal(t, KindInt, toks[0].Kind)
	assert.Equal(t, int64(-9223372036854775808), toks[0].IntVal)
	assert.Equal(t, KindInt, toks[1].Kind)
	assert.Equal(t, int64(9223372036854775807), toks[1].IntVal)
}

func Test_All_FloatLiterals(t *testing.T) {
	toks, err := All([]byte(`1.5 .5 5. 5e3 5.0e-2`))
	assert.Nil(t, err)
	for i, tk := range toks[:5] {
		assert.Equalf(t, KindFloat, tk.Kind, "token %d (%q)", i, tk.Text)
	}
}

func Test_All_DigitLeadingWordsAreWords(t *testing.T) {
	toks, err := All([]byte(`2dup 2>r`))
	assert.Nil(t, err)
	assert.Equal(t, KindWord, toks[0].Kind)
	assert.Equal(t, KindWord, toks[1].Kind)
}

func Test_All_ReservedWords(t *testing.T) {
	toks, err := All([]byte(`IF THEN ELSE BEGIN UNTIL WHILE REPEAT DO LOOP +LOOP VARIABLE CONSTANT IMMEDIATE RECURSE EXIT`))
	assert.Nil(t, err)
	want := []Kind{
		KindIf, KindThen, KindElse, KindBegin, KindUntil, KindWhile, KindRepeat,
		KindDo, KindLoop, KindPlusLoop, KindVariable, KindConstant, KindImmediate,
		KindRecurse, KindExit,
	}
	for i, k := range want {
		assert.Equalf(t, k, toks[i].Kind, "token %d", i)
	}
}

func Test_All_DeepParenNesting_NoOverflow(t *testing.T) {
	src := ""
	for i := 0; i < 200; i++ {
		src += "( "
	}
	for i := 0; i < 200; i++ {
		src += ") "
	}
	toks, err := All([]byte(src))
	assert.Nil(t, err)
	assert.Equal(t, KindParenComment, toks[0].Kind)
}
