package lexer

import (
	"fmt"

	"github.com/dekarrin/vorth/internal/diag"
)

// ErrorKind distinguishes the ways a lexer can fail, per spec sec 4.1.
type ErrorKind int

const (
	UnterminatedString ErrorKind = iota
	UnterminatedComment
	InvalidNumber
)

func (k ErrorKind) String() string {
	switch k {
	case UnterminatedString:
		return "UnterminatedString"
	case UnterminatedComment:
		return "UnterminatedComment"
	case InvalidNumber:
		return "InvalidNumber"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// LexError is returned from Lex when the lexer cannot continue to produce
// tokens. Position is 1-indexed line/column of the byte that provoked the
// failure.
type LexError struct {
	Kind     ErrorKind
	Position Location
	Detail   string
}

// Location is the line/column pair a LexError occurred at.
type Location struct {
	Line   int
	Column int
}

func (e *LexError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s at %d:%d: %s", e.Kind, e.Position.Line, e.Position.Column, e.Detail)
	}
	return fmt.Sprintf("%s at %d:%d", e.Kind, e.Position.Line, e.Position.Column)
}

// Diagnostic converts the LexError to the shared diagnostic shape, namespaced
// E0xxx per spec sec 6.4.
func (e *LexError) Diagnostic(file string) diag.Diagnostic {
	code := "E0001"
	switch e.Kind {
	case UnterminatedString:
		code = "E0002"
	case UnterminatedComment:
		code = "E0003"
	case InvalidNumber:
		code = "E0004"
	}
	return diag.Diagnostic{
		Code:     code,
		Severity: diag.Error,
		Message:  e.Error(),
		Location: diag.Location{File: file, Line: e.Position.Line, Column: e.Position.Column},
	}
}
