package parser

import (
	"fmt"

	"github.com/dekarrin/vorth/internal/diag"
	"github.com/dekarrin/vorth/internal/lexer"
)

// ErrorKind distinguishes parse failures, per spec sec 4.2 and 7.
type ErrorKind int

const (
	UnterminatedDefinition ErrorKind = iota
	UnterminatedIf
	UnterminatedBegin
	UnterminatedDo
	UnexpectedToken
	ConstantWithoutValue
)

func (k ErrorKind) String() string {
	switch k {
	case UnterminatedDefinition:
		return "UnterminatedDefinition"
	case UnterminatedIf:
		return "UnterminatedIf"
	case UnterminatedBegin:
		return "UnterminatedBegin"
	case UnterminatedDo:
		return "UnterminatedDo"
	case UnexpectedToken:
		return "UnexpectedToken"
	case ConstantWithoutValue:
		return "ConstantWithoutValue"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ParseError is returned from Parse when the token stream cannot be
// assembled into an AST. Position is where the failure was detected;
// Opener is set for unterminated-construct errors and points at the token
// that opened the construct (`:`, `IF`, `BEGIN`, `DO`), per spec sec 4.2's
// requirement to "cite the opening token" rather than the EOF.
type ParseError struct {
	Kind     ErrorKind
	Position lexer.Token
	Opener   *lexer.Token
	Detail   string
}

func (e *ParseError) Error() string {
	if e.Opener != nil {
		return fmt.Sprintf("%s: opened at %d:%d, %s", e.Kind, e.Opener.Line, e.Opener.Column, e.Detail)
	}
	return fmt.Sprintf("%s at %d:%d: %s", e.Kind, e.Position.Line, e.Position.Column, e.Detail)
}

// Diagnostic converts the ParseError to the shared diagnostic shape,
// namespaced E0xxx per spec sec 6.4 (lex/parse).
func (e *ParseError) Diagnostic(file string) diag.Diagnostic {
	loc := diag.Location{File: file, Line: e.Position.Line, Column: e.Position.Column}
	var related []diag.Location
	if e.Opener != nil {
		loc = diag.Location{File: file, Line: e.Opener.Line, Column: e.Opener.Column}
		related = []diag.Location{{File: file, Line: e.Position.Line, Column: e.Position.Column}}
	}
	code := "E0101"
	switch e.Kind {
	case UnterminatedIf:
		code = "E0102"
	case UnterminatedBegin:
		code = "E0103"
	case UnterminatedDo:
		code = "E0104"
	case UnexpectedToken:
		code = "E0105"
	case ConstantWithoutValue:
		code = "E0106"
	}
	return diag.Diagnostic{
		Code:     code,
		Severity: diag.Error,
		Message:  e.Error(),
		Location: loc,
		Related:  related,
	}
}
