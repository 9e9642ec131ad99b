package types

import (
	"fmt"

	"github.com/dekarrin/vorth/internal/diag"
)

// TypeError is a single stack-effect inference failure, carrying enough
// context to render a useful diagnostic and, for StackUnderflow on a
// trailing instruction, an auto-fix suggestion (spec sec 6.3).
type TypeError struct {
	Kind    ErrorKind
	Word    string // the definition being inferred when the error occurred
	Line    int
	Col     int
	Detail  string
	Wanted  Type
	Got     Type
	// RemovableInstr, if non-empty, names a single trailing instruction
	// whose removal would resolve a StackUnderflow. It is only set when the
	// inferencer is confident enough (>= 0.80) to attach a Suggestion.
	RemovableInstr string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s in %s at %d:%d: %s", e.Kind, e.Word, e.Line, e.Col, e.Detail)
}

// Diagnostic converts the TypeError to the shared diagnostic shape,
// namespaced E2xxx per spec sec 6.4 (stack-effect).
func (e *TypeError) Diagnostic(file string) diag.Diagnostic {
	code := "E2001"
	switch e.Kind {
	case StackDepthMismatch:
		code = "E2002"
	case UnificationFailure:
		code = "E2003"
	case OccursCheck:
		code = "E2004"
	case StackEffectViolation:
		code = "E2005"
	}

	d := diag.Diagnostic{
		Code:     code,
		Severity: diag.Error,
		Message:  e.Error(),
		Location: diag.Location{File: file, Line: e.Line, Column: e.Col},
	}

	if e.Kind == StackUnderflow && e.RemovableInstr != "" {
		d.Suggestion = &diag.Suggestion{
			Description: "remove " + e.RemovableInstr + " to balance the stack effect",
			Confidence:  0.80,
		}
	}

	return d
}
