package sema

import (
	"fmt"

	"github.com/dekarrin/vorth/internal/diag"
)

// ErrorKind distinguishes semantic-analysis failures, per spec sec 4.2's
// "Semantic Analyzer (name resolution, arity)" stage and sec 6.4's E1xxx
// namespace.
type ErrorKind int

const (
	UndefinedWord ErrorKind = iota
	Redefined
)

func (k ErrorKind) String() string {
	switch k {
	case UndefinedWord:
		return "UndefinedWord"
	case Redefined:
		return "Redefined"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// SemanticError is a single name-resolution or redefinition problem found
// during analysis. Candidates holds fuzzy-match suggestions for an
// UndefinedWord (spec sec 6.3's auto-fix-suggestion mechanism, applied here
// via edit distance rather than stack-effect repair).
type SemanticError struct {
	Kind       ErrorKind
	Word       string
	Line, Col  int
	Candidates []string
}

func (e *SemanticError) Error() string {
	switch e.Kind {
	case UndefinedWord:
		if len(e.Candidates) > 0 {
			return fmt.Sprintf("undefined word %q at %d:%d (did you mean %q?)", e.Word, e.Line, e.Col, e.Candidates[0])
		}
		return fmt.Sprintf("undefined word %q at %d:%d", e.Word, e.Line, e.Col)
	case Redefined:
		return fmt.Sprintf("%q redefined at %d:%d", e.Word, e.Line, e.Col)
	default:
		return "semantic error"
	}
}

// Diagnostic converts the SemanticError to the shared diagnostic shape,
// namespaced E1xxx per spec sec 6.4 (semantic). An UndefinedWord with
// candidates attaches a Suggestion so hosts can offer one-click fixes.
func (e *SemanticError) Diagnostic(file string) diag.Diagnostic {
	code := "E1001"
	sev := diag.Error
	if e.Kind == Redefined {
		code = "E1002"
	}
	d := diag.Diagnostic{
		Code:     code,
		Severity: sev,
		Message:  e.Error(),
		Location: diag.Location{File: file, Line: e.Line, Column: e.Col},
	}
	if e.Kind == UndefinedWord && len(e.Candidates) > 0 {
		d.Suggestion = &diag.Suggestion{
			Description: "replace with " + e.Candidates[0],
			ReplacementText: e.Candidates[0],
			Confidence:  0.60,
		}
	}
	return d
}
