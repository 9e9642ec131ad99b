// Package diag holds the diagnostic types shared across every phase of the
// vorth compiler core: the lexer, parser, semantic analyzer, type
// inferencer, optimizer, and backend all report problems as a diag.Diagnostic
// rather than returning bare errors, so that a compilation can accumulate
// many findings instead of aborting on the first.
package diag

import (
	"fmt"

	"github.com/dekarrin/rosed"
)

// Severity is how serious a Diagnostic is. Only Error severity prevents a
// CompilationResult from carrying an artifact.
type Severity int

const (
	Error Severity = iota
	Warning
	Info
	Hint
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Hint:
		return "hint"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Location points at a span of source text that a Diagnostic concerns.
type Location struct {
	File   string
	Line   int
	Column int

	// SpanLen is the number of runes the location covers, starting at
	// Column, on Line. A zero value means "just the one position".
	SpanLen int
}

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Suggestion is a proposed edit that would resolve (or help resolve) a
// Diagnostic. Confidence is in [0, 1]; the core never auto-applies a
// suggestion, it only attaches one for a consumer (CLI, LSP, etc) to offer.
type Suggestion struct {
	Description      string
	ReplacementSpan   Location
	ReplacementText   string
	Confidence        float64
}

// Diagnostic is the structured record every phase of the core emits instead
// of a bare error. Code is namespaced by phase per spec: E0xxx lex/parse,
// E1xxx semantic, E2xxx stack-effect, E3xxx control-flow, E4xxx optimization,
// E5xxx codegen.
type Diagnostic struct {
	Code       string
	Severity   Severity
	Message    string
	Location   Location
	Related    []Location
	Suggestion *Suggestion
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s (%s)", d.Location, d.Severity, d.Message, d.Code)
}

// Render formats the diagnostic for a terminal of the given width, wrapping
// the message body (but not the "file:line:col: severity:" prefix) so long
// inferencer/optimizer messages don't run off a narrow console.
func (d Diagnostic) Render(width int) string {
	prefix := fmt.Sprintf("%s: %s: ", d.Location, d.Severity)
	if width <= len(prefix) {
		return d.Error()
	}
	body := rosed.Edit(d.Message).Wrap(width - len(prefix)).String()
	return fmt.Sprintf("%s%s (%s)", prefix, body, d.Code)
}

// Bag accumulates diagnostics across a compilation unit. It never discards
// anything; phases append to it and the session inspects HasErrors to decide
// whether to advance to the next phase.
type Bag struct {
	entries []Diagnostic
}

// Add appends a diagnostic to the bag.
func (b *Bag) Add(d Diagnostic) {
	b.entries = append(b.entries, d)
}

// Addf is a convenience constructor for a one-off diagnostic with no
// Related or Suggestion.
func (b *Bag) Addf(code string, sev Severity, loc Location, format string, a ...interface{}) {
	b.Add(Diagnostic{
		Code:     code,
		Severity: sev,
		Message:  fmt.Sprintf(format, a...),
		Location: loc,
	})
}

// All returns every diagnostic added so far, in the order added.
func (b *Bag) All() []Diagnostic {
	return b.entries
}

// HasErrors returns whether any Error-severity diagnostic has been added.
func (b *Bag) HasErrors() bool {
	for _, d := range b.entries {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Len returns the number of diagnostics accumulated.
func (b *Bag) Len() int {
	return len(b.entries)
}

// Merge appends every diagnostic in o to b, in order.
func (b *Bag) Merge(o *Bag) {
	if o == nil {
		return
	}
	b.entries = append(b.entries, o.entries...)
}
