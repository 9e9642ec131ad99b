// Package session owns the vorth compiler core's single entry point:
// Compile, which sequences every phase (lexer, parser, semantic resolver,
// stack-effect inferencer, SSA builder, lowering, optimizer, backend) over
// a source unit and aggregates every phase's diagnostics into one report.
// Each Session owns its own word table, so two Sessions compiling
// different projects never share mutable state (spec sec 6's
// single-threaded-per-unit model).
package session

import (
	"time"

	"github.com/dekarrin/vorth/internal/ast"
	"github.com/dekarrin/vorth/internal/callgraph"
	"github.com/dekarrin/vorth/internal/codegen"
	"github.com/dekarrin/vorth/internal/diag"
	"github.com/dekarrin/vorth/internal/lexer"
	"github.com/dekarrin/vorth/internal/lower"
	"github.com/dekarrin/vorth/internal/optimize"
	"github.com/dekarrin/vorth/internal/parser"
	"github.com/dekarrin/vorth/internal/sema"
	"github.com/dekarrin/vorth/internal/ssa"
	"github.com/dekarrin/vorth/internal/types"
)

// Mode selects how far a Compile call carries a source unit.
type Mode int

const (
	// ModeFull runs every phase through codegen.
	ModeFull Mode = iota
	// ModeTypeCheckOnly stops after the stack-effect inferencer, used by
	// editor tooling that only wants diagnostics, not an artifact.
	ModeTypeCheckOnly
)

// Options configures a single Compile call.
type Options struct {
	Mode            Mode
	RedefinePolicy  sema.RedefinitionPolicy
	OptLevel        optimize.Level
	Backend         codegen.Backend
	BackendMode     codegen.Mode
	Entry           string
	EmitMetrics     bool
}

// PhaseTiming records how long one pipeline phase took, in milliseconds,
// surfaced when Options.EmitMetrics is set.
type PhaseTiming struct {
	Phase string
	Ms    float64
}

// Metrics aggregates the measurements EmitMetrics was asked to collect.
type Metrics struct {
	PhaseTimes      []PhaseTiming
	WordCountBefore int
	WordCountAfter  int
	InstrCountBefore int
	InstrCountAfter  int
}

// CompilationResult is what Compile always returns: diagnostics from every
// phase that ran, plus whatever artifact the furthest-reached phase
// produced.
type CompilationResult struct {
	Diagnostics []diag.Diagnostic
	Artifact    *codegen.Artifact
	Metrics     Metrics
}

func (r CompilationResult) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == diag.Error {
			return true
		}
	}
	return false
}

// Session owns the word table and redefinition policy across however many
// Compile calls a REPL or build makes against it.
type Session struct {
	resolver *sema.Resolver
	inf      *types.Inferencer
	file     string
}

// New creates a Session with a fresh word table.
func New(file string, policy sema.RedefinitionPolicy) *Session {
	return &Session{
		resolver: sema.NewResolver(policy),
		inf:      types.NewInferencer(),
		file:     file,
	}
}

// Compile runs source through every phase up to Options.Mode's limit,
// accumulating all diagnostics regardless of where the pipeline stops.
func (s *Session) Compile(source []byte, opts Options) CompilationResult {
	var result CompilationResult
	var bag diag.Bag
	finish := func() CompilationResult {
		result.Diagnostics = bag.All()
		return result
	}
	timed := func(phase string, fn func()) {
		start := time.Now()
		fn()
		if opts.EmitMetrics {
			result.Metrics.PhaseTimes = append(result.Metrics.PhaseTimes, PhaseTiming{
				Phase: phase, Ms: float64(time.Since(start).Microseconds()) / 1000.0,
			})
		}
	}

	var prog *ast.Program
	var lexErr *lexer.LexError
	var parseErr *parser.ParseError

	timed("lex+parse", func() {
		prog, parseErr, lexErr = parser.Parse(source)
	})
	if lexErr != nil {
		bag.Add(lexErr.Diagnostic(s.file))
		return finish()
	}
	if parseErr != nil {
		bag.Add(parseErr.Diagnostic(s.file))
		return finish()
	}

	timed("sema", func() {
		s.resolver.Resolve(prog)
	})
	for _, e := range s.resolver.Errors() {
		bag.Add(e.Diagnostic(s.file))
	}
	for _, w := range s.resolver.Warnings() {
		d := w.Diagnostic(s.file)
		d.Severity = diag.Warning
		bag.Add(d)
	}
	if len(s.resolver.Errors()) > 0 {
		return finish()
	}

	var typeErrs []*types.TypeError
	timed("types", func() {
		typeErrs = s.inf.InferProgram(prog)
	})
	for _, e := range typeErrs {
		bag.Add(e.Diagnostic(s.file))
	}
	if len(typeErrs) > 0 || opts.Mode == ModeTypeCheckOnly {
		return finish()
	}

	effects := make(ssa.WordEffects, len(prog.Definitions))
	wordTypes := make(map[string]types.StackEffect, len(prog.Definitions))
	for _, def := range prog.Definitions {
		eff, _ := s.inf.WordEffect(def.Name)
		effects[def.Name] = eff
		wordTypes[def.Name] = eff
	}

	var words []lower.WordDef
	timed("ssa+lower", func() {
		gen := &types.VarGen{}
		builder := ssa.NewBuilder(effects, gen)
		for _, def := range prog.Definitions {
			fn, err := builder.Build(def)
			if err != nil {
				bag.Add(diag.Diagnostic{
					Code: "E3001", Severity: diag.Error,
					Message:  "internal SSA construction error: " + err.Error(),
					Location: diag.Location{File: s.file, Line: def.Line, Column: def.Col},
				})
				continue
			}
			words = append(words, lower.Linearize(fn, wordTypes))
		}
	})
	if bag.HasErrors() {
		return finish()
	}

	roots := []string{opts.Entry}
	if opts.Entry == "" && len(words) > 0 {
		roots = []string{words[len(words)-1].Name}
	}

	timed("optimize", func() {
		p := optimize.NewPipeline(opts.OptLevel, roots)
		p.Instantiations, p.CallTags = s.inf.Specializations()
		g := callgraph.Build(words)
		rec := g.RecursiveWords()
		for i := range words {
			words[i].NeverInline = rec[words[i].Name]
		}
		var stats optimize.Stats
		words, stats = p.Run(words)
		if opts.EmitMetrics {
			result.Metrics.WordCountBefore = stats.WordCountBefore
			result.Metrics.WordCountAfter = stats.WordCountAfter
			result.Metrics.InstrCountBefore = stats.InstrCountBefore
			result.Metrics.InstrCountAfter = stats.InstrCountAfter
		}
	})

	if opts.Backend != nil {
		timed("codegen", func() {
			entry := opts.Entry
			if entry == "" && len(words) > 0 {
				entry = words[len(words)-1].Name
			}
			art, err := opts.Backend.Emit(words, entry, opts.BackendMode)
			if err != nil {
				bag.Add(diag.Diagnostic{
					Code: "E5001", Severity: diag.Error,
					Message: "codegen failed: " + err.Error(),
				})
				return
			}
			result.Artifact = art
		})
	}

	return finish()
}
