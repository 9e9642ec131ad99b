// Package optimize implements the whole-program pass pipeline described in
// spec sec 4.6: dead-word elimination, constant folding, inlining bounded by
// a bloat budget and cycle avoidance, type specialization, superinstruction
// fusion, memory-access reordering, and stack-caching register hints. Passes
// run gated by optimization level (O0-O3) to a bounded fixed point.
package optimize

import (
	"github.com/dekarrin/vorth/internal/callgraph"
	"github.com/dekarrin/vorth/internal/lower"
)

// Level selects which pass groups run, mirroring common -O0..-O3 switches.
type Level int

const (
	O0 Level = iota
	O1
	O2
	O3
)

// Pipeline runs the optimizer passes appropriate to Level, iterating until
// a full round leaves the program unchanged or MaxIterations is hit,
// whichever comes first -- spec sec 4.6 calls for a *bounded* fixed point,
// not an unconditional one, since fusion can occasionally offset DCE's
// gains for a round or two before settling.
type Pipeline struct {
	Level         Level
	MaxIterations int
	// Roots lists word names that are always reachable (the implicit
	// top-level entry point and any IMMEDIATE word, which the REPL can
	// invoke directly), seeding dead-word elimination.
	Roots []string
	// InlineBudgetMultiplier bounds how much a caller's body may grow from
	// inlining relative to its pre-inlining size (spec sec 8's "inlining
	// stays within a 3x bloat bound" property).
	InlineBudgetMultiplier int

	// Instantiations and CallTags feed the O3 type-specialization pass
	// (spec sec 4.6.4): internal/session derives both from internal/types'
	// resolved per-call-site substitutions once a program has fully
	// type-checked. Either may be left nil, in which case Specialize is a
	// no-op.
	Instantiations map[string][]string
	CallTags       map[string]string
}

func NewPipeline(level Level, roots []string) *Pipeline {
	return &Pipeline{Level: level, MaxIterations: 5, Roots: roots, InlineBudgetMultiplier: 3}
}

// Stats reports word/instruction counts before and after a run, surfaced by
// internal/session's EmitMetrics option.
type Stats struct {
	WordCountBefore  int
	WordCountAfter   int
	InstrCountBefore int
	InstrCountAfter  int
	Iterations       int
}

func countInstrs(words []lower.WordDef) int {
	n := 0
	for _, w := range words {
		n += len(w.Body)
	}
	return n
}

// Run applies the pipeline to words, returning the transformed word set and
// the stats internal/session needs for its EmitMetrics phase.
func (p *Pipeline) Run(words []lower.WordDef) ([]lower.WordDef, Stats) {
	stats := Stats{WordCountBefore: len(words), InstrCountBefore: countInstrs(words)}

	if p.Level == O0 {
		stats.WordCountAfter = len(words)
		stats.InstrCountAfter = stats.InstrCountBefore
		return words, stats
	}

	max := p.MaxIterations
	if max <= 0 {
		max = 5
	}

	for i := 0; i < max; i++ {
		before := countInstrs(words)
		words = p.runOnce(words)
		stats.Iterations++
		if countInstrs(words) == before {
			break
		}
	}

	stats.WordCountAfter = len(words)
	stats.InstrCountAfter = countInstrs(words)
	return words, stats
}

func (p *Pipeline) runOnce(words []lower.WordDef) []lower.WordDef {
	words = ConstantFold(words)

	g := callgraph.Build(words)
	words = DeadWordElim(words, g, p.Roots)

	if p.Level >= O2 {
		g = callgraph.Build(words)
		words = Inline(words, g, p.InlineBudgetMultiplier)
		words = FuseSuperinstructions(words)
	}

	if p.Level >= O3 {
		if len(p.Instantiations) > 0 {
			words = Specialize(words, p.Instantiations, p.CallTags)
		}
		words = ReorderMemoryAccess(words)
		words = AssignStackCache(words)
	}

	return words
}
