// Package sema implements the name-resolution and arity-checking stage that
// runs between parsing and stack-effect inference (spec sec 4.2's pipeline
// diagram), plus the redefinition policy spec sec 6's supplemented feature
// list calls for.
package sema

import (
	"sort"
	"strings"

	"github.com/dekarrin/vorth/internal/ast"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// RedefinitionPolicy controls what happens when a word name is defined more
// than once in the same compilation unit.
type RedefinitionPolicy int

const (
	// RedefineWarn emits a Warning diagnostic and lets the new definition
	// shadow the old one. This is the default, matching how most Forth
	// systems behave interactively.
	RedefineWarn RedefinitionPolicy = iota
	// RedefineError treats a redefinition as a hard Error.
	RedefineError
	// RedefineShadow silently allows shadowing with no diagnostic at all.
	RedefineShadow
)

// builtinNames lists every reserved word and primitive known to the
// inferencer's PrimitiveTable, so WordRefs to them never get flagged as
// undefined. Kept in sync by hand with internal/types.PrimitiveTable's
// switch, since the table only reports a hit when actually invoked with a
// VarGen and this package just needs membership.
var builtinNames = map[string]bool{
	"DUP": true, "DROP": true, "SWAP": true, "OVER": true, "ROT": true,
	"NIP": true, "TUCK": true, "+": true, "-": true, "*": true, "/": true,
	"MOD": true, "NEGATE": true, "ABS": true, "=": true, "<": true, ">": true,
	"<=": true, ">=": true, "<>": true, "0=": true, "0<": true, "0>": true,
	"AND": true, "OR": true, "XOR": true, "NOT": true, "INVERT": true,
	"I": true, "J": true, "@": true, "!": true, ".": true, "EMIT": true,
	"CR": true, "DEPTH": true,
}

// Resolver walks a Program, builds a word table, and reports undefined
// references and policy-governed redefinitions.
type Resolver struct {
	Policy RedefinitionPolicy

	defined   map[string]*ast.Definition
	variables map[string]*ast.Variable
	constants map[string]*ast.Constant

	errs     []*SemanticError
	warnings []*SemanticError
}

func NewResolver(policy RedefinitionPolicy) *Resolver {
	return &Resolver{
		Policy:    policy,
		defined:   make(map[string]*ast.Definition),
		variables: make(map[string]*ast.Variable),
		constants: make(map[string]*ast.Constant),
	}
}

// Errors returns every hard error collected (undefined words, and
// redefinitions under RedefineError).
func (r *Resolver) Errors() []*SemanticError { return r.errs }

// Warnings returns soft diagnostics (redefinitions under RedefineWarn).
func (r *Resolver) Warnings() []*SemanticError { return r.warnings }

// Resolve walks every definition and the top-level body, registering names
// and flagging undefined references. It must run before internal/types'
// Inferencer, which assumes names already resolve.
func (r *Resolver) Resolve(prog *ast.Program) {
	for _, def := range prog.Definitions {
		r.registerDefinition(def)
	}
	for _, def := range prog.Definitions {
		r.walk(def.Body)
	}
	r.walk(prog.TopLevel)
}

func (r *Resolver) registerDefinition(def *ast.Definition) {
	if _, exists := r.defined[def.Name]; exists {
		r.reportRedefinition(def.Name, def.Line, def.Col)
	}
	r.defined[def.Name] = def
}

func (r *Resolver) reportRedefinition(name string, line, col int) {
	serr := &SemanticError{Kind: Redefined, Word: name, Line: line, Col: col}
	switch r.Policy {
	case RedefineError:
		r.errs = append(r.errs, serr)
	case RedefineWarn:
		r.warnings = append(r.warnings, serr)
	case RedefineShadow:
		// no diagnostic
	}
}

func (r *Resolver) walk(body []ast.Node) {
	for _, n := range body {
		r.walkNode(n)
	}
}

func (r *Resolver) walkNode(n ast.Node) {
	switch v := n.(type) {
	case *ast.WordRef:
		r.resolveWordRef(v)
	case *ast.Variable:
		if _, exists := r.variables[v.Name]; exists {
			r.reportRedefinition(v.Name, v.Line, v.Col)
		}
		r.variables[v.Name] = v
	case *ast.Constant:
		if _, exists := r.constants[v.Name]; exists {
			r.reportRedefinition(v.Name, v.Line, v.Col)
		}
		r.constants[v.Name] = v
	case *ast.If:
		r.walk(v.Then)
		r.walk(v.Else)
	case *ast.BeginUntil:
		r.walk(v.Body)
	case *ast.BeginWhileRepeat:
		r.walk(v.Cond)
		r.walk(v.Body)
	case *ast.DoLoop:
		r.walk(v.Body)
	}
}

func (r *Resolver) resolveWordRef(ref *ast.WordRef) {
	if builtinNames[ref.Name] {
		return
	}
	if _, ok := r.defined[ref.Name]; ok {
		return
	}
	if _, ok := r.constants[ref.Name]; ok {
		return
	}
	if _, ok := r.variables[ref.Name]; ok {
		return
	}

	candidates := r.fuzzyCandidates(ref.Name)
	r.errs = append(r.errs, &SemanticError{
		Kind: UndefinedWord, Word: ref.Name, Line: ref.Line, Col: ref.Col, Candidates: candidates,
	})
}

// fuzzyCandidates ranks every known name (user words, variables, constants,
// builtins) against name by case-insensitive Levenshtein distance, returning
// up to three names within distance 2, closest first, for a "did you mean"
// suggestion.
func (r *Resolver) fuzzyCandidates(name string) []string {
	var pool []string
	for n := range r.defined {
		pool = append(pool, n)
	}
	for n := range r.variables {
		pool = append(pool, n)
	}
	for n := range r.constants {
		pool = append(pool, n)
	}
	for n := range builtinNames {
		pool = append(pool, n)
	}

	type ranked struct {
		target string
		dist   int
	}
	var ranks []ranked
	for _, n := range pool {
		if d := fuzzy.LevenshteinDistance(strings.ToUpper(name), strings.ToUpper(n)); d <= 2 {
			ranks = append(ranks, ranked{n, d})
		}
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].dist != ranks[j].dist {
			return ranks[i].dist < ranks[j].dist
		}
		return ranks[i].target < ranks[j].target
	})

	var out []string
	for i, rank := range ranks {
		if i >= 3 {
			break
		}
		out = append(out, rank.target)
	}
	return out
}

// DefinedWords returns every user-defined word name known after resolution,
// used by internal/session to decide which words need inference before
// codegen.
func (r *Resolver) DefinedWords() []string {
	names := make([]string, 0, len(r.defined))
	for n := range r.defined {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
