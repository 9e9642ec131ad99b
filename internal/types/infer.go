package types

import (
	"fmt"

	"github.com/dekarrin/vorth/internal/ast"
)

// Inferencer walks a parsed program and assigns a StackEffect to every word,
// per spec sec 4.3. It accumulates TypeErrors rather than aborting on the
// first one, matching the rest of the pipeline's diagnostic-bag policy.
type Inferencer struct {
	gen   *VarGen
	words map[string]StackEffect

	constants map[string]Type
	variables map[string]bool

	errs []*TypeError

	// recordCalls, caller, and callIndex track call-site bookkeeping for
	// type specialization (spec sec 4.6.4) while the *real* simulation of a
	// definition's body is underway. They're left off during the RECURSE
	// tentative pass and any trial re-simulation (e.g. reportUnderflow's),
	// so those don't pollute the call-site table or its numbering.
	recordCalls bool
	caller      string
	callIndex   int
	sites       []*pendingCallSite
}

// pendingCallSite is one call, from within caller's body, to a word whose
// own declared/inferred effect is still polymorphic at the point of the
// call. sample is the fresh type variable that call's instantiation bound
// to a concrete type, if it did; subst is the same Substitution used to
// infer caller's body, so the binding can be chased to its final type once
// the whole program has type-checked.
type pendingCallSite struct {
	caller string
	index  int
	callee string
	sample Type
	subst  *Substitution
}

func NewInferencer() *Inferencer {
	return &Inferencer{
		gen:       &VarGen{},
		words:     make(map[string]StackEffect),
		constants: make(map[string]Type),
		variables: make(map[string]bool),
	}
}

// WordEffect returns the inferred (or declared, if present) effect for a
// previously-processed definition.
func (inf *Inferencer) WordEffect(name string) (StackEffect, bool) {
	e, ok := inf.words[name]
	return e, ok
}

// InferProgram infers every definition in textual order, then the top-level
// body as an implicit anonymous entry word, returning all errors collected.
func (inf *Inferencer) InferProgram(prog *ast.Program) []*TypeError {
	for _, def := range prog.Definitions {
		inf.inferDefinition(def)
	}
	inf.inferTopLevel(prog.TopLevel)
	return inf.errs
}

func (inf *Inferencer) fail(kind ErrorKind, word string, line, col int, detail string) {
	inf.errs = append(inf.errs, &TypeError{Kind: kind, Word: word, Line: line, Col: col, Detail: detail})
}

// simState is one simulated stack frame. inputs is shared (by pointer)
// across every branch/loop scope within a single definition, so that two
// sibling branches reaching below the known stack demand the *same* fresh
// variable for "whatever was already there", per spec sec 4.3's composition
// rule generalized over an entire body rather than two words at a time.
type simState struct {
	stack  []Type
	inputs *[]Type
}

func (inf *Inferencer) clone(st *simState) *simState {
	cp := make([]Type, len(st.stack))
	copy(cp, st.stack)
	return &simState{stack: cp, inputs: st.inputs}
}

func (inf *Inferencer) pop(st *simState) Type {
	if n := len(st.stack); n > 0 {
		t := st.stack[n-1]
		st.stack = st.stack[:n-1]
		return t
	}
	v := inf.gen.Fresh()
	*st.inputs = append([]Type{v}, *st.inputs...)
	return v
}

func (inf *Inferencer) push(st *simState, t Type) {
	st.stack = append(st.stack, t)
}

// lookupWord resolves name to its effect, reporting whether it was found,
// whether it's a built-in primitive (which internal/lower never routes
// through a generic call, so can never be a specialization call site), and
// whether its stored (pre-instantiation) effect still contains a free type
// variable -- i.e. whether this call is a candidate for specialization.
func (inf *Inferencer) lookupWord(name string) (eff StackEffect, ok, isPrimitive, polymorphic bool) {
	if e, found := PrimitiveTable(name, inf.gen); found {
		return e, true, true, false
	}
	if e, found := inf.words[name]; found {
		return Freshen(e, inf.gen), true, false, effectHasVar(e)
	}
	return StackEffect{}, false, false, false
}

// effectHasVar reports whether e still has an unbound type variable
// anywhere in its inputs or outputs.
func effectHasVar(e StackEffect) bool {
	for _, t := range e.Inputs {
		if t.Kind == KindVar {
			return true
		}
	}
	for _, t := range e.Outputs {
		if t.Kind == KindVar {
			return true
		}
	}
	return false
}

// recordCallSite notes a call to a polymorphic word for later resolution by
// Specializations, keyed by a representative type from the call's freshly
// instantiated effect -- its first input if it has one, else its first
// output.
func (inf *Inferencer) recordCallSite(callee string, eff StackEffect, subst *Substitution) {
	var sample Type
	switch {
	case len(eff.Inputs) > 0:
		sample = eff.Inputs[0]
	case len(eff.Outputs) > 0:
		sample = eff.Outputs[0]
	default:
		return
	}
	inf.sites = append(inf.sites, &pendingCallSite{
		caller: inf.caller, index: inf.callIndex, callee: callee, sample: sample, subst: subst,
	})
}

// Specializations resolves every recorded call site against the
// substitution active when it was recorded, returning the instantiation
// and call-tag maps internal/optimize's Specialize pass expects. A call
// site whose representative type never resolved to a concrete kind (still
// polymorphic even after the whole program type-checked) is omitted.
func (inf *Inferencer) Specializations() (instantiations map[string][]string, callTags map[string]string) {
	instantiations = make(map[string][]string)
	callTags = make(map[string]string)
	seen := make(map[string]map[string]bool)

	for _, site := range inf.sites {
		resolved := site.subst.Apply(site.sample)
		if resolved.Kind == KindVar {
			continue
		}
		tag := resolved.Kind.String()

		if seen[site.callee] == nil {
			seen[site.callee] = make(map[string]bool)
		}
		if !seen[site.callee][tag] {
			seen[site.callee][tag] = true
			instantiations[site.callee] = append(instantiations[site.callee], tag)
		}
		callTags[fmt.Sprintf("%s:%d", site.caller, site.index)] = tag
	}

	return instantiations, callTags
}

// Freshen copies an effect, renaming every distinct variable id it contains
// to a brand-new one consistently, so that two call sites of a polymorphic
// word don't spuriously unify with each other.
func Freshen(e StackEffect, gen *VarGen) StackEffect {
	remap := make(map[int]Type)
	rename := func(t Type) Type {
		if t.Kind != KindVar {
			return t
		}
		if fresh, ok := remap[t.Var]; ok {
			return fresh
		}
		fresh := gen.Fresh()
		remap[t.Var] = fresh
		return fresh
	}
	out := StackEffect{Inputs: make([]Type, len(e.Inputs)), Outputs: make([]Type, len(e.Outputs))}
	for i, t := range e.Inputs {
		out.Inputs[i] = rename(t)
	}
	for i, t := range e.Outputs {
		out.Outputs[i] = rename(t)
	}
	return out
}

func literalType(l *ast.Literal) Type {
	switch l.Kind {
	case ast.IntLiteral:
		return Int()
	case ast.FloatLiteral:
		return Float()
	case ast.StringLiteral:
		return StringT()
	default:
		return Int()
	}
}

// declaredToEffect converts a DeclaredEffect's symbolic names into fresh
// type variables, reusing the same variable for repeated names (e.g. the
// `a` in `( a -- a a )`) since spec sec 6.2 gives those names no meaning
// beyond arity and identity -- two occurrences of the same name denote the
// same underlying type.
func declaredToEffect(d *ast.DeclaredEffect, gen *VarGen) StackEffect {
	if d == nil {
		return StackEffect{}
	}
	named := make(map[string]Type)
	resolve := func(name string) Type {
		if t, ok := named[name]; ok {
			return t
		}
		t := gen.Fresh()
		named[name] = t
		return t
	}
	e := StackEffect{Inputs: make([]Type, len(d.Inputs)), Outputs: make([]Type, len(d.Outputs))}
	for i, name := range d.Inputs {
		e.Inputs[i] = resolve(name)
	}
	for i, name := range d.Outputs {
		e.Outputs[i] = resolve(name)
	}
	return e
}

// inferDefinition infers def's body and stores its effect (the declared one
// if present, else the inferred one) in the word table.
func (inf *Inferencer) inferDefinition(def *ast.Definition) {
	subst := NewSubstitution()

	var recEffect StackEffect
	if def.DeclaredEffect != nil {
		recEffect = declaredToEffect(def.DeclaredEffect, inf.gen)
	} else {
		// Two-pass: first treat RECURSE as a zero-arity identity to obtain a
		// tentative effect, then re-run with that tentative effect bound to
		// RECURSE, per the Open Question resolution recorded in DESIGN.md.
		recEffect = StackEffect{}
		tentative, _, _, _ := inf.simulateBody(def.Body, recEffect, subst)
		recEffect = tentative
		subst = NewSubstitution()
	}

	inf.caller = def.Name
	inf.callIndex = 0
	inf.recordCalls = true
	actual, inputs, exitErr, bodyErr := inf.simulateBody(def.Body, recEffect, subst)
	inf.recordCalls = false
	if bodyErr != nil {
		inf.errs = append(inf.errs, bodyErr)
		return
	}
	if exitErr != nil {
		inf.errs = append(inf.errs, exitErr)
		return
	}
	actual.Inputs = inputs

	if def.DeclaredEffect != nil {
		declared := recEffect
		if len(actual.Inputs) > len(declared.Inputs) {
			inf.reportUnderflow(def, declared, actual)
			return
		}
		if len(actual.Inputs) != len(declared.Inputs) || len(actual.Outputs) != len(declared.Outputs) {
			inf.fail(StackDepthMismatch, def.Name, def.Line, def.Col,
				"declared stack effect does not match the inferred one")
			return
		}
		for i := range actual.Inputs {
			if uerr := Unify(actual.Inputs[i], declared.Inputs[i], subst); uerr != nil {
				inf.fail(UnificationFailure, def.Name, def.Line, def.Col, uerr.Error())
				return
			}
		}
		for i := range actual.Outputs {
			if uerr := Unify(actual.Outputs[i], declared.Outputs[i], subst); uerr != nil {
				inf.fail(UnificationFailure, def.Name, def.Line, def.Col, uerr.Error())
				return
			}
		}
		inf.words[def.Name] = declared.Apply(subst)
		return
	}

	inf.words[def.Name] = actual.Apply(subst)
}

// reportUnderflow records a StackUnderflow for a definition whose body
// demands more stack depth than its declared effect promises to supply --
// spec sec 6.3's `: bad ( a b -- c ) + + ;`, where the second `+` reaches
// past what `( a b -- c )` guarantees is there. It tries the single
// highest-confidence auto-fix: dropping the trailing node and seeing whether
// the rest of the body then matches the declaration exactly.
func (inf *Inferencer) reportUnderflow(def *ast.Definition, declared, actual StackEffect) {
	te := &TypeError{
		Kind: StackUnderflow, Word: def.Name, Line: def.Line, Col: def.Col,
		Detail: fmt.Sprintf("body requires %d input(s) but the declared effect only supplies %d",
			len(actual.Inputs), len(declared.Inputs)),
	}

	if len(def.Body) > 0 {
		trimmed := def.Body[:len(def.Body)-1]
		trimSubst := NewSubstitution()
		trimEff, trimInputs, exitErr, bodyErr := inf.simulateBody(trimmed, declared, trimSubst)
		if bodyErr == nil && exitErr == nil &&
			len(trimInputs) == len(declared.Inputs) && len(trimEff.Outputs) == len(declared.Outputs) {
			te.RemovableInstr = nodeLabel(def.Body[len(def.Body)-1])
		}
	}

	inf.errs = append(inf.errs, te)
}

// nodeLabel names a body node for a removal suggestion.
func nodeLabel(n ast.Node) string {
	if ref, ok := n.(*ast.WordRef); ok {
		return ref.Name
	}
	return "the trailing instruction"
}

func (inf *Inferencer) inferTopLevel(nodes []ast.Node) {
	subst := NewSubstitution()
	_, _, exitErr, bodyErr := inf.simulateBody(nodes, StackEffect{}, subst)
	if bodyErr != nil {
		inf.errs = append(inf.errs, bodyErr)
	}
	if exitErr != nil {
		inf.errs = append(inf.errs, exitErr)
	}
}

// simulateBody runs the stack simulation over an entire word body, handling
// EXIT by recording a snapshot of the stack at each exit point and requiring
// every such snapshot to agree (in length and type) with the stack reached
// by falling off the end, per spec sec 4.3's treatment of early return as
// just another path to the same merge point.
func (inf *Inferencer) simulateBody(body []ast.Node, recEffect StackEffect, subst *Substitution) (eff StackEffect, inputs []Type, exitErr, bodyErr *TypeError) {
	inputsSlice := []Type{}
	st := &simState{inputs: &inputsSlice}

	var exitSnapshots [][]Type

	for _, n := range body {
		if err := inf.processNode(st, n, recEffect, subst, &exitSnapshots); err != nil {
			return StackEffect{}, nil, nil, err
		}
	}

	for _, snap := range exitSnapshots {
		if len(snap) != len(st.stack) {
			return StackEffect{}, nil, &TypeError{
				Kind: StackDepthMismatch, Word: "EXIT", Detail: "EXIT leaves a different stack depth than falling through",
			}, nil
		}
		for i := range snap {
			if uerr := Unify(snap[i], st.stack[i], subst); uerr != nil {
				return StackEffect{}, nil, &TypeError{Kind: UnificationFailure, Word: "EXIT", Detail: uerr.Error()}, nil
			}
		}
	}

	return StackEffect{Outputs: st.stack}, *st.inputs, nil, nil
}

func (inf *Inferencer) processNode(st *simState, n ast.Node, recEffect StackEffect, subst *Substitution, exitSnapshots *[][]Type) *TypeError {
	line, col := n.Pos()

	switch v := n.(type) {
	case *ast.Literal:
		inf.push(st, literalType(v))
		return nil

	case *ast.WordRef:
		if t, ok := inf.constants[v.Name]; ok {
			inf.push(st, t)
			return nil
		}
		if inf.variables[v.Name] {
			inf.push(st, Addr())
			return nil
		}
		eff, ok, isPrimitive, polymorphic := inf.lookupWord(v.Name)
		if !ok {
			return &TypeError{Kind: StackEffectViolation, Word: v.Name, Line: line, Col: col, Detail: "undefined word " + v.Name}
		}
		if inf.recordCalls && !isPrimitive {
			if polymorphic {
				inf.recordCallSite(v.Name, eff, subst)
			}
			inf.callIndex++
		}
		return inf.applyEffect(st, eff, subst, v.Name, line, col)

	case *ast.Recurse:
		return inf.applyEffect(st, recEffect, subst, "RECURSE", line, col)

	case *ast.Exit:
		snap := make([]Type, len(st.stack))
		copy(snap, st.stack)
		*exitSnapshots = append(*exitSnapshots, snap)
		return nil

	case *ast.Variable:
		inf.variables[v.Name] = true
		return nil

	case *ast.Constant:
		inf.constants[v.Name] = literalType(v.Value)
		return nil

	case *ast.If:
		return inf.processIf(st, v, recEffect, subst, exitSnapshots)

	case *ast.BeginUntil:
		return inf.processBeginUntil(st, v, recEffect, subst, exitSnapshots)

	case *ast.BeginWhileRepeat:
		return inf.processBeginWhileRepeat(st, v, recEffect, subst, exitSnapshots)

	case *ast.DoLoop:
		return inf.processDoLoop(st, v, recEffect, subst, exitSnapshots)

	default:
		return nil
	}
}

func (inf *Inferencer) applyEffect(st *simState, eff StackEffect, subst *Substitution, word string, line, col int) *TypeError {
	for i := len(eff.Inputs) - 1; i >= 0; i-- {
		got := inf.pop(st)
		if uerr := Unify(got, eff.Inputs[i], subst); uerr != nil {
			return &TypeError{Kind: UnificationFailure, Word: word, Line: line, Col: col, Detail: uerr.Error(), Wanted: eff.Inputs[i], Got: got}
		}
	}
	for _, out := range eff.Outputs {
		inf.push(st, out)
	}
	return nil
}

// netZeroScope runs body against a copy of the enclosing stack and requires
// the branch to leave the stack exactly as it found it (same length, unified
// types), as required for loop bodies whose iteration count is dynamic.
func (inf *Inferencer) netZeroScope(st *simState, body []ast.Node, recEffect StackEffect, subst *Substitution, exitSnapshots *[][]Type, who string) *TypeError {
	scope := inf.clone(st)
	for _, n := range body {
		if err := inf.processNode(scope, n, recEffect, subst, exitSnapshots); err != nil {
			return err
		}
	}
	if len(scope.stack) != len(st.stack) {
		return &TypeError{Kind: StackDepthMismatch, Word: who, Detail: who + " body must leave the stack depth unchanged"}
	}
	for i := range st.stack {
		if uerr := Unify(scope.stack[i], st.stack[i], subst); uerr != nil {
			return &TypeError{Kind: UnificationFailure, Word: who, Detail: uerr.Error()}
		}
	}
	return nil
}

func (inf *Inferencer) processIf(st *simState, n *ast.If, recEffect StackEffect, subst *Substitution, exitSnapshots *[][]Type) *TypeError {
	cond := inf.pop(st)
	if uerr := Unify(cond, Bool(), subst); uerr != nil {
		l, c := n.Pos()
		return &TypeError{Kind: UnificationFailure, Word: "IF", Line: l, Col: c, Detail: uerr.Error()}
	}

	thenScope := inf.clone(st)
	for _, node := range n.Then {
		if err := inf.processNode(thenScope, node, recEffect, subst, exitSnapshots); err != nil {
			return err
		}
	}

	if n.Else == nil {
		if len(thenScope.stack) != len(st.stack) {
			return &TypeError{Kind: StackDepthMismatch, Word: "IF", Detail: "IF without ELSE must leave the stack unchanged"}
		}
		for i := range st.stack {
			if uerr := Unify(thenScope.stack[i], st.stack[i], subst); uerr != nil {
				return &TypeError{Kind: UnificationFailure, Word: "IF", Detail: uerr.Error()}
			}
		}
		return nil
	}

	elseScope := inf.clone(st)
	for _, node := range n.Else {
		if err := inf.processNode(elseScope, node, recEffect, subst, exitSnapshots); err != nil {
			return err
		}
	}

	if len(thenScope.stack) != len(elseScope.stack) {
		return &TypeError{Kind: StackDepthMismatch, Word: "IF/ELSE", Detail: "THEN and ELSE branches leave different stack depths"}
	}
	for i := range thenScope.stack {
		if uerr := Unify(thenScope.stack[i], elseScope.stack[i], subst); uerr != nil {
			return &TypeError{Kind: UnificationFailure, Word: "IF/ELSE", Detail: uerr.Error()}
		}
	}
	st.stack = thenScope.stack
	return nil
}

func (inf *Inferencer) processBeginUntil(st *simState, n *ast.BeginUntil, recEffect StackEffect, subst *Substitution, exitSnapshots *[][]Type) *TypeError {
	scope := inf.clone(st)
	for _, node := range n.Body {
		if err := inf.processNode(scope, node, recEffect, subst, exitSnapshots); err != nil {
			return err
		}
	}
	cond := inf.pop(scope)
	if uerr := Unify(cond, Bool(), subst); uerr != nil {
		return &TypeError{Kind: UnificationFailure, Word: "UNTIL", Detail: uerr.Error()}
	}
	if len(scope.stack) != len(st.stack) {
		return &TypeError{Kind: StackDepthMismatch, Word: "BEGIN/UNTIL", Detail: "loop body must leave the stack depth unchanged"}
	}
	for i := range st.stack {
		if uerr := Unify(scope.stack[i], st.stack[i], subst); uerr != nil {
			return &TypeError{Kind: UnificationFailure, Word: "BEGIN/UNTIL", Detail: uerr.Error()}
		}
	}
	return nil
}

func (inf *Inferencer) processBeginWhileRepeat(st *simState, n *ast.BeginWhileRepeat, recEffect StackEffect, subst *Substitution, exitSnapshots *[][]Type) *TypeError {
	condScope := inf.clone(st)
	for _, node := range n.Cond {
		if err := inf.processNode(condScope, node, recEffect, subst, exitSnapshots); err != nil {
			return err
		}
	}
	cond := inf.pop(condScope)
	if uerr := Unify(cond, Bool(), subst); uerr != nil {
		return &TypeError{Kind: UnificationFailure, Word: "WHILE", Detail: uerr.Error()}
	}
	if len(condScope.stack) != len(st.stack) {
		return &TypeError{Kind: StackDepthMismatch, Word: "BEGIN/WHILE", Detail: "condition must leave the stack depth unchanged besides the tested flag"}
	}
	for i := range st.stack {
		if uerr := Unify(condScope.stack[i], st.stack[i], subst); uerr != nil {
			return &TypeError{Kind: UnificationFailure, Word: "BEGIN/WHILE", Detail: uerr.Error()}
		}
	}
	return inf.netZeroScope(st, n.Body, recEffect, subst, exitSnapshots, "BEGIN/WHILE/REPEAT")
}

// processDoLoop handles DO/LOOP and DO/+LOOP. Unlike BEGIN/UNTIL and
// BEGIN/WHILE/REPEAT, spec sec 4.3 places no net-zero requirement on a
// DO/LOOP body: I alone (no inputs, one Int output) is a legal body, and
// running it produces one more stack item per iteration -- an accumulation
// whose count isn't known until the loop actually runs (spec sec 8's
// `: loop10 10 0 DO I LOOP ;`, net effect `( -- Int … Int )` of 10 ints).
// What the body must NOT do is shrink the stack below the depth it started
// at: that's a genuine StackDepthMismatch, the same as for the other loop
// forms. The growing tail beyond that invariant depth is folded back into
// the enclosing stack as one representative instance per grown slot, since
// nothing past the loop can statically address a specific one of the
// dynamically-many values it produced.
func (inf *Inferencer) processDoLoop(st *simState, n *ast.DoLoop, recEffect StackEffect, subst *Substitution, exitSnapshots *[][]Type) *TypeError {
	who := "DO/" + n.StepVariant.String()

	start := inf.pop(st)
	if uerr := Unify(start, Int(), subst); uerr != nil {
		return &TypeError{Kind: UnificationFailure, Word: "DO", Detail: uerr.Error()}
	}
	limit := inf.pop(st)
	if uerr := Unify(limit, Int(), subst); uerr != nil {
		return &TypeError{Kind: UnificationFailure, Word: "DO", Detail: uerr.Error()}
	}

	scope := inf.clone(st)
	for _, node := range n.Body {
		if err := inf.processNode(scope, node, recEffect, subst, exitSnapshots); err != nil {
			return err
		}
	}

	if len(scope.stack) < len(st.stack) {
		return &TypeError{Kind: StackDepthMismatch, Word: who, Detail: who + " body left the stack shallower than it started"}
	}
	for i := range st.stack {
		if uerr := Unify(scope.stack[i], st.stack[i], subst); uerr != nil {
			return &TypeError{Kind: UnificationFailure, Word: who, Detail: uerr.Error()}
		}
	}

	st.stack = append(st.stack, scope.stack[len(st.stack):]...)
	return nil
}
