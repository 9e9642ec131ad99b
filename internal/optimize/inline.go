package optimize

import (
	"github.com/dekarrin/vorth/internal/callgraph"
	"github.com/dekarrin/vorth/internal/lower"
)

// isStraightLine reports whether body has no internal control flow: at most
// one label (its own entry) and no jumps. Inlining is restricted to such
// callees (O2, spec sec 4.6) so the pass never has to rename a cloned
// callee's internal labels to keep them unique at the splice site.
func isStraightLine(body []lower.Instr) bool {
	labels := 0
	for _, in := range body {
		switch in.Op {
		case lower.OpLabel:
			labels++
		case lower.OpJump, lower.OpJumpIfZero, lower.OpJumpIfNotZero:
			return false
		}
	}
	return labels <= 1
}

func bodyCost(body []lower.Instr) int {
	n := 0
	for _, in := range body {
		n += in.Cost
	}
	return n
}

// inlineBody returns callee's body stripped of its leading entry label and
// trailing return, ready to splice in place of a call site.
func inlineBody(callee lower.WordDef) []lower.Instr {
	body := callee.Body
	if len(body) > 0 && body[0].Op == lower.OpLabel {
		body = body[1:]
	}
	if len(body) > 0 && body[len(body)-1].Op == lower.OpReturn {
		body = body[:len(body)-1]
	}
	return body
}

// Inline expands calls to small, non-recursive, straight-line words directly
// into their callers, bounded by a per-word bloat budget of budgetMult times
// the caller's original size (spec sec 8's inlining-bloat-bound property).
// Words participating in a recursive cycle (g.RecursiveWords) are never
// inlined, since a direct or mutual RECURSE has no finite unrolling.
func Inline(words []lower.WordDef, g *callgraph.Graph, budgetMult int) []lower.WordDef {
	byName := make(map[string]lower.WordDef, len(words))
	for _, w := range words {
		byName[w.Name] = w
	}
	recursive := g.RecursiveWords()

	out := make([]lower.WordDef, len(words))
	for i, w := range words {
		originalSize := bodyCost(w.Body)
		budget := originalSize * budgetMult
		if budget == 0 {
			budget = budgetMult
		}

		var body []lower.Instr
		for _, in := range w.Body {
			if in.Op == lower.OpCall {
				callee, ok := byName[in.Label]
				if ok && !recursive[callee.Name] && !callee.NeverInline && isStraightLine(callee.Body) {
					expansion := inlineBody(callee)
					if bodyCost(body)+bodyCost(expansion) <= budget {
						body = append(body, expansion...)
						continue
					}
				}
			}
			body = append(body, in)
		}

		w.Body = body
		out[i] = w
	}
	return out
}
