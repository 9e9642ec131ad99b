package optimize

import (
	"github.com/dekarrin/vorth/internal/callgraph"
	"github.com/dekarrin/vorth/internal/lower"
)

// DeadWordElim removes any word unreachable from roots via g, per spec sec
// 4.6. A word is kept if it's a root, a primitive (IsPrimitive words never
// appear in the lowered set themselves, but defensively skipped anyway), or
// transitively called by something kept.
func DeadWordElim(words []lower.WordDef, g *callgraph.Graph, roots []string) []lower.WordDef {
	byName := make(map[string]lower.WordDef, len(words))
	for _, w := range words {
		byName[w.Name] = w
	}

	reachable := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		if reachable[name] {
			return
		}
		reachable[name] = true
		for _, callee := range g.Callees(name) {
			visit(callee)
		}
	}
	for _, r := range roots {
		visit(r)
	}

	var out []lower.WordDef
	for _, w := range words {
		if reachable[w.Name] || w.IsPrimitive {
			out = append(out, w)
		}
	}
	return out
}
