package optimize

import "github.com/dekarrin/vorth/internal/lower"

// ReorderMemoryAccess marks runs of two or more consecutive, independent
// OpFetch instructions with PrefetchHint so the backend may issue their
// loads together, per spec sec 4.6. It never reorders relative to an
// OpStore in either direction, preserving RAW/WAR/WAW order exactly as
// written: a run is broken by any non-OpFetch instruction, not just by
// OpStore, which is a conservative but always-safe rule since two OpFetches
// separated by, say, an arithmetic op aren't adjacent in the issued stream
// anyway.
func ReorderMemoryAccess(words []lower.WordDef) []lower.WordDef {
	out := make([]lower.WordDef, len(words))
	for i, w := range words {
		w.Body = markPrefetchRuns(w.Body)
		out[i] = w
	}
	return out
}

func markPrefetchRuns(body []lower.Instr) []lower.Instr {
	out := make([]lower.Instr, len(body))
	copy(out, body)

	runStart := -1
	flush := func(end int) {
		if runStart >= 0 && end-runStart >= 2 {
			for i := runStart; i < end; i++ {
				out[i].PrefetchHint = true
			}
		}
		runStart = -1
	}
	for i, in := range out {
		if in.Op == lower.OpFetch {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		flush(i)
	}
	flush(len(out))
	return out
}
