package ssa

// DominatorTree maps each block's ID to its immediate dominator's ID, with
// the entry block mapping to itself.
type DominatorTree struct {
	IDom map[int]int
}

// idomInitOrder returns blocks in reverse postorder from entry, the order
// the Cooper/Harvey/Kennedy iterative dominance algorithm expects.
func idomInitOrder(f *Function) []*BasicBlock {
	visited := make(map[int]bool)
	var post []*BasicBlock
	var visit func(b *BasicBlock)
	succs := successorsOf(f)
	visit = func(b *BasicBlock) {
		if visited[b.ID] {
			return
		}
		visited[b.ID] = true
		for _, s := range succs[b.ID] {
			visit(s)
		}
		post = append(post, b)
	}
	visit(f.Entry)
	// reverse postorder
	rev := make([]*BasicBlock, len(post))
	for i, b := range post {
		rev[len(post)-1-i] = b
	}
	return rev
}

func successorsOf(f *Function) map[int][]*BasicBlock {
	out := make(map[int][]*BasicBlock)
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			for _, t := range in.Targets {
				out[b.ID] = append(out[b.ID], t)
			}
		}
	}
	return out
}

// ComputeDominators implements the Cooper/Harvey/Kennedy iterative
// dominance algorithm over f's CFG. Neither the SSA Builder's block-parameter
// placement nor any internal/optimize pass calls it; it is exercised by this
// package's tests.
func ComputeDominators(f *Function) *DominatorTree {
	order := idomInitOrder(f)
	rpoNum := make(map[int]int)
	for i, b := range order {
		rpoNum[b.ID] = i
	}

	idom := make(map[int]int)
	idom[f.Entry.ID] = f.Entry.ID

	changed := true
	for changed {
		changed = false
		for _, b := range order {
			if b.ID == f.Entry.ID {
				continue
			}
			var newIdom int
			first := true
			for _, p := range b.Preds {
				if _, ok := idom[p.ID]; !ok {
					continue
				}
				if first {
					newIdom = p.ID
					first = false
					continue
				}
				newIdom = intersect(idom, rpoNum, newIdom, p.ID)
			}
			if first {
				continue // no processed predecessor yet
			}
			if old, ok := idom[b.ID]; !ok || old != newIdom {
				idom[b.ID] = newIdom
				changed = true
			}
		}
	}

	return &DominatorTree{IDom: idom}
}

func intersect(idom map[int]int, rpoNum map[int]int, a, b int) int {
	for a != b {
		for rpoNum[a] > rpoNum[b] {
			a = idom[a]
		}
		for rpoNum[b] > rpoNum[a] {
			b = idom[b]
		}
	}
	return a
}

// Dominates reports whether a dominates b (inclusive: a block dominates
// itself).
func (d *DominatorTree) Dominates(a, b int) bool {
	for {
		if a == b {
			return true
		}
		if b == d.IDom[b] {
			return a == b
		}
		b = d.IDom[b]
	}
}

// DominanceFrontier computes, for every block, the set of blocks where its
// dominance ends -- i.e. where a value defined in that block might need a
// phi (block parameter) to merge with another definition. Spec sec 4.4
// requires phi placement to follow exactly this rule rather than an ad hoc
// merge-point heuristic.
func DominanceFrontier(f *Function, dt *DominatorTree) map[int][]int {
	df := make(map[int][]int)
	for _, b := range f.Blocks {
		if len(b.Preds) < 2 {
			continue
		}
		for _, p := range b.Preds {
			runner := p.ID
			for runner != dt.IDom[b.ID] {
				df[runner] = append(df[runner], b.ID)
				runner = dt.IDom[runner]
			}
		}
	}
	return df
}
