// Package callgraph builds the directed call multigraph internal/optimize
// consults before inlining, per spec sec 4.6: call counts feed the inlining
// heuristic, and Tarjan's strongly-connected-components algorithm finds
// recursive cycles so they can be marked NeverInline rather than expanded
// into an infinite tree.
package callgraph

import "github.com/dekarrin/vorth/internal/lower"

// Graph is a directed multigraph over word names: an edge A->B with
// Count n means A calls B at n call sites.
type Graph struct {
	edges map[string]map[string]int
	nodes map[string]bool
}

func New() *Graph {
	return &Graph{edges: make(map[string]map[string]int), nodes: make(map[string]bool)}
}

func (g *Graph) addNode(name string) {
	g.nodes[name] = true
	if g.edges[name] == nil {
		g.edges[name] = make(map[string]int)
	}
}

func (g *Graph) addEdge(from, to string) {
	g.addNode(from)
	g.addNode(to)
	g.edges[from][to]++
}

// Build constructs the call graph from a set of lowered word definitions,
// counting one edge per OpCall site (OpCall.Label names the callee).
func Build(words []lower.WordDef) *Graph {
	g := New()
	for _, w := range words {
		g.addNode(w.Name)
		for _, in := range w.Body {
			if in.Op == lower.OpCall {
				g.addEdge(w.Name, in.Label)
			}
		}
	}
	return g
}

// CallCount returns how many call sites within from invoke to.
func (g *Graph) CallCount(from, to string) int {
	return g.edges[from][to]
}

// Callees returns every word from calls, each exactly once.
func (g *Graph) Callees(from string) []string {
	var out []string
	for to := range g.edges[from] {
		out = append(out, to)
	}
	return out
}

// Nodes returns every word name participating in the graph, as either a
// caller or a callee.
func (g *Graph) Nodes() []string {
	var out []string
	for n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// SCCs returns the graph's strongly-connected components via Tarjan's
// algorithm, used to detect recursive cycles (including indirect mutual
// recursion, not just direct self-RECURSE) ahead of inlining.
func (g *Graph) SCCs() [][]string {
	t := &tarjan{
		g:       g,
		index:   make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}
	for n := range g.nodes {
		if _, visited := t.index[n]; !visited {
			t.strongconnect(n)
		}
	}
	return t.sccs
}

type tarjan struct {
	g       *Graph
	index   map[string]int
	lowlink map[string]int
	onStack map[string]bool
	stack   []string
	next    int
	sccs    [][]string
}

func (t *tarjan) strongconnect(v string) {
	t.index[v] = t.next
	t.lowlink[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for w := range t.g.edges[v] {
		if _, visited := t.index[w]; !visited {
			t.strongconnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var comp []string
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		t.sccs = append(t.sccs, comp)
	}
}

// RecursiveWords returns every word name that participates in a cycle
// (direct self-recursion or mutual recursion through other words), which
// internal/optimize marks NeverInline.
func (g *Graph) RecursiveWords() map[string]bool {
	out := make(map[string]bool)
	for _, comp := range g.SCCs() {
		if len(comp) > 1 {
			for _, n := range comp {
				out[n] = true
			}
			continue
		}
		n := comp[0]
		if g.edges[n][n] > 0 {
			out[n] = true
		}
	}
	return out
}
