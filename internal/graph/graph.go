package graph

import (
	"sort"
	"strings"
)

// #region types
// Graph is a directed dependency graph keyed by node name.
// An edge a -> b means a depends on b.
type Graph struct {
	edges map[string]map[string]bool
}

// Cycle is an ordered loop of nodes; the first node is implied again at the end.
type Cycle []string

// String renders the cycle as "A -> B -> C -> A".
func (c Cycle) String() string {
	if len(c) == 0 {
		return ""
	}
	return strings.Join(append(append([]string(nil), c...), c[0]), " -> ")
}

// #endregion types

// #region constructor
// New returns an empty graph.
func New() *Graph {
	return &Graph{edges: make(map[string]map[string]bool)}
}

// AddNode registers a node with no edges. Existing nodes are left untouched.
func (g *Graph) AddNode(id string) {
	if _, ok := g.edges[id]; !ok {
		g.edges[id] = make(map[string]bool)
	}
}

// AddEdge inserts source -> target. Duplicate edges are ignored.
func (g *Graph) AddEdge(source, target string) {
	g.AddNode(source)
	g.AddNode(target)
	g.edges[source][target] = true
}

// #endregion constructor

// #region accessors
// Nodes returns every node in sorted order.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.edges))
	for n := range g.edges {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Neighbors returns the targets of node's outgoing edges in sorted order.
func (g *Graph) Neighbors(node string) []string {
	out := make([]string, 0, len(g.edges[node]))
	for n := range g.edges[node] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Reverse returns a new graph with every edge flipped.
func (g *Graph) Reverse() *Graph {
	r := New()
	for src, targets := range g.edges {
		r.AddNode(src)
		for dst := range targets {
			r.AddEdge(dst, src)
		}
	}
	return r
}

// #endregion accessors

// #region walk
// Walk performs a BFS from entry following outgoing edges up to maxDepth
// hops (maxDepth <= 0 means unbounded). The entry node is not included.
func (g *Graph) Walk(entry string, maxDepth int) []string {
	type queueItem struct {
		id    string
		depth int
	}
	visited := map[string]bool{entry: true}
	queue := []queueItem{{entry, 0}}
	var out []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if maxDepth > 0 && current.depth >= maxDepth {
			continue
		}
		for _, next := range g.Neighbors(current.id) {
			if visited[next] {
				continue
			}
			visited[next] = true
			out = append(out, next)
			queue = append(queue, queueItem{next, current.depth + 1})
		}
	}
	return out
}

// #endregion walk

// #region cycles
// Cycles runs a depth-first search from every node in sorted order and
// returns each distinct cycle closed by an edge back into the current DFS
// stack. Rotations of the same cycle are reported once. Nodes are finished
// once, so this is not an enumeration of every elementary cycle: a second
// cycle that only passes through an already finished node is not reported.
func (g *Graph) Cycles() []Cycle {
	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int, len(g.edges))
	var stack []string
	seen := make(map[string]bool)
	var cycles []Cycle

	var visit func(node string)
	visit = func(node string) {
		state[node] = onStack
		stack = append(stack, node)
		for _, next := range g.Neighbors(node) {
			switch state[next] {
			case unvisited:
				visit(next)
			case onStack:
				idx := indexOf(stack, next)
				c := Cycle(append([]string(nil), stack[idx:]...))
				if key := canonical(c); !seen[key] {
					seen[key] = true
					cycles = append(cycles, c)
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[node] = done
	}

	for _, n := range g.Nodes() {
		if state[n] == unvisited {
			visit(n)
		}
	}
	return cycles
}

// #endregion cycles

// #region helpers
func indexOf(items []string, v string) int {
	for i, it := range items {
		if it == v {
			return i
		}
	}
	return -1
}

// canonical rotates the cycle to start at its smallest node.
func canonical(c Cycle) string {
	lo := 0
	for i := range c {
		if c[i] < c[lo] {
			lo = i
		}
	}
	rotated := append(append([]string(nil), c[lo:]...), c[:lo]...)
	return strings.Join(rotated, "\x00")
}

// #endregion helpers
