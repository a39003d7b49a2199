// Package graph implements the directed weighted currency graph and the
// negative-cycle machinery behind arbitrage detection. Edge weights are
// negative logs of exchange rates, so a cycle whose weights sum below zero is
// a round trip whose rate product exceeds one.
package graph

// Edge is a directed weighted edge between two currencies.
type Edge struct {
	From   string
	To     string
	Weight float64
}

// Graph holds vertices and edges in insertion order so that relaxation and
// witness selection are reproducible for identical inputs.
type Graph struct {
	vertices []string
	index    map[string]int
	edges    []Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

// AddEdge appends a directed edge, registering unseen vertices.
func (g *Graph) AddEdge(from, to string, weight float64) {
	g.addVertex(from)
	g.addVertex(to)
	g.edges = append(g.edges, Edge{From: from, To: to, Weight: weight})
}

func (g *Graph) addVertex(v string) {
	if _, ok := g.index[v]; ok {
		return
	}
	g.index[v] = len(g.vertices)
	g.vertices = append(g.vertices, v)
}

// HasVertex reports whether the currency appears in the graph.
func (g *Graph) HasVertex(v string) bool {
	_, ok := g.index[v]
	return ok
}

// Order returns the number of vertices.
func (g *Graph) Order() int { return len(g.vertices) }

// Size returns the number of edges.
func (g *Graph) Size() int { return len(g.edges) }

// Vertices returns the vertex list in insertion order.
func (g *Graph) Vertices() []string { return g.vertices }

// Edges returns the edge list in insertion order.
func (g *Graph) Edges() []Edge { return g.edges }
