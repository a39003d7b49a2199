package graph

import "math"

// Witness is an edge that still relaxes after |V|-1 Bellman-Ford passes,
// proving a negative cycle is reachable from the source.
type Witness struct {
	From string
	To   string
}

// FindNegativeCycle runs Bellman-Ford from source and returns the first edge
// (in insertion order) that relaxes on the extra pass, together with the
// predecessor map accumulated during relaxation. ok is false when the source
// is absent from the graph or no edge relaxes on the witness pass.
func (g *Graph) FindNegativeCycle(source string) (Witness, map[string]string, bool) {
	if !g.HasVertex(source) {
		return Witness{}, nil, false
	}

	dist := make(map[string]float64, len(g.vertices))
	pred := make(map[string]string, len(g.vertices))
	for _, v := range g.vertices {
		dist[v] = math.Inf(1)
	}
	dist[source] = 0

	for i := 0; i < len(g.vertices)-1; i++ {
		relaxed := false
		for _, e := range g.edges {
			if dist[e.From]+e.Weight < dist[e.To] {
				dist[e.To] = dist[e.From] + e.Weight
				pred[e.To] = e.From
				relaxed = true
			}
		}
		if !relaxed {
			break
		}
	}

	// Witness pass: any edge still relaxing lies on or leads into a
	// negative cycle.
	for _, e := range g.edges {
		if dist[e.From]+e.Weight < dist[e.To] {
			return Witness{From: e.From, To: e.To}, pred, true
		}
	}

	return Witness{}, nil, false
}
