package graph

import "errors"

// ErrCorruptedCycle reports a predecessor walk that revisited a vertex or ran
// out of links before closing back on the witness edge.
var ErrCorruptedCycle = errors.New("graph: corrupted negative cycle witness")

// ReconstructCycle turns a witness edge and predecessor map into an explicit
// cycle of currencies in forward order, first vertex repeated last. The walk
// is bounded by the vertex count and a visited set so a malformed predecessor
// map terminates with ErrCorruptedCycle instead of looping. Cycles with fewer
// than three vertices are degenerate artifacts and rejected the same way.
func (g *Graph) ReconstructCycle(w Witness, pred map[string]string) ([]string, error) {
	cycle := []string{w.To}
	visited := make(map[string]bool, len(g.vertices))

	current := w.From
	for steps := 0; current != w.To && current != ""; steps++ {
		if steps > len(g.vertices) || visited[current] {
			return nil, ErrCorruptedCycle
		}
		visited[current] = true
		cycle = append(cycle, current)
		current = pred[current]
	}

	cycle = append(cycle, w.To)
	reverse(cycle)

	if len(cycle) < 3 {
		return nil, ErrCorruptedCycle
	}
	return cycle, nil
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
