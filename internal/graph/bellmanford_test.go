package graph

import (
	"math"
	"testing"
)

func weights(rate float64) (forward, reverse float64) {
	return -math.Log(rate), -math.Log(1 / rate)
}

func TestNoFalsePositiveOnExactInverses(t *testing.T) {
	g := New()
	f, r := weights(0.9)
	g.AddEdge("USD", "EUR", f)
	g.AddEdge("EUR", "USD", r)

	if _, _, found := g.FindNegativeCycle("USD"); found {
		t.Fatal("exact inverse rates must not produce a negative cycle")
	}
}

func TestDetectsProfitableTriangle(t *testing.T) {
	g := New()
	for _, e := range []struct {
		from, to string
		rate     float64
	}{
		{"USD", "EUR", 1.0},
		{"EUR", "GBP", 1.0},
		{"GBP", "USD", 1.05},
	} {
		f, r := weights(e.rate)
		g.AddEdge(e.from, e.to, f)
		g.AddEdge(e.to, e.from, r)
	}

	witness, pred, found := g.FindNegativeCycle("USD")
	if !found {
		t.Fatal("expected a negative cycle")
	}

	cycle, err := g.ReconstructCycle(witness, pred)
	if err != nil {
		t.Fatalf("reconstruction failed: %v", err)
	}
	if cycle[0] != cycle[len(cycle)-1] {
		t.Fatalf("cycle must close on itself: %v", cycle)
	}
	if len(cycle) < 3 {
		t.Fatalf("cycle too short: %v", cycle)
	}

	seen := map[string]bool{}
	for _, c := range cycle {
		seen[c] = true
	}
	for _, want := range []string{"USD", "EUR", "GBP"} {
		if !seen[want] {
			t.Fatalf("cycle %v missing %s", cycle, want)
		}
	}
}

func TestDeterministicWitness(t *testing.T) {
	build := func() *Graph {
		g := New()
		for _, e := range []struct {
			from, to string
			rate     float64
		}{
			{"EUR", "GBP", 1.0},
			{"GBP", "USD", 1.05},
			{"USD", "EUR", 1.0},
		} {
			f, r := weights(e.rate)
			g.AddEdge(e.from, e.to, f)
			g.AddEdge(e.to, e.from, r)
		}
		return g
	}

	w1, _, ok1 := build().FindNegativeCycle("USD")
	w2, _, ok2 := build().FindNegativeCycle("USD")
	if !ok1 || !ok2 || w1 != w2 {
		t.Fatalf("witness must be reproducible: %v/%v %v/%v", w1, ok1, w2, ok2)
	}
}

func TestMissingAnchorVertex(t *testing.T) {
	g := New()
	f, r := weights(1.1)
	g.AddEdge("EUR", "GBP", f)
	g.AddEdge("GBP", "EUR", r)

	if _, _, found := g.FindNegativeCycle("USD"); found {
		t.Fatal("absent anchor must yield no result")
	}
}

func TestEmptyGraph(t *testing.T) {
	if _, _, found := New().FindNegativeCycle("USD"); found {
		t.Fatal("empty graph must yield no result")
	}
}
