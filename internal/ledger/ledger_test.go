package ledger

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"forex-arb/internal/wire"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func record(pair string, rate float64, micros uint64) wire.QuoteRecord {
	return wire.QuoteRecord{
		BaseCurrency:    pair[:3],
		QuoteCurrency:   pair[4:],
		Rate:            rate,
		TimestampMicros: micros,
	}
}

func TestIngestMonotonicAcceptance(t *testing.T) {
	l := New(0, noopLogger())
	now := time.Now()

	for i, tc := range []struct {
		micros uint64
		accept bool
	}{
		{100, true},
		{50, false},
		{200, true},
	} {
		report := l.Ingest([]wire.QuoteRecord{record("USD/EUR", 0.9, tc.micros)}, now)
		if tc.accept && len(report.Accepted) != 1 {
			t.Fatalf("case %d: timestamp %d should be accepted: %+v", i, tc.micros, report)
		}
		if !tc.accept {
			if len(report.Rejected) != 1 || report.Rejected[0].Reason != ReasonOutOfSequence {
				t.Fatalf("case %d: timestamp %d should be rejected out-of-sequence: %+v", i, tc.micros, report)
			}
		}
	}
}

func TestIngestRejectsIncompleteQuotes(t *testing.T) {
	l := New(0, noopLogger())
	now := time.Now()

	cases := []wire.QuoteRecord{
		{BaseCurrency: "", QuoteCurrency: "EUR", Rate: 1, TimestampMicros: 1},
		{BaseCurrency: "USD", QuoteCurrency: "EUR", Rate: 0, TimestampMicros: 1},
		{BaseCurrency: "USD", QuoteCurrency: "EUR", Rate: -2, TimestampMicros: 1},
		{BaseCurrency: "USD", QuoteCurrency: "EUR", Rate: math.NaN(), TimestampMicros: 1},
		{BaseCurrency: "USD", QuoteCurrency: "EUR", Rate: math.Inf(1), TimestampMicros: 1},
		{BaseCurrency: "USD", QuoteCurrency: "EUR", Rate: 1, TimestampMicros: 0},
	}

	for i, rec := range cases {
		report := l.Ingest([]wire.QuoteRecord{rec}, now)
		if len(report.Rejected) != 1 || report.Rejected[0].Reason != ReasonIncompleteQuote {
			t.Fatalf("case %d should be rejected incomplete: %+v", i, report)
		}
	}
	if l.Len() != 0 {
		t.Fatalf("no entries should be stored, got %d", l.Len())
	}
}

func TestExpireStale(t *testing.T) {
	l := New(0, noopLogger())
	t0 := time.Now()

	l.Ingest([]wire.QuoteRecord{record("USD/EUR", 0.9, 100)}, t0)

	if removed := l.ExpireStale(t0.Add(1 * time.Second)); len(removed) != 0 {
		t.Fatalf("entry should still be fresh at t0+1.0s: %v", removed)
	}
	if g := l.ToGraph(); !g.HasVertex("USD") || !g.HasVertex("EUR") {
		t.Fatal("fresh entry should appear in the graph")
	}

	removed := l.ExpireStale(t0.Add(1600 * time.Millisecond))
	if len(removed) != 1 || removed[0] != "USD/EUR" {
		t.Fatalf("entry should expire at t0+1.6s: %v", removed)
	}
	if g := l.ToGraph(); g.Order() != 0 {
		t.Fatalf("expired entry must leave the graph, order=%d", g.Order())
	}
}

func TestExpireStaleIdempotent(t *testing.T) {
	l := New(0, noopLogger())
	t0 := time.Now()
	l.Ingest([]wire.QuoteRecord{record("USD/EUR", 0.9, 100)}, t0)

	later := t0.Add(2 * time.Second)
	if removed := l.ExpireStale(later); len(removed) != 1 {
		t.Fatalf("first call should remove the entry: %v", removed)
	}
	if removed := l.ExpireStale(later); len(removed) != 0 {
		t.Fatalf("second call with same now must remove nothing: %v", removed)
	}
}

func TestSequenceSurvivesExpiry(t *testing.T) {
	l := New(0, noopLogger())
	t0 := time.Now()

	l.Ingest([]wire.QuoteRecord{record("USD/EUR", 0.9, 200)}, t0)
	l.ExpireStale(t0.Add(2 * time.Second))

	// A stale-but-later-arriving duplicate must still be refused.
	report := l.Ingest([]wire.QuoteRecord{record("USD/EUR", 0.9, 150)}, t0.Add(2*time.Second))
	if len(report.Rejected) != 1 || report.Rejected[0].Reason != ReasonOutOfSequence {
		t.Fatalf("replayed older timestamp should stay rejected: %+v", report)
	}
}

func TestToGraphBothDirections(t *testing.T) {
	l := New(0, noopLogger())
	now := time.Now()
	l.Ingest([]wire.QuoteRecord{record("USD/EUR", 0.9, 100)}, now)

	g := l.ToGraph()
	if g.Order() != 2 || g.Size() != 2 {
		t.Fatalf("one pair must yield 2 vertices and 2 edges, got %d/%d", g.Order(), g.Size())
	}

	edges := g.Edges()
	forward, reverse := edges[0], edges[1]
	if forward.From != "USD" || forward.To != "EUR" || reverse.From != "EUR" || reverse.To != "USD" {
		t.Fatalf("unexpected edge endpoints: %+v", edges)
	}
	if math.Abs(forward.Weight-(-math.Log(0.9))) > 1e-12 {
		t.Fatalf("forward weight wrong: %v", forward.Weight)
	}
	if math.Abs(reverse.Weight-(-math.Log(1/0.9))) > 1e-12 {
		t.Fatalf("reverse weight wrong: %v", reverse.Weight)
	}
	// The two directions cancel: no free profit from one pair.
	if sum := forward.Weight + reverse.Weight; math.Abs(sum) > 1e-12 {
		t.Fatalf("round trip weight should be zero, got %v", sum)
	}
}

func TestIngestReverseDirectionUpdatesSameEntry(t *testing.T) {
	l := New(0, noopLogger())
	now := time.Now()

	l.Ingest([]wire.QuoteRecord{record("USD/EUR", 0.8, 100)}, now)
	report := l.Ingest([]wire.QuoteRecord{record("EUR/USD", 2.0, 200)}, now)

	if len(report.Accepted) != 1 || report.Accepted[0] != "USD/EUR" {
		t.Fatalf("reverse quote should land on the stored orientation: %+v", report)
	}
	if l.Len() != 1 {
		t.Fatalf("both directions must share one entry, got %d", l.Len())
	}
	if rate, ok := l.Rate("USD", "EUR"); !ok || math.Abs(rate-0.5) > 1e-12 {
		t.Fatalf("reverse quote should invert into the stored direction: %v %v", rate, ok)
	}

	// Sequence state is shared too: an older quote in either direction loses.
	report = l.Ingest([]wire.QuoteRecord{record("EUR/USD", 1.0, 150)}, now)
	if len(report.Rejected) != 1 || report.Rejected[0].Reason != ReasonOutOfSequence {
		t.Fatalf("older reverse quote should be rejected: %+v", report)
	}
}

func TestRateDerivesInverse(t *testing.T) {
	l := New(0, noopLogger())
	now := time.Now()
	l.Ingest([]wire.QuoteRecord{record("USD/EUR", 0.8, 100)}, now)

	if rate, ok := l.Rate("USD", "EUR"); !ok || rate != 0.8 {
		t.Fatalf("direct rate wrong: %v %v", rate, ok)
	}
	if rate, ok := l.Rate("EUR", "USD"); !ok || math.Abs(rate-1.25) > 1e-12 {
		t.Fatalf("inverse rate wrong: %v %v", rate, ok)
	}
	if _, ok := l.Rate("USD", "JPY"); ok {
		t.Fatal("unknown pair should not resolve")
	}
}
