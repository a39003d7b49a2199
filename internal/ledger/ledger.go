// Package ledger maintains the latest-known price per currency pair inside a
// freshness window and derives the weighted graph arbitrage detection runs on.
package ledger

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"forex-arb/internal/graph"
	"forex-arb/internal/wire"
)

// DefaultFreshnessWindow is the maximum age a quote may reach before it is
// excluded from the graph.
const DefaultFreshnessWindow = 1500 * time.Millisecond

// Reject reasons reported by Ingest.
const (
	ReasonIncompleteQuote = "incomplete_quote"
	ReasonOutOfSequence   = "out_of_sequence"
)

// MarketEntry is the live state for one unordered currency pair. A single
// entry represents both directions of the pair; the reverse rate is derived
// by inversion rather than stored, so the two directions can never drift
// apart and manufacture a false arbitrage.
type MarketEntry struct {
	Price      float64
	ReceivedAt time.Time
}

// Rejection describes one refused quote record.
type Rejection struct {
	PairID string
	Reason string
}

// IngestReport summarises one Ingest call.
type IngestReport struct {
	Accepted []string
	Rejected []Rejection
}

// Ledger owns the per-pair market entries and the monotonic sequence tracker.
// Not safe for concurrent use; the caller serializes pipeline passes.
type Ledger struct {
	entries  map[string]MarketEntry
	lastSeen map[string]uint64
	window   time.Duration
	logger   zerolog.Logger
}

// New constructs a ledger with the given freshness window; a non-positive
// window falls back to DefaultFreshnessWindow.
func New(window time.Duration, logger zerolog.Logger) *Ledger {
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	return &Ledger{
		entries:  make(map[string]MarketEntry),
		lastSeen: make(map[string]uint64),
		window:   window,
		logger:   logger.With().Str("component", "ledger").Logger(),
	}
}

// Ingest applies a batch of decoded records. Records missing a field or
// carrying a non-positive or non-finite rate are rejected as incomplete;
// records whose timestamp is not strictly newer than the last accepted one
// for the pair are rejected as out of sequence with no state change.
// lastSeen is updated only on acceptance and never rolled back, so a pair
// whose entry has expired still refuses replayed older quotes.
func (l *Ledger) Ingest(records []wire.QuoteRecord, now time.Time) IngestReport {
	var report IngestReport

	for _, rec := range records {
		if rec.BaseCurrency == "" || rec.QuoteCurrency == "" || rec.TimestampMicros == 0 ||
			rec.Rate <= 0 || math.IsInf(rec.Rate, 0) || math.IsNaN(rec.Rate) {
			l.logger.Warn().Str("pair", rec.PairID()).Float64("rate", rec.Rate).
				Uint64("ts_micros", rec.TimestampMicros).Msg("skipping incomplete quote")
			report.Rejected = append(report.Rejected, Rejection{PairID: rec.PairID(), Reason: ReasonIncompleteQuote})
			continue
		}

		pairID, inverted := l.canonicalID(rec.BaseCurrency, rec.QuoteCurrency)
		rate := rec.Rate
		if inverted {
			rate = 1 / rate
		}

		if last, ok := l.lastSeen[pairID]; ok && rec.TimestampMicros <= last {
			l.logger.Debug().Str("pair", pairID).Uint64("ts_micros", rec.TimestampMicros).
				Uint64("last_micros", last).Msg("ignoring out-of-sequence quote")
			report.Rejected = append(report.Rejected, Rejection{PairID: pairID, Reason: ReasonOutOfSequence})
			continue
		}

		l.lastSeen[pairID] = rec.TimestampMicros
		l.entries[pairID] = MarketEntry{Price: rate, ReceivedAt: now}
		report.Accepted = append(report.Accepted, pairID)

		l.logger.Info().Str("pair", pairID).Float64("rate", rec.Rate).
			Time("quoted_at", time.UnixMicro(int64(rec.TimestampMicros)).UTC()).Msg("quote accepted")
	}

	return report
}

// canonicalID maps both directions of a pair onto the orientation the pair
// was first accepted in. A quote arriving in the reverse direction updates
// the same cell with the inverted rate, so the two directions can never hold
// divergent prices. Orientation is sticky because lastSeen never forgets.
func (l *Ledger) canonicalID(base, quote string) (pairID string, inverted bool) {
	id := base + "/" + quote
	if _, ok := l.lastSeen[id]; ok {
		return id, false
	}
	if _, ok := l.lastSeen[quote+"/"+base]; ok {
		return quote + "/" + base, true
	}
	return id, false
}

// ExpireStale removes every entry older than the freshness window and returns
// the removed pair ids in sorted order. Sequence state is retained so expired
// pairs still reject stale replays. Idempotent for a fixed now.
func (l *Ledger) ExpireStale(now time.Time) []string {
	var removed []string
	for pairID, entry := range l.entries {
		if now.Sub(entry.ReceivedAt) > l.window {
			delete(l.entries, pairID)
			removed = append(removed, pairID)
		}
	}
	sort.Strings(removed)

	for _, pairID := range removed {
		l.logger.Info().Str("pair", pairID).Msg("removing stale quote")
	}
	return removed
}

// Rate returns the live exchange rate from one currency to another, deriving
// the inverse when only the reverse direction is stored.
func (l *Ledger) Rate(from, to string) (float64, bool) {
	if entry, ok := l.entries[from+"/"+to]; ok {
		return entry.Price, true
	}
	if entry, ok := l.entries[to+"/"+from]; ok {
		return 1 / entry.Price, true
	}
	return 0, false
}

// Len returns the number of live entries.
func (l *Ledger) Len() int { return len(l.entries) }

// ToGraph builds the directed weighted graph over the live entries. Every
// stored pair contributes both directed edges: weight(A->B) = -ln(rate) and
// weight(B->A) = -ln(1/rate). Pairs are visited in sorted order so the edge
// list, and therefore witness selection, is deterministic.
func (l *Ledger) ToGraph() *graph.Graph {
	pairIDs := make([]string, 0, len(l.entries))
	for pairID := range l.entries {
		pairIDs = append(pairIDs, pairID)
	}
	sort.Strings(pairIDs)

	g := graph.New()
	for _, pairID := range pairIDs {
		base, quote, ok := strings.Cut(pairID, "/")
		if !ok {
			continue
		}
		rate := l.entries[pairID].Price
		g.AddEdge(base, quote, -math.Log(rate))
		g.AddEdge(quote, base, -math.Log(1/rate))
	}
	return g
}
