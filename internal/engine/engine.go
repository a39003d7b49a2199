// Package engine runs the synchronous per-batch pipeline: decode, ingest,
// expire, detect, resolve, simulate. One engine owns one ledger and the
// session profit accumulator; callers serialize batches into it.
package engine

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"forex-arb/internal/ledger"
	"forex-arb/internal/metrics"
	"forex-arb/internal/wire"
)

// DefaultAnchorCurrency is the reference currency detection starts from and
// profit is reported in.
const DefaultAnchorCurrency = "USD"

// DefaultStartingAmount is the notional each simulated cycle begins with.
var DefaultStartingAmount = decimal.NewFromInt(100)

// Options configure an Engine.
type Options struct {
	AnchorCurrency  string
	FreshnessWindow time.Duration
	StartingAmount  decimal.Decimal
}

// ConversionStep is one hop of a simulated cycle.
type ConversionStep struct {
	From   string
	To     string
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// Opportunity is an actionable arbitrage found in one pass.
type Opportunity struct {
	Cycle      []string
	Steps      []ConversionStep
	Profit     decimal.Decimal
	Currency   string
	DetectedAt time.Time
}

// BatchResult reports the outcome of one ProcessBatch call.
type BatchResult struct {
	Malformed   int
	Accepted    []string
	Rejected    []ledger.Rejection
	Expired     []string
	Opportunity *Opportunity
}

// Engine glues the codec, ledger, detector, and simulator together.
type Engine struct {
	ledger        *ledger.Ledger
	anchor        string
	startAmount   decimal.Decimal
	sessionProfit decimal.Decimal
	logger        zerolog.Logger
}

// New constructs an engine; zero option fields take the package defaults.
func New(opts Options, logger zerolog.Logger) *Engine {
	if opts.AnchorCurrency == "" {
		opts.AnchorCurrency = DefaultAnchorCurrency
	}
	if opts.StartingAmount.IsZero() {
		opts.StartingAmount = DefaultStartingAmount
	}
	return &Engine{
		ledger:      ledger.New(opts.FreshnessWindow, logger),
		anchor:      opts.AnchorCurrency,
		startAmount: opts.StartingAmount,
		logger:      logger.With().Str("component", "engine").Logger(),
	}
}

// AnchorCurrency returns the configured anchor.
func (e *Engine) AnchorCurrency() string { return e.anchor }

// SessionProfit returns the profit accumulated since construction, in anchor
// currency units.
func (e *Engine) SessionProfit() decimal.Decimal { return e.sessionProfit }

// ProcessBatch runs one full pipeline pass over a raw datagram payload. Every
// failure mode short of allocation exhaustion degrades to "no opportunity in
// this batch"; the pipeline itself never errors.
func (e *Engine) ProcessBatch(payload []byte, now time.Time) BatchResult {
	started := time.Now()
	metrics.BatchesReceivedTotal.Inc()

	decoded := wire.DecodeFrames(payload)
	if decoded.Malformed > 0 {
		e.logger.Warn().Int("frames", decoded.Malformed).Msg("dropped malformed frames")
		metrics.FramesMalformedTotal.Add(float64(decoded.Malformed))
	}

	ingest := e.ledger.Ingest(decoded.Records, now)
	metrics.QuotesAcceptedTotal.Add(float64(len(ingest.Accepted)))
	for _, rej := range ingest.Rejected {
		metrics.QuotesRejectedTotal.WithLabelValues(rej.Reason).Inc()
	}

	expired := e.ledger.ExpireStale(now)
	metrics.PairsExpiredTotal.Add(float64(len(expired)))
	metrics.LiveMarketEntries.Set(float64(e.ledger.Len()))

	result := BatchResult{
		Malformed: decoded.Malformed,
		Accepted:  ingest.Accepted,
		Rejected:  ingest.Rejected,
		Expired:   expired,
	}
	result.Opportunity = e.detect(now)

	metrics.DetectionLatency.Observe(time.Since(started).Seconds())
	return result
}

// detect runs one detection pass over the current graph snapshot.
func (e *Engine) detect(now time.Time) *Opportunity {
	metrics.DetectionPassesTotal.Inc()

	g := e.ledger.ToGraph()
	witness, pred, found := g.FindNegativeCycle(e.anchor)
	if !found {
		e.logger.Debug().Int("vertices", g.Order()).Msg("no arbitrage opportunity detected")
		return nil
	}

	cycle, err := g.ReconstructCycle(witness, pred)
	if err != nil {
		e.logger.Warn().Str("witness", witness.From+"->"+witness.To).Err(err).
			Msg("discarding pass with corrupted cycle")
		metrics.CyclesDiscardedTotal.WithLabelValues("corrupted_cycle").Inc()
		return nil
	}

	if !contains(cycle, e.anchor) {
		e.logger.Info().Strs("cycle", cycle).Str("anchor", e.anchor).
			Msg("negative cycle does not include anchor; no actionable arbitrage")
		metrics.CyclesDiscardedTotal.WithLabelValues("no_anchor").Inc()
		return nil
	}

	opp, err := e.simulate(cycle, now)
	if err != nil {
		e.logger.Warn().Strs("cycle", cycle).Err(err).
			Msg("discarding pass: rate expired between detection and simulation")
		metrics.CyclesDiscardedTotal.WithLabelValues("missing_rate").Inc()
		return nil
	}

	e.sessionProfit = e.sessionProfit.Add(opp.Profit)
	metrics.OpportunitiesFoundTotal.Inc()
	metrics.SessionProfit.Set(e.sessionProfit.InexactFloat64())

	e.logger.Info().Strs("cycle", opp.Cycle).
		Str("profit", opp.Profit.StringFixed(2)).
		Str("currency", opp.Currency).
		Str("session_profit", e.sessionProfit.StringFixed(2)).
		Msg("arbitrage opportunity")
	return opp
}

func contains(cycle []string, currency string) bool {
	for _, c := range cycle {
		if c == currency {
			return true
		}
	}
	return false
}
