package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	QuotesAcceptedTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "quotes_accepted_total", Help: "Quotes accepted into the ledger"})
	QuotesRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "quotes_rejected_total", Help: "Quotes rejected by reason"}, []string{"reason"})
	FramesMalformedTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "frames_malformed_total", Help: "Wire frames dropped at decode"})
	PairsExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "pairs_expired_total", Help: "Market entries removed by staleness eviction"})
	DetectionPassesTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "detection_passes_total", Help: "Arbitrage detection passes executed"})
	OpportunitiesFoundTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "opportunities_found_total", Help: "Actionable arbitrage cycles simulated"})
	CyclesDiscardedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "cycles_discarded_total", Help: "Detected cycles discarded by reason"}, []string{"reason"})
	SessionProfit = prometheus.NewGauge(prometheus.GaugeOpts{Name: "session_profit", Help: "Accumulated session profit in anchor currency units"})
	DetectionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "detection_latency_seconds", Help: "Wall time of one pipeline pass", Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10)})
	LiveMarketEntries = prometheus.NewGauge(prometheus.GaugeOpts{Name: "live_market_entries", Help: "Currency pairs currently inside the freshness window"})
	BatchesReceivedTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "batches_received_total", Help: "Inbound datagrams processed"})
)

// Init registers all collectors into a fresh registry.
func Init(logger zerolog.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		QuotesAcceptedTotal, QuotesRejectedTotal, FramesMalformedTotal,
		PairsExpiredTotal, DetectionPassesTotal, OpportunitiesFoundTotal,
		CyclesDiscardedTotal, SessionProfit, DetectionLatency,
		LiveMarketEntries, BatchesReceivedTotal,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	logger.Info().Msg("Prometheus metrics initialized")
	return reg
}

// Handler serves the registry over HTTP.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
