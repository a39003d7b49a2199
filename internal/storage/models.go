package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// ArbitrageEvent captures a simulated arbitrage opportunity for auditing.
// Quote history itself is never persisted; only detection outcomes are.
type ArbitrageEvent struct {
	ID            int64
	DetectedAt    time.Time
	Cycle         []string
	Profit        decimal.Decimal
	Currency      string
	SessionProfit decimal.Decimal
	CreatedAt     time.Time
}
