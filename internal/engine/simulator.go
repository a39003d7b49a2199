package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMissingRate reports a cycle hop with no live entry in either direction,
// the symptom of an entry expiring between detection and simulation.
var ErrMissingRate = errors.New("engine: no live rate for cycle hop")

// simulate walks a validated anchor cycle, converting a fixed starting amount
// through each hop, and returns the resulting opportunity. The cycle is
// rotated in place to begin at the anchor.
func (e *Engine) simulate(cycle []string, now time.Time) (*Opportunity, error) {
	rotateToAnchor(cycle, e.anchor)

	amount := e.startAmount
	steps := make([]ConversionStep, 0, len(cycle)-1)

	for i := 0; i < len(cycle)-1; i++ {
		from, to := cycle[i], cycle[i+1]
		rate, ok := e.ledger.Rate(from, to)
		if !ok {
			return nil, fmt.Errorf("%w: %s->%s", ErrMissingRate, from, to)
		}

		dec := decimal.NewFromFloat(rate)
		amount = amount.Mul(dec)
		steps = append(steps, ConversionStep{From: from, To: to, Rate: dec, Amount: amount})

		e.logger.Info().Str("from", from).Str("to", to).
			Str("rate", dec.StringFixed(6)).
			Str("amount", amount.StringFixed(6)).Msg("exchange")
	}

	return &Opportunity{
		Cycle:      append([]string(nil), cycle...),
		Steps:      steps,
		Profit:     amount.Sub(e.startAmount),
		Currency:   e.anchor,
		DetectedAt: now,
	}, nil
}

// rotateToAnchor rotates a closed cycle [a ... a] so it starts and ends at
// the anchor. The caller has already verified membership.
func rotateToAnchor(cycle []string, anchor string) {
	if len(cycle) < 2 || cycle[0] == anchor {
		return
	}
	// Drop the duplicated closing vertex, rotate the open cycle, close again.
	open := cycle[:len(cycle)-1]
	idx := 0
	for i, c := range open {
		if c == anchor {
			idx = i
			break
		}
	}
	rotated := make([]string, 0, len(open))
	rotated = append(rotated, open[idx:]...)
	rotated = append(rotated, open[:idx]...)
	copy(cycle, rotated)
	cycle[len(cycle)-1] = anchor
}
