package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Replay feeds a captured binary quote dump through a fresh engine in one
// pass and prints the outcome. Useful for reproducing a detection offline.
func (a *App) Replay(ctx context.Context, opts ReplayOptions) error {
	payload, err := os.ReadFile(opts.CapturePath)
	if err != nil {
		return fmt.Errorf("read capture: %w", err)
	}

	eng := a.newEngine()
	result := eng.ProcessBatch(payload, time.Now().UTC())

	fmt.Fprintf(os.Stdout, "frames: %d accepted, %d rejected, %d malformed\n",
		len(result.Accepted), len(result.Rejected), result.Malformed)

	if result.Opportunity == nil {
		fmt.Fprintln(os.Stdout, "no arbitrage opportunity detected")
		return nil
	}

	opp := result.Opportunity
	fmt.Fprintf(os.Stdout, "cycle: %s\n", strings.Join(opp.Cycle, " -> "))
	for _, step := range opp.Steps {
		fmt.Fprintf(os.Stdout, "  exchange %s for %s at %s -> %s %s\n",
			step.From, step.To, step.Rate.StringFixed(6), step.To, step.Amount.StringFixed(6))
	}
	fmt.Fprintf(os.Stdout, "profit: %s %s\n", opp.Profit.StringFixed(2), opp.Currency)
	return nil
}
