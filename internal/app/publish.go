package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"forex-arb/internal/publisher"
)

// Publish runs the demo quote provider until interrupted.
func (a *App) Publish(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pub := publisher.New(publisher.Options{
		ListenAddr: a.Config.Publisher.ListenAddr,
		Interval:   a.Config.Publisher.Interval,
		BatchSize:  a.Config.Publisher.BatchSize,
		Currencies: a.Config.Publisher.Currencies,
		Seed:       a.Config.Publisher.Seed,
	}, a.Logger)

	a.Logger.Info().Msg("starting demo quote publisher")
	err := pub.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("publisher terminated with error")
		return err
	}

	a.Logger.Info().Msg("publisher stopped")
	return nil
}
