package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"forex-arb/internal/alerting"
	"forex-arb/internal/config"
	"forex-arb/internal/engine"
	"forex-arb/internal/metrics"
	"forex-arb/internal/storage"
	"forex-arb/internal/subscriber"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newEngine() *engine.Engine {
	return engine.New(engine.Options{
		AnchorCurrency:  a.Config.Engine.AnchorCurrency,
		FreshnessWindow: a.Config.Engine.FreshnessWindow,
		StartingAmount:  decimal.NewFromFloat(a.Config.Engine.StartingAmount),
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) serveMetrics(ctx context.Context) {
	if a.Config.Metrics.Addr == "" {
		return
	}

	reg := metrics.Init(a.Logger)
	srv := &http.Server{Addr: a.Config.Metrics.Addr, Handler: metrics.Handler(reg)}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		a.Logger.Info().Str("addr", a.Config.Metrics.Addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// Run executes the long-running subscription service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	a.serveMetrics(ctx)

	notifier := a.newNotifier()
	eng := a.newEngine()

	handler := a.newResultHandler(eng, store, notifier)

	sub := subscriber.New(subscriber.Options{
		ProviderAddr:      a.Config.Subscriber.ProviderAddr,
		ListenAddr:        a.Config.Subscriber.ListenAddr,
		BufferSize:        a.Config.Subscriber.BufferSize,
		IdleTimeout:       a.Config.Subscriber.IdleTimeout,
		SubscriptionPhase: a.Config.Subscriber.SubscriptionPhase,
	}, eng, handler, a.Logger)

	a.Logger.Info().Str("anchor", eng.AnchorCurrency()).Msg("starting arbitrage watcher")
	err = sub.Run(ctx)

	a.Logger.Info().Str("session_profit", eng.SessionProfit().StringFixed(2)).
		Str("currency", eng.AnchorCurrency()).Msg("session finished")

	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("subscriber terminated with error")
		return err
	}
	return nil
}

// newResultHandler fans detected opportunities out to persistence and alerts.
// Both sinks are best effort; their failures never stop the receive loop.
func (a *App) newResultHandler(eng *engine.Engine, store *storage.Store, notifier alerting.Notifier) subscriber.ResultHandler {
	return func(ctx context.Context, result engine.BatchResult) {
		opp := result.Opportunity
		if opp == nil {
			return
		}

		if store != nil {
			event := storage.ArbitrageEvent{
				DetectedAt:    opp.DetectedAt,
				Cycle:         opp.Cycle,
				Profit:        opp.Profit,
				Currency:      opp.Currency,
				SessionProfit: eng.SessionProfit(),
			}
			if _, err := store.InsertEvent(ctx, event); err != nil {
				a.Logger.Error().Err(err).Msg("failed to persist arbitrage event")
			}
		}

		if notifier != nil && a.Config.Alerting.Enabled {
			conversions := make([]alerting.Conversion, 0, len(opp.Steps))
			for _, step := range opp.Steps {
				conversions = append(conversions, alerting.Conversion{
					From: step.From, To: step.To, Rate: step.Rate, Amount: step.Amount,
				})
			}
			note := alerting.Notification{
				DetectedAt:    opp.DetectedAt,
				Cycle:         opp.Cycle,
				Conversions:   conversions,
				Profit:        opp.Profit,
				Currency:      opp.Currency,
				SessionProfit: eng.SessionProfit(),
				Channels:      a.Config.Alerting.Channels,
			}
			notifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := notifier.Notify(notifyCtx, note); err != nil {
				a.Logger.Error().Err(err).Msg("failed to dispatch alert")
			}
			cancel()
		}
	}
}

// ExportOptions hold parameters for exporting historical events.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ReplayOptions configure the replay command.
type ReplayOptions struct {
	CapturePath string
}
