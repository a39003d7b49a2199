// Package publisher implements a demo quote provider: it accepts 6-byte
// subscription handshakes and streams batches of synthetic quotes to every
// subscriber. It exists so the subscriber side can be exercised end to end
// without a real feed.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/rs/zerolog"

	"forex-arb/internal/wire"
)

const subscriptionTTL = 10 * time.Minute

// Options configure the demo provider.
type Options struct {
	ListenAddr string
	Interval   time.Duration
	BatchSize  int
	Currencies []string
	Seed       int64
}

// Publisher streams randomized quotes over UDP.
type Publisher struct {
	opts   Options
	rng    *rand.Rand
	prices map[string]float64
	subs   map[string]subscription
	logger zerolog.Logger
}

type subscription struct {
	addr      *net.UDPAddr
	expiresAt time.Time
}

// New constructs a publisher. A zero seed derives one from the clock.
func New(opts Options, logger zerolog.Logger) *Publisher {
	if opts.Interval <= 0 {
		opts.Interval = 250 * time.Millisecond
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 8
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Publisher{
		opts:   opts,
		rng:    rand.New(rand.NewSource(seed)),
		prices: make(map[string]float64),
		subs:   make(map[string]subscription),
		logger: logger.With().Str("component", "publisher").Logger(),
	}
}

// Run accepts subscriptions and publishes quote batches until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	udpAddr, err := net.ResolveUDPAddr("udp4", p.opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("resolve listen addr: %w", err)
	}
	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", p.opts.ListenAddr, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.SetReadDeadline(time.Now())
	}()

	p.logger.Info().Str("listen", p.opts.ListenAddr).Msg("accepting forex subscriptions")

	buf := make([]byte, 64)
	nextBatch := time.Now().Add(p.opts.Interval)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		_ = conn.SetReadDeadline(nextBatch)
		n, _, err := conn.ReadFromUDP(buf)
		switch {
		case err == nil:
			p.handleSubscription(buf[:n])
			continue
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			var netErr net.Error
			if !errors.As(err, &netErr) || !netErr.Timeout() {
				return fmt.Errorf("read subscription: %w", err)
			}
		}

		p.publishBatch(conn, time.Now().UTC())
		nextBatch = nextBatch.Add(p.opts.Interval)
	}
}

func (p *Publisher) handleSubscription(payload []byte) {
	addrPort, err := wire.DecodeAddress(payload)
	if err != nil {
		p.logger.Warn().Err(err).Msg("ignoring malformed subscription")
		return
	}
	sub := subscription{
		addr:      net.UDPAddrFromAddrPort(addrPort),
		expiresAt: time.Now().Add(subscriptionTTL),
	}
	p.subs[addrPort.String()] = sub
	p.logger.Info().Str("subscriber", addrPort.String()).Msg("subscription registered")
}

func (p *Publisher) publishBatch(conn *net.UDPConn, now time.Time) {
	for key, sub := range p.subs {
		if now.After(sub.expiresAt) {
			delete(p.subs, key)
			p.logger.Info().Str("subscriber", key).Msg("subscription expired")
		}
	}
	if len(p.subs) == 0 {
		return
	}

	quotes := p.nextQuotes(now)
	payload, err := wire.EncodeFrames(quotes)
	if err != nil {
		p.logger.Error().Err(err).Msg("encode batch failed")
		return
	}

	for key, sub := range p.subs {
		if _, err := conn.WriteToUDP(payload, sub.addr); err != nil {
			p.logger.Warn().Err(err).Str("subscriber", key).Msg("send batch failed")
		}
	}
}

// nextQuotes random-walks a price per pair around a plausible base so that
// occasional profitable cycles emerge.
func (p *Publisher) nextQuotes(now time.Time) []wire.Quote {
	seconds := float64(now.UnixMicro()) / 1e6
	quotes := make([]wire.Quote, 0, p.opts.BatchSize)

	for i := 0; i < p.opts.BatchSize; i++ {
		a := p.opts.Currencies[p.rng.Intn(len(p.opts.Currencies))]
		b := p.opts.Currencies[p.rng.Intn(len(p.opts.Currencies))]
		if a == b {
			continue
		}
		cross := a + "/" + b

		price, ok := p.prices[cross]
		if !ok {
			price = 0.5 + p.rng.Float64()*1.5
		}
		price *= 1 + (p.rng.Float64()-0.5)*0.02
		p.prices[cross] = price

		ts := seconds
		quotes = append(quotes, wire.Quote{Cross: cross, Price: price, Time: &ts})
	}
	return quotes
}
