// Package subscriber owns the transport session with the quote provider: it
// sends the subscription handshake, then drives a UDP receive loop feeding
// the detection engine one datagram at a time.
package subscriber

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/rs/zerolog"

	"forex-arb/internal/engine"
	"forex-arb/internal/wire"
)

// Options configure the subscription session.
type Options struct {
	ProviderAddr      string
	ListenAddr        string
	BufferSize        int
	IdleTimeout       time.Duration
	SubscriptionPhase time.Duration
}

// ResultHandler receives the outcome of each processed batch.
type ResultHandler func(ctx context.Context, result engine.BatchResult)

// Subscriber binds a local UDP socket, subscribes with the provider, and
// serializes inbound batches into the engine.
type Subscriber struct {
	opts    Options
	engine  *engine.Engine
	handler ResultHandler
	logger  zerolog.Logger
}

// New constructs a subscriber. handler may be nil.
func New(opts Options, eng *engine.Engine, handler ResultHandler, logger zerolog.Logger) *Subscriber {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 4096
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 10 * time.Second
	}
	return &Subscriber{
		opts:    opts,
		engine:  eng,
		handler: handler,
		logger:  logger.With().Str("component", "subscriber").Logger(),
	}
}

// Run subscribes and blocks receiving quotes until the context is cancelled,
// the subscription phase elapses, or two consecutive idle periods pass with
// no traffic.
func (s *Subscriber) Run(ctx context.Context) error {
	listenAddr, err := netip.ParseAddrPort(s.opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("parse listen addr: %w", err)
	}

	conn, err := net.ListenUDP("udp4", net.UDPAddrFromAddrPort(listenAddr))
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.opts.ListenAddr, err)
	}
	defer conn.Close()

	// Unblock the read loop on cancellation.
	go func() {
		<-ctx.Done()
		_ = conn.SetReadDeadline(time.Now())
	}()

	if err := s.subscribe(conn, listenAddr); err != nil {
		return err
	}

	s.logger.Info().Str("listen", s.opts.ListenAddr).Msg("listening for forex quotes")

	var phaseEnd time.Time
	if s.opts.SubscriptionPhase > 0 {
		phaseEnd = time.Now().Add(s.opts.SubscriptionPhase)
	}

	buf := make([]byte, s.opts.BufferSize)
	idleStrikes := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !phaseEnd.IsZero() && !time.Now().Before(phaseEnd) {
			s.logger.Info().Msg("subscription phase elapsed; shutting down")
			return nil
		}

		_ = conn.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				idleStrikes++
				if idleStrikes >= 2 {
					s.logger.Warn().Msg("no quotes in two consecutive idle periods; shutting down")
					return nil
				}
				s.logger.Warn().Dur("idle_timeout", s.opts.IdleTimeout).
					Msg("no quotes received; shutting down after one more idle period")
				continue
			}
			return fmt.Errorf("read quotes: %w", err)
		}
		idleStrikes = 0

		result := s.engine.ProcessBatch(buf[:n], time.Now().UTC())
		if s.handler != nil {
			s.handler(ctx, result)
		}
	}
}

// subscribe sends the 6-byte handshake advertising our listen address.
func (s *Subscriber) subscribe(conn *net.UDPConn, listenAddr netip.AddrPort) error {
	providerAddr, err := net.ResolveUDPAddr("udp4", s.opts.ProviderAddr)
	if err != nil {
		return fmt.Errorf("resolve provider addr: %w", err)
	}

	payload, err := wire.EncodeAddress(listenAddr)
	if err != nil {
		return fmt.Errorf("encode subscription: %w", err)
	}

	if _, err := conn.WriteToUDP(payload, providerAddr); err != nil {
		return fmt.Errorf("send subscription: %w", err)
	}

	s.logger.Info().Str("provider", s.opts.ProviderAddr).
		Str("listen", listenAddr.String()).Msg("subscribed to forex provider")
	return nil
}
