package subscriber

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"forex-arb/internal/engine"
	"forex-arb/internal/wire"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newProvider(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("bind provider: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSubscribeAndReceiveBatch(t *testing.T) {
	provider := newProvider(t)

	eng := engine.New(engine.Options{}, noopLogger())
	results := make(chan engine.BatchResult, 1)
	handler := func(ctx context.Context, result engine.BatchResult) {
		select {
		case results <- result:
		default:
		}
	}

	sub := New(Options{
		ProviderAddr: provider.LocalAddr().String(),
		ListenAddr:   "127.0.0.1:0",
		BufferSize:   4096,
		IdleTimeout:  2 * time.Second,
	}, eng, handler, noopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	// The provider sees the handshake and answers to the sender address,
	// which also covers subscribers bound to an ephemeral port.
	buf := make([]byte, 64)
	_ = provider.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, subscriberAddr, err := provider.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("provider did not receive handshake: %v", err)
	}
	if n != wire.AddressSize {
		t.Fatalf("handshake should be %d bytes, got %d", wire.AddressSize, n)
	}
	if _, err := wire.DecodeAddress(buf[:n]); err != nil {
		t.Fatalf("handshake payload malformed: %v", err)
	}

	ts := 100.0
	payload, err := wire.EncodeFrames([]wire.Quote{{Cross: "USD/EUR", Price: 0.9, Time: &ts}})
	if err != nil {
		t.Fatalf("encode frames: %v", err)
	}
	if _, err := provider.WriteToUDP(payload, subscriberAddr); err != nil {
		t.Fatalf("send batch: %v", err)
	}

	select {
	case result := <-results:
		if len(result.Accepted) != 1 || result.Accepted[0] != "USD/EUR" {
			t.Fatalf("unexpected batch result: %+v", result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no batch processed within deadline")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop on cancellation")
	}
}

func TestIdleShutdownAfterTwoPeriods(t *testing.T) {
	provider := newProvider(t)

	eng := engine.New(engine.Options{}, noopLogger())
	sub := New(Options{
		ProviderAddr: provider.LocalAddr().String(),
		ListenAddr:   "127.0.0.1:0",
		BufferSize:   4096,
		IdleTimeout:  50 * time.Millisecond,
	}, eng, nil, noopLogger())

	done := make(chan error, 1)
	go func() { done <- sub.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("idle shutdown should be clean: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not shut down after two idle periods")
	}
}

func TestRunRejectsBadListenAddr(t *testing.T) {
	eng := engine.New(engine.Options{}, noopLogger())
	sub := New(Options{ProviderAddr: "127.0.0.1:10203", ListenAddr: "not-an-addr"}, eng, nil, noopLogger())

	if err := sub.Run(context.Background()); err == nil {
		t.Fatal("malformed listen address should error")
	}
}
