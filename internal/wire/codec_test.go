package wire

import (
	"bytes"
	"math"
	"net/netip"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	// 0.25 fractional seconds keeps the micros conversion exact.
	ts := 1699999999.25
	payload, err := EncodeFrames([]Quote{{Cross: "USD/JPY", Price: 151.6234, Time: &ts}})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if len(payload) != FrameSize {
		t.Fatalf("expected %d bytes, got %d", FrameSize, len(payload))
	}
	if !bytes.Equal(payload[paddingOffset:], make([]byte, FrameSize-paddingOffset)) {
		t.Fatal("padding must be zero-filled")
	}

	report := DecodeFrames(payload)
	if report.Malformed != 0 || len(report.Records) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	rec := report.Records[0]
	if rec.BaseCurrency != "USD" || rec.QuoteCurrency != "JPY" {
		t.Fatalf("currencies wrong: %+v", rec)
	}
	if rec.PairID() != "USD/JPY" {
		t.Fatalf("pair id wrong: %s", rec.PairID())
	}
	if rec.TimestampMicros != 1699999999250000 {
		t.Fatalf("timestamp micros wrong: %d", rec.TimestampMicros)
	}
	// Rate survives only to float32 precision by design.
	if math.Abs(rec.Rate-151.6234) > 1e-4 {
		t.Fatalf("rate lost more than float32 precision: %v", rec.Rate)
	}
}

func TestEncodeRejectsBadCross(t *testing.T) {
	for _, cross := range []string{"USDJPY", "US/JPY", "USD/JP", "ÜSD/JPY"} {
		if _, err := EncodeFrames([]Quote{{Cross: cross, Price: 1}}); err == nil {
			t.Fatalf("cross %q should be rejected", cross)
		}
	}
}

func TestEncodeDefaultsTimestamp(t *testing.T) {
	payload, err := EncodeFrames([]Quote{{Cross: "EUR/USD", Price: 1.1}})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	report := DecodeFrames(payload)
	if len(report.Records) != 1 || report.Records[0].TimestampMicros == 0 {
		t.Fatalf("missing Time should encode current time, got %+v", report)
	}
}

func TestDecodeIgnoresTrailingPartialFrame(t *testing.T) {
	ts := 100.0
	payload, err := EncodeFrames([]Quote{
		{Cross: "USD/EUR", Price: 0.9, Time: &ts},
		{Cross: "EUR/GBP", Price: 0.85, Time: &ts},
	})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	report := DecodeFrames(payload[:len(payload)-5])
	if len(report.Records) != 1 {
		t.Fatalf("expected 1 complete frame, got %d", len(report.Records))
	}
	if report.Trailing != FrameSize-5 {
		t.Fatalf("trailing bytes wrong: %d", report.Trailing)
	}
}

func TestDecodeSkipsNonASCIIFrames(t *testing.T) {
	ts := 100.0
	payload, err := EncodeFrames([]Quote{
		{Cross: "USD/EUR", Price: 0.9, Time: &ts},
		{Cross: "EUR/GBP", Price: 0.85, Time: &ts},
	})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	payload[FrameSize+1] = 0xff // corrupt the second frame's base currency

	report := DecodeFrames(payload)
	if len(report.Records) != 1 || report.Malformed != 1 {
		t.Fatalf("expected 1 record and 1 malformed frame, got %+v", report)
	}
	if report.Records[0].PairID() != "USD/EUR" {
		t.Fatalf("surviving record wrong: %+v", report.Records[0])
	}
}

func TestAddressRoundTrip(t *testing.T) {
	addr := netip.MustParseAddrPort("192.168.4.20:10000")
	payload, err := EncodeAddress(addr)
	if err != nil {
		t.Fatalf("encode address failed: %v", err)
	}
	if len(payload) != AddressSize {
		t.Fatalf("expected %d bytes, got %d", AddressSize, len(payload))
	}

	decoded, err := DecodeAddress(payload)
	if err != nil {
		t.Fatalf("decode address failed: %v", err)
	}
	if decoded != addr {
		t.Fatalf("expected %s, got %s", addr, decoded)
	}
}

func TestDecodeAddressRejectsShortPayload(t *testing.T) {
	if _, err := DecodeAddress([]byte{127, 0, 0}); err == nil {
		t.Fatal("short payload should be rejected")
	}
}
