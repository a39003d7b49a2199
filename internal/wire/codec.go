package wire

import (
	"encoding/binary"
	"fmt"
	"math"
	"net/netip"
	"strings"
	"time"
)

const (
	// FrameSize is the fixed length of one serialized quote.
	FrameSize = 32
	// AddressSize is the length of a subscription handshake payload.
	AddressSize = 6

	rateOffset      = 6
	timestampOffset = 10
	paddingOffset   = 18
)

// QuoteRecord is one decoded wire frame. Immutable once decoded.
type QuoteRecord struct {
	BaseCurrency    string
	QuoteCurrency   string
	Rate            float64
	TimestampMicros uint64
}

// PairID returns the "BASE/QUOTE" market identifier for the record.
func (q QuoteRecord) PairID() string {
	return q.BaseCurrency + "/" + q.QuoteCurrency
}

// Quote is the encode-side input: a cross like "USD/JPY", a price, and an
// optional wall-clock time in float seconds since epoch. A nil Time encodes
// the current time. Sub-microsecond precision is truncated intentionally.
type Quote struct {
	Cross string
	Price float64
	Time  *float64
}

// DecodeReport summarises one DecodeFrames call.
type DecodeReport struct {
	Records   []QuoteRecord
	Malformed int
	Trailing  int
}

// DecodeFrames parses a buffer of concatenated 32-byte frames. A trailing
// partial frame is ignored. Frames whose currency fields contain non-ASCII
// bytes are skipped and counted as malformed; decoding always continues with
// the next frame.
func DecodeFrames(buf []byte) DecodeReport {
	report := DecodeReport{Trailing: len(buf) % FrameSize}

	for off := 0; off+FrameSize <= len(buf); off += FrameSize {
		frame := buf[off : off+FrameSize]

		base, err := decodeCurrency(frame[0:3])
		if err != nil {
			report.Malformed++
			continue
		}
		quote, err := decodeCurrency(frame[3:6])
		if err != nil {
			report.Malformed++
			continue
		}

		rate := math.Float32frombits(binary.LittleEndian.Uint32(frame[rateOffset:timestampOffset]))
		ts := binary.BigEndian.Uint64(frame[timestampOffset:paddingOffset])

		report.Records = append(report.Records, QuoteRecord{
			BaseCurrency:    base,
			QuoteCurrency:   quote,
			Rate:            float64(rate),
			TimestampMicros: ts,
		})
	}

	return report
}

// EncodeFrames serializes quotes into the 32-byte wire format.
func EncodeFrames(quotes []Quote) ([]byte, error) {
	out := make([]byte, 0, len(quotes)*FrameSize)

	for i, q := range quotes {
		base, quote, ok := strings.Cut(q.Cross, "/")
		if !ok || len(base) != 3 || len(quote) != 3 {
			return nil, fmt.Errorf("quote %d: cross %q is not of the form AAA/BBB", i, q.Cross)
		}
		if !isASCII(base) || !isASCII(quote) {
			return nil, fmt.Errorf("quote %d: cross %q contains non-ASCII bytes", i, q.Cross)
		}

		var micros uint64
		if q.Time != nil {
			micros = uint64(*q.Time * 1e6)
		} else {
			micros = uint64(time.Now().UTC().UnixMicro())
		}

		frame := make([]byte, FrameSize)
		copy(frame[0:3], base)
		copy(frame[3:6], quote)
		binary.LittleEndian.PutUint32(frame[rateOffset:timestampOffset], math.Float32bits(float32(q.Price)))
		binary.BigEndian.PutUint64(frame[timestampOffset:paddingOffset], micros)
		// frame[paddingOffset:] stays zero-filled
		out = append(out, frame...)
	}

	return out, nil
}

// EncodeAddress serializes a listener address into the 6-byte subscription
// handshake: 4-byte IPv4 in network order followed by a big-endian port.
func EncodeAddress(addr netip.AddrPort) ([]byte, error) {
	if !addr.Addr().Is4() {
		return nil, fmt.Errorf("subscription address %s is not IPv4", addr)
	}
	ip := addr.Addr().As4()
	out := make([]byte, AddressSize)
	copy(out[0:4], ip[:])
	binary.BigEndian.PutUint16(out[4:6], addr.Port())
	return out, nil
}

// DecodeAddress parses a 6-byte subscription handshake payload.
func DecodeAddress(data []byte) (netip.AddrPort, error) {
	if len(data) != AddressSize {
		return netip.AddrPort{}, fmt.Errorf("subscription payload has %d bytes, want %d", len(data), AddressSize)
	}
	ip := netip.AddrFrom4([4]byte(data[0:4]))
	port := binary.BigEndian.Uint16(data[4:6])
	return netip.AddrPortFrom(ip, port), nil
}

func decodeCurrency(b []byte) (string, error) {
	for _, c := range b {
		if c > 0x7f {
			return "", fmt.Errorf("currency byte %#x is not ASCII", c)
		}
	}
	return string(b), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}
