package domain

import (
	"time"

	"github.com/kshinn/x402toolkit/internal/x402err"
)

// Timestamp is an RFC-3339 instant with timezone. Comparisons are
// instant-based (via the underlying time.Time), not string-based.
type Timestamp struct {
	t time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp { return Timestamp{t: t} }

// Now returns the current instant.
func Now() Timestamp { return Timestamp{t: time.Now().UTC()} }

// ParseTimestamp parses an RFC-3339 string.
func ParseTimestamp(raw string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return Timestamp{}, &x402err.InvalidDomainValue{
			Field: "timestamp",
			Value: raw,
			Cause: "not a valid RFC-3339 instant",
		}
	}
	return Timestamp{t: t}, nil
}

// Time returns the underlying time.Time.
func (ts Timestamp) Time() time.Time { return ts.t }

// String renders the instant as RFC-3339.
func (ts Timestamp) String() string { return ts.t.Format(time.RFC3339) }

// Add returns the instant shifted by d.
func (ts Timestamp) Add(d time.Duration) Timestamp { return Timestamp{t: ts.t.Add(d)} }

// Before reports whether ts occurs strictly before other.
func (ts Timestamp) Before(other Timestamp) bool { return ts.t.Before(other.t) }

// After reports whether ts occurs strictly after other.
func (ts Timestamp) After(other Timestamp) bool { return ts.t.After(other.t) }

// NetworkTag is a closed enumeration of the network identifiers a
// challenge can be issued against.
type NetworkTag struct {
	value string
}

var acceptedNetworks = map[string]struct{}{
	"devnet":       {},
	"testnet":      {},
	"mainnet-beta": {},
}

// NewNetworkTag validates raw against the accepted set.
func NewNetworkTag(raw string) (NetworkTag, error) {
	if _, ok := acceptedNetworks[raw]; !ok {
		return NetworkTag{}, &x402err.InvalidDomainValue{
			Field: "network",
			Value: raw,
			Cause: "not in {devnet, testnet, mainnet-beta}",
		}
	}
	return NetworkTag{value: raw}, nil
}

func (n NetworkTag) String() string { return n.value }
