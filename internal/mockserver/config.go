package mockserver

import (
	"time"

	"github.com/kshinn/x402toolkit/internal/challenge"
	"github.com/kshinn/x402toolkit/internal/domain"
)

// Config groups everything needed to stand up a mock challenge engine,
// mirroring the shape of the teacher's config.Config — a flat struct of
// already-resolved values, loaded by the caller (CLI front-end or
// lifecycle component), never by this package itself.
type Config struct {
	Port        domain.Port
	Recipient   domain.AddressLike
	Currency    domain.Currency
	Network     domain.NetworkTag
	Amount      domain.Amount // default amount when no per-path override matches
	TTL         time.Duration
	Simulation  challenge.Outcome
	TimeoutDelayMs int

	// AmountOverrides maps a resource path to a per-path amount,
	// overriding Amount for challenges issued against that exact path.
	AmountOverrides map[string]domain.Amount
}

func (c Config) amountFor(path string) domain.Amount {
	if c.AmountOverrides != nil {
		if a, ok := c.AmountOverrides[path]; ok {
			return a
		}
	}
	return c.Amount
}

func (c Config) ttl() time.Duration {
	if c.TTL <= 0 {
		return challenge.DefaultTTL
	}
	return c.TTL
}
