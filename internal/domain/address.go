package domain

import (
	"github.com/mr-tron/base58"

	"github.com/kshinn/x402toolkit/internal/x402err"
)

const (
	minAddressLen = 32
	maxAddressLen = 44
)

// AddressLike is a base58-style recipient address string, 32-44 chars
// drawn from the base58 alphabet (which already excludes 0, O, I, l).
// Validation is pure-syntactic — no checksum, no chain lookup.
type AddressLike struct {
	value string
}

// NewAddressLike validates raw's length and base58 alphabet membership.
func NewAddressLike(raw string) (AddressLike, error) {
	if len(raw) < minAddressLen || len(raw) > maxAddressLen {
		return AddressLike{}, &x402err.InvalidDomainValue{
			Field: "address",
			Value: raw,
			Cause: "length must be in [32, 44]",
		}
	}
	if _, err := base58.Decode(raw); err != nil {
		return AddressLike{}, &x402err.InvalidDomainValue{
			Field: "address",
			Value: raw,
			Cause: "not valid base58",
		}
	}
	return AddressLike{value: raw}, nil
}

func (a AddressLike) String() string { return a.value }
