// Package challenge implements the bidirectional mapping between a
// Challenge record and the "WWW-Authenticate: x402-..." header value,
// grounded on the JSON encode/decode discipline in the teacher's
// x402/middleware.go (paymentRequiredV2 marshal), adapted from a JSON
// body to the space-separated key=value wire grammar this toolkit's
// spec requires.
package challenge

import (
	"fmt"
	"strings"
	"time"

	"github.com/kshinn/x402toolkit/internal/domain"
	"github.com/kshinn/x402toolkit/internal/x402err"
)

// Outcome is the challenge engine's internal simulation outcome. It is
// never wire-visible — encoding a Challenge never emits it.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeTimeout Outcome = "timeout"
)

// Challenge is the canonical record issued by the mock server and
// carried to the client as a WWW-Authenticate header value.
type Challenge struct {
	Recipient  domain.AddressLike
	Amount     domain.Amount
	Currency   domain.Currency
	Memo       domain.InvoiceMemo
	Network    domain.NetworkTag
	Resource   domain.ResourcePath
	IssuedAt   domain.Timestamp
	ExpiresAt  domain.Timestamp
	Simulation Outcome // internal only — never encoded
}

// IsExpired reports whether the challenge's expiry has passed as of now.
func (c Challenge) IsExpired(now domain.Timestamp) bool {
	return !now.Before(c.ExpiresAt)
}

// canonicalKeys is the fixed set of recognized keys, in canonical emit
// order. Decoding accepts any permutation but rejects unknown or
// duplicate keys.
var canonicalKeys = []string{
	"recipient", "amount", "currency", "memo", "network", "timestamp", "resource", "expires",
}

// Encode renders c as the canonical "x402-<network> key=value ..."
// header value.
func Encode(c Challenge) string {
	var sb strings.Builder
	sb.WriteString("x402-")
	sb.WriteString(c.Network.String())
	for _, key := range canonicalKeys {
		sb.WriteByte(' ')
		sb.WriteString(key)
		sb.WriteByte('=')
		sb.WriteString(valueFor(c, key))
	}
	return sb.String()
}

func valueFor(c Challenge, key string) string {
	switch key {
	case "recipient":
		return c.Recipient.String()
	case "amount":
		return c.Amount.String()
	case "currency":
		return c.Currency.String()
	case "memo":
		return c.Memo.String()
	case "network":
		return c.Network.String()
	case "timestamp":
		return c.IssuedAt.String()
	case "resource":
		return c.Resource.String()
	case "expires":
		return c.ExpiresAt.String()
	}
	return ""
}

// Decode parses a canonical header value back into a Challenge.
// Unrecognized keys, duplicate keys, a malformed prefix, or a missing
// required key all yield a ChallengeDecodeError. A value that fails
// domain validation yields an InvalidChallengeField.
func Decode(s string) (Challenge, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Challenge{}, &x402err.ChallengeDecodeError{Reason: "empty header value"}
	}

	prefix := fields[0]
	if !strings.HasPrefix(prefix, "x402-") {
		return Challenge{}, &x402err.ChallengeDecodeError{Reason: "missing x402- prefix"}
	}
	networkFromPrefix := strings.TrimPrefix(prefix, "x402-")
	if networkFromPrefix == "" {
		return Challenge{}, &x402err.ChallengeDecodeError{Reason: "empty network in prefix"}
	}

	values := make(map[string]string, len(canonicalKeys))
	for _, tok := range fields[1:] {
		key, val, ok := strings.Cut(tok, "=")
		if !ok {
			return Challenge{}, &x402err.ChallengeDecodeError{Reason: fmt.Sprintf("malformed token %q", tok)}
		}
		if !isRecognizedKey(key) {
			return Challenge{}, &x402err.ChallengeDecodeError{Reason: fmt.Sprintf("unrecognized key %q", key)}
		}
		if _, dup := values[key]; dup {
			return Challenge{}, &x402err.ChallengeDecodeError{Reason: fmt.Sprintf("duplicate key %q", key)}
		}
		if strings.Contains(val, " ") {
			return Challenge{}, &x402err.ChallengeDecodeError{Reason: fmt.Sprintf("value for %q contains a space", key)}
		}
		values[key] = val
	}

	for _, key := range canonicalKeys {
		if _, ok := values[key]; !ok {
			return Challenge{}, &x402err.ChallengeDecodeError{Reason: fmt.Sprintf("missing required key %q", key)}
		}
	}

	network, err := domain.NewNetworkTag(values["network"])
	if err != nil {
		return Challenge{}, &x402err.InvalidChallengeField{Key: "network", Cause: err}
	}
	if network.String() != networkFromPrefix {
		return Challenge{}, &x402err.ChallengeDecodeError{
			Reason: fmt.Sprintf("network token %q does not match prefix tag %q", network.String(), networkFromPrefix),
		}
	}

	currency, err := domain.NewCurrency(values["currency"])
	if err != nil {
		return Challenge{}, &x402err.InvalidChallengeField{Key: "currency", Cause: err}
	}
	amount, err := domain.NewAmount(values["amount"], currency)
	if err != nil {
		return Challenge{}, &x402err.InvalidChallengeField{Key: "amount", Cause: err}
	}
	if amount.IsZero() {
		return Challenge{}, &x402err.InvalidChallengeField{Key: "amount", Cause: fmt.Errorf("amount must be positive")}
	}
	recipient, err := domain.NewAddressLike(values["recipient"])
	if err != nil {
		return Challenge{}, &x402err.InvalidChallengeField{Key: "recipient", Cause: err}
	}
	memo, err := domain.ParseMemo(values["memo"])
	if err != nil {
		return Challenge{}, &x402err.InvalidChallengeField{Key: "memo", Cause: err}
	}
	resource, err := domain.NewResourcePath(values["resource"])
	if err != nil {
		return Challenge{}, &x402err.InvalidChallengeField{Key: "resource", Cause: err}
	}
	issuedAt, err := domain.ParseTimestamp(values["timestamp"])
	if err != nil {
		return Challenge{}, &x402err.InvalidChallengeField{Key: "timestamp", Cause: err}
	}
	expiresAt, err := domain.ParseTimestamp(values["expires"])
	if err != nil {
		return Challenge{}, &x402err.InvalidChallengeField{Key: "expires", Cause: err}
	}
	if !expiresAt.After(issuedAt) {
		return Challenge{}, &x402err.InvalidChallengeField{
			Key:   "expires",
			Cause: fmt.Errorf("expires_at must be strictly after issued_at"),
		}
	}

	return Challenge{
		Recipient: recipient,
		Amount:    amount,
		Currency:  currency,
		Memo:      memo,
		Network:   network,
		Resource:  resource,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

func isRecognizedKey(key string) bool {
	for _, k := range canonicalKeys {
		if k == key {
			return true
		}
	}
	return false
}

// DefaultTTL is the default challenge lifetime when unconfigured.
const DefaultTTL = 5 * time.Minute
