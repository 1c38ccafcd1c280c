package domain

import (
	"regexp"

	"github.com/google/uuid"

	"github.com/kshinn/x402toolkit/internal/x402err"
)

// InvoiceMemo is the unique identifier embedded in a challenge, of shape
// "req-<uuid-v4>". It is used to match a presented proof to its pending
// challenge.
type InvoiceMemo struct {
	value string
}

var memoPattern = regexp.MustCompile(`^req-[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// NewMemo generates a fresh, globally-unique-within-process memo.
func NewMemo() InvoiceMemo {
	return InvoiceMemo{value: "req-" + uuid.New().String()}
}

// ParseMemo validates that raw matches the "req-<uuid-v4>" shape.
func ParseMemo(raw string) (InvoiceMemo, error) {
	if !memoPattern.MatchString(raw) {
		return InvoiceMemo{}, &x402err.InvalidDomainValue{
			Field: "memo",
			Value: raw,
			Cause: "must match req-<uuid-v4>",
		}
	}
	return InvoiceMemo{value: raw}, nil
}

func (m InvoiceMemo) String() string { return m.value }

// Equal reports whether two memos carry the same value.
func (m InvoiceMemo) Equal(other InvoiceMemo) bool { return m.value == other.value }
