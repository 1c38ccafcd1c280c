package domain

import "github.com/kshinn/x402toolkit/internal/x402err"

// Currency is a closed enumeration of the assets this toolkit quotes
// amounts in. Comparisons are case-sensitive; only listed values are
// accepted.
type Currency struct {
	tag string
}

var acceptedCurrencies = map[string]struct{}{
	"USDC": {},
	"SOL":  {},
}

// NewCurrency validates tag against the accepted set.
func NewCurrency(tag string) (Currency, error) {
	if _, ok := acceptedCurrencies[tag]; !ok {
		return Currency{}, &x402err.InvalidDomainValue{
			Field: "currency",
			Value: tag,
			Cause: "not in the accepted currency set",
		}
	}
	return Currency{tag: tag}, nil
}

// AcceptedCurrencies returns the closed set of recognized currency tags,
// in a stable order.
func AcceptedCurrencies() []string { return []string{"USDC", "SOL"} }

func (c Currency) String() string { return c.tag }

// Equal reports whether two currencies carry the same tag.
func (c Currency) Equal(other Currency) bool { return c.tag == other.tag }
