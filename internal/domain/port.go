package domain

import (
	"fmt"

	"github.com/kshinn/x402toolkit/internal/x402err"
)

// Port is a validated TCP port in the unprivileged range [1024, 65535]
// this toolkit binds the mock server to.
type Port struct {
	value int
}

const (
	minPort = 1024
	maxPort = 65535
)

// NewPort validates n and returns a Port, or an InvalidDomainValue error.
func NewPort(n int) (Port, error) {
	if n < minPort || n > maxPort {
		return Port{}, &x402err.InvalidDomainValue{
			Field: "port",
			Value: fmt.Sprintf("%d", n),
			Cause: fmt.Sprintf("must be in [%d, %d]", minPort, maxPort),
		}
	}
	return Port{value: n}, nil
}

// Int returns the underlying port number.
func (p Port) Int() int { return p.value }

func (p Port) String() string { return fmt.Sprintf("%d", p.value) }
