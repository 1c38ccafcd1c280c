package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/kshinn/x402toolkit/internal/challenge"
	"github.com/kshinn/x402toolkit/internal/domain"
	"github.com/kshinn/x402toolkit/internal/mockserver"
)

// serverEnvConfig is the environment-variable shape consumed by "start",
// grounded on the teacher's config.Config / config.Load: a flat struct
// of already-resolved values, loaded once from the environment (with an
// optional .env file for dev convenience) and validated before use.
type serverEnvConfig struct {
	Port            int
	Recipient       string
	Currency        string
	Network         string
	Amount          string
	TTLSeconds      int
	Simulation      string
	TimeoutDelayMs  int
	StateDir        string
}

func loadServerEnvConfig() (serverEnvConfig, error) {
	_ = godotenv.Load()
	return serverEnvConfig{
		Port:           getEnvInt("X402_PORT", 8402),
		Recipient:      getEnv("X402_RECIPIENT", ""),
		Currency:       getEnv("X402_CURRENCY", "USDC"),
		Network:        getEnv("X402_NETWORK", "devnet"),
		Amount:         getEnv("X402_AMOUNT", "1.00"),
		TTLSeconds:     getEnvInt("X402_TTL_SECONDS", 300),
		Simulation:     getEnv("X402_SIMULATION", "success"),
		TimeoutDelayMs: getEnvInt("X402_TIMEOUT_DELAY_MS", 0),
		StateDir:       getEnv("X402_STATE_DIR", ""),
	}, nil
}

// toMockServerConfig validates port, recipient, currency, network and
// amount through their domain constructors, so a malformed value fails
// fast with a named InvalidDomainValue rather than propagating a zero
// value; the simulation outcome is checked against the three known
// outcomes. TTL and timeout delay are passed through unchecked.
func (c serverEnvConfig) toMockServerConfig() (mockserver.Config, error) {
	port, err := domain.NewPort(c.Port)
	if err != nil {
		return mockserver.Config{}, fmt.Errorf("X402_PORT: %w", err)
	}
	recipient, err := domain.NewAddressLike(c.Recipient)
	if err != nil {
		return mockserver.Config{}, fmt.Errorf("X402_RECIPIENT: %w", err)
	}
	currency, err := domain.NewCurrency(c.Currency)
	if err != nil {
		return mockserver.Config{}, fmt.Errorf("X402_CURRENCY: %w", err)
	}
	network, err := domain.NewNetworkTag(c.Network)
	if err != nil {
		return mockserver.Config{}, fmt.Errorf("X402_NETWORK: %w", err)
	}
	amount, err := domain.NewAmount(c.Amount, currency)
	if err != nil {
		return mockserver.Config{}, fmt.Errorf("X402_AMOUNT: %w", err)
	}
	outcome := challenge.Outcome(c.Simulation)
	switch outcome {
	case challenge.OutcomeSuccess, challenge.OutcomeFailure, challenge.OutcomeTimeout:
	default:
		return mockserver.Config{}, fmt.Errorf("X402_SIMULATION: unrecognized outcome %q", c.Simulation)
	}

	return mockserver.Config{
		Port:           port,
		Recipient:      recipient,
		Currency:       currency,
		Network:        network,
		Amount:         amount,
		TTL:            time.Duration(c.TTLSeconds) * time.Second,
		Simulation:     outcome,
		TimeoutDelayMs: c.TimeoutDelayMs,
	}, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
