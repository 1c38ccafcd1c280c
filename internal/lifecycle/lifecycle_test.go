package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kshinn/x402toolkit/internal/challenge"
	"github.com/kshinn/x402toolkit/internal/domain"
	"github.com/kshinn/x402toolkit/internal/mockserver"
	"github.com/kshinn/x402toolkit/internal/x402err"
)

func testCfg(t *testing.T, port int) mockserver.Config {
	t.Helper()
	p, err := domain.NewPort(port)
	require.NoError(t, err)
	recipient, err := domain.NewAddressLike("DevR1111111111111111111111111111111111")
	require.NoError(t, err)
	currency, err := domain.NewCurrency("USDC")
	require.NoError(t, err)
	amount, err := domain.NewAmount("100", currency)
	require.NoError(t, err)
	network, err := domain.NewNetworkTag("devnet")
	require.NoError(t, err)

	return mockserver.Config{
		Port:       p,
		Recipient:  recipient,
		Currency:   currency,
		Network:    network,
		Amount:     amount,
		TTL:        300 * time.Second,
		Simulation: challenge.OutcomeSuccess,
	}
}

// TestScenario3_CrossProcessLifecycle mirrors spec.md's process A / process
// B scenario using two independent Manager instances sharing a stateDir, a
// stand-in for two separate CLI invocations.
func TestScenario3_CrossProcessLifecycle(t *testing.T) {
	dir := t.TempDir()
	a := NewManager(dir)
	b := NewManager(dir)

	infoA, err := a.StartWithResult(testCfg(t, 18410))
	require.NoError(t, err)
	assert.Equal(t, 18410, infoA.Port)

	_, err = b.StartWithResult(testCfg(t, 18411))
	require.Error(t, err)
	var already *x402err.AlreadyRunning
	require.ErrorAs(t, err, &already)
	assert.Equal(t, infoA.Pid, already.Pid)

	statusB, err := b.StatusWithResult()
	require.NoError(t, err)
	assert.True(t, statusB.IsRunning)
	assert.Equal(t, 18410, statusB.Port)

	stopInfo, err := a.StopWithResult()
	require.NoError(t, err)
	assert.True(t, stopInfo.WasRunning)

	statusAfter, err := b.StatusWithResult()
	require.NoError(t, err)
	assert.False(t, statusAfter.IsRunning)
}

func TestStopWithNoServerReturnsNotRunning(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	_, err := m.StopWithResult()
	require.Error(t, err)
	var notRunning *x402err.NotRunning
	assert.ErrorAs(t, err, &notRunning)
}

func TestStaleStateRecordIsCleanedUpOnStart(t *testing.T) {
	dir := t.TempDir()

	// Simulate a crashed process: pid far beyond any live process, with a
	// state record left behind.
	err := writeStateExclusive(dir, State{Pid: 999999, Port: 18420, StartedAt: nowString()})
	require.NoError(t, err)

	m := NewManager(dir)
	info, err := m.StartWithResult(testCfg(t, 18420))
	require.NoError(t, err)
	assert.Equal(t, 18420, info.Port)

	_, _ = m.StopWithResult()
}

func TestStatusWithNoStateFileIsNotRunning(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	status, err := m.StatusWithResult()
	require.NoError(t, err)
	assert.False(t, status.IsRunning)
}
