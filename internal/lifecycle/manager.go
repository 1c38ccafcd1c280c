package lifecycle

import (
	"encoding/json"
	"os"
	"time"

	"github.com/kshinn/x402toolkit/internal/domain"
	"github.com/kshinn/x402toolkit/internal/mockserver"
	"github.com/kshinn/x402toolkit/internal/x402err"
)

// gracefulStopTimeout bounds how long StopWithResult waits for in-flight
// requests to drain before forcing the listener closed.
const gracefulStopTimeout = 5 * time.Second

// Manager is the process-wide singleton that owns the running mock
// server handle for this process, and coordinates with the on-disk
// state record so independent invocations agree on whether a server is
// already running.
type Manager struct {
	stateDir string
	srv      *mockserver.Server
}

// NewManager constructs a Manager whose state file lives under stateDir.
// Pass "" to use the default per-user directory, "x402toolkit" under
// os.UserConfigDir (or under os.TempDir when that is unavailable).
func NewManager(stateDir string) *Manager {
	if stateDir == "" {
		stateDir = defaultStateDir()
	}
	return &Manager{stateDir: stateDir}
}

// StartWithResult starts a mock server per cfg, subject to the lifecycle
// contract: a live recorded process fails with AlreadyRunning; a stale
// record (dead pid) is cleaned up and start proceeds.
func (m *Manager) StartWithResult(cfg mockserver.Config) (mockserver.ServerInfo, error) {
	existing, err := readState(m.stateDir)
	if err != nil {
		return mockserver.ServerInfo{}, err
	}
	if existing != nil {
		if isLive(existing.Pid) {
			return mockserver.ServerInfo{}, &x402err.AlreadyRunning{Pid: existing.Pid, Port: existing.Port}
		}
		if err := deleteState(m.stateDir); err != nil {
			return mockserver.ServerInfo{}, err
		}
	}

	srv := mockserver.NewServer(cfg)
	info, err := srv.Start()
	if err != nil {
		// Bind failure: do not write the state file.
		return mockserver.ServerInfo{}, err
	}
	info.Pid = os.Getpid()

	snapshot, _ := json.Marshal(configSnapshot{
		Port:       cfg.Port.Int(),
		Currency:   cfg.Currency.String(),
		Network:    cfg.Network.String(),
		Simulation: string(cfg.Simulation),
	})

	state := State{
		Pid:            info.Pid,
		Port:           info.Port,
		StartedAt:      info.StartedAt.String(),
		ConfigSnapshot: snapshot,
	}
	if err := writeStateExclusive(m.stateDir, state); err != nil {
		_, _ = srv.Stop(gracefulStopTimeout)
		if os.IsExist(err) {
			return mockserver.ServerInfo{}, &x402err.AlreadyRunning{Pid: info.Pid, Port: info.Port}
		}
		return mockserver.ServerInfo{}, err
	}

	m.srv = srv
	return info, nil
}

// configSnapshot is the structured subset of Config persisted in the
// state record, per spec's "config snapshot (structured)".
type configSnapshot struct {
	Port       int    `json:"port"`
	Currency   string `json:"currency"`
	Network    string `json:"network"`
	Simulation string `json:"simulation"`
}

// StopWithResult stops the running server, deleting the state record.
// Fails with NotRunning if no record exists or its pid is not live.
func (m *Manager) StopWithResult() (mockserver.StopInfo, error) {
	state, err := readState(m.stateDir)
	if err != nil {
		return mockserver.StopInfo{}, err
	}
	if state == nil || !isLive(state.Pid) {
		if state != nil {
			_ = deleteState(m.stateDir)
		}
		return mockserver.StopInfo{}, &x402err.NotRunning{}
	}

	if m.srv != nil {
		info, stopErr := m.srv.Stop(gracefulStopTimeout)
		if stopErr != nil {
			return mockserver.StopInfo{}, stopErr
		}
		if err := deleteState(m.stateDir); err != nil {
			return mockserver.StopInfo{}, err
		}
		m.srv = nil
		return info, nil
	}

	// The recorded process is live but not owned by this Manager
	// instance (e.g. a separate CLI invocation calling stop). Signal it
	// to terminate gracefully and clean up the record.
	if err := signalGracefulStop(state.Pid); err != nil {
		return mockserver.StopInfo{}, err
	}
	if err := deleteState(m.stateDir); err != nil {
		return mockserver.StopInfo{}, err
	}
	return mockserver.StopInfo{WasRunning: true}, nil
}

// StatusWithResult reports whether a server is running, cleaning up a
// stale state record if the recorded pid is dead.
func (m *Manager) StatusWithResult() (mockserver.StatusInfo, error) {
	state, err := readState(m.stateDir)
	if err != nil {
		return mockserver.StatusInfo{}, err
	}
	if state == nil {
		return mockserver.StatusInfo{IsRunning: false}, nil
	}
	if !isLive(state.Pid) {
		_ = deleteState(m.stateDir)
		return mockserver.StatusInfo{IsRunning: false}, nil
	}
	startedAt, _ := domain.ParseTimestamp(state.StartedAt)
	return mockserver.StatusInfo{IsRunning: true, Port: state.Port, StartedAt: startedAt}, nil
}
