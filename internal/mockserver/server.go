// Package mockserver implements the 402 challenge engine: an HTTP
// service that issues, tracks, and resolves payment challenges under a
// configurable simulation mode. Grounded on the teacher's main.go
// (slog-driven startup, http.ListenAndServe) and x402/middleware.go
// (single ServeHTTP dispatch, JSON response bodies).
package mockserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kshinn/x402toolkit/internal/domain"
	"github.com/kshinn/x402toolkit/internal/prooftoken"
	"github.com/kshinn/x402toolkit/internal/x402err"
)

// ServerInfo is returned by Start on success.
type ServerInfo struct {
	Pid       int
	Port      int
	StartedAt domain.Timestamp
}

// StopInfo is returned by Stop.
type StopInfo struct {
	WasRunning bool
}

// StatusInfo is returned by Status.
type StatusInfo struct {
	IsRunning bool
	Port      int
	StartedAt domain.Timestamp
}

// Server owns the pending-challenge store and the listening socket for
// one mock-server lifetime. A Server is not reusable after Stop: rebinds
// are disallowed, matching the one-listening-socket-per-lifetime
// resource policy.
type Server struct {
	cfg       Config
	store     *store
	tokens    *prooftoken.Manager
	startedAt domain.Timestamp

	mu       sync.Mutex
	listener net.Listener
	http     *http.Server
	done     chan struct{}
	running  bool
}

// NewServer constructs a Server bound to cfg. It does not bind a socket
// until Start is called.
func NewServer(cfg Config) *Server {
	tokens, err := prooftoken.NewManager()
	if err != nil {
		// crypto/rand failure is not a condition this toolkit tries to
		// recover from; it indicates a broken host environment.
		panic(err)
	}
	return &Server{
		cfg:    cfg,
		store:  newStore(),
		tokens: tokens,
		done:   make(chan struct{}),
	}
}

// Start binds the configured port and begins serving in a background
// goroutine. It returns PortInUse when the port is already occupied and
// BindFailed for any other bind error, and never writes any external
// state itself — the lifecycle component owns the on-disk state record.
func (s *Server) Start() (ServerInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ServerInfo{}, errors.New("mockserver: already started")
	}
	select {
	case <-s.done:
		return ServerInfo{}, errors.New("mockserver: server was stopped and cannot be restarted")
	default:
	}

	addr := ":" + s.cfg.Port.String()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if isAddrInUse(err) {
			return ServerInfo{}, &x402err.PortInUse{Port: s.cfg.Port.Int()}
		}
		return ServerInfo{}, &x402err.BindFailed{Cause: err}
	}

	s.listener = ln
	s.http = &http.Server{Handler: s}
	s.startedAt = domain.Now()
	s.running = true

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mock server stopped unexpectedly", "err", err)
		}
	}()

	slog.Info("mock server started", "port", s.cfg.Port.Int(), "simulation", s.cfg.Simulation)

	return ServerInfo{
		Pid:       0, // filled in by the lifecycle component, which knows os.Getpid()
		Port:      s.cfg.Port.Int(),
		StartedAt: s.startedAt,
	}, nil
}

// Stop gracefully shuts the server down, waiting up to grace for
// in-flight requests (including abandoned simulated timeouts) to drain.
func (s *Server) Stop(grace time.Duration) (StopInfo, error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return StopInfo{}, &x402err.NotRunning{}
	}
	s.running = false
	srv := s.http
	s.mu.Unlock()

	close(s.done)

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
	}

	return StopInfo{WasRunning: true}, nil
}

// Status reports whether the server is currently accepting requests.
func (s *Server) Status() StatusInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return StatusInfo{IsRunning: false}
	}
	return StatusInfo{IsRunning: true, Port: s.cfg.Port.Int(), StartedAt: s.startedAt}
}

// PendingCount reports the number of challenges currently tracked (not
// part of the documented contract; used by tests and diagnostics).
func (s *Server) PendingCount() int { return s.store.Len() }

func isAddrInUse(err error) bool {
	return strings.Contains(err.Error(), "address already in use") ||
		strings.Contains(err.Error(), "bind: address already in use")
}
