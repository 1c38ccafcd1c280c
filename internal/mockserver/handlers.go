package mockserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kshinn/x402toolkit/internal/challenge"
	"github.com/kshinn/x402toolkit/internal/domain"
)

// proofPrefix is the fixed Authorization scheme the mock server accepts
// as a redemption proof. The token after the prefix must be a proof
// token minted by this server (internal/prooftoken): its HS256 signature
// and expiry are checked before the memo it carries is looked up, and a
// bare memo is not accepted as a token. The signature is never treated
// as evidence that a payment occurred.
const proofPrefix = "payment-"

// ServeHTTP implements http.Handler. Every path under the origin
// produces either a 402-with-challenge or a 200/400/504 redemption
// outcome, following the single-ServeHTTP dispatch shape of the
// teacher's x402/middleware.go.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	applyCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if token, ok := proofToken(r); ok {
		s.handleRedemption(w, r, token)
		return
	}
	s.issueChallenge(w, r)
}

func applyCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
}

func proofToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, proofPrefix) {
		return "", false
	}
	token := strings.TrimPrefix(auth, proofPrefix)
	if token == "" {
		return "", false
	}
	return token, true
}

// issueChallenge constructs a fresh Challenge for the requested resource
// and responds with 402 + WWW-Authenticate.
func (s *Server) issueChallenge(w http.ResponseWriter, r *http.Request) {
	now := domain.Now()
	c := challenge.Challenge{
		Recipient:  s.cfg.Recipient,
		Amount:     s.cfg.amountFor(r.URL.Path),
		Currency:   s.cfg.Currency,
		Memo:       domain.NewMemo(),
		Network:    s.cfg.Network,
		Resource:   mustResourcePath(r.URL.Path),
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.cfg.ttl()),
		Simulation: s.cfg.Simulation,
	}
	s.store.Create(c)

	proof, err := s.tokens.Issue(c.Memo, c.ExpiresAt)
	if err != nil {
		slog.Error("failed to issue proof token", "err", err, "memo", c.Memo.String())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("WWW-Authenticate", challenge.Encode(c))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusPaymentRequired)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "Payment required",
		"message": fmt.Sprintf("present Authorization: %s%s to redeem", proofPrefix, proof),
	})
}

// mustResourcePath builds a ResourcePath from an inbound request path.
// Request paths always start with "/", so construction only fails when
// the path exceeds the length bound or contains a "*" other than a
// single trailing one; fall back to "/" in that case rather than
// panicking on a pathological client input.
func mustResourcePath(path string) domain.ResourcePath {
	if path == "" {
		path = "/"
	}
	rp, err := domain.NewResourcePath(path)
	if err != nil {
		rp, _ = domain.NewResourcePath("/")
	}
	return rp
}

// handleRedemption looks up the challenge behind token's memo and
// applies the simulation outcome recorded at issuance time.
func (s *Server) handleRedemption(w http.ResponseWriter, r *http.Request, token string) {
	memo, err := s.tokens.Verify(token)
	if err != nil {
		s.issueChallenge(w, r)
		return
	}

	c, result := s.store.RedeemOrExpire(memo.String(), domain.Now())
	if result != lookupOK {
		// Expired, not found, or already redeemed: a second presentation
		// always yields a fresh 402, per spec.
		s.issueChallenge(w, r)
		return
	}

	switch c.Simulation {
	case challenge.OutcomeSuccess:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":   "success",
			"message":  "Payment verified",
			"resource": c.Resource.String(),
		})
	case challenge.OutcomeFailure:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":   "Payment verification failed",
			"message": "simulated failure outcome",
		})
	case challenge.OutcomeTimeout:
		s.simulateTimeout(w, r)
	default:
		slog.Error("unknown simulation outcome", "outcome", c.Simulation, "memo", memo.String())
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// simulateTimeout suspends for the configured delay, then returns 504.
// The wait respects request cancellation: if the client disconnects or
// the server is stopped, the goroutine servicing this request abandons
// the delay without writing a response, per the cancellation contract.
func (s *Server) simulateTimeout(w http.ResponseWriter, r *http.Request) {
	delay := time.Duration(s.cfg.TimeoutDelayMs) * time.Millisecond
	select {
	case <-time.After(delay):
		http.Error(w, `{"error":"Gateway Timeout","message":"simulated timeout outcome"}`, http.StatusGatewayTimeout)
	case <-r.Context().Done():
		return
	case <-s.shutdownCh():
		return
	}
}

func (s *Server) shutdownCh() <-chan struct{} {
	return s.done
}
