package mockserver

import (
	"sync"

	"github.com/kshinn/x402toolkit/internal/challenge"
	"github.com/kshinn/x402toolkit/internal/domain"
)

// challengeState is the pending/redeemed lifecycle of a single issued
// challenge. An expired challenge has no state of its own: it is removed
// from the store when a lookup finds it expired.
type challengeState int

const (
	statePending challengeState = iota
	stateRedeemed
)

type entry struct {
	challenge challenge.Challenge
	state     challengeState
}

// store is the pending-challenge map keyed by memo. It is protected by a
// single mutex whose critical sections contain no suspension points
// other than the map operations themselves, matching the discipline
// the teacher's x402/middleware.go uses for its seenPayments dedup map.
//
// create strictly happens-before any redeem attempt for the same memo:
// Create only returns once the entry is visible in the map, and
// RedeemOrExpire looks the memo up under the same lock before mutating it.
type store struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func newStore() *store {
	return &store{entries: make(map[string]*entry)}
}

// Create registers a freshly issued challenge as Pending.
func (s *store) Create(c challenge.Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[c.Memo.String()] = &entry{challenge: c, state: statePending}
}

// lookupResult is the outcome of presenting a memo for redemption.
type lookupResult int

const (
	lookupNotFound lookupResult = iota
	lookupExpired
	lookupAlreadyRedeemed
	lookupOK
)

// RedeemOrExpire looks memo up. If it is Pending and not expired as of
// now, it is atomically marked Redeemed and returned with lookupOK. An
// expired entry is removed and reported as lookupExpired; not found and
// already redeemed leave the store unchanged. Every outcome other than
// lookupOK is reported via the returned lookupResult — a redeemed or
// expired challenge is never re-redeemable.
func (s *store) RedeemOrExpire(memo string, now domain.Timestamp) (challenge.Challenge, lookupResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[memo]
	if !ok {
		return challenge.Challenge{}, lookupNotFound
	}
	if e.challenge.IsExpired(now) {
		delete(s.entries, memo)
		return challenge.Challenge{}, lookupExpired
	}
	if e.state == stateRedeemed {
		return challenge.Challenge{}, lookupAlreadyRedeemed
	}
	e.state = stateRedeemed
	return e.challenge, lookupOK
}

// Len reports the number of entries currently tracked, for tests and
// diagnostics. It is not part of the documented contract.
func (s *store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
