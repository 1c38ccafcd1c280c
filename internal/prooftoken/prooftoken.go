// Package prooftoken issues and verifies the signed tokens a client
// presents as redemption proof. Grounded on the teacher's
// x402/token.go TokenManager: the same HS256-signed-claims shape,
// narrowed from a batch RPC-credit token down to a single memo claim.
//
// Per spec, proofs are syntactic only — this toolkit never verifies a
// real payment. Signing the memo into a JWT does not change that: the
// signature only proves the token was minted by this server's own
// issueChallenge call (so a client can't guess or forge a memo that
// happens to collide with a pending one), it is never treated as proof
// that a payment occurred.
package prooftoken

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kshinn/x402toolkit/internal/domain"
)

// Claims is the JWT payload carried by a proof token.
type Claims struct {
	jwt.RegisteredClaims
	// Memo is the invoice memo this token redeems, protected by the
	// HS256 signature so a client cannot substitute a different memo
	// than the one it was issued.
	Memo string `json:"memo"`
}

// Manager signs and verifies proof tokens for one server lifetime. The
// signing secret is generated fresh at construction and never
// persisted — tokens do not outlive the server process that issued
// them, matching the mock server's offline, restart-naive design.
type Manager struct {
	secret []byte
}

// NewManager generates a fresh random signing secret and returns a
// Manager bound to it.
func NewManager() (*Manager, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("prooftoken: generating signing secret: %w", err)
	}
	return &Manager{secret: secret}, nil
}

// Issue signs a proof token binding memo, valid until expiresAt.
func (m *Manager) Issue(memo domain.InvoiceMemo, expiresAt domain.Timestamp) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt.Time()),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Memo: memo.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("prooftoken: signing: %w", err)
	}
	return signed, nil
}

// Verify parses and verifies tokenString, returning the memo it
// carries. A malformed, unsigned, or expired token is rejected; the
// caller treats any error identically to "no valid proof presented".
func (m *Manager) Verify(tokenString string) (domain.InvoiceMemo, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return domain.InvoiceMemo{}, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return domain.InvoiceMemo{}, errors.New("prooftoken: invalid token claims")
	}
	return domain.ParseMemo(claims.Memo)
}
