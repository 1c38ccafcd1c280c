package mockserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kshinn/x402toolkit/internal/challenge"
	"github.com/kshinn/x402toolkit/internal/domain"
)

func testConfig(t *testing.T, outcome challenge.Outcome) Config {
	t.Helper()
	port, err := domain.NewPort(18402)
	require.NoError(t, err)
	recipient, err := domain.NewAddressLike("DevR1111111111111111111111111111111111")
	require.NoError(t, err)
	currency, err := domain.NewCurrency("USDC")
	require.NoError(t, err)
	amount, err := domain.NewAmount("100", currency)
	require.NoError(t, err)
	network, err := domain.NewNetworkTag("devnet")
	require.NoError(t, err)

	return Config{
		Port:           port,
		Recipient:      recipient,
		Currency:       currency,
		Network:        network,
		Amount:         amount,
		TTL:            300 * time.Second,
		Simulation:     outcome,
		TimeoutDelayMs: 50,
	}
}

var proofMessagePattern = regexp.MustCompile(`payment-(\S+) to redeem`)

// extractProof pulls the signed proof token out of a 402 response body's
// "message" field, the only place the redeemable token is surfaced (the
// WWW-Authenticate header only carries the memo, per the wire grammar).
func extractProof(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	m := proofMessagePattern.FindStringSubmatch(body["message"])
	require.Lenf(t, m, 2, "no proof token found in message %q", body["message"])
	return m[1]
}

func TestScenario1_BasicChallengeThenSuccess(t *testing.T) {
	srv := NewServer(testConfig(t, challenge.OutcomeSuccess))

	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	header := rec.Header().Get("WWW-Authenticate")
	require.True(t, len(header) > 0)
	assert.Regexp(t, `^x402-devnet `, header)
	assert.Contains(t, header, "resource=/api/x")
	assert.Contains(t, header, "amount=100")
	assert.Contains(t, header, "currency=USDC")
	assert.Regexp(t, `memo=req-[0-9a-f-]+`, header)

	decoded, err := challenge.Decode(header)
	require.NoError(t, err)
	proof := extractProof(t, rec)

	req2 := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	req2.Header.Set("Authorization", "payment-"+proof)
	rec2 := httptest.NewRecorder()
	srv.ServeHTTP(rec2, req2)

	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Contains(t, rec2.Body.String(), `"status":"success"`)

	// Replaying the same proof must yield a fresh 402 with a new memo.
	req3 := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	req3.Header.Set("Authorization", "payment-"+proof)
	rec3 := httptest.NewRecorder()
	srv.ServeHTTP(rec3, req3)

	require.Equal(t, http.StatusPaymentRequired, rec3.Code)
	newHeader := rec3.Header().Get("WWW-Authenticate")
	newDecoded, err := challenge.Decode(newHeader)
	require.NoError(t, err)
	assert.NotEqual(t, decoded.Memo.String(), newDecoded.Memo.String())
}

func TestScenario2_TimeoutSimulation(t *testing.T) {
	srv := NewServer(testConfig(t, challenge.OutcomeTimeout))

	req := httptest.NewRequest(http.MethodGet, "/r", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	proof := extractProof(t, rec)

	req2 := httptest.NewRequest(http.MethodGet, "/r", nil)
	req2.Header.Set("Authorization", "payment-"+proof)
	rec2 := httptest.NewRecorder()

	start := time.Now()
	srv.ServeHTTP(rec2, req2)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Equal(t, http.StatusGatewayTimeout, rec2.Code)
}

func TestFailureSimulation(t *testing.T) {
	srv := NewServer(testConfig(t, challenge.OutcomeFailure))

	req := httptest.NewRequest(http.MethodGet, "/f", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	proof := extractProof(t, rec)

	req2 := httptest.NewRequest(http.MethodGet, "/f", nil)
	req2.Header.Set("Authorization", "payment-"+proof)
	rec2 := httptest.NewRecorder()
	srv.ServeHTTP(rec2, req2)

	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestExpiredChallengeIssuesFreshOne(t *testing.T) {
	cfg := testConfig(t, challenge.OutcomeSuccess)
	// Shortest TTL that still encodes expires strictly after timestamp at
	// the wire's one-second precision; a non-positive TTL selects the
	// default instead.
	cfg.TTL = 1 * time.Second
	srv := NewServer(cfg)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	decoded, err := challenge.Decode(rec.Header().Get("WWW-Authenticate"))
	require.NoError(t, err)
	proof := extractProof(t, rec)

	time.Sleep(1100 * time.Millisecond) // let the challenge expire

	req2 := httptest.NewRequest(http.MethodGet, "/x", nil)
	req2.Header.Set("Authorization", "payment-"+proof)
	rec2 := httptest.NewRecorder()
	srv.ServeHTTP(rec2, req2)

	require.Equal(t, http.StatusPaymentRequired, rec2.Code)
	fresh, err := challenge.Decode(rec2.Header().Get("WWW-Authenticate"))
	require.NoError(t, err)
	assert.NotEqual(t, decoded.Memo.String(), fresh.Memo.String())
}

func TestPerPathAmountOverride(t *testing.T) {
	cfg := testConfig(t, challenge.OutcomeSuccess)
	cfg.AmountOverrides = map[string]domain.Amount{
		"/premium": domain.MustAmount("500", cfg.Currency),
	}
	srv := NewServer(cfg)

	req := httptest.NewRequest(http.MethodGet, "/premium", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "amount=500")
}

func TestCORSHeaders(t *testing.T) {
	srv := NewServer(testConfig(t, challenge.OutcomeSuccess))

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestForeignProofTokenIsRejected(t *testing.T) {
	srvA := NewServer(testConfig(t, challenge.OutcomeSuccess))
	srvB := NewServer(testConfig(t, challenge.OutcomeSuccess))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	srvA.ServeHTTP(rec, req)
	proof := extractProof(t, rec)

	// A proof minted by srvA carries srvA's HMAC signature; srvB uses a
	// different, independently generated secret and must not accept it.
	req2 := httptest.NewRequest(http.MethodGet, "/x", nil)
	req2.Header.Set("Authorization", "payment-"+proof)
	rec2 := httptest.NewRecorder()
	srvB.ServeHTTP(rec2, req2)

	assert.Equal(t, http.StatusPaymentRequired, rec2.Code)
}
