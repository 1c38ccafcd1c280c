package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kshinn/x402toolkit/internal/policy"
	"github.com/kshinn/x402toolkit/internal/x402err"
)

func samplePolicy(t *testing.T) policy.PolicyDocument {
	t.Helper()
	raw := []byte(`
version: v1
defaults: require-payment
policies:
  - type: allowlist
    field: agent_id
    values: [a1, a2]
  - type: rate_limit
    pattern: /api/*
    max_requests: 50
    window_seconds: 60
  - type: spending_cap
    max_amount: "500"
    currency: USDC
    window_seconds: 86400
`)
	doc, err := policy.Load(raw)
	require.NoError(t, err)
	return doc
}

func TestScenario5_GenerateIsDeterministic(t *testing.T) {
	doc := samplePolicy(t)

	first, err := Generate(doc, FrameworkChi, "policy.yaml")
	require.NoError(t, err)
	second, err := Generate(doc, FrameworkChi, "policy.yaml")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "policy.yaml")
	assert.Contains(t, first, "func X402Middleware")
}

func TestGenerateFiberProducesRegistrationFunc(t *testing.T) {
	doc := samplePolicy(t)
	out, err := Generate(doc, FrameworkFiber, "policy.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "func RegisterX402Policy")
	assert.Contains(t, out, "gofiber/fiber")
}

func TestGenerateRejectsUnsupportedFramework(t *testing.T) {
	doc := samplePolicy(t)
	_, err := Generate(doc, FrameworkTag("gin"), "policy.yaml")
	require.Error(t, err)

	var unsupported *x402err.UnsupportedFramework
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "gin", unsupported.Tag)
}

func TestGenerateRejectsInvalidPolicy(t *testing.T) {
	doc, err := policy.Load([]byte("version: v99\npolicies: []\n"))
	require.NoError(t, err)

	_, err = Generate(doc, FrameworkChi, "policy.yaml")
	require.Error(t, err)

	var failed *x402err.PolicyValidationFailed
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 1, failed.IssueCount)
}

func TestGenerateEmitsOneCheckPerRule(t *testing.T) {
	doc := samplePolicy(t)
	out, err := Generate(doc, FrameworkChi, "policy.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "func ruleCheck0")
	assert.Contains(t, out, "func ruleCheck1")
	assert.Contains(t, out, "func ruleCheck2")
}

// TestGenerateInvokesSpendingCapCheck guards against a spending_cap rule
// getting a ruleCheck function emitted without any caller: the function
// alone does not enforce anything if the composed handler never invokes
// it. Both frameworks must derive a per-request amount and call the
// spending-cap rule's check from the handler body, not just define it.
func TestGenerateInvokesSpendingCapCheck(t *testing.T) {
	doc := samplePolicy(t)

	chiOut, err := Generate(doc, FrameworkChi, "policy.yaml")
	require.NoError(t, err)
	assert.Contains(t, chiOut, "amount := requestAmount(r)")
	assert.Contains(t, chiOut, "ruleCheck2(r, amount)")

	fiberOut, err := Generate(doc, FrameworkFiber, "policy.yaml")
	require.NoError(t, err)
	assert.Contains(t, fiberOut, "amount := requestAmount(c)")
	assert.Contains(t, fiberOut, "ruleCheck2(c, amount)")
}

// TestGenerateEnforcesRequirePaymentDefault guards against the defaults
// action being silently ignored: with "require-payment" as the document
// default, the terminal fallthrough must reject rather than allow once
// every configured rule has passed without a match.
func TestGenerateEnforcesRequirePaymentDefault(t *testing.T) {
	doc := samplePolicy(t)

	chiOut, err := Generate(doc, FrameworkChi, "policy.yaml")
	require.NoError(t, err)
	assert.Contains(t, chiOut, `http.Error(w, "Payment required", http.StatusPaymentRequired)`)
	assert.NotContains(t, chiOut, "next.ServeHTTP(w, r)")

	fiberOut, err := Generate(doc, FrameworkFiber, "policy.yaml")
	require.NoError(t, err)
	assert.Contains(t, fiberOut, `return c.Status(fiber.StatusPaymentRequired).SendString("Payment required")`)
	assert.NotContains(t, fiberOut, "return c.Next()")
}
