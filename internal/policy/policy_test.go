package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadParsesAllRuleKinds(t *testing.T) {
	raw := []byte(`
version: v1
defaults: require-payment
policies:
  - type: allowlist
    field: agent_id
    values: [a1, a2]
  - type: denylist
    field: address
    values: [DevBad1111111111111111111111111111111]
  - type: rate_limit
    pattern: /api/*
    max_requests: 100
    window_seconds: 60
  - type: spending_cap
    max_amount: "500"
    currency: USDC
    window_seconds: 86400
`)
	doc, err := Load(raw)
	require.NoError(t, err)
	assert.Equal(t, "v1", doc.Version)
	assert.Equal(t, DefaultActionRequirePayment, doc.Defaults)
	require.Len(t, doc.Rules, 4)
	assert.Equal(t, RuleKindAllowList, doc.Rules[0].Kind())
	assert.Equal(t, RuleKindDenyList, doc.Rules[1].Kind())
	assert.Equal(t, RuleKindRateLimit, doc.Rules[2].Kind())
	assert.Equal(t, RuleKindSpendingCap, doc.Rules[3].Kind())
}

func TestLoadRejectsUnknownRuleField(t *testing.T) {
	raw := []byte(`
version: v1
policies:
  - type: allowlist
    field: agent_id
    values: [a1]
    bogus: true
`)
	_, err := Load(raw)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownFieldDimension(t *testing.T) {
	raw := []byte(`
version: v1
policies:
  - type: allowlist
    field: not_a_real_field
    values: [a1]
`)
	_, err := Load(raw)
	assert.Error(t, err)
}

func TestLoadRejectsRateLimitBelowBounds(t *testing.T) {
	raw := []byte(`
version: v1
policies:
  - type: rate_limit
    pattern: /api/*
    max_requests: 0
    window_seconds: 60
`)
	_, err := Load(raw)
	assert.Error(t, err)
}

func TestEmptyPoliciesListIsValid(t *testing.T) {
	doc, err := Load([]byte("version: v1\npolicies: []\n"))
	require.NoError(t, err)
	report := Validate(doc)
	assert.True(t, report.IsValid())
}

func TestScenario4_OverlapAndContradiction(t *testing.T) {
	raw := []byte(`
version: v1
policies:
  - type: rate_limit
    pattern: /api/*
    max_requests: 100
    window_seconds: 60
  - type: rate_limit
    pattern: /api/v1/x
    max_requests: 10
    window_seconds: 60
  - type: allowlist
    field: agent_id
    values: [a1]
  - type: denylist
    field: agent_id
    values: [a1]
`)
	doc, err := Load(raw)
	require.NoError(t, err)
	report := Validate(doc)

	var overlapCount, contradictionCount int
	for _, issue := range report.Issues {
		switch issue.Severity {
		case SeverityWarning:
			if issue.SourceLocation == "policies[1]" {
				overlapCount++
			}
		case SeverityError:
			contradictionCount++
		}
	}
	assert.Equal(t, 1, overlapCount)
	assert.Equal(t, 1, contradictionCount)
	assert.False(t, report.IsValid())
}

func TestValidateRejectsUnknownVersion(t *testing.T) {
	doc, err := Load([]byte("version: v99\npolicies: []\n"))
	require.NoError(t, err)
	report := Validate(doc)
	assert.False(t, report.IsValid())
}

func TestValidateFlagsDeadRule(t *testing.T) {
	raw := []byte(`
version: v1
policies:
  - type: allowlist
    field: agent_id
    values: [a1, a2, a3]
  - type: allowlist
    field: agent_id
    values: [a2]
`)
	doc, err := Load(raw)
	require.NoError(t, err)
	report := Validate(doc)
	found := false
	for _, issue := range report.Issues {
		if issue.SourceLocation == "policies[1]" && issue.Severity == SeverityWarning {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateFlagsInsaneRateLimit(t *testing.T) {
	raw := []byte(`
version: v1
policies:
  - type: rate_limit
    pattern: /api/fast
    max_requests: 1000000
    window_seconds: 1
`)
	doc, err := Load(raw)
	require.NoError(t, err)
	report := Validate(doc)
	found := false
	for _, issue := range report.Issues {
		if issue.Severity == SeverityWarning {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateIsIdempotent(t *testing.T) {
	raw := []byte(`
version: v1
policies:
  - type: allowlist
    field: agent_id
    values: [a1]
  - type: denylist
    field: agent_id
    values: [a1]
`)
	doc, err := Load(raw)
	require.NoError(t, err)
	first := Validate(doc)
	second := Validate(doc)
	assert.Equal(t, first, second)
}
