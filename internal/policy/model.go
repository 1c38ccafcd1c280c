// Package policy implements the policy document model and its pure
// validator (spec §3 PolicyDocument, §4.5). Rule is a tagged union over
// the four closed rule shapes, expressed as a Go interface with an
// unexported marker method — grounded on the discriminated-type pattern
// jordigilh-kubernaut's typed configs use for CRD-shaped documents,
// applied here to a flat YAML policy document instead of a CRD.
package policy

import (
	"github.com/kshinn/x402toolkit/internal/domain"
)

// DefaultAction is the action applied when no rule matches a request.
type DefaultAction string

const (
	DefaultActionAllow          DefaultAction = "allow"
	DefaultActionRequirePayment DefaultAction = "require-payment"
)

// Field is the closed set of dimensions an allow-list or deny-list rule
// may key on.
type Field string

const (
	FieldAgentID Field = "agent_id"
	FieldAddress Field = "address"
	FieldPath    Field = "path"
)

// KnownFields is the closed set of recognized Field values.
func KnownFields() []Field { return []Field{FieldAgentID, FieldAddress, FieldPath} }

// RuleKind names which of the four shapes a Rule is.
type RuleKind string

const (
	RuleKindAllowList   RuleKind = "allowlist"
	RuleKindDenyList    RuleKind = "denylist"
	RuleKindRateLimit   RuleKind = "rate_limit"
	RuleKindSpendingCap RuleKind = "spending_cap"
)

// Rule is the tagged union of the four rule shapes. Its priority is
// positional: earlier entries in PolicyDocument.Rules take precedence.
type Rule interface {
	Kind() RuleKind
	isRule()
}

// AllowListRule permits requests whose Field value is in Values.
type AllowListRule struct {
	Field  Field
	Values []string
}

func (AllowListRule) Kind() RuleKind { return RuleKindAllowList }
func (AllowListRule) isRule()        {}

// DenyListRule rejects requests whose Field value is in Values.
type DenyListRule struct {
	Field  Field
	Values []string
}

func (DenyListRule) Kind() RuleKind { return RuleKindDenyList }
func (DenyListRule) isRule()        {}

// RateLimitRule bounds request volume against Pattern within a sliding
// window.
type RateLimitRule struct {
	Pattern       domain.ResourcePath
	MaxRequests   int
	WindowSeconds int
}

func (RateLimitRule) Kind() RuleKind { return RuleKindRateLimit }
func (RateLimitRule) isRule()        {}

// SpendingCapRule bounds cumulative spend in Currency within a sliding
// window.
type SpendingCapRule struct {
	MaxAmount     domain.Amount
	Currency      domain.Currency
	WindowSeconds int
}

func (SpendingCapRule) Kind() RuleKind { return RuleKindSpendingCap }
func (SpendingCapRule) isRule()        {}

// PolicyDocument is the full, immutable policy model.
type PolicyDocument struct {
	Version  string
	Rules    []Rule
	Defaults DefaultAction
}

// KnownVersions is the closed set of accepted version literals.
func KnownVersions() []string { return []string{"v1"} }
