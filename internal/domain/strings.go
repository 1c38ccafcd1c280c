package domain

import (
	"strings"

	"github.com/kshinn/x402toolkit/internal/x402err"
)

const maxBoundedStringLen = 256

// AgentId is a non-empty, length-bounded opaque identifier for a
// calling agent, used as a policy rule dimension.
type AgentId struct {
	value string
}

// NewAgentId validates raw and returns an AgentId.
func NewAgentId(raw string) (AgentId, error) {
	if err := checkBounded("agent_id", raw); err != nil {
		return AgentId{}, err
	}
	return AgentId{value: raw}, nil
}

func (a AgentId) String() string { return a.value }

// ResourcePath is a non-empty, length-bounded path that begins with "/"
// and may end in a single trailing "*" wildcard segment.
type ResourcePath struct {
	value string
}

// NewResourcePath validates raw and returns a ResourcePath.
func NewResourcePath(raw string) (ResourcePath, error) {
	if err := checkBounded("resource_path", raw); err != nil {
		return ResourcePath{}, err
	}
	if !strings.HasPrefix(raw, "/") {
		return ResourcePath{}, &x402err.InvalidDomainValue{
			Field: "resource_path",
			Value: raw,
			Cause: "must begin with '/'",
		}
	}
	body := strings.TrimSuffix(raw, "*")
	if strings.Contains(body, "*") {
		return ResourcePath{}, &x402err.InvalidDomainValue{
			Field: "resource_path",
			Value: raw,
			Cause: "at most one trailing '*' wildcard is allowed",
		}
	}
	return ResourcePath{value: raw}, nil
}

func (r ResourcePath) String() string { return r.value }

// IsWildcard reports whether the path ends in the single trailing "*"
// wildcard segment.
func (r ResourcePath) IsWildcard() bool { return strings.HasSuffix(r.value, "*") }

// Prefix returns the path with any trailing "*" stripped, suitable for
// prefix matching against a wildcard pattern.
func (r ResourcePath) Prefix() string { return strings.TrimSuffix(r.value, "*") }

// Matches reports whether a concrete request path satisfies this
// pattern: exact equality, or a prefix match when this path is a
// wildcard pattern.
func (r ResourcePath) Matches(requestPath string) bool {
	if r.IsWildcard() {
		return strings.HasPrefix(requestPath, r.Prefix())
	}
	return r.value == requestPath
}

func checkBounded(field, raw string) error {
	if raw == "" {
		return &x402err.InvalidDomainValue{Field: field, Value: raw, Cause: "must not be empty"}
	}
	if len(raw) > maxBoundedStringLen {
		return &x402err.InvalidDomainValue{Field: field, Value: raw, Cause: "exceeds length bound"}
	}
	return nil
}
