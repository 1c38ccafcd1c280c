package policy

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kshinn/x402toolkit/internal/domain"
	"github.com/kshinn/x402toolkit/internal/x402err"
)

type wireDocument struct {
	Version  string      `yaml:"version"`
	Policies []yaml.Node `yaml:"policies"`
	Defaults string      `yaml:"defaults"`
}

// wireRuleHeader reads just the discriminator so the rest of the node
// can be decoded against the type-specific strict struct.
type wireRuleHeader struct {
	Type string `yaml:"type"`
}

type wireAllowDeny struct {
	Type   string   `yaml:"type"`
	Field  string   `yaml:"field"`
	Values []string `yaml:"values"`
}

type wireRateLimit struct {
	Type          string `yaml:"type"`
	Pattern       string `yaml:"pattern"`
	MaxRequests   int    `yaml:"max_requests"`
	WindowSeconds int    `yaml:"window_seconds"`
}

type wireSpendingCap struct {
	Type          string `yaml:"type"`
	MaxAmount     string `yaml:"max_amount"`
	Currency      string `yaml:"currency"`
	WindowSeconds int    `yaml:"window_seconds"`
}

// Load parses raw YAML text into a PolicyDocument. This is a loader,
// not the validator: it enforces only what the domain constructors and
// YAML decoding already require (known fields, well-formed values).
// Cross-rule soundness (overlap, contradiction, dead rules, ...) is the
// job of Validate.
func Load(raw []byte) (PolicyDocument, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var wire wireDocument
	if err := dec.Decode(&wire); err != nil {
		return PolicyDocument{}, &x402err.SchemaError{Path: "$", Message: err.Error()}
	}

	defaults := DefaultActionRequirePayment
	if wire.Defaults != "" {
		switch DefaultAction(wire.Defaults) {
		case DefaultActionAllow, DefaultActionRequirePayment:
			defaults = DefaultAction(wire.Defaults)
		default:
			return PolicyDocument{}, &x402err.SchemaError{
				Path:    "defaults",
				Message: fmt.Sprintf("unrecognized defaults action %q", wire.Defaults),
			}
		}
	}

	doc := PolicyDocument{
		Version:  wire.Version,
		Defaults: defaults,
		Rules:    make([]Rule, 0, len(wire.Policies)),
	}

	for i, node := range wire.Policies {
		path := fmt.Sprintf("policies[%d]", i)
		rule, err := decodeRule(&node)
		if err != nil {
			return PolicyDocument{}, &x402err.SchemaError{Path: path, Message: err.Error()}
		}
		doc.Rules = append(doc.Rules, rule)
	}

	return doc, nil
}

func decodeRule(node *yaml.Node) (Rule, error) {
	var header wireRuleHeader
	if err := node.Decode(&header); err != nil {
		return nil, fmt.Errorf("decoding type discriminator: %w", err)
	}

	switch RuleKind(header.Type) {
	case RuleKindAllowList, RuleKindDenyList:
		var w wireAllowDeny
		if err := strictDecode(node, &w); err != nil {
			return nil, err
		}
		if err := validFieldName(w.Field); err != nil {
			return nil, err
		}
		if len(w.Values) == 0 {
			return nil, fmt.Errorf("values must not be empty")
		}
		if header.Type == string(RuleKindAllowList) {
			return AllowListRule{Field: Field(w.Field), Values: w.Values}, nil
		}
		return DenyListRule{Field: Field(w.Field), Values: w.Values}, nil

	case RuleKindRateLimit:
		var w wireRateLimit
		if err := strictDecode(node, &w); err != nil {
			return nil, err
		}
		pattern, err := domain.NewResourcePath(w.Pattern)
		if err != nil {
			return nil, err
		}
		if w.MaxRequests < 1 {
			return nil, fmt.Errorf("max_requests must be >= 1, got %d", w.MaxRequests)
		}
		if w.WindowSeconds < 1 {
			return nil, fmt.Errorf("window_seconds must be >= 1, got %d", w.WindowSeconds)
		}
		return RateLimitRule{Pattern: pattern, MaxRequests: w.MaxRequests, WindowSeconds: w.WindowSeconds}, nil

	case RuleKindSpendingCap:
		var w wireSpendingCap
		if err := strictDecode(node, &w); err != nil {
			return nil, err
		}
		currency, err := domain.NewCurrency(w.Currency)
		if err != nil {
			return nil, err
		}
		amount, err := domain.NewAmount(w.MaxAmount, currency)
		if err != nil {
			return nil, err
		}
		if w.WindowSeconds < 1 {
			return nil, fmt.Errorf("window_seconds must be >= 1, got %d", w.WindowSeconds)
		}
		return SpendingCapRule{MaxAmount: amount, Currency: currency, WindowSeconds: w.WindowSeconds}, nil

	default:
		return nil, fmt.Errorf("unrecognized policy type %q", header.Type)
	}
}

func validFieldName(raw string) error {
	for _, f := range KnownFields() {
		if string(f) == raw {
			return nil
		}
	}
	return fmt.Errorf("unrecognized field %q", raw)
}

// strictDecode re-marshals node and decodes it through a KnownFields
// decoder, so a single rule entry's unrecognized keys are caught the
// same way the top-level document's are — yaml.Node.Decode alone does
// not honor KnownFields.
func strictDecode(node *yaml.Node, out interface{}) error {
	b, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	return dec.Decode(out)
}
