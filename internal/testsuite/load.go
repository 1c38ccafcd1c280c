package testsuite

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kshinn/x402toolkit/internal/x402err"
)

// wireSuite/wireTest/wireRequest mirror the YAML document shape from
// spec §6: top-level key "tests", each test a name/request/assertions
// triple. Strict decoding (KnownFields) makes an unrecognized field a
// load-time error, per spec §4.4.
type wireSuite struct {
	Tests []wireTest `yaml:"tests"`
}

// Assertions and Expect are aliases for the same per-test key; a test
// document may use either "expect" or "assertions" but not both.
// Pointers (rather than plain slices) let Load tell "key absent" apart
// from "key present with an empty list".
type wireTest struct {
	Name       string       `yaml:"name"`
	Request    wireRequest  `yaml:"request"`
	Assertions *[]yaml.Node `yaml:"assertions"`
	Expect     *[]yaml.Node `yaml:"expect"`
}

type wireRequest struct {
	Method  string            `yaml:"method"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Body    string            `yaml:"body"`
}

// Load parses raw YAML text into a TestSuite. Unknown top-level fields,
// missing required fields, and duplicate test names are all load-time
// errors, matching spec §4.4.
func Load(raw []byte) (TestSuite, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var wire wireSuite
	if err := dec.Decode(&wire); err != nil {
		return TestSuite{}, &x402err.SchemaError{Path: "$", Message: err.Error()}
	}

	seen := make(map[string]struct{}, len(wire.Tests))
	suite := TestSuite{Tests: make([]Test, 0, len(wire.Tests))}

	for i, wt := range wire.Tests {
		path := fmt.Sprintf("tests[%d]", i)
		if wt.Name == "" {
			return TestSuite{}, &x402err.SchemaError{Path: path + ".name", Message: "name is required"}
		}
		if _, dup := seen[wt.Name]; dup {
			return TestSuite{}, &x402err.SchemaError{Path: path + ".name", Message: fmt.Sprintf("duplicate test name %q", wt.Name)}
		}
		seen[wt.Name] = struct{}{}

		if wt.Request.Method == "" {
			return TestSuite{}, &x402err.SchemaError{Path: path + ".request.method", Message: "method is required"}
		}
		if wt.Request.URL == "" {
			return TestSuite{}, &x402err.SchemaError{Path: path + ".request.url", Message: "url is required"}
		}

		switch {
		case wt.Assertions != nil && wt.Expect != nil:
			return TestSuite{}, &x402err.SchemaError{Path: path, Message: "specify either \"expect\" or \"assertions\", not both"}
		case wt.Assertions == nil && wt.Expect == nil:
			return TestSuite{}, &x402err.SchemaError{Path: path, Message: "missing required field \"expect\" (or \"assertions\")"}
		}
		wireAssertions := wt.Assertions
		if wt.Expect != nil {
			wireAssertions = wt.Expect
		}

		assertions := make([]Assertion, 0, len(*wireAssertions))
		for j, node := range *wireAssertions {
			a, err := decodeAssertion(&node)
			if err != nil {
				return TestSuite{}, &x402err.SchemaError{
					Path:    fmt.Sprintf("%s.assertions[%d]", path, j),
					Message: err.Error(),
				}
			}
			assertions = append(assertions, a)
		}

		suite.Tests = append(suite.Tests, Test{
			Name: wt.Name,
			Request: Request{
				Method:  wt.Request.Method,
				URL:     wt.Request.URL,
				Headers: wt.Request.Headers,
				Body:    wt.Request.Body,
			},
			Assertions: assertions,
		})
	}

	return suite, nil
}

// decodeAssertion dispatches on the single key present in node, the
// YAML idiom for a closed tagged union without an explicit discriminator
// field.
func decodeAssertion(node *yaml.Node) (Assertion, error) {
	var raw map[string]yaml.Node
	if err := node.Decode(&raw); err != nil {
		return Assertion{}, fmt.Errorf("assertion must be a single-key mapping: %w", err)
	}
	if len(raw) != 1 {
		return Assertion{}, fmt.Errorf("assertion must have exactly one key, got %d", len(raw))
	}

	for key, val := range raw {
		switch AssertionKind(key) {
		case AssertionStatusEquals:
			var code int
			if err := val.Decode(&code); err != nil {
				return Assertion{}, fmt.Errorf("status_equals: %w", err)
			}
			return Assertion{Kind: AssertionStatusEquals, StatusCode: code}, nil

		case AssertionHeaderPresent:
			var name string
			if err := val.Decode(&name); err != nil {
				return Assertion{}, fmt.Errorf("header_present: %w", err)
			}
			return Assertion{Kind: AssertionHeaderPresent, HeaderName: name}, nil

		case AssertionHeaderEquals:
			name, value, err := decodeKV(&val, "name", "value")
			if err != nil {
				return Assertion{}, fmt.Errorf("header_equals: %w", err)
			}
			return Assertion{Kind: AssertionHeaderEquals, HeaderName: name, HeaderValue: value}, nil

		case AssertionChallengeFieldEquals:
			k, v, err := decodeKV(&val, "key", "value")
			if err != nil {
				return Assertion{}, fmt.Errorf("challenge_field_equals: %w", err)
			}
			return Assertion{Kind: AssertionChallengeFieldEquals, ChallengeKey: k, ChallengeValue: v}, nil

		case AssertionBodyContains:
			var substr string
			if err := val.Decode(&substr); err != nil {
				return Assertion{}, fmt.Errorf("body_contains: %w", err)
			}
			return Assertion{Kind: AssertionBodyContains, BodySubstring: substr}, nil

		case AssertionAlwaysTrue:
			return Assertion{Kind: AssertionAlwaysTrue}, nil

		case AssertionAlwaysFalse:
			return Assertion{Kind: AssertionAlwaysFalse}, nil

		default:
			return Assertion{}, fmt.Errorf("unrecognized assertion kind %q", key)
		}
	}
	panic("unreachable")
}

// decodeKV decodes a two-field mapping value, rejecting any key outside
// {a, b} and requiring both to be present.
func decodeKV(node *yaml.Node, a, b string) (string, string, error) {
	var raw map[string]string
	if err := node.Decode(&raw); err != nil {
		return "", "", err
	}
	for k := range raw {
		if k != a && k != b {
			return "", "", fmt.Errorf("unknown field %q", k)
		}
	}
	av, ok := raw[a]
	if !ok {
		return "", "", fmt.Errorf("missing required field %q", a)
	}
	bv, ok := raw[b]
	if !ok {
		return "", "", fmt.Errorf("missing required field %q", b)
	}
	return av, bv, nil
}
