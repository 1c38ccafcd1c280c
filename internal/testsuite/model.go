// Package testsuite implements the declarative YAML test suite model
// and its sequential HTTP runner (spec §3 TestSuite, §4.4). Grounded on
// the teacher's config.Load() shape — parse, validate, return a
// strongly-typed value or a load-time error — generalized here from
// env vars to a YAML document.
package testsuite

// AssertionKind is the closed set of assertion shapes a test may carry.
type AssertionKind string

const (
	AssertionStatusEquals         AssertionKind = "status_equals"
	AssertionHeaderPresent        AssertionKind = "header_present"
	AssertionHeaderEquals         AssertionKind = "header_equals"
	AssertionChallengeFieldEquals AssertionKind = "challenge_field_equals"
	AssertionBodyContains         AssertionKind = "body_contains"
	AssertionAlwaysTrue           AssertionKind = "always_true"
	AssertionAlwaysFalse          AssertionKind = "always_false"
)

// Assertion is a single evaluated check within a test. Only the fields
// relevant to Kind are populated.
type Assertion struct {
	Kind AssertionKind

	StatusCode     int
	HeaderName     string
	HeaderValue    string
	ChallengeKey   string
	ChallengeValue string
	BodySubstring  string
}

// Request describes the HTTP call a test issues.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// Test is one named HTTP check plus its ordered assertions.
type Test struct {
	Name       string
	Request    Request
	Assertions []Assertion
}

// TestSuite is an ordered collection of Tests, loaded once from YAML
// and thereafter immutable.
type TestSuite struct {
	Tests []Test
}
