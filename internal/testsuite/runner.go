package testsuite

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kshinn/x402toolkit/internal/challenge"
	"github.com/kshinn/x402toolkit/internal/x402err"
)

// DefaultRequestTimeout is the per-test HTTP timeout when RunOptions
// leaves it unset, per spec §4.4.
const DefaultRequestTimeout = 10 * time.Second

// RunOptions configures a single Run invocation.
type RunOptions struct {
	// RequestTimeout bounds each test's HTTP round trip. Zero selects
	// DefaultRequestTimeout.
	RequestTimeout time.Duration
	// Client is the HTTP client used to issue requests. A nil Client
	// selects http.DefaultClient's transport with RequestTimeout applied
	// per request via context, not via Client.Timeout, so a caller-
	// supplied Client's own Timeout field is never overridden silently.
	Client *http.Client
}

func (o RunOptions) requestTimeout() time.Duration {
	if o.RequestTimeout <= 0 {
		return DefaultRequestTimeout
	}
	return o.RequestTimeout
}

func (o RunOptions) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return http.DefaultClient
}

// AssertionResult is the evaluated outcome of one Assertion.
type AssertionResult struct {
	Kind    AssertionKind
	Passed  bool
	Message string
}

// TestResult is the outcome of running one Test.
type TestResult struct {
	Name            string
	Passed          bool
	Duration        time.Duration
	Assertions      []AssertionResult
	ExecutionFailed bool
	ExecutionError  error
}

// SuiteResult aggregates every TestResult plus the overall exit code,
// per spec §3/§4.4.
type SuiteResult struct {
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Duration time.Duration
	Tests    []TestResult
	ExitCode int
}

// Run executes suite sequentially in document order and aggregates the
// results. Parallelism is deliberately not introduced here: suites may
// depend on sequentially unique memos issued by a shared mock server
// (spec §9 open question).
func Run(suite TestSuite, opts RunOptions) SuiteResult {
	start := time.Now()
	results := make([]TestResult, 0, len(suite.Tests))

	failed := 0
	executionErrorOccurred := false

	for _, test := range suite.Tests {
		tr := runTest(test, opts)
		if tr.ExecutionFailed {
			executionErrorOccurred = true
		}
		if !tr.Passed {
			failed++
		}
		results = append(results, tr)
	}

	exitCode := 0
	switch {
	case executionErrorOccurred:
		exitCode = 2
	case failed > 0:
		exitCode = 1
	}

	return SuiteResult{
		Total:    len(suite.Tests),
		Passed:   len(suite.Tests) - failed,
		Failed:   failed,
		Duration: time.Since(start),
		Tests:    results,
		ExitCode: exitCode,
	}
}

func runTest(test Test, opts RunOptions) TestResult {
	start := time.Now()

	if len(test.Assertions) == 0 {
		// An assertion-less test passes trivially, per spec §8.
		return TestResult{Name: test.Name, Passed: true, Duration: time.Since(start)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.requestTimeout())
	defer cancel()

	var bodyReader io.Reader
	if test.Request.Body != "" {
		bodyReader = strings.NewReader(test.Request.Body)
	}

	req, err := http.NewRequestWithContext(ctx, test.Request.Method, test.Request.URL, bodyReader)
	if err != nil {
		return executionFailure(test, start, err)
	}
	for name, value := range test.Request.Headers {
		req.Header.Set(name, value)
	}

	resp, err := opts.client().Do(req)
	if err != nil {
		return executionFailure(test, start, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return executionFailure(test, start, err)
	}

	var parsedChallenge *challenge.Challenge
	var challengeErr error
	if wa := resp.Header.Get("WWW-Authenticate"); strings.HasPrefix(wa, "x402-") {
		c, derr := challenge.Decode(wa)
		if derr != nil {
			challengeErr = derr
		} else {
			parsedChallenge = &c
		}
	}

	assertionResults := make([]AssertionResult, 0, len(test.Assertions))
	allPassed := true
	for _, a := range test.Assertions {
		ar := evaluate(a, resp, respBody, parsedChallenge, challengeErr)
		if !ar.Passed {
			allPassed = false
		}
		assertionResults = append(assertionResults, ar)
	}

	return TestResult{
		Name:       test.Name,
		Passed:     allPassed,
		Duration:   time.Since(start),
		Assertions: assertionResults,
	}
}

func executionFailure(test Test, start time.Time, cause error) TestResult {
	return TestResult{
		Name:            test.Name,
		Passed:          false,
		Duration:        time.Since(start),
		ExecutionFailed: true,
		ExecutionError:  &x402err.TestExecutionFailed{TestName: test.Name, Cause: cause},
	}
}

func evaluate(a Assertion, resp *http.Response, body []byte, c *challenge.Challenge, challengeErr error) AssertionResult {
	switch a.Kind {
	case AssertionStatusEquals:
		if resp.StatusCode == a.StatusCode {
			return AssertionResult{Kind: a.Kind, Passed: true}
		}
		return AssertionResult{
			Kind:    a.Kind,
			Passed:  false,
			Message: fmt.Sprintf("expected status %d, got %d", a.StatusCode, resp.StatusCode),
		}

	case AssertionHeaderPresent:
		if _, ok := resp.Header[http.CanonicalHeaderKey(a.HeaderName)]; ok {
			return AssertionResult{Kind: a.Kind, Passed: true}
		}
		return AssertionResult{Kind: a.Kind, Passed: false, Message: fmt.Sprintf("header %q not present", a.HeaderName)}

	case AssertionHeaderEquals:
		got := resp.Header.Get(a.HeaderName)
		if got == a.HeaderValue {
			return AssertionResult{Kind: a.Kind, Passed: true}
		}
		return AssertionResult{
			Kind:    a.Kind,
			Passed:  false,
			Message: fmt.Sprintf("header %q: expected %q, got %q", a.HeaderName, a.HeaderValue, got),
		}

	case AssertionChallengeFieldEquals:
		if challengeErr != nil {
			return AssertionResult{Kind: a.Kind, Passed: false, Message: fmt.Sprintf("challenge header failed to parse: %v", challengeErr)}
		}
		if c == nil {
			return AssertionResult{Kind: a.Kind, Passed: false, Message: "no WWW-Authenticate challenge header present"}
		}
		got, ok := challengeField(*c, a.ChallengeKey)
		if !ok {
			return AssertionResult{Kind: a.Kind, Passed: false, Message: fmt.Sprintf("unrecognized challenge field %q", a.ChallengeKey)}
		}
		if got == a.ChallengeValue {
			return AssertionResult{Kind: a.Kind, Passed: true}
		}
		return AssertionResult{
			Kind:    a.Kind,
			Passed:  false,
			Message: fmt.Sprintf("challenge field %q: expected %q, got %q", a.ChallengeKey, a.ChallengeValue, got),
		}

	case AssertionBodyContains:
		if bytes.Contains(body, []byte(a.BodySubstring)) {
			return AssertionResult{Kind: a.Kind, Passed: true}
		}
		return AssertionResult{Kind: a.Kind, Passed: false, Message: fmt.Sprintf("body does not contain %q", a.BodySubstring)}

	case AssertionAlwaysTrue:
		return AssertionResult{Kind: a.Kind, Passed: true}

	case AssertionAlwaysFalse:
		return AssertionResult{Kind: a.Kind, Passed: false, Message: "always_false"}

	default:
		return AssertionResult{Kind: a.Kind, Passed: false, Message: fmt.Sprintf("unrecognized assertion kind %q", a.Kind)}
	}
}

// challengeField looks up one of the eight wire-grammar fields (§4.1) on
// a decoded challenge by name.
func challengeField(c challenge.Challenge, key string) (string, bool) {
	switch key {
	case "recipient":
		return c.Recipient.String(), true
	case "amount":
		return c.Amount.String(), true
	case "currency":
		return c.Currency.String(), true
	case "memo":
		return c.Memo.String(), true
	case "network":
		return c.Network.String(), true
	case "timestamp":
		return c.IssuedAt.String(), true
	case "resource":
		return c.Resource.String(), true
	case "expires":
		return c.ExpiresAt.String(), true
	default:
		return "", false
	}
}
