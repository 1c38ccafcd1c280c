// Package compliance implements the protocol compliance checker (spec
// §4.7, GLOSSARY "Compliance check"): a read-only probe against a
// remote endpoint asserting its 402 response carries a WWW-Authenticate
// header that matches the challenge grammar. Grounded on the two-step
// probe-then-pay flow in razvanmacovei-x402-cli's main.go — Step 1
// there requests without payment and inspects the 402; this package
// keeps exactly that step and never proceeds to a payment attempt, per
// the toolkit's no-on-chain-interaction non-goal.
package compliance

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kshinn/x402toolkit/internal/challenge"
	"github.com/kshinn/x402toolkit/internal/x402err"
)

// CheckName identifies one named assertion within a Report.
type CheckName string

const (
	CheckRespondsWith402      CheckName = "responds_with_402"
	CheckHasAuthHeader        CheckName = "has_www_authenticate_header"
	CheckHeaderParses         CheckName = "header_parses_as_challenge"
	CheckRecipientNonEmpty    CheckName = "recipient_field_present"
	CheckAmountPositive       CheckName = "amount_field_positive"
	CheckExpiresAfterIssued   CheckName = "expires_after_issued"
)

// Check is one named pass/fail assertion with an optional suggestion
// for the failing case.
type Check struct {
	Name       CheckName
	Passed     bool
	Detail     string
	Suggestion string
}

// Report is the structured result of a compliance probe. It never
// signals non-conformance through an error return — per spec §7, only
// an unreachable endpoint does that (see Probe's error return).
type Report struct {
	URL        string
	StatusCode int
	Checks     []Check
	Compliant  bool
}

// Prober issues the single GET request a compliance check needs. The
// default is http.DefaultClient wrapped with a caller-supplied context.
type Prober struct {
	Client *http.Client
}

func (p Prober) httpClient() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return http.DefaultClient
}

// Probe GETs url with no payment header and evaluates the response
// against the challenge grammar. It returns an error only when the
// endpoint cannot be reached at all (spec §7: "it throws only when it
// cannot reach the endpoint at all"); a non-conforming-but-reachable
// endpoint always yields a Report with Compliant=false instead.
func (p Prober) Probe(ctx context.Context, url string) (Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Report{}, fmt.Errorf("compliance: building request: %w", err)
	}

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("compliance: probing %s: %w", url, err)
	}
	defer resp.Body.Close()

	report := Report{URL: url, StatusCode: resp.StatusCode}

	if resp.StatusCode != http.StatusPaymentRequired {
		report.Checks = append(report.Checks, Check{
			Name:       CheckRespondsWith402,
			Passed:     false,
			Detail:     fmt.Sprintf("expected status 402, got %d", resp.StatusCode),
			Suggestion: "return 402 Payment Required for unauthorized requests to a paid resource",
		})
		report.Compliant = false
		return report, nil
	}
	report.Checks = append(report.Checks, Check{Name: CheckRespondsWith402, Passed: true})

	header := resp.Header.Get("WWW-Authenticate")
	if header == "" {
		report.Checks = append(report.Checks, Check{
			Name:       CheckHasAuthHeader,
			Passed:     false,
			Detail:     (&x402err.MissingHeader{Name: "WWW-Authenticate"}).Error(),
			Suggestion: "set a WWW-Authenticate header on the 402 response",
		})
		report.Compliant = false
		return report, nil
	}
	report.Checks = append(report.Checks, Check{Name: CheckHasAuthHeader, Passed: true})

	c, err := challenge.Decode(header)
	if err != nil {
		report.Checks = append(report.Checks, Check{
			Name:       CheckHeaderParses,
			Passed:     false,
			Detail:     err.Error(),
			Suggestion: "emit \"x402-<network> key=value ...\" in the documented grammar",
		})
		report.Compliant = false
		return report, nil
	}
	report.Checks = append(report.Checks, Check{Name: CheckHeaderParses, Passed: true})

	report.Checks = append(report.Checks, fieldChecks(c)...)

	report.Compliant = allPassed(report.Checks)
	return report, nil
}

func fieldChecks(c challenge.Challenge) []Check {
	checks := []Check{
		{
			Name:   CheckRecipientNonEmpty,
			Passed: c.Recipient.String() != "",
			Detail: "recipient must be a non-empty address",
		},
		{
			Name:   CheckAmountPositive,
			Passed: !c.Amount.IsZero(),
			Detail: "amount must be greater than zero",
		},
		{
			Name:   CheckExpiresAfterIssued,
			Passed: c.ExpiresAt.After(c.IssuedAt),
			Detail: "expires must be strictly after timestamp",
		},
	}
	for i := range checks {
		if !checks[i].Passed {
			checks[i].Suggestion = "fix the \"" + string(checks[i].Name) + "\" field in the issued challenge"
		}
	}
	return checks
}

func allPassed(checks []Check) bool {
	for _, c := range checks {
		if !c.Passed {
			return false
		}
	}
	return true
}
