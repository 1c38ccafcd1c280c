package policy

import (
	"fmt"
	"sort"

	"github.com/kshinn/x402toolkit/internal/domain"
)

// Severity classifies an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is one finding from Validate.
type Issue struct {
	Severity       Severity
	Message        string
	SourceLocation string
	Suggestion     string
}

// ValidationReport aggregates every Issue from one Validate call, in
// document order of the offending rule (spec §4.5: "stable across
// runs").
type ValidationReport struct {
	Issues []Issue
}

// IsValid reports whether the report contains no errors. Warnings and
// info issues do not block.
func (r ValidationReport) IsValid() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return false
		}
	}
	return true
}

const (
	maxSaneRequestsPerSecond = 1000
	maxSaneWindowSeconds     = 24 * 60 * 60
)

// Validate is a pure function: it never mutates doc and may be called
// repeatedly with identical results (spec §4.5, §8 idempotence).
func Validate(doc PolicyDocument) ValidationReport {
	var report ValidationReport

	if doc.Version == "" {
		report.Issues = append(report.Issues, Issue{
			Severity:       SeverityError,
			Message:        "version is required",
			SourceLocation: "version",
		})
	} else if !knownVersion(doc.Version) {
		report.Issues = append(report.Issues, Issue{
			Severity:       SeverityError,
			Message:        fmt.Sprintf("unrecognized policy version %q", doc.Version),
			SourceLocation: "version",
			Suggestion:     fmt.Sprintf("use one of %v", KnownVersions()),
		})
	}

	checkCurrencyConsistency(doc, &report)
	checkSaneRateLimits(doc, &report)
	checkOverlap(doc, &report)
	checkDeadRules(doc, &report)
	checkContradictions(doc, &report)

	// Document order: version issues first, then by offending rule index;
	// the stable sort keeps each check's own order within one rule.
	order := func(is Issue) int {
		var idx int
		if _, err := fmt.Sscanf(is.SourceLocation, "policies[%d]", &idx); err != nil {
			return -1
		}
		return idx
	}
	sort.SliceStable(report.Issues, func(i, j int) bool {
		return order(report.Issues[i]) < order(report.Issues[j])
	})

	return report
}

func knownVersion(v string) bool {
	for _, k := range KnownVersions() {
		if k == v {
			return true
		}
	}
	return false
}

func location(i int) string { return fmt.Sprintf("policies[%d]", i) }

func checkCurrencyConsistency(doc PolicyDocument, report *ValidationReport) {
	for i, r := range doc.Rules {
		capRule, ok := r.(SpendingCapRule)
		if !ok {
			continue
		}
		if _, err := domain.NewCurrency(capRule.Currency.String()); err != nil {
			report.Issues = append(report.Issues, Issue{
				Severity:       SeverityError,
				Message:        fmt.Sprintf("spending_cap currency %q is not in the accepted set", capRule.Currency.String()),
				SourceLocation: location(i),
				Suggestion:     fmt.Sprintf("use one of %v", domain.AcceptedCurrencies()),
			})
		}
	}
}

func checkSaneRateLimits(doc PolicyDocument, report *ValidationReport) {
	for i, r := range doc.Rules {
		rl, ok := r.(RateLimitRule)
		if !ok {
			continue
		}
		ratio := float64(rl.MaxRequests) / float64(rl.WindowSeconds)
		if ratio > maxSaneRequestsPerSecond {
			report.Issues = append(report.Issues, Issue{
				Severity:       SeverityWarning,
				Message:        fmt.Sprintf("rate_limit allows %.1f req/s, an unusually high ceiling", ratio),
				SourceLocation: location(i),
				Suggestion:     "double check max_requests/window_seconds",
			})
		}
		if rl.WindowSeconds > maxSaneWindowSeconds {
			report.Issues = append(report.Issues, Issue{
				Severity:       SeverityWarning,
				Message:        fmt.Sprintf("rate_limit window_seconds=%d exceeds 24h", rl.WindowSeconds),
				SourceLocation: location(i),
			})
		}
	}
}

// checkOverlap flags pairs of RateLimit rules whose patterns overlap —
// one's exact path matches the other's wildcard, or both share an
// identical pattern.
func checkOverlap(doc PolicyDocument, report *ValidationReport) {
	for i, ri := range doc.Rules {
		rlI, ok := ri.(RateLimitRule)
		if !ok {
			continue
		}
		for j := i + 1; j < len(doc.Rules); j++ {
			rlJ, ok := doc.Rules[j].(RateLimitRule)
			if !ok {
				continue
			}
			if patternsOverlap(rlI.Pattern, rlJ.Pattern) {
				report.Issues = append(report.Issues, Issue{
					Severity: SeverityWarning,
					Message: fmt.Sprintf(
						"rate_limit patterns %q (%s) and %q (%s) overlap",
						rlI.Pattern.String(), location(i), rlJ.Pattern.String(), location(j)),
					SourceLocation: location(j),
					Suggestion:     "make the patterns disjoint",
				})
			}
		}
	}
}

func patternsOverlap(a, b domain.ResourcePath) bool {
	if a.String() == b.String() {
		return true
	}
	return a.Matches(b.String()) || b.Matches(a.String())
}

// checkDeadRules flags a rule fully shadowed by an earlier, broader
// rule of the same kind: an allow/deny-list rule whose values are a
// subset of an earlier rule on the same field, or a rate-limit rule
// with an identical pattern to an earlier one.
func checkDeadRules(doc PolicyDocument, report *ValidationReport) {
	for j := 1; j < len(doc.Rules); j++ {
		for i := 0; i < j; i++ {
			if shadowed, by := isShadowed(doc.Rules[i], doc.Rules[j]); shadowed {
				report.Issues = append(report.Issues, Issue{
					Severity:       SeverityWarning,
					Message:        fmt.Sprintf("rule at %s is fully shadowed by the broader rule at %s", location(j), location(i)),
					SourceLocation: location(j),
					Suggestion:     by,
				})
				break
			}
		}
	}
}

func isShadowed(earlier, later Rule) (bool, string) {
	switch e := earlier.(type) {
	case AllowListRule:
		l, ok := later.(AllowListRule)
		if !ok || l.Field != e.Field {
			return false, ""
		}
		if isSubset(l.Values, e.Values) {
			return true, "remove the shadowed rule or broaden the earlier one"
		}
	case DenyListRule:
		l, ok := later.(DenyListRule)
		if !ok || l.Field != e.Field {
			return false, ""
		}
		if isSubset(l.Values, e.Values) {
			return true, "remove the shadowed rule or broaden the earlier one"
		}
	case RateLimitRule:
		l, ok := later.(RateLimitRule)
		if !ok {
			return false, ""
		}
		if l.Pattern.String() == e.Pattern.String() {
			return true, "remove the duplicate rate_limit rule"
		}
	}
	return false, ""
}

func isSubset(values, of []string) bool {
	set := make(map[string]struct{}, len(of))
	for _, v := range of {
		set[v] = struct{}{}
	}
	for _, v := range values {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}

// checkContradictions flags the same (field, value) appearing in both
// an allow-list and a deny-list rule. Map iteration order is
// nondeterministic, so findings are sorted by offending location before
// being appended, keeping the report stable across runs.
func checkContradictions(doc PolicyDocument, report *ValidationReport) {
	type key struct {
		field Field
		value string
	}
	allowed := make(map[key]int)
	denied := make(map[key]int)

	for i, r := range doc.Rules {
		switch rule := r.(type) {
		case AllowListRule:
			for _, v := range rule.Values {
				allowed[key{rule.Field, v}] = i
			}
		case DenyListRule:
			for _, v := range rule.Values {
				denied[key{rule.Field, v}] = i
			}
		}
	}

	type finding struct {
		loc   int
		issue Issue
	}
	var findings []finding

	for k, allowIdx := range allowed {
		denyIdx, ok := denied[k]
		if !ok {
			continue
		}
		loc := allowIdx
		if denyIdx > loc {
			loc = denyIdx
		}
		findings = append(findings, finding{
			loc: loc,
			issue: Issue{
				Severity: SeverityError,
				Message: fmt.Sprintf(
					"%s=%q is both allow-listed (%s) and deny-listed (%s)",
					k.field, k.value, location(allowIdx), location(denyIdx)),
				SourceLocation: location(loc),
			},
		})
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].loc != findings[j].loc {
			return findings[i].loc < findings[j].loc
		}
		return findings[i].issue.Message < findings[j].issue.Message
	})
	for _, f := range findings {
		report.Issues = append(report.Issues, f.issue)
	}
}
