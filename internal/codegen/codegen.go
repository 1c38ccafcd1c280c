// Package codegen implements the policy compiler (spec §4.6): it takes
// a validated PolicyDocument and a target framework tag and emits the
// source text of a middleware module. Uses text/template — the one
// stdlib-justified piece in this module, since no ecosystem templating
// library appears anywhere in the example pack for source-code
// generation (documented in DESIGN.md).
package codegen

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/kshinn/x402toolkit/internal/policy"
	"github.com/kshinn/x402toolkit/internal/x402err"
)

// FrameworkTag is the closed enumeration of codegen targets (spec §3,
// §4.6): chi's chained per-request middleware function, and fiber's
// plugin-style registration object.
type FrameworkTag string

const (
	FrameworkChi   FrameworkTag = "chi"
	FrameworkFiber FrameworkTag = "fiber"
)

func supportedFrameworks() []FrameworkTag { return []FrameworkTag{FrameworkChi, FrameworkFiber} }

// Generate emits the source text of a middleware module implementing
// policy for the target framework. The caller must have already run
// policy.Validate and confirmed IsValid(); Generate re-validates itself
// so a caller cannot accidentally skip that precondition (spec §4.6:
// "Preconditions: validator has been run and reports no errors").
func Generate(doc policy.PolicyDocument, framework FrameworkTag, sourceFilename string) (string, error) {
	report := policy.Validate(doc)
	if !report.IsValid() {
		return "", &x402err.PolicyValidationFailed{IssueCount: len(report.Issues)}
	}

	tmpl, ok := templates[framework]
	if !ok {
		return "", &x402err.UnsupportedFramework{Tag: string(framework)}
	}

	data, err := buildTemplateData(doc, sourceFilename)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("codegen: executing template: %w", err)
	}
	return buf.String(), nil
}

// templateData is the data passed to each framework template. Field
// order and derivation depend only on doc and sourceFilename, never on
// environment or wall-clock time, so Generate is deterministic (spec
// §8: byte-identical output for identical inputs).
type templateData struct {
	SourceFilename string
	Version        string
	DefaultsAllow  bool
	Rules          []ruleView
}

type ruleView struct {
	Index         int
	Kind          policy.RuleKind
	IsAllowList   bool
	IsDenyList    bool
	IsRateLimit   bool
	IsSpendingCap bool
	Field         string
	Values        []string
	Pattern       string
	MaxRequests   int
	WindowSeconds int
	Currency      string
	MaxAmount     string
}

func buildTemplateData(doc policy.PolicyDocument, sourceFilename string) (templateData, error) {
	data := templateData{
		SourceFilename: sourceFilename,
		Version:        doc.Version,
		DefaultsAllow:  doc.Defaults == policy.DefaultActionAllow,
		Rules:          make([]ruleView, 0, len(doc.Rules)),
	}

	for i, rule := range doc.Rules {
		view := ruleView{Index: i, Kind: rule.Kind()}
		switch r := rule.(type) {
		case policy.AllowListRule:
			view.IsAllowList = true
			view.Field = string(r.Field)
			view.Values = r.Values
		case policy.DenyListRule:
			view.IsDenyList = true
			view.Field = string(r.Field)
			view.Values = r.Values
		case policy.RateLimitRule:
			view.IsRateLimit = true
			view.Pattern = r.Pattern.String()
			view.MaxRequests = r.MaxRequests
			view.WindowSeconds = r.WindowSeconds
		case policy.SpendingCapRule:
			view.IsSpendingCap = true
			view.Currency = r.Currency.String()
			view.MaxAmount = r.MaxAmount.String()
		default:
			return templateData{}, fmt.Errorf("codegen: unhandled rule kind %q", rule.Kind())
		}
		data.Rules = append(data.Rules, view)
	}

	return data, nil
}

var templates = map[FrameworkTag]*template.Template{
	FrameworkChi:   template.Must(template.New("chi").Parse(chiTemplate)),
	FrameworkFiber: template.Must(template.New("fiber").Parse(fiberTemplate)),
}
