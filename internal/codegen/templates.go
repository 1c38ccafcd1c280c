package codegen

// chiTemplate emits a chained http.Handler-wrapping middleware in the
// github.com/go-chi/chi/v5 idiom: a func(http.Handler) http.Handler
// that a caller wires with router.Use(...), grounded on chi's own
// middleware shape as used in jordigilh-kubernaut.
const chiTemplate = `// Code generated by the x402 policy compiler from {{.SourceFilename}}
// (policy version {{.Version}}). DO NOT EDIT.
package x402policy

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var (
	rateLimitMu     sync.Mutex
	rateLimitCounts = map[string][]time.Time{}

	spendingCapMu     sync.Mutex
	spendingCapTotals = map[string]decimal.Decimal{}
)

func subjectKey(field string, r *http.Request) string {
	switch field {
	case "agent_id":
		return r.Header.Get("X-Agent-Id")
	case "address":
		return r.Header.Get("X-Payer-Address")
	case "path":
		return r.URL.Path
	default:
		return r.RemoteAddr
	}
}

// requestAmount reads the amount a caller declares it is about to spend
// from the X-Payment-Amount header, the same header-derived-subject
// convention subjectKey uses. A missing or malformed header is treated
// as a zero-amount request rather than rejected outright — spending-cap
// enforcement only engages once a caller actually declares a spend.
func requestAmount(r *http.Request) decimal.Decimal {
	raw := r.Header.Get("X-Payment-Amount")
	if raw == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return amount
}
{{range .Rules}}
{{if .IsAllowList}}
// ruleCheck{{.Index}} allows the request when the {{.Field}} dimension
// is in the configured value set.
func ruleCheck{{.Index}}(r *http.Request) bool {
	value := subjectKey("{{.Field}}", r)
	switch value {
	{{range .Values}}case "{{.}}":
		return true
	{{end}}}
	return false
}
{{else if .IsDenyList}}
// ruleCheck{{.Index}} denies the request when the {{.Field}} dimension
// is in the configured value set.
func ruleCheck{{.Index}}(r *http.Request) bool {
	value := subjectKey("{{.Field}}", r)
	switch value {
	{{range .Values}}case "{{.}}":
		return false
	{{end}}}
	return true
}
{{else if .IsRateLimit}}
// ruleCheck{{.Index}} enforces at most {{.MaxRequests}} requests per
// {{.WindowSeconds}}s for paths matching "{{.Pattern}}".
func ruleCheck{{.Index}}(r *http.Request) bool {
	if !pathMatches{{.Index}}(r.URL.Path) {
		return true
	}
	key := "{{.Index}}:" + r.RemoteAddr
	now := time.Now()
	window := time.Duration({{.WindowSeconds}}) * time.Second

	rateLimitMu.Lock()
	defer rateLimitMu.Unlock()

	times := rateLimitCounts[key]
	kept := times[:0]
	for _, t := range times {
		if now.Sub(t) < window {
			kept = append(kept, t)
		}
	}
	if len(kept) >= {{.MaxRequests}} {
		rateLimitCounts[key] = kept
		return false
	}
	rateLimitCounts[key] = append(kept, now)
	return true
}

func pathMatches{{.Index}}(path string) bool {
	pattern := "{{.Pattern}}"
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(path, strings.TrimSuffix(pattern, "*"))
	}
	return path == pattern
}
{{else if .IsSpendingCap}}
// ruleCheck{{.Index}} enforces a cumulative {{.MaxAmount}} {{.Currency}}
// spending cap, keyed by remote address. The running total lasts for the
// life of the process and is never reset; the rule's window is not applied.
func ruleCheck{{.Index}}(r *http.Request, amount decimal.Decimal) bool {
	key := "{{.Index}}:" + r.RemoteAddr
	cap, _ := decimal.NewFromString("{{.MaxAmount}}")

	spendingCapMu.Lock()
	defer spendingCapMu.Unlock()

	total := spendingCapTotals[key].Add(amount)
	if total.GreaterThan(cap) {
		return false
	}
	spendingCapTotals[key] = total
	return true
}
{{end}}
{{end}}
// X402Middleware composes every configured rule in document order; any
// failing rule check rejects, and once every check passes the request
// falls through to the defaults action.
func X402Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		amount := requestAmount(r)
		{{range .Rules}}{{if .IsSpendingCap}}if !ruleCheck{{.Index}}(r, amount) {
			http.Error(w, "Payment required", http.StatusPaymentRequired)
			return
		}
		{{else if or .IsAllowList .IsDenyList .IsRateLimit}}if !ruleCheck{{.Index}}(r) {
			http.Error(w, "Payment required", http.StatusPaymentRequired)
			return
		}
		{{end}}{{end}}
		{{if .DefaultsAllow}}next.ServeHTTP(w, r)
		{{else}}http.Error(w, "Payment required", http.StatusPaymentRequired)
		{{end}}
	})
}
`

// fiberTemplate emits a plugin-style registration object in the
// github.com/gofiber/fiber/v3 idiom: a func(app *fiber.App) that
// installs handlers, grounded on fiber's app.Use registration pattern
// as used in yv-was-taken-stronghold.
const fiberTemplate = `// Code generated by the x402 policy compiler from {{.SourceFilename}}
// (policy version {{.Version}}). DO NOT EDIT.
package x402policy

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"
)

var (
	rateLimitMu     sync.Mutex
	rateLimitCounts = map[string][]time.Time{}

	spendingCapMu     sync.Mutex
	spendingCapTotals = map[string]decimal.Decimal{}
)

func subjectKey(field string, c fiber.Ctx) string {
	switch field {
	case "agent_id":
		return c.Get("X-Agent-Id")
	case "address":
		return c.Get("X-Payer-Address")
	case "path":
		return c.Path()
	default:
		return c.IP()
	}
}

// requestAmount reads the amount a caller declares it is about to spend
// from the X-Payment-Amount header, the same header-derived-subject
// convention subjectKey uses. A missing or malformed header is treated
// as a zero-amount request rather than rejected outright — spending-cap
// enforcement only engages once a caller actually declares a spend.
func requestAmount(c fiber.Ctx) decimal.Decimal {
	raw := c.Get("X-Payment-Amount")
	if raw == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return amount
}
{{range .Rules}}
{{if .IsAllowList}}
func ruleCheck{{.Index}}(c fiber.Ctx) bool {
	value := subjectKey("{{.Field}}", c)
	switch value {
	{{range .Values}}case "{{.}}":
		return true
	{{end}}}
	return false
}
{{else if .IsDenyList}}
func ruleCheck{{.Index}}(c fiber.Ctx) bool {
	value := subjectKey("{{.Field}}", c)
	switch value {
	{{range .Values}}case "{{.}}":
		return false
	{{end}}}
	return true
}
{{else if .IsRateLimit}}
func pathMatches{{.Index}}(path string) bool {
	pattern := "{{.Pattern}}"
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(path, strings.TrimSuffix(pattern, "*"))
	}
	return path == pattern
}

// ruleCheck{{.Index}} enforces at most {{.MaxRequests}} requests per
// {{.WindowSeconds}}s for paths matching "{{.Pattern}}".
func ruleCheck{{.Index}}(c fiber.Ctx) bool {
	if !pathMatches{{.Index}}(c.Path()) {
		return true
	}
	key := "{{.Index}}:" + c.IP()
	now := time.Now()
	window := time.Duration({{.WindowSeconds}}) * time.Second

	rateLimitMu.Lock()
	defer rateLimitMu.Unlock()

	times := rateLimitCounts[key]
	kept := times[:0]
	for _, t := range times {
		if now.Sub(t) < window {
			kept = append(kept, t)
		}
	}
	if len(kept) >= {{.MaxRequests}} {
		rateLimitCounts[key] = kept
		return false
	}
	rateLimitCounts[key] = append(kept, now)
	return true
}
{{else if .IsSpendingCap}}
// ruleCheck{{.Index}} enforces a cumulative {{.MaxAmount}} {{.Currency}}
// spending cap, keyed by client IP. The running total lasts for the life
// of the process and is never reset; the rule's window is not applied.
func ruleCheck{{.Index}}(c fiber.Ctx, amount decimal.Decimal) bool {
	key := "{{.Index}}:" + c.IP()
	cap, _ := decimal.NewFromString("{{.MaxAmount}}")

	spendingCapMu.Lock()
	defer spendingCapMu.Unlock()

	total := spendingCapTotals[key].Add(amount)
	if total.GreaterThan(cap) {
		return false
	}
	spendingCapTotals[key] = total
	return true
}
{{end}}
{{end}}
// RegisterX402Policy installs the compiled policy on app as a
// plugin-style registration, the fiber convention for middleware setup.
func RegisterX402Policy(app *fiber.App) {
	app.Use(func(c fiber.Ctx) error {
		amount := requestAmount(c)
		{{range .Rules}}{{if .IsSpendingCap}}if !ruleCheck{{.Index}}(c, amount) {
			return c.Status(fiber.StatusPaymentRequired).SendString("Payment required")
		}
		{{else if or .IsAllowList .IsDenyList .IsRateLimit}}if !ruleCheck{{.Index}}(c) {
			return c.Status(fiber.StatusPaymentRequired).SendString("Payment required")
		}
		{{end}}{{end}}
		{{if .DefaultsAllow}}return c.Next()
		{{else}}return c.Status(fiber.StatusPaymentRequired).SendString("Payment required")
		{{end}}
	})
}
`
