// Package x402err collects the typed error kinds shared across the
// challenge engine, test runner, and policy compiler. Every kind carries
// a stable short code in the "x402." namespace so front-ends can present
// it however they like without string-matching error messages.
package x402err

import "fmt"

// Code is a stable short identifier for an error kind.
type Code string

const (
	CodeInvalidYaml          Code = "x402.invalid_yaml"
	CodeSchemaError          Code = "x402.schema_error"
	CodeInvalidDomainValue   Code = "x402.invalid_domain_value"
	CodePolicyValidationFail Code = "x402.policy_validation_failed"
	CodeUnsupportedFramework Code = "x402.unsupported_framework"
	CodeTestExecutionFailed  Code = "x402.test_execution_failed"
	CodePortInUse            Code = "x402.port_in_use"
	CodeAlreadyRunning       Code = "x402.already_running"
	CodeNotRunning           Code = "x402.not_running"
	CodeBindFailed           Code = "x402.bind_failed"
	CodeChallengeDecodeError Code = "x402.challenge_decode_error"
	CodeInvalidChallengeField Code = "x402.invalid_challenge_field"
	CodeMissingHeader        Code = "x402.missing_header"
	CodeFieldMismatch        Code = "x402.field_mismatch"
)

// CodedError is implemented by every error kind in this package.
type CodedError interface {
	error
	Code() Code
}

// SchemaError reports a YAML document that failed schema validation at
// the named path (e.g. "tests[2].request.method").
type SchemaError struct {
	Path    string
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error at %s: %s", e.Path, e.Message)
}
func (e *SchemaError) Code() Code { return CodeSchemaError }

// InvalidDomainValue reports a value that failed a validated-primitive
// constructor.
type InvalidDomainValue struct {
	Field string
	Value string
	Cause string
}

func (e *InvalidDomainValue) Error() string {
	return fmt.Sprintf("invalid value for %s: %q (%s)", e.Field, e.Value, e.Cause)
}
func (e *InvalidDomainValue) Code() Code { return CodeInvalidDomainValue }

// UnsupportedFramework reports a codegen target tag outside the closed
// enumeration of supported frameworks.
type UnsupportedFramework struct {
	Tag string
}

func (e *UnsupportedFramework) Error() string {
	return fmt.Sprintf("unsupported framework tag: %q", e.Tag)
}
func (e *UnsupportedFramework) Code() Code { return CodeUnsupportedFramework }

// PolicyValidationFailed reports that the compiler was asked to emit
// code for a policy document whose validation report carries at least
// one error. IssueCount is carried rather than the full report to keep
// this package free of an import cycle on the policy package.
type PolicyValidationFailed struct {
	IssueCount int
}

func (e *PolicyValidationFailed) Error() string {
	return fmt.Sprintf("policy failed validation with %d issue(s)", e.IssueCount)
}
func (e *PolicyValidationFailed) Code() Code { return CodePolicyValidationFail }

// PortInUse reports a bind failure caused by the port already being
// occupied by another process.
type PortInUse struct {
	Port int
}

func (e *PortInUse) Error() string     { return fmt.Sprintf("port %d already in use", e.Port) }
func (e *PortInUse) Code() Code        { return CodePortInUse }

// AlreadyRunning reports that a mock server is already running under a
// live pid, as recorded by the lifecycle state file.
type AlreadyRunning struct {
	Pid  int
	Port int
}

func (e *AlreadyRunning) Error() string {
	return fmt.Sprintf("server already running (pid=%d, port=%d)", e.Pid, e.Port)
}
func (e *AlreadyRunning) Code() Code { return CodeAlreadyRunning }

// NotRunning reports that stop/status found no live server.
type NotRunning struct{}

func (e *NotRunning) Error() string { return "server is not running" }
func (e *NotRunning) Code() Code    { return CodeNotRunning }

// BindFailed wraps a low-level socket bind error.
type BindFailed struct {
	Cause error
}

func (e *BindFailed) Error() string { return fmt.Sprintf("bind failed: %v", e.Cause) }
func (e *BindFailed) Unwrap() error { return e.Cause }
func (e *BindFailed) Code() Code    { return CodeBindFailed }

// ChallengeDecodeError reports a malformed WWW-Authenticate header value.
type ChallengeDecodeError struct {
	Reason string
}

func (e *ChallengeDecodeError) Error() string {
	return fmt.Sprintf("invalid challenge format: %s", e.Reason)
}
func (e *ChallengeDecodeError) Code() Code { return CodeChallengeDecodeError }

// InvalidChallengeField reports a recognized key whose value fails
// domain validation.
type InvalidChallengeField struct {
	Key   string
	Cause error
}

func (e *InvalidChallengeField) Error() string {
	return fmt.Sprintf("invalid challenge field %q: %v", e.Key, e.Cause)
}
func (e *InvalidChallengeField) Unwrap() error { return e.Cause }
func (e *InvalidChallengeField) Code() Code    { return CodeInvalidChallengeField }

// TestExecutionFailed reports that a test could not be executed at all
// (network failure, DNS error, timeout) as opposed to an assertion
// merely failing.
type TestExecutionFailed struct {
	TestName string
	Cause    error
}

func (e *TestExecutionFailed) Error() string {
	return fmt.Sprintf("test %q failed to execute: %v", e.TestName, e.Cause)
}
func (e *TestExecutionFailed) Unwrap() error { return e.Cause }
func (e *TestExecutionFailed) Code() Code    { return CodeTestExecutionFailed }

// MissingHeader reports a compliance check probe response with no
// WWW-Authenticate header at all.
type MissingHeader struct {
	Name string
}

func (e *MissingHeader) Error() string { return fmt.Sprintf("missing header %q", e.Name) }
func (e *MissingHeader) Code() Code    { return CodeMissingHeader }

// FieldMismatch reports that a challenge field did not match the
// expected value during a compliance check or assertion.
type FieldMismatch struct {
	Key      string
	Expected string
	Actual   string
}

func (e *FieldMismatch) Error() string {
	return fmt.Sprintf("field %q mismatch: expected %q, got %q", e.Key, e.Expected, e.Actual)
}
func (e *FieldMismatch) Code() Code { return CodeFieldMismatch }
