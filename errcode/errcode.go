// Package errcode defines the stable error taxonomy shared across the
// router. Every package that can fail in a way a client or peer observes
// defines its own sentinel errors and registers them here under a stable
// string code, so telemetry and wire error frames never depend on Go error
// message text.
package errcode

import "errors"

// Code is a stable, wire-visible error code string.
type Code string

const (
	CodePromptTooLarge    Code = "prompt_too_large"
	CodeNoModelsAvailable Code = "no_models_available"
	CodeRateLimited       Code = "rate_limited"
	CodeRequestCancelled  Code = "request_cancelled"
	CodeBackpressure      Code = "backpressure"
	CodeBadFrame          Code = "EBADFRAME"
	CodePolicy            Code = "EPOLICY"
	CodeConfig            Code = "ECFG"
	CodeAttestation       Code = "EATTEST"
	CodeSeqRetry          Code = "ESEQ_RETRY"
	CodeInternal          Code = "internal_error"
)

// coded is implemented by sentinel errors that carry a stable Code.
type coded interface {
	Code() Code
}

// Of extracts the stable code from err, walking the unwrap chain, and
// falls back to CodeInternal for anything unrecognized.
func Of(err error) Code {
	if err == nil {
		return ""
	}
	var c coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeInternal
}

// MetricName returns the counter name to increment for a code, per §7:
// "Each emits error_code_<code>_total".
func MetricName(c Code) string {
	return "error_code_" + string(c) + "_total"
}

// Err is a small sentinel error carrying a stable Code and free-form,
// PII-free detail. It is the concrete type returned across package
// boundaries wherever §7 names a surfaced error.
type Err struct {
	code   Code
	detail string
}

func New(code Code, detail string) *Err {
	return &Err{code: code, detail: detail}
}

func (e *Err) Error() string { return string(e.code) + ": " + e.detail }
func (e *Err) Code() Code    { return e.code }
func (e *Err) Detail() string { return e.detail }
