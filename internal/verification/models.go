// Package verification orchestrates the verifier-side decision: input
// validation, replay protection, dual-hash comparison, anchor lookup, issuer
// trust, subject binding, and revocation, in that order. Recommendation
// policy (accept/review/reject) is layered on top of the checks elsewhere;
// this engine only reports what it verified.
package verification

import "encoding/json"

// Proof is the caller-supplied proof descriptor.
type Proof struct {
	Algorithm string `json:"algorithm"`
	Hash      string `json:"hash"`
	Format    string `json:"format,omitempty"`
}

// VerifyRequest carries one credential presentation to verify.
type VerifyRequest struct {
	Credential         json.RawMessage `json:"credential"`
	Proof              Proof           `json:"proof"`
	Challenge          string          `json:"challenge,omitempty"`
	Domain             string          `json:"domain,omitempty"`
	ExpectedIssuerDID  string          `json:"expected_issuer_did,omitempty"`
	ExpectedSubjectDID string          `json:"expected_subject_did,omitempty"`
	RevocationWitness  json.RawMessage `json:"revocation_witness,omitempty"`
}

// Status is the overall verification outcome.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

// Check names, in pipeline order.
const (
	CheckInputValidation = "input-validation"
	CheckReplay          = "replay"
	CheckHashComparison  = "hash-comparison"
	CheckAnchor          = "anchor"
	CheckIssuerTrust     = "issuer-trust"
	CheckSubjectBinding  = "subject-binding"
	CheckRevocation      = "revocation"
)

// Compatibility modes recorded when the legacy hash carried the decision.
const (
	CompatibilityStrict = "strict"
	CompatibilityLegacy = "legacy-top-level"
)

// CheckResult is the outcome of one pipeline check. Skipped checks were
// disabled by configuration or not applicable to the request; they never
// fail the overall result.
type CheckResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Skipped bool   `json:"skipped,omitempty"`
	Code    string `json:"code,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Result is the engine's verdict. Status is passed only when every check
// either passed or was skipped. Code carries the first failing check's
// machine code.
type Result struct {
	Status            Status        `json:"status"`
	Checks            []CheckResult `json:"checks"`
	Code              string        `json:"code,omitempty"`
	CompatibilityMode string        `json:"compatibilityMode,omitempty"`
}

// failed marks the result failed and records the first failure code.
func (r *Result) record(check CheckResult) {
	r.Checks = append(r.Checks, check)
	if !check.Passed && !check.Skipped {
		r.Status = StatusFailed
		if r.Code == "" && check.Code != "" {
			r.Code = check.Code
		}
	}
}
