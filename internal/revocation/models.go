// Package revocation queries the issuing authority for the current status of
// a credential. The primary path is the issuer's status endpoint; when it
// cannot give a definite answer the client falls back to the issuer's generic
// verify endpoint. Unavailability is always distinguishable from a definite
// "not revoked".
package revocation

import "time"

// Code is a stable machine-readable revocation outcome.
type Code string

const (
	// CodeConfirmed means the issuer gave a definite "not revoked".
	CodeConfirmed Code = "REVOCATION_CONFIRMED"
	// CodeRevoked means the issuer confirmed revocation.
	CodeRevoked Code = "REVOKED_CREDENTIAL"
	// CodeCredentialNotFound means the issuer does not know the credential.
	CodeCredentialNotFound Code = "ISSUER_CREDENTIAL_NOT_FOUND"
	// CodeForbidden means the issuer rejected the caller's authorization.
	CodeForbidden Code = "ISSUER_STATUS_FORBIDDEN"
	// CodeUnavailable means neither issuer endpoint could give a definite
	// answer. Callers must treat this as "cannot confirm", never as
	// "not revoked".
	CodeUnavailable Code = "ISSUER_STATUS_UNAVAILABLE"
)

// Source records which issuer endpoint produced the answer.
type Source string

const (
	SourceStatusEndpoint Source = "status-endpoint"
	SourceVerifyFallback Source = "verify-endpoint-fallback"
)

// Status is the outcome of one revocation check. Queried on demand and never
// cached beyond a single verification transaction.
type Status struct {
	CredentialID string
	Revoked      bool
	RevokedAt    *time.Time
	Code         Code
	Source       Source
}

// Definite reports whether the issuer gave a usable answer at all.
func (s Status) Definite() bool {
	return s.Code != CodeUnavailable
}
