// Package envelope builds the signed, hashed, versioned proof object
// attached to a credential at issuance. Envelopes are always generated from
// the STRICT canonical form; legacy-form generation is a defect by contract.
package envelope

import (
	"time"

	"attesto/internal/canonical"
)

// VerificationContract is the proof contract version carried in every
// envelope and in the metadata endpoint's proof_version field.
const VerificationContract = "1.0"

// Format is the closed set of proof formats this engine understands.
// Adding a format means adding a constant here and handling it everywhere
// the compiler points; open string dispatch is deliberately avoided.
type Format int

const (
	FormatUnknown Format = iota
	FormatMerkleMembership
	FormatJWTVC
)

// ParseFormat maps a wire tag to a Format. ok is false for names the engine
// does not implement; callers produce an "unsupported" envelope rather than
// an error so one exotic format does not fail a whole batch request.
func ParseFormat(tag string) (Format, bool) {
	switch tag {
	case "merkle-membership":
		return FormatMerkleMembership, true
	case "jwt-vc":
		return FormatJWTVC, true
	default:
		return FormatUnknown, false
	}
}

// String returns the wire tag for a format.
func (f Format) String() string {
	switch f {
	case FormatMerkleMembership:
		return "merkle-membership"
	case FormatJWTVC:
		return "jwt-vc"
	default:
		return "unknown"
	}
}

// Status of a generated envelope.
type Status string

const (
	// StatusActive means the envelope is complete and anchorable.
	StatusActive Status = "active"
	// StatusUnsupported means the requested format is not implemented; the
	// envelope is structurally valid but carries no usable proof. Callers
	// must check this field.
	StatusUnsupported Status = "unsupported"
)

// Envelope asserts a credential's integrity and canonicalization rule.
// Multiple envelopes may coexist for one credential (re-anchoring); only the
// latest is authoritative for a given anchor batch.
type Envelope struct {
	CredentialID         string              `json:"credential_id"`
	Canonicalization     canonical.RuleSet   `json:"canonicalization"`
	Algorithm            string              `json:"algorithm"`
	Hash                 string              `json:"hash"`
	Format               Format              `json:"-"`
	FormatName           string              `json:"format"`
	Status               Status              `json:"status"`
	CreatedAt            time.Time           `json:"createdAt"`
	VerificationContract string              `json:"verification_contract"`
}
