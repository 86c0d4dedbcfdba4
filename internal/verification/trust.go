package verification

// TrustedIssuers is the set of issuer identifiers this verifier accepts
// credentials from. An empty set disables the trust check rather than
// failing every verification.
type TrustedIssuers struct {
	set map[string]struct{}
}

// NewTrustedIssuers builds the set from configured issuer DIDs.
func NewTrustedIssuers(dids []string) *TrustedIssuers {
	set := make(map[string]struct{}, len(dids))
	for _, did := range dids {
		if did != "" {
			set[did] = struct{}{}
		}
	}
	return &TrustedIssuers{set: set}
}

// Trusted reports whether the issuer is in the set.
func (t *TrustedIssuers) Trusted(did string) bool {
	_, ok := t.set[did]
	return ok
}

// Empty reports whether any issuers are configured at all.
func (t *TrustedIssuers) Empty() bool {
	return len(t.set) == 0
}
