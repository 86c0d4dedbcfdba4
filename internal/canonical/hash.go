package canonical

import (
	"crypto/sha256"
	"encoding/hex"
)

// HexDigestLen is the length of a lowercase-hex SHA-256 digest.
const HexDigestLen = 64

// Algorithm is the digest algorithm tag carried in proof envelopes.
const Algorithm = "sha256"

// Hash returns the lowercase-hex SHA-256 digest of the canonical form of
// value under the given rule-set. Rule-set selection is the caller's
// responsibility; no substitution happens here.
func Hash(value any, ruleSet RuleSet) (string, error) {
	canon, err := Canonicalize(value, ruleSet)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(canon))
	return hex.EncodeToString(sum[:]), nil
}

// HashStrict hashes under the STRICT rule-set, the signing source of truth.
func HashStrict(value any) (string, error) {
	return Hash(value, RuleSetStrict)
}

// HashLegacyTopLevel hashes under LEGACY_TOP_LEVEL. Compatibility path for
// credentials anchored before strict canonicalization was adopted.
func HashLegacyTopLevel(value any) (string, error) {
	return Hash(value, RuleSetLegacyTopLevel)
}

// IsHexDigest reports whether s is a well-formed lowercase-hex 256-bit digest.
func IsHexDigest(s string) bool {
	if len(s) != HexDigestLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
