// Package ledger abstracts the external anchor ledger gateway. The ledger is
// an external authority the anchor subsystem only appends to.
package ledger

import "context"

// Ledger submits proof hashes and answers existence lookups.
// Implementations must apply bounded timeouts; callers treat errors as
// "unavailable", never as "not anchored".
type Ledger interface {
	SubmitHashes(ctx context.Context, hashes []string) (txHash string, err error)
	HashExists(ctx context.Context, hash string) (bool, error)
}
