// Package replay rejects repeated proof presentations. A fingerprint over
// the presentation's binding inputs is inserted atomically with a TTL; a
// second presentation of the same tuple inside the window loses the race.
package replay

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"time"

	dErrors "attesto/pkg/domain-errors"
)

// DefaultTTL is the replay window applied when no TTL is configured.
const DefaultTTL = 10 * time.Minute

// Store is an atomic insert-if-absent set with per-key expiry. PutIfAbsent
// returns false when an unexpired key already exists; concurrent callers
// racing on the same key must see exactly one true.
type Store interface {
	PutIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Guard enforces replay protection on bound proofs.
type Guard struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithTTL sets the replay window.
func WithTTL(ttl time.Duration) Option {
	return func(g *Guard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGuard constructs a Guard over the given store.
func NewGuard(store Store, opts ...Option) *Guard {
	g := &Guard{
		store:  store,
		ttl:    DefaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckAndRecord records the presentation fingerprint and rejects replays
// with PROOF_REPLAY_DETECTED. Proofs that carry no challenge or no domain
// are unbound and exempt: older idempotent verification flows never supplied
// them and must keep working.
func (g *Guard) CheckAndRecord(ctx context.Context, format, challenge, domain, proofDigest string) error {
	if challenge == "" || domain == "" {
		return nil
	}

	key := Fingerprint(format, challenge, domain, proofDigest)
	inserted, err := g.store.PutIfAbsent(ctx, key, g.ttl)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "record replay fingerprint")
	}
	if !inserted {
		g.logger.WarnContext(ctx, "replay detected",
			"fingerprint", key,
			"domain", domain,
		)
		return dErrors.New(dErrors.CodeProofReplayDetected, "proof was already presented for this challenge and domain")
	}
	return nil
}

// Fingerprint derives the replay key. Length-prefixed fields keep distinct
// tuples from colliding under concatenation.
func Fingerprint(format, challenge, domain, proofDigest string) string {
	h := sha256.New()
	for _, part := range []string{format, challenge, domain, proofDigest} {
		var lenBuf [8]byte
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(part)))
		h.Write(lenBuf[:])
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}
