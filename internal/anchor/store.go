package anchor

import (
	"context"
	"time"
)

// BatchStore persists anchor batches. Implementations return
// sentinel.ErrNotFound for unknown batch IDs.
type BatchStore interface {
	Create(ctx context.Context, batch *Batch) error
	Get(ctx context.Context, batchID string) (*Batch, error)
	Update(ctx context.Context, batch *Batch) error
	// Due returns batches eligible for (re)submission: Pending, or Failed
	// with NextRetryAt at or before now. Ordered oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]*Batch, error)
	// ContainsConfirmedHash reports whether any Confirmed batch includes the
	// given proof hash.
	ContainsConfirmedHash(ctx context.Context, hash string) (bool, error)
}
