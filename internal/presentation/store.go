package presentation

import (
	"context"
	"time"
)

// Store persists presentation requests. Consume is the only mutation after
// creation and must be atomic per request ID: of two concurrent consumers,
// exactly one succeeds.
//
// Get returns sentinel.ErrNotFound for unknown IDs, sentinel.ErrExpired past
// the TTL, and sentinel.ErrAlreadyUsed for consumed requests. Consume returns
// the same sentinels when the request cannot be consumed.
type Store interface {
	Create(ctx context.Context, req *Request) error
	Get(ctx context.Context, requestID string, now time.Time) (*Request, error)
	Consume(ctx context.Context, requestID string, now time.Time) error
}
