package credential

import "context"

// Store persists credential records. Implementations return
// sentinel.ErrNotFound when a record does not exist and
// sentinel.ErrConflict when saving over an existing ID.
type Store interface {
	Save(ctx context.Context, record Record) error
	FindByID(ctx context.Context, credentialID string) (Record, error)
}
