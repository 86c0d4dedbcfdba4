package replay

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is a mutex-guarded fingerprint set for single-process
// deployments and tests. Expired entries are reaped lazily on access and
// swept opportunistically on insert.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// InMemoryOption configures an InMemoryStore.
type InMemoryOption func(*InMemoryStore)

// WithInMemoryClock overrides the time source for tests.
func WithInMemoryClock(now func() time.Time) InMemoryOption {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewInMemoryStore creates an empty in-memory fingerprint store.
func NewInMemoryStore(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutIfAbsent inserts the key unless an unexpired entry already holds it.
func (s *InMemoryStore) PutIfAbsent(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiresAt, ok := s.entries[key]; ok && expiresAt.After(now) {
		return false, nil
	}
	s.entries[key] = now.Add(ttl)
	s.sweepLocked(now)
	return true, nil
}

// sweepLocked drops expired entries. Called with the lock held.
func (s *InMemoryStore) sweepLocked(now time.Time) {
	for key, expiresAt := range s.entries {
		if !expiresAt.After(now) {
			delete(s.entries, key)
		}
	}
}

var _ Store = (*InMemoryStore)(nil)
