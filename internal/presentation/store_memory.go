package presentation

import (
	"context"
	"sync"
	"time"

	"attesto/pkg/platform/sentinel"
)

type memoryEntry struct {
	request  Request
	consumed bool
}

// InMemoryStore is a mutex-guarded request store with TTL-based expiry for
// single-process deployments and tests. Expired entries are swept on create.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

// NewInMemoryStore creates an empty in-memory request store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]*memoryEntry)}
}

func (s *InMemoryStore) Create(_ context.Context, req *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[req.ID]; exists {
		return sentinel.ErrConflict
	}
	s.entries[req.ID] = &memoryEntry{request: *req}
	s.sweepLocked(req.CreatedAt)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, requestID string, now time.Time) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if entry.consumed {
		return nil, sentinel.ErrAlreadyUsed
	}
	if entry.request.Expired(now) {
		return nil, sentinel.ErrExpired
	}
	out := entry.request
	return &out, nil
}

func (s *InMemoryStore) Consume(_ context.Context, requestID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[requestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if entry.consumed {
		return sentinel.ErrAlreadyUsed
	}
	if entry.request.Expired(now) {
		return sentinel.ErrExpired
	}
	entry.consumed = true
	return nil
}

// sweepLocked drops expired entries. Consumed entries are kept until expiry
// so duplicate submissions keep failing deterministically.
func (s *InMemoryStore) sweepLocked(now time.Time) {
	for id, entry := range s.entries {
		if entry.request.Expired(now) {
			delete(s.entries, id)
		}
	}
}

var _ Store = (*InMemoryStore)(nil)
