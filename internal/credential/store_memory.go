package credential

import (
	"context"
	"sync"

	"attesto/pkg/platform/sentinel"
)

// InMemoryStore is a mutex-guarded map store for single-process deployments
// and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewInMemoryStore creates an empty in-memory credential store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

// Save stores a record. Credentials are immutable: saving over an existing
// ID returns sentinel.ErrConflict.
func (s *InMemoryStore) Save(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return sentinel.ErrConflict
	}
	s.records[record.ID] = record
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, credentialID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[credentialID]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	return record, nil
}
