package anchor

import (
	"context"
	"sort"
	"sync"
	"time"

	"attesto/pkg/platform/sentinel"
)

// InMemoryBatchStore is a mutex-guarded map store for single-process
// deployments and tests.
type InMemoryBatchStore struct {
	mu      sync.RWMutex
	batches map[string]*Batch
}

// NewInMemoryBatchStore creates an empty in-memory batch store.
func NewInMemoryBatchStore() *InMemoryBatchStore {
	return &InMemoryBatchStore{batches: make(map[string]*Batch)}
}

func (s *InMemoryBatchStore) Create(_ context.Context, batch *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.batches[batch.ID]; exists {
		return sentinel.ErrConflict
	}
	s.batches[batch.ID] = cloneBatch(batch)
	return nil
}

func (s *InMemoryBatchStore) Get(_ context.Context, batchID string) (*Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	batch, ok := s.batches[batchID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneBatch(batch), nil
}

func (s *InMemoryBatchStore) Update(_ context.Context, batch *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[batch.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.batches[batch.ID] = cloneBatch(batch)
	return nil
}

func (s *InMemoryBatchStore) Due(_ context.Context, now time.Time, limit int) ([]*Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []*Batch
	for _, b := range s.batches {
		switch b.Status {
		case StatusPending:
			due = append(due, cloneBatch(b))
		case StatusFailed:
			if !b.NextRetryAt.After(now) {
				due = append(due, cloneBatch(b))
			}
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *InMemoryBatchStore) ContainsConfirmedHash(_ context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.batches {
		if b.Status != StatusConfirmed {
			continue
		}
		for _, h := range b.ProofHashes {
			if h == hash {
				return true, nil
			}
		}
	}
	return false, nil
}

// cloneBatch copies a batch so callers never share slices with the store.
func cloneBatch(b *Batch) *Batch {
	out := *b
	out.ProofHashes = append([]string(nil), b.ProofHashes...)
	return &out
}

var _ BatchStore = (*InMemoryBatchStore)(nil)
