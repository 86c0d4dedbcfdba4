//go:build integration

package anchor_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"attesto/internal/anchor"
	"attesto/pkg/platform/sentinel"
	"attesto/pkg/testutil/containers"
)

type PostgresBatchStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *anchor.PostgresBatchStore
}

func TestPostgresBatchStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresBatchStoreSuite))
}

func (s *PostgresBatchStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = anchor.NewPostgres(s.postgres.DB)
}

func (s *PostgresBatchStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "anchor_batches")
	s.Require().NoError(err)
}

func newBatch(status anchor.BatchStatus, createdAt time.Time) *anchor.Batch {
	return &anchor.Batch{
		ID:          uuid.NewString(),
		ProofHashes: []string{strings.Repeat("a", 64), strings.Repeat("b", 64)},
		Status:      status,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func (s *PostgresBatchStoreSuite) TestCreateAndGetRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	batch := newBatch(anchor.StatusPending, now)
	s.Require().NoError(s.store.Create(ctx, batch))

	got, err := s.store.Get(ctx, batch.ID)
	s.Require().NoError(err)
	s.Equal(batch.ID, got.ID)
	s.Equal(batch.ProofHashes, got.ProofHashes)
	s.Equal(anchor.StatusPending, got.Status)
	s.Zero(got.RetryCount)
	s.True(got.NextRetryAt.IsZero(), "unset next_retry_at should round-trip as zero")
	s.WithinDuration(now, got.CreatedAt, time.Second)
}

func (s *PostgresBatchStoreSuite) TestDuplicateIDConflicts() {
	ctx := context.Background()
	batch := newBatch(anchor.StatusPending, time.Now().UTC())

	s.Require().NoError(s.store.Create(ctx, batch))
	err := s.store.Create(ctx, batch)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresBatchStoreSuite) TestGetUnknownBatch() {
	_, err := s.store.Get(context.Background(), uuid.NewString())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresBatchStoreSuite) TestUpdatePersistsRetryState() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	batch := newBatch(anchor.StatusPending, now)
	s.Require().NoError(s.store.Create(ctx, batch))

	batch.Status = anchor.StatusFailed
	batch.RetryCount = 3
	batch.NextRetryAt = now.Add(2 * time.Minute)
	batch.LastError = "ledger timeout"
	batch.UpdatedAt = now.Add(time.Second)
	s.Require().NoError(s.store.Update(ctx, batch))

	got, err := s.store.Get(ctx, batch.ID)
	s.Require().NoError(err)
	s.Equal(anchor.StatusFailed, got.Status)
	s.Equal(3, got.RetryCount)
	s.Equal("ledger timeout", got.LastError)
	s.WithinDuration(batch.NextRetryAt, got.NextRetryAt, time.Second)
}

func (s *PostgresBatchStoreSuite) TestUpdateUnknownBatch() {
	batch := newBatch(anchor.StatusFailed, time.Now().UTC())
	err := s.store.Update(context.Background(), batch)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresBatchStoreSuite) TestDueSelectionAndOrdering() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	pendingOld := newBatch(anchor.StatusPending, now.Add(-3*time.Hour))
	pendingNew := newBatch(anchor.StatusPending, now.Add(-time.Hour))

	failedDue := newBatch(anchor.StatusFailed, now.Add(-2*time.Hour))
	failedDue.RetryCount = 1
	failedDue.NextRetryAt = now.Add(-time.Minute)

	failedLater := newBatch(anchor.StatusFailed, now.Add(-2*time.Hour))
	failedLater.RetryCount = 1
	failedLater.NextRetryAt = now.Add(time.Hour)

	confirmed := newBatch(anchor.StatusConfirmed, now.Add(-4*time.Hour))
	deadLettered := newBatch(anchor.StatusDeadLettered, now.Add(-4*time.Hour))

	for _, b := range []*anchor.Batch{pendingOld, pendingNew, failedDue, failedLater, confirmed, deadLettered} {
		s.Require().NoError(s.store.Create(ctx, b))
	}

	due, err := s.store.Due(ctx, now, 10)
	s.Require().NoError(err)
	s.Require().Len(due, 3)

	// Oldest first: pendingOld, failedDue, pendingNew.
	s.Equal(pendingOld.ID, due[0].ID)
	s.Equal(failedDue.ID, due[1].ID)
	s.Equal(pendingNew.ID, due[2].ID)
}

func (s *PostgresBatchStoreSuite) TestDueHonorsLimit() {
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		b := newBatch(anchor.StatusPending, now.Add(time.Duration(i)*time.Second))
		s.Require().NoError(s.store.Create(ctx, b))
	}

	due, err := s.store.Due(ctx, now.Add(time.Minute), 2)
	s.Require().NoError(err)
	s.Len(due, 2)
}

func (s *PostgresBatchStoreSuite) TestContainsConfirmedHash() {
	ctx := context.Background()
	now := time.Now().UTC()
	hash := strings.Repeat("c", 64)

	pending := newBatch(anchor.StatusPending, now)
	pending.ProofHashes = []string{hash}
	s.Require().NoError(s.store.Create(ctx, pending))

	found, err := s.store.ContainsConfirmedHash(ctx, hash)
	s.Require().NoError(err)
	s.False(found, "pending batches do not anchor hashes")

	pending.Status = anchor.StatusConfirmed
	pending.ChainTxHash = "0xabc"
	pending.UpdatedAt = now
	s.Require().NoError(s.store.Update(ctx, pending))

	found, err = s.store.ContainsConfirmedHash(ctx, hash)
	s.Require().NoError(err)
	s.True(found)

	found, err = s.store.ContainsConfirmedHash(ctx, strings.Repeat("d", 64))
	s.Require().NoError(err)
	s.False(found)
}
