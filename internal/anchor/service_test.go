package anchor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attesto/internal/canonical"
	dErrors "attesto/pkg/domain-errors"
)

type stubLedger struct {
	txHash    string
	submitErr error
	exists    bool
	existsErr error
	submitted [][]string
	lookedUp  []string
}

func (l *stubLedger) SubmitHashes(_ context.Context, hashes []string) (string, error) {
	l.submitted = append(l.submitted, hashes)
	if l.submitErr != nil {
		return "", l.submitErr
	}
	return l.txHash, nil
}

func (l *stubLedger) HashExists(_ context.Context, hash string) (bool, error) {
	l.lookedUp = append(l.lookedUp, hash)
	return l.exists, l.existsErr
}

type recordingPublisher struct {
	confirmed    []string
	deadLettered []string
}

func (p *recordingPublisher) BatchConfirmed(_ context.Context, b *Batch) error {
	p.confirmed = append(p.confirmed, b.ID)
	return nil
}

func (p *recordingPublisher) BatchDeadLettered(_ context.Context, b *Batch) error {
	p.deadLettered = append(p.deadLettered, b.ID)
	return nil
}

func validHash(seed string) string {
	return strings.Repeat(seed, canonical.HexDigestLen)[:canonical.HexDigestLen]
}

type ServiceSuite struct {
	suite.Suite
	ctx context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *ServiceSuite) TestSubmitValidation() {
	svc := NewService(ModeActive, NewInMemoryBatchStore(), &stubLedger{})

	s.Run("rejects empty hash list", func() {
		_, err := svc.Submit(s.ctx, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects non-hex hash", func() {
		_, err := svc.Submit(s.ctx, []string{"deadbeef"})
		s.True(dErrors.HasCode(err, dErrors.CodeProofInputInvalid))
	})

	s.Run("rejects uppercase hex", func() {
		_, err := svc.Submit(s.ctx, []string{strings.ToUpper(validHash("a"))})
		s.True(dErrors.HasCode(err, dErrors.CodeProofInputInvalid))
	})
}

func (s *ServiceSuite) TestSubmitModes() {
	s.Run("active mode is not deferred", func() {
		svc := NewService(ModeActive, NewInMemoryBatchStore(), &stubLedger{txHash: "0x1"})
		res, err := svc.Submit(s.ctx, []string{validHash("a")})
		s.Require().NoError(err)
		s.False(res.Deferred)
		s.Equal(CodeActive, res.Code)
		s.NotEmpty(res.BatchID)
	})

	s.Run("deferred mode accepts but defers", func() {
		store := NewInMemoryBatchStore()
		svc := NewService(ModeDeferred, store, &stubLedger{})
		res, err := svc.Submit(s.ctx, []string{validHash("b")})
		s.Require().NoError(err)
		s.True(res.Deferred)
		s.Equal(CodeDeferredMode, res.Code)

		batch, err := store.Get(s.ctx, res.BatchID)
		s.Require().NoError(err)
		s.Equal(StatusPending, batch.Status)
	})

	s.Run("writes-disabled mode uses its own code", func() {
		svc := NewService(ModeWritesDisabled, NewInMemoryBatchStore(), &stubLedger{})
		res, err := svc.Submit(s.ctx, []string{validHash("c")})
		s.Require().NoError(err)
		s.True(res.Deferred)
		s.Equal(CodeWritesDisabled, res.Code)
	})
}

func (s *ServiceSuite) TestProcessDueConfirmsBatch() {
	store := NewInMemoryBatchStore()
	lg := &stubLedger{txHash: "0xfeed"}
	pub := &recordingPublisher{}
	svc := NewService(ModeActive, store, lg, WithEvents(pub))

	res, err := svc.Submit(s.ctx, []string{validHash("a"), validHash("b")})
	s.Require().NoError(err)

	processed, err := svc.ProcessDue(s.ctx, 10)
	s.Require().NoError(err)
	s.Equal(1, processed)

	batch, err := store.Get(s.ctx, res.BatchID)
	s.Require().NoError(err)
	s.Equal(StatusConfirmed, batch.Status)
	s.Equal("0xfeed", batch.ChainTxHash)
	s.Equal([]string{res.BatchID}, pub.confirmed)
	s.Len(lg.submitted, 1)
}

func (s *ServiceSuite) TestNonActiveModesNeverTouchLedger() {
	for _, mode := range []Mode{ModeDeferred, ModeWritesDisabled} {
		s.Run(string(mode), func() {
			store := NewInMemoryBatchStore()
			lg := &stubLedger{txHash: "0x1"}
			svc := NewService(mode, store, lg)

			res, err := svc.Submit(s.ctx, []string{validHash("d")})
			s.Require().NoError(err)

			processed, err := svc.ProcessDue(s.ctx, 10)
			s.Require().NoError(err)
			s.Zero(processed)
			s.Empty(lg.submitted)

			batch, err := store.Get(s.ctx, res.BatchID)
			s.Require().NoError(err)
			s.Equal(StatusPending, batch.Status)
		})
	}
}

func (s *ServiceSuite) TestRetryBackoffAndDeadLetter() {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	store := NewInMemoryBatchStore()
	lg := &stubLedger{submitErr: errors.New("gateway down")}
	pub := &recordingPublisher{}
	svc := NewService(ModeActive, store, lg,
		WithEvents(pub),
		WithRetryPolicy(30*time.Second, 10*time.Minute, 3),
		WithClock(clock),
	)

	res, err := svc.Submit(s.ctx, []string{validHash("e")})
	s.Require().NoError(err)

	s.Run("first failure schedules base delay", func() {
		_, err := svc.ProcessDue(s.ctx, 10)
		s.Require().NoError(err)

		batch, err := store.Get(s.ctx, res.BatchID)
		s.Require().NoError(err)
		s.Equal(StatusFailed, batch.Status)
		s.Equal(1, batch.RetryCount)
		s.Equal(now.Add(30*time.Second), batch.NextRetryAt)
		s.Contains(batch.LastError, "gateway down")
	})

	s.Run("not due again until the backoff elapses", func() {
		processed, err := svc.ProcessDue(s.ctx, 10)
		s.Require().NoError(err)
		s.Zero(processed)
	})

	s.Run("second failure doubles the delay", func() {
		now = now.Add(time.Minute)
		_, err := svc.ProcessDue(s.ctx, 10)
		s.Require().NoError(err)

		batch, err := store.Get(s.ctx, res.BatchID)
		s.Require().NoError(err)
		s.Equal(StatusFailed, batch.Status)
		s.Equal(2, batch.RetryCount)
		s.Equal(now.Add(time.Minute), batch.NextRetryAt)
	})

	s.Run("final failure dead-letters and publishes", func() {
		now = now.Add(2 * time.Minute)
		_, err := svc.ProcessDue(s.ctx, 10)
		s.Require().NoError(err)

		batch, err := store.Get(s.ctx, res.BatchID)
		s.Require().NoError(err)
		s.Equal(StatusDeadLettered, batch.Status)
		s.Equal(3, batch.RetryCount)
		s.Equal([]string{res.BatchID}, pub.deadLettered)
	})

	s.Run("dead-lettered batches are not retried", func() {
		now = now.Add(time.Hour)
		processed, err := svc.ProcessDue(s.ctx, 10)
		s.Require().NoError(err)
		s.Zero(processed)
	})
}

func (s *ServiceSuite) TestBackoffCap() {
	svc := NewService(ModeActive, NewInMemoryBatchStore(), &stubLedger{},
		WithRetryPolicy(30*time.Second, 5*time.Minute, 10))

	s.Equal(30*time.Second, svc.backoff(1))
	s.Equal(time.Minute, svc.backoff(2))
	s.Equal(4*time.Minute, svc.backoff(4))
	s.Equal(5*time.Minute, svc.backoff(5))
	s.Equal(5*time.Minute, svc.backoff(20))
}

func (s *ServiceSuite) TestResubmit() {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	store := NewInMemoryBatchStore()
	lg := &stubLedger{submitErr: errors.New("gateway down")}
	svc := NewService(ModeActive, store, lg,
		WithRetryPolicy(time.Second, time.Minute, 1),
		WithClock(clock),
	)

	res, err := svc.Submit(s.ctx, []string{validHash("f")})
	s.Require().NoError(err)
	_, err = svc.ProcessDue(s.ctx, 10)
	s.Require().NoError(err)

	batch, err := store.Get(s.ctx, res.BatchID)
	s.Require().NoError(err)
	s.Require().Equal(StatusDeadLettered, batch.Status)

	s.Run("clears dead-letter state before re-enqueueing", func() {
		batch, err := svc.Resubmit(s.ctx, res.BatchID)
		s.Require().NoError(err)
		s.Equal(StatusPending, batch.Status)
		s.Zero(batch.RetryCount)
		s.True(batch.NextRetryAt.IsZero())
		s.Empty(batch.LastError)
	})

	s.Run("fresh attempt succeeds once the ledger recovers", func() {
		lg.submitErr = nil
		lg.txHash = "0xretry"

		_, err := svc.ProcessDue(s.ctx, 10)
		s.Require().NoError(err)

		batch, err := store.Get(s.ctx, res.BatchID)
		s.Require().NoError(err)
		s.Equal(StatusConfirmed, batch.Status)
		s.Equal("0xretry", batch.ChainTxHash)
	})

	s.Run("resubmitting a confirmed batch is a no-op", func() {
		batch, err := svc.Resubmit(s.ctx, res.BatchID)
		s.Require().NoError(err)
		s.Equal(StatusConfirmed, batch.Status)
		s.Equal("0xretry", batch.ChainTxHash)
	})

	s.Run("unknown batch is not found", func() {
		_, err := svc.Resubmit(s.ctx, "no-such-batch")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestHashAnchored() {
	s.Run("confirmed local batch short-circuits the ledger", func() {
		store := NewInMemoryBatchStore()
		lg := &stubLedger{txHash: "0x1"}
		svc := NewService(ModeActive, store, lg)

		hash := validHash("a")
		_, err := svc.Submit(s.ctx, []string{hash})
		s.Require().NoError(err)
		_, err = svc.ProcessDue(s.ctx, 10)
		s.Require().NoError(err)

		anchored, err := svc.HashAnchored(s.ctx, hash)
		s.Require().NoError(err)
		s.True(anchored)
		s.Empty(lg.lookedUp)
	})

	s.Run("falls back to the ledger for unknown hashes", func() {
		lg := &stubLedger{exists: true}
		svc := NewService(ModeActive, NewInMemoryBatchStore(), lg)

		anchored, err := svc.HashAnchored(s.ctx, validHash("b"))
		s.Require().NoError(err)
		s.True(anchored)
		s.Len(lg.lookedUp, 1)
	})

	s.Run("ledger errors surface as unavailable, not unanchored", func() {
		lg := &stubLedger{existsErr: errors.New("timeout")}
		svc := NewService(ModeActive, NewInMemoryBatchStore(), lg)

		_, err := svc.HashAnchored(s.ctx, validHash("c"))
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}
