package anchor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"attesto/internal/anchor/ledger"
	"attesto/internal/anchor/metrics"
	"attesto/internal/canonical"
	dErrors "attesto/pkg/domain-errors"
	"attesto/pkg/platform/sentinel"
)

// EventPublisher emits anchor lifecycle events for operators and downstream
// consumers. Implementations must be safe for concurrent use.
type EventPublisher interface {
	BatchConfirmed(ctx context.Context, batch *Batch) error
	BatchDeadLettered(ctx context.Context, batch *Batch) error
}

// Service owns the anchor batch state machine. Submission accepts hashes
// into the pipeline; the background worker flushes due batches to the
// ledger. Mode gates whether flushing happens at all.
type Service struct {
	mode           Mode
	store          BatchStore
	ledger         ledger.Ledger
	events         EventPublisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	maxAttempts    int
	now            func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithEvents sets the event publisher.
func WithEvents(events EventPublisher) ServiceOption {
	return func(s *Service) { s.events = events }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRetryPolicy sets the exponential backoff base/cap and attempt budget.
func WithRetryPolicy(base, max time.Duration, maxAttempts int) ServiceOption {
	return func(s *Service) {
		if base > 0 {
			s.retryBaseDelay = base
		}
		if max > 0 {
			s.retryMaxDelay = max
		}
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs the anchor service. Mode is fixed for the lifetime
// of the service; restart (or construct a new service in tests) to change it.
func NewService(mode Mode, store BatchStore, lg ledger.Ledger, opts ...ServiceOption) *Service {
	s := &Service{
		mode:           mode,
		store:          store,
		ledger:         lg,
		logger:         slog.Default(),
		retryBaseDelay: 30 * time.Second,
		retryMaxDelay:  30 * time.Minute,
		maxAttempts:    6,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode returns the configured anchor mode.
func (s *Service) Mode() Mode {
	return s.mode
}

// Submit accepts proof hashes into the pipeline. In active mode the batch is
// created Pending and flushed by the worker; in deferred and writes-disabled
// modes the batch is created Pending but the response carries deferred=true
// with the mode's distinct code so callers know the anchor is not final.
func (s *Service) Submit(ctx context.Context, hashes []string) (SubmitResult, error) {
	if len(hashes) == 0 {
		return SubmitResult{}, dErrors.New(dErrors.CodeInvalidInput, "at least one proof hash is required")
	}
	for _, h := range hashes {
		if !canonical.IsHexDigest(h) {
			return SubmitResult{}, dErrors.New(dErrors.CodeProofInputInvalid, "proof hash is not a 64-char lowercase hex digest")
		}
	}

	now := s.now().UTC()
	batch := &Batch{
		ID:          uuid.NewString(),
		ProofHashes: hashes,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, batch); err != nil {
		return SubmitResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "create anchor batch")
	}

	result := SubmitResult{
		BatchID:  batch.ID,
		Deferred: s.mode != ModeActive,
		Code:     s.mode.Code(),
	}
	if result.Deferred && s.metrics != nil {
		s.metrics.BatchesDeferred.Inc()
	}

	s.logger.InfoContext(ctx, "anchor batch accepted",
		"batch_id", batch.ID,
		"hashes", len(hashes),
		"mode", string(s.mode),
		"deferred", result.Deferred,
	)
	return result, nil
}

// Batch returns a batch by ID.
func (s *Service) Batch(ctx context.Context, batchID string) (*Batch, error) {
	batch, err := s.store.Get(ctx, batchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "unknown anchor batch")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load anchor batch")
	}
	return batch, nil
}

// Resubmit clears a batch's dead-letter state and re-enqueues it. Clearing
// before the fresh attempt avoids stale-state leakage; resubmitting a
// Confirmed batch is a no-op.
func (s *Service) Resubmit(ctx context.Context, batchID string) (*Batch, error) {
	batch, err := s.Batch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status == StatusConfirmed {
		return batch, nil
	}

	batch.Status = StatusPending
	batch.RetryCount = 0
	batch.NextRetryAt = time.Time{}
	batch.LastError = ""
	batch.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, batch); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "reset anchor batch")
	}

	s.logger.InfoContext(ctx, "anchor batch resubmitted", "batch_id", batch.ID)
	return batch, nil
}

// HashAnchored reports whether a proof hash is anchored, consulting
// confirmed local batches first and the ledger second. Ledger errors are
// ANCHOR_UNAVAILABLE: "cannot confirm", never "not anchored".
func (s *Service) HashAnchored(ctx context.Context, hash string) (bool, error) {
	confirmed, err := s.store.ContainsConfirmedHash(ctx, hash)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "confirmed-hash lookup")
	}
	if confirmed {
		return true, nil
	}
	if s.ledger == nil {
		return false, nil
	}

	exists, err := s.ledger.HashExists(ctx, hash)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, string(CodeUnavailable))
	}
	return exists, nil
}

// ProcessDue flushes due batches to the ledger. Called by the background
// worker, never on a verification request path. No-op unless mode is active.
// Safe to run at-least-once per retry window: re-submitting an
// already-confirmed batch is a no-op.
func (s *Service) ProcessDue(ctx context.Context, limit int) (int, error) {
	if s.mode != ModeActive {
		return 0, nil
	}

	due, err := s.store.Due(ctx, s.now().UTC(), limit)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "list due anchor batches")
	}

	processed := 0
	for _, batch := range due {
		if err := s.flush(ctx, batch); err != nil {
			s.logger.ErrorContext(ctx, "anchor batch flush failed",
				"batch_id", batch.ID,
				"retry_count", batch.RetryCount,
				"error", err,
			)
		}
		processed++
	}
	return processed, nil
}

// flush drives one batch through Submitted and on to Confirmed, Failed, or
// DeadLettered.
func (s *Service) flush(ctx context.Context, batch *Batch) error {
	if batch.Status == StatusConfirmed {
		return nil
	}

	batch.Status = StatusSubmitted
	batch.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, batch); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.BatchesSubmitted.Inc()
	}

	start := s.now()
	txHash, err := s.ledger.SubmitHashes(ctx, batch.ProofHashes)
	if s.metrics != nil {
		s.metrics.SubmitDuration.Observe(s.now().Sub(start).Seconds())
	}
	if err != nil {
		return s.recordFailure(ctx, batch, err)
	}

	batch.Status = StatusConfirmed
	batch.ChainTxHash = txHash
	batch.LastError = ""
	batch.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, batch); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.BatchesConfirmed.Inc()
	}
	if s.events != nil {
		if err := s.events.BatchConfirmed(ctx, batch); err != nil {
			s.logger.WarnContext(ctx, "anchor confirmed event publish failed",
				"batch_id", batch.ID, "error", err)
		}
	}
	return nil
}

func (s *Service) recordFailure(ctx context.Context, batch *Batch, cause error) error {
	now := s.now().UTC()
	batch.RetryCount++
	batch.LastError = cause.Error()
	batch.NextRetryAt = now.Add(s.backoff(batch.RetryCount))
	batch.UpdatedAt = now

	if batch.RetryCount >= s.maxAttempts {
		batch.Status = StatusDeadLettered
		if err := s.store.Update(ctx, batch); err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.BatchesDeadLetter.Inc()
		}
		if s.events != nil {
			if err := s.events.BatchDeadLettered(ctx, batch); err != nil {
				s.logger.WarnContext(ctx, "dead-letter event publish failed",
					"batch_id", batch.ID, "error", err)
			}
		}
		s.logger.ErrorContext(ctx, "anchor batch dead-lettered",
			"batch_id", batch.ID,
			"retry_count", batch.RetryCount,
			"retry_after_seconds", batch.RetryAfterSeconds(now),
			"error", cause,
		)
		return cause
	}

	batch.Status = StatusFailed
	if err := s.store.Update(ctx, batch); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.BatchesFailed.Inc()
	}
	return cause
}

// backoff computes the exponential retry delay for the nth attempt, capped
// at the configured maximum.
func (s *Service) backoff(attempt int) time.Duration {
	delay := s.retryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= s.retryMaxDelay {
			return s.retryMaxDelay
		}
	}
	if delay > s.retryMaxDelay {
		return s.retryMaxDelay
	}
	return delay
}
