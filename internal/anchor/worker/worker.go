// Package worker runs the periodic anchor flush loop. The loop is the only
// path that writes to the ledger; request handlers never submit inline.
package worker

import (
	"context"
	"log/slog"
	"time"

	"attesto/internal/anchor"
	"attesto/internal/anchor/metrics"
)

// Worker polls for due anchor batches on a fixed interval.
type Worker struct {
	service   *anchor.Service
	interval  time.Duration
	batchSize int
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures a Worker.
type Option func(*Worker)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithBatchSize caps how many batches one poll run flushes.
func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New constructs a Worker around the anchor service.
func New(service *anchor.Service, opts ...Option) *Worker {
	w := &Worker{
		service:   service,
		interval:  15 * time.Second,
		batchSize: 50,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until the context is cancelled. It returns ctx.Err() on
// shutdown so callers in an errgroup see a clean stop.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "anchor worker started",
		"interval", w.interval.String(),
		"batch_size", w.batchSize,
		"mode", string(w.service.Mode()),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "anchor worker stopped")
			return ctx.Err()
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	start := time.Now()
	processed, err := w.service.ProcessDue(ctx, w.batchSize)
	if w.metrics != nil {
		w.metrics.PollDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		w.logger.ErrorContext(ctx, "anchor poll failed", "error", err)
		return
	}
	if processed > 0 {
		w.logger.InfoContext(ctx, "anchor poll flushed batches", "processed", processed)
	}
}
