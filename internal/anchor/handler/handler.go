// Package handler exposes operator endpoints for anchor batches: status
// lookup and dead-letter resubmission.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"attesto/internal/anchor"
	"attesto/pkg/platform/httputil"
	"attesto/pkg/requestcontext"
)

// Service defines the anchor operations the handler needs.
type Service interface {
	Batch(ctx context.Context, batchID string) (*anchor.Batch, error)
	Resubmit(ctx context.Context, batchID string) (*anchor.Batch, error)
}

// Handler wires anchor operator endpoints to the anchor service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an anchor operator handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts anchor endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/anchors/{batchID}", h.HandleGetBatch)
	r.Post("/anchors/{batchID}/resubmit", h.HandleResubmit)
}

type batchResponse struct {
	BatchID           string    `json:"batch_id"`
	Status            string    `json:"status"`
	ProofHashes       []string  `json:"proof_hashes"`
	ChainTxHash       string    `json:"chain_tx_hash,omitempty"`
	RetryCount        int       `json:"retry_count"`
	LastError         string    `json:"last_error,omitempty"`
	RetryAfterSeconds int       `json:"retry_after_seconds,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toBatchResponse(b *anchor.Batch, now time.Time) batchResponse {
	return batchResponse{
		BatchID:           b.ID,
		Status:            string(b.Status),
		ProofHashes:       b.ProofHashes,
		ChainTxHash:       b.ChainTxHash,
		RetryCount:        b.RetryCount,
		LastError:         b.LastError,
		RetryAfterSeconds: b.RetryAfterSeconds(now),
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}

// HandleGetBatch handles GET /anchors/{batchID}.
func (h *Handler) HandleGetBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batchID := chi.URLParam(r, "batchID")

	batch, err := h.service.Batch(ctx, batchID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBatchResponse(batch, time.Now().UTC()))
}

// HandleResubmit handles POST /anchors/{batchID}/resubmit. Dead-lettered
// batches are replayable by operators; resubmitting a confirmed batch is a
// no-op.
func (h *Handler) HandleResubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	batchID := chi.URLParam(r, "batchID")

	batch, err := h.service.Resubmit(ctx, batchID)
	if err != nil {
		h.logger.WarnContext(ctx, "anchor resubmission failed",
			"request_id", requestID,
			"batch_id", batchID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "anchor batch resubmitted by operator",
		"request_id", requestID,
		"batch_id", batchID,
	)
	httputil.WriteJSON(w, http.StatusOK, toBatchResponse(batch, time.Now().UTC()))
}
