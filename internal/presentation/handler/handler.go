// Package handler exposes the presentation exchange over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"attesto/internal/presentation"
	dErrors "attesto/pkg/domain-errors"
	"attesto/pkg/platform/httputil"
	"attesto/pkg/platform/middleware/metadata"
	"attesto/pkg/requestcontext"
)

// Service defines the presentation operations the handler needs.
type Service interface {
	CreateRequest(ctx context.Context, purpose, state string) (*presentation.Request, error)
	SubmitResponse(ctx context.Context, resp presentation.Response) (*presentation.Request, error)
}

// Handler wires presentation endpoints to the presentation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a presentation handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts presentation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/presentations/requests", h.HandleCreateRequest)
	r.Post("/presentations/responses", h.HandleSubmitResponse)
}

// CreateRequestBody is the wire shape for minting a presentation request.
type CreateRequestBody struct {
	Purpose string `json:"purpose"`
	State   string `json:"state,omitempty"`
}

// Normalize trims whitespace from user-supplied fields.
func (b *CreateRequestBody) Normalize() {
	b.Purpose = strings.TrimSpace(b.Purpose)
	b.State = strings.TrimSpace(b.State)
}

// Validate rejects requests the service would refuse anyway, before they
// reach it.
func (b *CreateRequestBody) Validate() error {
	if b.Purpose == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "purpose is required")
	}
	return nil
}

type createRequestResponse struct {
	RequestID string    `json:"request_id"`
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleCreateRequest handles POST /presentations/requests.
func (h *Handler) HandleCreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, ok := httputil.DecodeAndPrepare[CreateRequestBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	req, err := h.service.CreateRequest(ctx, body.Purpose, body.State)
	if err != nil {
		h.logger.WarnContext(ctx, "presentation request rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, createRequestResponse{
		RequestID: req.ID,
		Nonce:     req.Nonce,
		ExpiresAt: req.ExpiresAt,
	})
}

// SubmitResponseBody is the wire shape of a wallet's presentation response.
type SubmitResponseBody struct {
	RequestID  string          `json:"request_id"`
	VPToken    string          `json:"vp_token,omitempty"`
	JWT        string          `json:"jwt,omitempty"`
	Credential json.RawMessage `json:"credential,omitempty"`
	State      string          `json:"state,omitempty"`
}

// Validate rejects responses without a request ID.
func (b *SubmitResponseBody) Validate() error {
	if strings.TrimSpace(b.RequestID) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "request_id is required")
	}
	return nil
}

type submitResponseResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// HandleSubmitResponse handles POST /presentations/responses.
func (h *Handler) HandleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, ok := httputil.DecodeAndPrepare[SubmitResponseBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	req, err := h.service.SubmitResponse(ctx, presentation.Response{
		RequestID:  body.RequestID,
		VPToken:    body.VPToken,
		JWT:        body.JWT,
		Credential: body.Credential,
		State:      body.State,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "presentation response rejected",
			"request_id", requestID,
			"presentation_request_id", body.RequestID,
			"device", metadata.DeviceDisplayName(requestcontext.UserAgent(ctx)),
			"client_ip", requestcontext.ClientIP(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "presentation verified",
		"request_id", requestID,
		"presentation_request_id", req.ID,
		"device", metadata.DeviceDisplayName(requestcontext.UserAgent(ctx)),
		"client_ip", requestcontext.ClientIP(ctx),
	)

	httputil.WriteJSON(w, http.StatusOK, submitResponseResponse{
		RequestID: req.ID,
		Status:    "verified",
	})
}
