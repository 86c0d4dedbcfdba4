// Package handler exposes the issuer-side proof endpoints: envelope
// generation with anchor submission, and proof metadata.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"attesto/internal/anchor"
	"attesto/internal/canonical"
	"attesto/internal/envelope"
	"attesto/pkg/platform/httputil"
	"attesto/pkg/requestcontext"
)

// Builder generates proof envelopes.
type Builder interface {
	Generate(ctx context.Context, credentialID, formatTag string) (envelope.Envelope, error)
}

// AnchorSubmitter accepts proof hashes into the anchor pipeline.
type AnchorSubmitter interface {
	Submit(ctx context.Context, hashes []string) (anchor.SubmitResult, error)
}

// Handler wires issuer proof endpoints to the envelope builder and anchor
// service.
type Handler struct {
	builder Builder
	anchors AnchorSubmitter
	logger  *slog.Logger
}

// New constructs an issuer proof handler.
func New(builder Builder, anchors AnchorSubmitter, logger *slog.Logger) *Handler {
	return &Handler{builder: builder, anchors: anchors, logger: logger}
}

// Register mounts issuer proof endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/credentials/{credentialID}/proof", h.HandleGenerateProof)
	r.Get("/credentials/{credentialID}/proof-metadata", h.HandleProofMetadata)
}

// GenerateProofBody selects the proof format; the body is optional and an
// empty format yields an unsupported-format envelope.
type GenerateProofBody struct {
	Format string `json:"format,omitempty"`
}

// proofResponse is the issuer-to-consumer proof contract. CredentialHash is
// null while the anchor is deferred; consumers must treat the absence of a
// definite hash as "not yet anchored", not as an error.
type proofResponse struct {
	HashAlgorithm  string  `json:"hashAlgorithm"`
	CredentialHash *string `json:"credentialHash"`
	Deferred       bool    `json:"deferred"`
	Code           string  `json:"code"`
	Format         string  `json:"format,omitempty"`
	FormatStatus   string  `json:"format_status,omitempty"`
}

// HandleGenerateProof handles POST /credentials/{credentialID}/proof.
func (h *Handler) HandleGenerateProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	credentialID := chi.URLParam(r, "credentialID")

	var body GenerateProofBody
	if r.ContentLength > 0 {
		decoded, ok := httputil.DecodeJSON[GenerateProofBody](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		body = *decoded
	}

	env, err := h.builder.Generate(ctx, credentialID, body.Format)
	if err != nil {
		h.logger.WarnContext(ctx, "proof generation failed",
			"request_id", requestID,
			"credential_id", credentialID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	submit, err := h.anchors.Submit(ctx, []string{env.Hash})
	if err != nil {
		h.logger.ErrorContext(ctx, "anchor submission failed",
			"request_id", requestID,
			"credential_id", credentialID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := proofResponse{
		HashAlgorithm: env.Algorithm,
		Deferred:      submit.Deferred,
		Code:          string(submit.Code),
		Format:        env.FormatName,
	}
	if env.Status == envelope.StatusUnsupported {
		resp.FormatStatus = string(envelope.StatusUnsupported)
	}
	if !submit.Deferred {
		hash := env.Hash
		resp.CredentialHash = &hash
	}

	h.logger.InfoContext(ctx, "proof generated",
		"request_id", requestID,
		"credential_id", credentialID,
		"deferred", submit.Deferred,
		"batch_id", submit.BatchID,
	)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type metadataResponse struct {
	Canonicalization canonical.RuleSet `json:"canonicalization"`
	ProofVersion     string            `json:"proof_version"`
	Hash             string            `json:"hash"`
}

// HandleProofMetadata handles GET /credentials/{credentialID}/proof-metadata.
// The canonicalization field always reflects the rule-set actually used,
// never a silent substitute.
func (h *Handler) HandleProofMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credentialID := chi.URLParam(r, "credentialID")

	env, err := h.builder.Generate(ctx, credentialID, "")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, metadataResponse{
		Canonicalization: env.Canonicalization,
		ProofVersion:     env.VerificationContract,
		Hash:             env.Hash,
	})
}
