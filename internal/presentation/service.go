package presentation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "attesto/pkg/domain-errors"
	"attesto/pkg/platform/sentinel"
)

// Response is a wallet's answer to a presentation request. Exactly one of
// VPToken, JWT, or Credential must be present.
type Response struct {
	RequestID  string
	VPToken    string
	JWT        string
	Credential json.RawMessage
	State      string
}

// Service mints presentation requests and verifies wallet responses against
// them.
type Service struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTTL sets the request lifetime.
func WithTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
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

// NewService constructs a presentation service over the given store.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		ttl:    DefaultTTL,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest mints a one-time presentation request. Purpose is shown to
// the wallet user and must be non-empty and bounded.
func (s *Service) CreateRequest(ctx context.Context, purpose, state string) (*Request, error) {
	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "purpose is required")
	}
	if len(purpose) > MaxPurposeLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "purpose exceeds maximum length")
	}

	now := s.now().UTC()
	req := &Request{
		ID:        uuid.NewString(),
		Nonce:     uuid.NewString(),
		State:     state,
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Create(ctx, req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store presentation request")
	}

	s.logger.InfoContext(ctx, "presentation request created",
		"request_id", req.ID,
		"expires_at", req.ExpiresAt,
	)
	return req, nil
}

// SubmitResponse verifies a wallet response against its stored request and
// consumes the request on success. A failed binding check leaves the request
// open for a legitimate retry; only a fully verified response burns it.
//
// Unknown, expired, and already-consumed request IDs are indistinguishable
// to the caller so a duplicate submission cannot probe request state.
func (s *Service) SubmitResponse(ctx context.Context, resp Response) (*Request, error) {
	if resp.RequestID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "request_id is required")
	}
	if err := s.validateExactlyOne(resp); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	req, err := s.store.Get(ctx, resp.RequestID, now)
	if err != nil {
		return nil, s.unknownRequest(err)
	}

	if req.State != "" && resp.State != req.State {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "state does not match the presentation request")
	}

	if token := firstNonEmpty(resp.VPToken, resp.JWT); token != "" {
		nonce, err := tokenNonce(token)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "presentation token is not decodable")
		}
		if nonce != req.Nonce {
			s.logger.WarnContext(ctx, "presentation nonce mismatch", "request_id", req.ID)
			return nil, dErrors.New(dErrors.CodeInvalidInput, "nonce does not match the presentation request")
		}
	}

	if err := s.store.Consume(ctx, resp.RequestID, now); err != nil {
		return nil, s.unknownRequest(err)
	}

	s.logger.InfoContext(ctx, "presentation request consumed", "request_id", req.ID)
	return req, nil
}

func (s *Service) validateExactlyOne(resp Response) error {
	present := 0
	if resp.VPToken != "" {
		present++
	}
	if resp.JWT != "" {
		present++
	}
	if len(resp.Credential) > 0 {
		present++
	}
	if present != 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "exactly one of vp_token, jwt, or credential must be present")
	}
	return nil
}

func (s *Service) unknownRequest(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) ||
		errors.Is(err, sentinel.ErrExpired) ||
		errors.Is(err, sentinel.ErrAlreadyUsed) {
		return dErrors.New(dErrors.CodeBadRequest, "unknown request_id")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "load presentation request")
}

// tokenNonce extracts the nonce claim without verifying the signature.
// Signature verification belongs to the credential verification pipeline;
// here only the binding between response and request is checked.
func tokenNonce(token string) (string, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", jwt.ErrTokenInvalidClaims
	}
	nonce, _ := claims["nonce"].(string)
	return nonce, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
