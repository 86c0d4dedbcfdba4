package verification

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks AnchorChecker,RevocationChecker,ReplayGuard

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"attesto/internal/canonical"
	"attesto/internal/revocation"
	"attesto/internal/verification/metrics"
	"attesto/internal/verification/tracer"
	dErrors "attesto/pkg/domain-errors"
)

// didPattern matches DID syntax: method name, then a method-specific ID.
var didPattern = regexp.MustCompile(`^did:[a-z0-9]+:[A-Za-z0-9._%:-]+$`)

// AnchorChecker answers whether a proof hash is anchored on the ledger.
type AnchorChecker interface {
	HashAnchored(ctx context.Context, hash string) (bool, error)
}

// RevocationChecker resolves a credential's revocation status.
type RevocationChecker interface {
	CheckRevocation(ctx context.Context, credentialID string) (revocation.Status, error)
}

// ReplayGuard records presentation fingerprints and rejects replays.
type ReplayGuard interface {
	CheckAndRecord(ctx context.Context, format, challenge, domain, proofDigest string) error
}

// Service runs the verification pipeline. Checkers left nil are reported as
// skipped-by-configuration rather than failing every request.
type Service struct {
	trusted      *TrustedIssuers
	anchors      AnchorChecker
	oracle       RevocationChecker
	replay       ReplayGuard
	tracer       tracer.Tracer
	metrics      *metrics.Metrics
	logger       *slog.Logger
	checkTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithAnchorChecker enables the anchor check.
func WithAnchorChecker(a AnchorChecker) Option {
	return func(s *Service) { s.anchors = a }
}

// WithRevocationChecker enables the revocation check.
func WithRevocationChecker(r RevocationChecker) Option {
	return func(s *Service) { s.oracle = r }
}

// WithReplayGuard enables replay protection for bound proofs.
func WithReplayGuard(g ReplayGuard) Option {
	return func(s *Service) { s.replay = g }
}

// WithTracer sets the tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCheckTimeout bounds the parallel anchor and revocation lookups.
func WithCheckTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.checkTimeout = d
		}
	}
}

// NewService constructs the verification engine.
func NewService(trusted *TrustedIssuers, opts ...Option) *Service {
	s := &Service{
		trusted:      trusted,
		tracer:       tracer.NewNoop(),
		logger:       slog.Default(),
		checkTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// credentialFields are the identity fields the pipeline reads out of the
// otherwise opaque credential payload.
type credentialFields struct {
	ID      string `json:"id"`
	Issuer  string `json:"issuer"`
	Subject string `json:"subject"`
}

// Verify runs the pipeline. Input errors and replays are returned as errors
// so the transport layer can answer 400/409; every other outcome, including
// a failed verification, is a Result with status failed.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerify,
		tracer.String(tracer.AttrHashPrefix, tracer.HashPrefix(req.Proof.Hash)),
	)

	result, err := s.verify(ctx, req)
	span.End(err)

	if s.metrics != nil {
		s.metrics.Duration.Observe(time.Since(start).Seconds())
		switch {
		case err != nil:
			s.metrics.Verifications.WithLabelValues("rejected").Inc()
		case result.Status == StatusPassed:
			s.metrics.Verifications.WithLabelValues("passed").Inc()
		default:
			s.metrics.Verifications.WithLabelValues("failed").Inc()
		}
		if result != nil {
			for _, check := range result.Checks {
				if !check.Passed && !check.Skipped {
					s.metrics.CheckFailures.WithLabelValues(check.Name).Inc()
				}
			}
		}
	}
	return result, err
}

func (s *Service) verify(ctx context.Context, req VerifyRequest) (*Result, error) {
	result := &Result{Status: StatusPassed}

	// Step 1: input validation. Synchronous rejection, never retried.
	cred, err := s.validateInput(req)
	if err != nil {
		return nil, err
	}
	result.record(CheckResult{Name: CheckInputValidation, Passed: true})

	// Step 2: replay guard. Unbound proofs (no challenge or domain) are
	// exempt and reported as skipped.
	if err := s.checkReplay(ctx, req, result); err != nil {
		return nil, err
	}

	// Step 3: dual-path hash comparison. Terminal on mismatch; retrying
	// with identical input reproduces the same failure.
	strictHash, legacyHash, err := s.computeHashes(ctx, req.Credential)
	if err != nil {
		return nil, err
	}
	if !s.checkHash(req.Proof.Hash, strictHash, legacyHash, result) {
		return result, nil
	}

	// Steps 4 and 7: anchor and revocation touch the network; run them in
	// parallel under one bounded timeout.
	s.checkExternal(ctx, cred, strictHash, legacyHash, result)

	// Steps 5 and 6: pure lookups against request data.
	s.checkIssuerTrust(cred, req.ExpectedIssuerDID, result)
	s.checkSubjectBinding(cred, req.ExpectedSubjectDID, result)

	return result, nil
}

func (s *Service) validateInput(req VerifyRequest) (credentialFields, error) {
	var cred credentialFields

	trimmed := bytes.TrimLeft(req.Credential, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return cred, dErrors.New(dErrors.CodeProofInputInvalid, "credential must be a JSON object")
	}
	if err := json.Unmarshal(req.Credential, &cred); err != nil {
		return cred, dErrors.New(dErrors.CodeProofInputInvalid, "credential is not valid JSON")
	}

	if req.Proof.Algorithm != canonical.Algorithm {
		return cred, dErrors.New(dErrors.CodeProofInputInvalid, "unsupported proof algorithm")
	}
	if !canonical.IsHexDigest(req.Proof.Hash) {
		return cred, dErrors.New(dErrors.CodeProofInputInvalid, "proof hash is not a 64-char lowercase hex digest")
	}

	for _, did := range []string{req.ExpectedIssuerDID, req.ExpectedSubjectDID} {
		if did != "" && !didPattern.MatchString(did) {
			return cred, dErrors.New(dErrors.CodeProofInputInvalid, "malformed DID")
		}
	}
	for _, did := range []string{cred.Issuer, cred.Subject} {
		if strings.HasPrefix(did, "did:") && !didPattern.MatchString(did) {
			return cred, dErrors.New(dErrors.CodeProofInputInvalid, "credential carries a malformed DID")
		}
	}
	return cred, nil
}

func (s *Service) checkReplay(ctx context.Context, req VerifyRequest, result *Result) error {
	if req.Challenge == "" || req.Domain == "" {
		result.record(CheckResult{
			Name:    CheckReplay,
			Skipped: true,
			Detail:  "proof is not bound to a challenge and domain",
		})
		return nil
	}
	if s.replay == nil {
		result.record(CheckResult{Name: CheckReplay, Skipped: true, Detail: "replay guard not configured"})
		return nil
	}
	if err := s.replay.CheckAndRecord(ctx, req.Proof.Format, req.Challenge, req.Domain, req.Proof.Hash); err != nil {
		return err
	}
	result.record(CheckResult{Name: CheckReplay, Passed: true})
	return nil
}

func (s *Service) computeHashes(ctx context.Context, credential json.RawMessage) (string, string, error) {
	_, span := s.tracer.Start(ctx, tracer.SpanHash)
	defer span.End(nil)

	strictHash, err := canonical.HashStrict(credential)
	if err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeProofInputInvalid, "credential cannot be canonicalized")
	}
	legacyHash, err := canonical.HashLegacyTopLevel(credential)
	if err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeProofInputInvalid, "credential cannot be canonicalized")
	}
	return strictHash, legacyHash, nil
}

// checkHash accepts the supplied hash against either rule-set. The dual-path
// acceptance keeps credentials anchored before strict canonicalization
// verifiable; which path matched is recorded for audit.
func (s *Service) checkHash(supplied, strictHash, legacyHash string, result *Result) bool {
	switch supplied {
	case strictHash:
		result.CompatibilityMode = CompatibilityStrict
		result.record(CheckResult{Name: CheckHashComparison, Passed: true})
		return true
	case legacyHash:
		result.CompatibilityMode = CompatibilityLegacy
		result.record(CheckResult{
			Name:   CheckHashComparison,
			Passed: true,
			Detail: "matched under the legacy top-level rule-set",
		})
		return true
	default:
		result.record(CheckResult{
			Name:   CheckHashComparison,
			Passed: false,
			Code:   string(dErrors.CodeProofHashMismatch),
			Detail: "supplied hash matches neither canonical form",
		})
		return false
	}
}

// checkExternal runs the anchor and revocation lookups concurrently. Each
// records its own check result; a failure in one never cancels the other,
// the caller needs both answers for the checks list either way.
func (s *Service) checkExternal(ctx context.Context, cred credentialFields, strictHash, legacyHash string, result *Result) {
	ctx, cancel := context.WithTimeout(ctx, s.checkTimeout)
	defer cancel()

	var (
		anchorCheck     CheckResult
		revocationCheck CheckResult
		anchorMode      string
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		anchorCheck, anchorMode = s.checkAnchor(ctx, strictHash, legacyHash)
		if s.metrics != nil {
			s.metrics.ObserveCheckLatency(CheckAnchor, time.Since(start))
		}
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		revocationCheck = s.checkRevocation(ctx, cred)
		if s.metrics != nil {
			s.metrics.ObserveCheckLatency(CheckRevocation, time.Since(start))
		}
		return nil
	})
	_ = g.Wait()

	if anchorMode == CompatibilityLegacy {
		result.CompatibilityMode = CompatibilityLegacy
	}
	result.record(anchorCheck)
	result.record(revocationCheck)
}

func (s *Service) checkAnchor(ctx context.Context, strictHash, legacyHash string) (CheckResult, string) {
	if s.anchors == nil {
		return CheckResult{Name: CheckAnchor, Skipped: true, Detail: "anchor lookup not configured"}, ""
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanAnchor,
		tracer.String(tracer.AttrHashPrefix, tracer.HashPrefix(strictHash)))

	anchored, err := s.anchors.HashAnchored(ctx, strictHash)
	if err == nil && anchored {
		span.End(nil)
		return CheckResult{Name: CheckAnchor, Passed: true}, CompatibilityStrict
	}
	if err == nil {
		anchored, err = s.anchors.HashAnchored(ctx, legacyHash)
		if err == nil && anchored {
			span.SetAttributes(tracer.String(tracer.AttrCompatibilityMode, CompatibilityLegacy))
			span.End(nil)
			return CheckResult{
				Name:   CheckAnchor,
				Passed: true,
				Detail: "anchored under the legacy top-level hash",
			}, CompatibilityLegacy
		}
	}
	span.End(err)

	if err != nil {
		return CheckResult{
			Name:   CheckAnchor,
			Passed: false,
			Code:   string(dErrors.CodeUnavailable),
			Detail: "anchor ledger could not be consulted",
		}, ""
	}
	return CheckResult{
		Name:   CheckAnchor,
		Passed: false,
		Detail: "neither canonical hash is anchored",
	}, ""
}

func (s *Service) checkRevocation(ctx context.Context, cred credentialFields) CheckResult {
	if s.oracle == nil {
		return CheckResult{Name: CheckRevocation, Skipped: true, Detail: "revocation oracle not configured"}
	}
	if cred.ID == "" {
		return CheckResult{Name: CheckRevocation, Skipped: true, Detail: "credential carries no id to query"}
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanRevocation)
	status, err := s.oracle.CheckRevocation(ctx, cred.ID)
	span.End(err)
	if err != nil {
		return CheckResult{
			Name:   CheckRevocation,
			Passed: false,
			Code:   string(revocation.CodeUnavailable),
			Detail: "revocation status could not be resolved",
		}
	}

	check := CheckResult{Name: CheckRevocation, Code: string(status.Code)}
	switch status.Code {
	case revocation.CodeConfirmed:
		check.Passed = true
	case revocation.CodeRevoked:
		check.Detail = "issuer confirmed revocation"
	case revocation.CodeUnavailable:
		check.Detail = "issuer endpoints unreachable; cannot confirm status"
	case revocation.CodeCredentialNotFound:
		check.Detail = "issuer does not know this credential"
	case revocation.CodeForbidden:
		check.Detail = "issuer rejected the status query"
	}
	return check
}

func (s *Service) checkIssuerTrust(cred credentialFields, expectedIssuerDID string, result *Result) {
	if expectedIssuerDID != "" && cred.Issuer != expectedIssuerDID {
		result.record(CheckResult{
			Name:   CheckIssuerTrust,
			Passed: false,
			Code:   string(dErrors.CodeIssuerDIDMismatch),
			Detail: "credential issuer does not match the expected issuer",
		})
		return
	}
	if s.trusted == nil || s.trusted.Empty() {
		result.record(CheckResult{Name: CheckIssuerTrust, Skipped: true, Detail: "no trusted issuers configured"})
		return
	}
	if !s.trusted.Trusted(cred.Issuer) {
		result.record(CheckResult{
			Name:   CheckIssuerTrust,
			Passed: false,
			Code:   string(dErrors.CodeIssuerDIDMismatch),
			Detail: "credential issuer is not in the trusted set",
		})
		return
	}
	result.record(CheckResult{Name: CheckIssuerTrust, Passed: true})
}

func (s *Service) checkSubjectBinding(cred credentialFields, expectedSubjectDID string, result *Result) {
	if expectedSubjectDID == "" {
		result.record(CheckResult{Name: CheckSubjectBinding, Skipped: true, Detail: "no expected subject supplied"})
		return
	}
	if cred.Subject != expectedSubjectDID {
		result.record(CheckResult{
			Name:   CheckSubjectBinding,
			Passed: false,
			Code:   string(dErrors.CodeSubjectDIDMismatch),
			Detail: "credential subject does not match the expected subject",
		})
		return
	}
	result.record(CheckResult{Name: CheckSubjectBinding, Passed: true})
}
