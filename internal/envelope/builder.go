package envelope

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"attesto/internal/canonical"
	"attesto/internal/credential"
	dErrors "attesto/pkg/domain-errors"
	"attesto/pkg/platform/sentinel"
)

// Builder generates proof envelopes for issued credentials.
type Builder struct {
	credentials credential.Store
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBuilder constructs a Builder backed by the given credential store.
func NewBuilder(credentials credential.Store, opts ...Option) *Builder {
	b := &Builder{
		credentials: credentials,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Generate produces one envelope for the credential, hashed from the STRICT
// canonical form. That is the non-negotiable signing source of truth; there
// is intentionally no parameter to select another rule-set.
//
// Formats the engine does not implement yield a structurally valid envelope
// with Status unsupported rather than failing the request.
func (b *Builder) Generate(ctx context.Context, credentialID, formatTag string) (Envelope, error) {
	if credentialID == "" {
		return Envelope{}, dErrors.New(dErrors.CodeProofCredentialIDRequired, "credential identifier is required")
	}

	record, err := b.credentials.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Envelope{}, dErrors.New(dErrors.CodeProofCredentialNotFound, "credential not found: "+credentialID)
		}
		return Envelope{}, dErrors.Wrap(err, dErrors.CodeInternal, "credential lookup failed")
	}

	hash, err := canonical.HashStrict(record.Claims)
	if err != nil {
		return Envelope{}, dErrors.Wrap(err, dErrors.CodeProofInputInvalid, "credential payload cannot be canonicalized")
	}

	env := Envelope{
		CredentialID:         credentialID,
		Canonicalization:     canonical.RuleSetStrict,
		Algorithm:            canonical.Algorithm,
		Hash:                 hash,
		Status:               StatusActive,
		CreatedAt:            b.now().UTC(),
		VerificationContract: VerificationContract,
	}

	format, ok := ParseFormat(formatTag)
	env.Format = format
	env.FormatName = formatTag
	if !ok {
		env.Status = StatusUnsupported
		b.logger.InfoContext(ctx, "unsupported proof format requested",
			"credential_id", credentialID,
			"format", formatTag,
		)
		return env, nil
	}
	env.FormatName = format.String()

	return env, nil
}
