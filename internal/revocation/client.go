package revocation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"attesto/pkg/platform/circuit"
)

// Client calls the issuer's revocation endpoints with bounded timeouts. A
// circuit breaker around the primary status endpoint routes traffic straight
// to the fallback while the issuer's status surface is known-bad, instead of
// paying a timeout on every check.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout bounds every issuer call.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http.Timeout = d
		}
	}
}

// WithBreaker overrides the circuit breaker (tests, shared breakers).
func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		if b != nil {
			cl.breaker = b
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

// NewClient constructs a revocation client for the given issuer base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
		breaker: circuit.New("issuer-status"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type statusResponse struct {
	Status    string     `json:"status"`
	Revoked   bool       `json:"revoked"`
	RevokedAt *time.Time `json:"revoked_at"`
}

type verifyRequest struct {
	CredentialID string `json:"credential_id"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

// CheckRevocation resolves the credential's revocation status. The returned
// Status always carries a code; the error return is reserved for programming
// errors (bad base URL), so callers branch on Code, not on err.
//
// Repeated calls against an unchanged issuer state return the same code.
func (c *Client) CheckRevocation(ctx context.Context, credentialID string) (Status, error) {
	if credentialID == "" {
		return Status{}, fmt.Errorf("credential id is required")
	}

	if !c.breaker.IsOpen() {
		status, definite := c.checkPrimary(ctx, credentialID)
		if definite {
			if change := c.breaker.RecordSuccess(); change.Closed {
				c.logger.InfoContext(ctx, "issuer status circuit closed")
			}
			return status, nil
		}
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.WarnContext(ctx, "issuer status circuit opened",
				"credential_id", credentialID)
		}
	}

	return c.checkFallback(ctx, credentialID), nil
}

// checkPrimary hits the issuer's status endpoint. definite=false means the
// answer was inconclusive (network error, 5xx, or an explicit "unknown") and
// the fallback should be consulted; terminal issuer answers like 404 and 403
// are definite and never trigger the fallback.
func (c *Client) checkPrimary(ctx context.Context, credentialID string) (Status, bool) {
	endpoint := c.baseURL + "/credentials/" + url.PathEscape(credentialID) + "/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Status{}, false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "issuer status call failed",
			"credential_id", credentialID, "error", err)
		return Status{}, false
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var body statusResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return Status{}, false
		}
		if body.Status == "unknown" {
			return Status{}, false
		}
		return c.statusOutcome(credentialID, body, SourceStatusEndpoint), true
	case resp.StatusCode == http.StatusNotFound:
		return Status{
			CredentialID: credentialID,
			Code:         CodeCredentialNotFound,
			Source:       SourceStatusEndpoint,
		}, true
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Status{
			CredentialID: credentialID,
			Code:         CodeForbidden,
			Source:       SourceStatusEndpoint,
		}, true
	default:
		return Status{}, false
	}
}

// checkFallback hits the issuer's generic verify endpoint, inferring
// revocation as the negation of its "valid" field.
func (c *Client) checkFallback(ctx context.Context, credentialID string) Status {
	unavailable := Status{
		CredentialID: credentialID,
		Code:         CodeUnavailable,
		Source:       SourceVerifyFallback,
	}

	body, err := json.Marshal(verifyRequest{CredentialID: credentialID})
	if err != nil {
		return unavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/credentials/verify", bytes.NewReader(body))
	if err != nil {
		return unavailable
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "issuer verify fallback failed",
			"credential_id", credentialID, "error", err)
		return unavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var out verifyResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return unavailable
		}
		revoked := !out.Valid
		code := CodeConfirmed
		if revoked {
			code = CodeRevoked
		}
		return Status{
			CredentialID: credentialID,
			Revoked:      revoked,
			Code:         code,
			Source:       SourceVerifyFallback,
		}
	case resp.StatusCode == http.StatusNotFound:
		return Status{
			CredentialID: credentialID,
			Code:         CodeCredentialNotFound,
			Source:       SourceVerifyFallback,
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Status{
			CredentialID: credentialID,
			Code:         CodeForbidden,
			Source:       SourceVerifyFallback,
		}
	default:
		return unavailable
	}
}

func (c *Client) statusOutcome(credentialID string, body statusResponse, source Source) Status {
	code := CodeConfirmed
	if body.Revoked {
		code = CodeRevoked
	}
	return Status{
		CredentialID: credentialID,
		Revoked:      body.Revoked,
		RevokedAt:    body.RevokedAt,
		Code:         code,
		Source:       source,
	}
}
