package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPLedger talks to a ledger gateway over HTTP.
type HTTPLedger struct {
	baseURL string
	client  *http.Client
}

// HTTPOption configures an HTTPLedger.
type HTTPOption func(*HTTPLedger)

// WithHTTPClient overrides the HTTP client (tests, custom transports).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(l *HTTPLedger) {
		if c != nil {
			l.client = c
		}
	}
}

// WithTimeout bounds every ledger call.
func WithTimeout(d time.Duration) HTTPOption {
	return func(l *HTTPLedger) {
		if d > 0 {
			l.client.Timeout = d
		}
	}
}

// NewHTTP constructs a ledger client for the given gateway base URL.
func NewHTTP(baseURL string, opts ...HTTPOption) *HTTPLedger {
	l := &HTTPLedger{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type submitRequest struct {
	Hashes []string `json:"hashes"`
}

type submitResponse struct {
	TxHash string `json:"tx_hash"`
}

// SubmitHashes appends the hashes to the ledger and returns the transaction
// hash. The gateway deduplicates already-anchored hashes, so re-submitting a
// confirmed hash is a no-op on its side.
func (l *HTTPLedger) SubmitHashes(ctx context.Context, hashes []string) (string, error) {
	body, err := json.Marshal(submitRequest{Hashes: hashes})
	if err != nil {
		return "", fmt.Errorf("encode ledger submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/anchors", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ledger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ledger submission: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("ledger submission: unexpected status %d", resp.StatusCode)
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ledger response: %w", err)
	}
	if out.TxHash == "" {
		return "", fmt.Errorf("ledger response missing tx_hash")
	}
	return out.TxHash, nil
}

// HashExists reports whether the ledger holds an anchor for the hash.
// 404 is a definite "not anchored"; anything else non-200 is an error the
// caller must treat as unavailability.
func (l *HTTPLedger) HashExists(ctx context.Context, hash string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/anchors/"+url.PathEscape(hash), nil)
	if err != nil {
		return false, fmt.Errorf("build ledger lookup: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("ledger lookup: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("ledger lookup: unexpected status %d", resp.StatusCode)
	}
}

var _ Ledger = (*HTTPLedger)(nil)
