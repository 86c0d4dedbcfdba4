// Package presentation implements the verifier side of an OID4VP-style
// request/response exchange. The verifier mints a nonce-bearing request;
// the wallet answers with a presentation bound to that nonce. Requests are
// one-time-use and consumed only after the binding checks pass.
package presentation

import "time"

// MaxPurposeLength bounds the human-readable purpose string.
const MaxPurposeLength = 200

// DefaultTTL is how long a minted request stays answerable.
const DefaultTTL = 5 * time.Minute

// Request is a server-side presentation request awaiting a wallet response.
type Request struct {
	ID        string
	Nonce     string
	State     string
	Purpose   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the request has passed its TTL.
func (r *Request) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
