package revocation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"attesto/pkg/platform/circuit"
)

type ClientSuite struct {
	suite.Suite
	ctx context.Context
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *ClientSuite) issuer(status http.HandlerFunc, verify http.HandlerFunc) *httptest.Server {
	mux := http.NewServeMux()
	if status != nil {
		mux.HandleFunc("GET /credentials/{id}/status", status)
	}
	if verify != nil {
		mux.HandleFunc("POST /credentials/verify", verify)
	}
	srv := httptest.NewServer(mux)
	s.T().Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *ClientSuite) TestPrimaryStatusEndpoint() {
	s.Run("definite not revoked", func() {
		srv := s.issuer(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"status": "active", "revoked": false})
		}, nil)

		status, err := NewClient(srv.URL).CheckRevocation(s.ctx, "cred-1")
		s.Require().NoError(err)
		s.Equal(CodeConfirmed, status.Code)
		s.False(status.Revoked)
		s.Equal(SourceStatusEndpoint, status.Source)
	})

	s.Run("definite revoked", func() {
		srv := s.issuer(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"revoked": true, "revoked_at": "2026-01-15T10:00:00Z"})
		}, nil)

		status, err := NewClient(srv.URL).CheckRevocation(s.ctx, "cred-1")
		s.Require().NoError(err)
		s.Equal(CodeRevoked, status.Code)
		s.True(status.Revoked)
		s.Require().NotNil(status.RevokedAt)
	})

	s.Run("404 is terminal, no fallback", func() {
		var fallbackCalled atomic.Bool
		srv := s.issuer(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}, func(w http.ResponseWriter, r *http.Request) {
			fallbackCalled.Store(true)
		})

		status, err := NewClient(srv.URL).CheckRevocation(s.ctx, "cred-1")
		s.Require().NoError(err)
		s.Equal(CodeCredentialNotFound, status.Code)
		s.False(fallbackCalled.Load())
	})

	s.Run("403 is terminal, no fallback", func() {
		srv := s.issuer(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}, nil)

		status, err := NewClient(srv.URL).CheckRevocation(s.ctx, "cred-1")
		s.Require().NoError(err)
		s.Equal(CodeForbidden, status.Code)
	})
}

func (s *ClientSuite) TestFallbackPath() {
	s.Run("5xx on primary falls back to verify endpoint", func() {
		srv := s.issuer(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}, func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				CredentialID string `json:"credential_id"`
			}
			s.Require().NoError(json.NewDecoder(r.Body).Decode(&req))
			s.Equal("cred-1", req.CredentialID)
			writeJSON(w, map[string]any{"valid": true})
		})

		status, err := NewClient(srv.URL).CheckRevocation(s.ctx, "cred-1")
		s.Require().NoError(err)
		s.Equal(CodeConfirmed, status.Code)
		s.False(status.Revoked)
		s.Equal(SourceVerifyFallback, status.Source)
	})

	s.Run("explicit unknown on primary falls back", func() {
		srv := s.issuer(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"status": "unknown"})
		}, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"valid": false})
		})

		status, err := NewClient(srv.URL).CheckRevocation(s.ctx, "cred-1")
		s.Require().NoError(err)
		s.Equal(CodeRevoked, status.Code)
		s.True(status.Revoked)
		s.Equal(SourceVerifyFallback, status.Source)
	})

	s.Run("both endpoints down is unavailable, never confirmed", func() {
		client := NewClient("http://127.0.0.1:1")

		status, err := client.CheckRevocation(s.ctx, "cred-1")
		s.Require().NoError(err)
		s.Equal(CodeUnavailable, status.Code)
		s.False(status.Definite())
	})

	s.Run("fallback 404 maps to credential not found", func() {
		srv := s.issuer(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		status, err := NewClient(srv.URL).CheckRevocation(s.ctx, "cred-1")
		s.Require().NoError(err)
		s.Equal(CodeCredentialNotFound, status.Code)
	})
}

func (s *ClientSuite) TestIdempotence() {
	srv := s.issuer(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"revoked": true})
	}, nil)
	client := NewClient(srv.URL)

	for i := 0; i < 3; i++ {
		status, err := client.CheckRevocation(s.ctx, "cred-1")
		s.Require().NoError(err)
		s.Equal(CodeRevoked, status.Code)
	}
}

func (s *ClientSuite) TestCircuitBreakerSkipsBrokenPrimary() {
	var primaryCalls atomic.Int32
	srv := s.issuer(func(w http.ResponseWriter, r *http.Request) {
		primaryCalls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"valid": true})
	})

	client := NewClient(srv.URL,
		WithBreaker(circuit.New("issuer-status", circuit.WithFailureThreshold(2))))

	for i := 0; i < 5; i++ {
		status, err := client.CheckRevocation(s.ctx, "cred-1")
		s.Require().NoError(err)
		s.Equal(CodeConfirmed, status.Code)
		s.Equal(SourceVerifyFallback, status.Source)
	}

	// Two failures trip the breaker; the remaining checks go straight to
	// the fallback.
	s.Equal(int32(2), primaryCalls.Load())
}

func (s *ClientSuite) TestEmptyCredentialID() {
	_, err := NewClient("http://issuer").CheckRevocation(s.ctx, "")
	s.Error(err)
}
