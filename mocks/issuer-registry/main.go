// Command issuer-registry is a standalone mock of an issuer's revocation
// endpoints for local development. Credential IDs prefixed "revoked-" report
// as revoked, IDs prefixed "missing-" as unknown, and IDs prefixed "flaky-"
// fail on the status endpoint so the verify fallback path gets exercised.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":9091"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /credentials/{id}/status", handleStatus)
	mux.HandleFunc("POST /credentials/verify", handleVerify)

	log.Printf("mock issuer registry listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	switch {
	case strings.HasPrefix(id, "missing-"):
		http.Error(w, `{"error":"credential not found"}`, http.StatusNotFound)
	case strings.HasPrefix(id, "flaky-"):
		http.Error(w, `{"error":"status backend unavailable"}`, http.StatusServiceUnavailable)
	case strings.HasPrefix(id, "revoked-"):
		writeJSON(w, map[string]any{
			"status":     "revoked",
			"revoked":    true,
			"revoked_at": time.Now().UTC().Add(-24 * time.Hour),
		})
	default:
		writeJSON(w, map[string]any{
			"status":  "active",
			"revoked": false,
		})
	}
}

func handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CredentialID string `json:"credential_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CredentialID == "" {
		http.Error(w, `{"error":"credential_id required"}`, http.StatusBadRequest)
		return
	}

	switch {
	case strings.HasPrefix(req.CredentialID, "missing-"):
		http.Error(w, `{"error":"credential not found"}`, http.StatusNotFound)
	case strings.HasPrefix(req.CredentialID, "revoked-"):
		writeJSON(w, map[string]any{"valid": false})
	default:
		writeJSON(w, map[string]any{"valid": true})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
