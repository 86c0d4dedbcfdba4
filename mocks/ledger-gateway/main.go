// Command ledger-gateway is a standalone mock of the external ledger gateway
// for local development. It accepts anchor submissions, stores hashes in
// memory, and answers existence lookups. Set FAIL_RATE to a value in [0,1]
// to simulate intermittent gateway failures and exercise the retry pipeline.
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
)

type server struct {
	mu       sync.RWMutex
	anchored map[string]string
	failRate float64
}

type submitRequest struct {
	Hashes []string `json:"hashes"`
}

func main() {
	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":9090"
	}

	failRate := 0.0
	if v := os.Getenv("FAIL_RATE"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			log.Fatalf("invalid FAIL_RATE %q: %v", v, err)
		}
		failRate = parsed
	}

	s := &server{anchored: make(map[string]string), failRate: failRate}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /anchors", s.handleSubmit)
	mux.HandleFunc("GET /anchors/{hash}", s.handleLookup)

	log.Printf("mock ledger gateway listening on %s (fail rate %.2f)", addr, failRate)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.failRate > 0 && rand.Float64() < s.failRate {
		http.Error(w, `{"error":"simulated gateway failure"}`, http.StatusBadGateway)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Hashes) == 0 {
		http.Error(w, `{"error":"hashes required"}`, http.StatusBadRequest)
		return
	}

	// Deterministic tx hash over the sorted batch contents, like a real
	// gateway deduplicating re-submissions.
	sum := sha256.Sum256([]byte(strings.Join(req.Hashes, "\n")))
	txHash := "0x" + hex.EncodeToString(sum[:])

	s.mu.Lock()
	for _, h := range req.Hashes {
		s.anchored[h] = txHash
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	fmt.Fprintf(w, `{"tx_hash":%q}`, txHash)
}

func (s *server) handleLookup(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")

	s.mu.RLock()
	txHash, ok := s.anchored[hash]
	s.mu.RUnlock()

	if !ok {
		http.Error(w, `{"error":"not anchored"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"hash":%q,"tx_hash":%q}`, hash, txHash)
}
