package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attesto/internal/anchor"
)

type failingLedger struct{ err error }

func (l failingLedger) SubmitHashes(context.Context, []string) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	return "0xtx", nil
}

func (l failingLedger) HashExists(context.Context, string) (bool, error) { return false, nil }

func TestAnchorEndpoints(t *testing.T) {
	ctx := context.Background()
	hash := strings.Repeat("a", 64)

	newRouter := func(svc *anchor.Service) chi.Router {
		r := chi.NewRouter()
		New(svc, slog.New(slog.DiscardHandler)).Register(r)
		return r
	}

	t.Run("get returns batch state", func(t *testing.T) {
		svc := anchor.NewService(anchor.ModeDeferred, anchor.NewInMemoryBatchStore(), failingLedger{})
		res, err := svc.Submit(ctx, []string{hash})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anchors/"+res.BatchID, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var out struct {
			BatchID string `json:"batch_id"`
			Status  string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, res.BatchID, out.BatchID)
		assert.Equal(t, "Pending", out.Status)
	})

	t.Run("unknown batch is a 404", func(t *testing.T) {
		svc := anchor.NewService(anchor.ModeActive, anchor.NewInMemoryBatchStore(), failingLedger{})
		rec := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anchors/missing", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("resubmit clears a dead-lettered batch", func(t *testing.T) {
		store := anchor.NewInMemoryBatchStore()
		svc := anchor.NewService(anchor.ModeActive, store, failingLedger{err: errors.New("down")},
			anchor.WithRetryPolicy(1, 1, 1))

		res, err := svc.Submit(ctx, []string{hash})
		require.NoError(t, err)
		_, err = svc.ProcessDue(ctx, 10)
		require.NoError(t, err)

		batch, err := store.Get(ctx, res.BatchID)
		require.NoError(t, err)
		require.Equal(t, anchor.StatusDeadLettered, batch.Status)

		rec := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/anchors/"+res.BatchID+"/resubmit", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var out struct {
			Status     string `json:"status"`
			RetryCount int    `json:"retry_count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, "Pending", out.Status)
		assert.Zero(t, out.RetryCount)
	})
}
