// Package httptransport assembles the public HTTP surface. It mounts the
// feature handlers and carries no business logic of its own.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attesto/pkg/platform/httputil"
	"attesto/pkg/platform/middleware/metadata"
)

// Registrar is implemented by feature handlers that mount their own routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports the health of one backing resource.
type HealthChecker func() error

// NewRouter wires all public endpoints. Handlers register their own routes;
// the router only provides shared middleware and the operational endpoints.
func NewRouter(handlers []Registrar, health map[string]HealthChecker) http.Handler {
	r := chi.NewRouter()
	r.Use(metadata.Middleware)

	for _, h := range handlers {
		h.Register(r)
	}

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handleHealth(health))
	return r
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		out := make(map[string]string, len(checks)+1)
		out["status"] = "ok"
		for name, check := range checks {
			if err := check(); err != nil {
				status = http.StatusServiceUnavailable
				out["status"] = "degraded"
				out[name] = err.Error()
				continue
			}
			out[name] = "ok"
		}
		httputil.WriteJSON(w, status, out)
	}
}
