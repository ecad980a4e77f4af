// Package http assembles the REST router.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nvi/internal/platform/middleware"
	"nvi/internal/transport/http/shared"
)

// HealthCheck reports the readiness of one dependency.
type HealthCheck func(ctx context.Context) error

// Deps wires everything the router mounts.
type Deps struct {
	Logger       *slog.Logger
	JWTValidator *middleware.JWTValidator
	// Registrars mount feature routes on the authenticated API subtree.
	Registrars []func(chi.Router)
	// Health lists named dependency checks for /healthz.
	Health map[string]HealthCheck
}

// NewRouter builds the service router: public health and metrics endpoints,
// and an authenticated API subtree with the standard middleware chain.
func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))

	r.Get("/healthz", healthHandler(deps.Health))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(30 * time.Second))
		api.Use(middleware.ContentTypeJSON)
		api.Use(middleware.RequireAuth(deps.JWTValidator, deps.Logger))
		for _, register := range deps.Registrars {
			register(api)
		}
	})
	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		shared.WriteJSON(w, status, body)
	}
}
