package api

import (
	"net/http"

	mw "github.com/civitas-io/mediawatch/internal/api/middleware"
	"github.com/civitas-io/mediawatch/internal/api/response"
	"github.com/go-chi/chi/v5"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler      http.HandlerFunc
	WorkerStatsHandler http.HandlerFunc
	StartWorkerHandler http.HandlerFunc
	StopWorkerHandler  http.HandlerFunc
	EnqueueJobHandler  http.HandlerFunc
	GetJobHandler      http.HandlerFunc
	RetryJobHandler    http.HandlerFunc
	CancelJobHandler   http.HandlerFunc
	ListAlertsHandler  http.HandlerFunc
}

// NewRouter builds the Chi router with the middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/worker/stats", orNotImplemented(deps.WorkerStatsHandler))

		r.Post("/api/v1/jobs", orNotImplemented(deps.EnqueueJobHandler))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJobHandler))
		r.Post("/api/v1/jobs/{jobID}/retry", orNotImplemented(deps.RetryJobHandler))
		r.Post("/api/v1/jobs/{jobID}/cancel", orNotImplemented(deps.CancelJobHandler))

		r.Get("/api/v1/alerts", orNotImplemented(deps.ListAlertsHandler))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/worker/start", orNotImplemented(deps.StartWorkerHandler))
			r.Post("/api/v1/admin/worker/stop", orNotImplemented(deps.StopWorkerHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
