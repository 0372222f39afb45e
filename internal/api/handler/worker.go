package handler

import (
	"net/http"

	"github.com/civitas-io/mediawatch/internal/api/response"
)

// NewWorkerStatsHandler returns an http.HandlerFunc for GET /api/v1/worker/stats.
func NewWorkerStatsHandler(q QueueOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := q.GetStats(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to collect worker stats", nil)
			return
		}
		response.JSON(w, stats)
	}
}

// NewStartWorkerHandler returns an http.HandlerFunc for POST /api/v1/admin/worker/start.
// Starting an already-running poller is a no-op.
func NewStartWorkerHandler(q QueueOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q.StartProcessing()
		response.JSON(w, map[string]any{"running": q.Running()})
	}
}

// NewStopWorkerHandler returns an http.HandlerFunc for POST /api/v1/admin/worker/stop.
// Stopping an already-stopped poller is a no-op.
func NewStopWorkerHandler(q QueueOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q.StopProcessing()
		response.JSON(w, map[string]any{"running": q.Running()})
	}
}
