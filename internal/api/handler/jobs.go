package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	mw "github.com/civitas-io/mediawatch/internal/api/middleware"
	"github.com/civitas-io/mediawatch/internal/api/response"
	"github.com/civitas-io/mediawatch/internal/queue"
	"github.com/civitas-io/mediawatch/internal/store"
	"github.com/civitas-io/mediawatch/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// QueueOps defines the queue operations the handlers depend on.
// *queue.Worker satisfies it.
type QueueOps interface {
	Enqueue(ctx context.Context, tenantID, contentID uuid.UUID, contentType, priority string) (*models.Job, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	RetryFailedJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	CancelPendingJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	GetStats(ctx context.Context) (*queue.Stats, error)
	StartProcessing()
	StopProcessing()
	Running() bool
}

// writeJobError maps queue/store errors onto the response envelope.
func writeJobError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
	case errors.Is(err, store.ErrInvalidState):
		response.Error(w, http.StatusConflict, "INVALID_STATE", err.Error(), nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Operation failed", nil)
	}
}

// jobIDFromURL parses the jobID path parameter.
func jobIDFromURL(r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "jobID")
	id, err := uuid.Parse(raw)
	return id, err == nil
}

// NewEnqueueJobHandler returns an http.HandlerFunc for POST /api/v1/jobs.
func NewEnqueueJobHandler(q QueueOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		var req struct {
			ContentType string `json:"content_type"`
			ContentID   string `json:"content_id"`
			Priority    string `json:"priority"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.ContentType != models.ContentTypePost && req.ContentType != models.ContentTypeArticle {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"content_type must be post or article", nil)
			return
		}
		contentID, err := uuid.Parse(req.ContentID)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "content_id must be a UUID", nil)
			return
		}

		job, err := q.Enqueue(r.Context(), tenantID, contentID, req.ContentType, req.Priority)
		if err != nil {
			writeJobError(w, err)
			return
		}
		response.Created(w, job)
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(q QueueOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}
		jobID, ok := jobIDFromURL(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a UUID", nil)
			return
		}

		job, err := q.GetJob(r.Context(), jobID)
		if err != nil {
			writeJobError(w, err)
			return
		}
		if job.TenantID != tenantID {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
			return
		}
		response.JSON(w, job)
	}
}

// NewRetryJobHandler returns an http.HandlerFunc for POST /api/v1/jobs/{jobID}/retry.
func NewRetryJobHandler(q QueueOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, ok := jobIDFromURL(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a UUID", nil)
			return
		}
		job, err := q.RetryFailedJob(r.Context(), jobID)
		if err != nil {
			writeJobError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewCancelJobHandler returns an http.HandlerFunc for POST /api/v1/jobs/{jobID}/cancel.
func NewCancelJobHandler(q QueueOps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, ok := jobIDFromURL(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a UUID", nil)
			return
		}
		job, err := q.CancelPendingJob(r.Context(), jobID)
		if err != nil {
			writeJobError(w, err)
			return
		}
		response.JSON(w, job)
	}
}
