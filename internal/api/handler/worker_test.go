package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/civitas-io/mediawatch/internal/queue"
	"github.com/civitas-io/mediawatch/internal/store"
	"github.com/google/uuid"
)

func TestWorkerStatsHandler(t *testing.T) {
	q := &mockQueue{
		statsFn: func(_ context.Context) (*queue.Stats, error) {
			return &queue.Stats{
				Running:      true,
				PollInterval: "30s",
				BatchSize:    5,
				MaxAttempts:  3,
				Jobs:         store.JobStats{Pending: 4, Completed: 9},
			}, nil
		},
	}

	h := NewWorkerStatsHandler(q)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonReq(t, http.MethodGet, "/api/v1/worker/stats", nil, uuid.New()))

	data := parseData(t, rec, http.StatusOK)
	if data["running"] != true {
		t.Errorf("expected running true, got %v", data["running"])
	}
	jobs, ok := data["jobs"].(map[string]any)
	if !ok {
		t.Fatalf("missing jobs block: %v", data)
	}
	if jobs["pending"] != float64(4) {
		t.Errorf("unexpected pending count: %v", jobs["pending"])
	}
}

func TestStartStopWorkerHandlers(t *testing.T) {
	q := &mockQueue{}

	start := NewStartWorkerHandler(q)
	rec := httptest.NewRecorder()
	start.ServeHTTP(rec, jsonReq(t, http.MethodPost, "/api/v1/admin/worker/start", nil, uuid.New()))
	data := parseData(t, rec, http.StatusOK)
	if data["running"] != true {
		t.Errorf("expected running true after start, got %v", data["running"])
	}

	stop := NewStopWorkerHandler(q)
	rec = httptest.NewRecorder()
	stop.ServeHTTP(rec, jsonReq(t, http.MethodPost, "/api/v1/admin/worker/stop", nil, uuid.New()))
	data = parseData(t, rec, http.StatusOK)
	if data["running"] != false {
		t.Errorf("expected running false after stop, got %v", data["running"])
	}
}
