package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mw "github.com/civitas-io/mediawatch/internal/api/middleware"
	"github.com/civitas-io/mediawatch/internal/queue"
	"github.com/civitas-io/mediawatch/internal/store"
	"github.com/civitas-io/mediawatch/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// --- mock QueueOps ---

type mockQueue struct {
	enqueueFn func(ctx context.Context, tenantID, contentID uuid.UUID, contentType, priority string) (*models.Job, error)
	getFn     func(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	retryFn   func(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	cancelFn  func(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	statsFn   func(ctx context.Context) (*queue.Stats, error)
	running   bool
}

func (m *mockQueue) Enqueue(ctx context.Context, tenantID, contentID uuid.UUID, contentType, priority string) (*models.Job, error) {
	return m.enqueueFn(ctx, tenantID, contentID, contentType, priority)
}

func (m *mockQueue) GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	return m.getFn(ctx, jobID)
}

func (m *mockQueue) RetryFailedJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	return m.retryFn(ctx, jobID)
}

func (m *mockQueue) CancelPendingJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	return m.cancelFn(ctx, jobID)
}

func (m *mockQueue) GetStats(ctx context.Context) (*queue.Stats, error) {
	return m.statsFn(ctx)
}

func (m *mockQueue) StartProcessing() { m.running = true }
func (m *mockQueue) StopProcessing()  { m.running = false }
func (m *mockQueue) Running() bool    { return m.running }

func pendingJob(tenantID uuid.UUID) *models.Job {
	return &models.Job{
		ID:          uuid.New(),
		TenantID:    tenantID,
		ContentType: models.ContentTypePost,
		ContentID:   uuid.New(),
		Priority:    models.PriorityNormal,
		Status:      models.JobStatusPending,
		ScheduledAt: time.Now().UTC(),
		CreatedAt:   time.Now().UTC(),
	}
}

// --- helpers ---

func jsonReq(t *testing.T, method, target string, body any, tenantID uuid.UUID) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r.WithContext(mw.SetTenantID(r.Context(), tenantID))
}

// withJobID attaches a chi route context carrying the jobID path parameter.
func withJobID(r *http.Request, jobID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("jobID", jobID)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func parseData(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int) map[string]any {
	t.Helper()
	if rec.Code != wantStatus {
		t.Fatalf("expected %d, got %d: %s", wantStatus, rec.Code, rec.Body.String())
	}
	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env.Data
}

func parseErr(t *testing.T, rec *httptest.ResponseRecorder) (int, string) {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Code, env.Error.Code
}

// --- enqueue ---

func TestEnqueueJobHandler_Success(t *testing.T) {
	tid := uuid.New()
	q := &mockQueue{
		enqueueFn: func(_ context.Context, tenantID, contentID uuid.UUID, contentType, priority string) (*models.Job, error) {
			if tenantID != tid {
				t.Errorf("wrong tenant: %s", tenantID)
			}
			if contentType != models.ContentTypeArticle {
				t.Errorf("wrong content type: %s", contentType)
			}
			if priority != models.PriorityHigh {
				t.Errorf("wrong priority: %s", priority)
			}
			job := pendingJob(tenantID)
			job.ContentID = contentID
			job.ContentType = contentType
			job.Priority = priority
			return job, nil
		},
	}

	h := NewEnqueueJobHandler(q)
	rec := httptest.NewRecorder()
	body := map[string]any{
		"content_type": "article",
		"content_id":   uuid.NewString(),
		"priority":     "high",
	}
	h.ServeHTTP(rec, jsonReq(t, http.MethodPost, "/api/v1/jobs", body, tid))

	data := parseData(t, rec, http.StatusCreated)
	if data["status"] != models.JobStatusPending {
		t.Errorf("unexpected status: %v", data["status"])
	}
	if data["priority"] != models.PriorityHigh {
		t.Errorf("unexpected priority: %v", data["priority"])
	}
}

func TestEnqueueJobHandler_InvalidContentType(t *testing.T) {
	h := NewEnqueueJobHandler(&mockQueue{})
	rec := httptest.NewRecorder()
	body := map[string]any{"content_type": "podcast", "content_id": uuid.NewString()}
	h.ServeHTTP(rec, jsonReq(t, http.MethodPost, "/api/v1/jobs", body, uuid.New()))

	code, errCode := parseErr(t, rec)
	if code != http.StatusBadRequest || errCode != "INVALID_REQUEST" {
		t.Errorf("expected 400 INVALID_REQUEST, got %d %s", code, errCode)
	}
}

func TestEnqueueJobHandler_InvalidContentID(t *testing.T) {
	h := NewEnqueueJobHandler(&mockQueue{})
	rec := httptest.NewRecorder()
	body := map[string]any{"content_type": "post", "content_id": "not-a-uuid"}
	h.ServeHTTP(rec, jsonReq(t, http.MethodPost, "/api/v1/jobs", body, uuid.New()))

	code, errCode := parseErr(t, rec)
	if code != http.StatusBadRequest || errCode != "INVALID_REQUEST" {
		t.Errorf("expected 400 INVALID_REQUEST, got %d %s", code, errCode)
	}
}

func TestEnqueueJobHandler_MalformedBody(t *testing.T) {
	h := NewEnqueueJobHandler(&mockQueue{})
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewBufferString("{nope"))
	r = r.WithContext(mw.SetTenantID(r.Context(), uuid.New()))
	h.ServeHTTP(rec, r)

	code, _ := parseErr(t, rec)
	if code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestEnqueueJobHandler_MissingTenant(t *testing.T) {
	h := NewEnqueueJobHandler(&mockQueue{})
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewBufferString("{}"))
	h.ServeHTTP(rec, r)

	code, errCode := parseErr(t, rec)
	if code != http.StatusUnauthorized || errCode != "INVALID_TOKEN" {
		t.Errorf("expected 401 INVALID_TOKEN, got %d %s", code, errCode)
	}
}

// --- get ---

func TestGetJobHandler_Success(t *testing.T) {
	tid := uuid.New()
	job := pendingJob(tid)
	q := &mockQueue{
		getFn: func(_ context.Context, jobID uuid.UUID) (*models.Job, error) {
			if jobID != job.ID {
				return nil, store.ErrNotFound
			}
			return job, nil
		},
	}

	h := NewGetJobHandler(q)
	rec := httptest.NewRecorder()
	r := jsonReq(t, http.MethodGet, "/api/v1/jobs/"+job.ID.String(), nil, tid)
	h.ServeHTTP(rec, withJobID(r, job.ID.String()))

	data := parseData(t, rec, http.StatusOK)
	if data["id"] != job.ID.String() {
		t.Errorf("unexpected id: %v", data["id"])
	}
}

func TestGetJobHandler_WrongTenant(t *testing.T) {
	job := pendingJob(uuid.New())
	q := &mockQueue{
		getFn: func(_ context.Context, _ uuid.UUID) (*models.Job, error) {
			return job, nil
		},
	}

	h := NewGetJobHandler(q)
	rec := httptest.NewRecorder()
	r := jsonReq(t, http.MethodGet, "/api/v1/jobs/"+job.ID.String(), nil, uuid.New())
	h.ServeHTTP(rec, withJobID(r, job.ID.String()))

	code, errCode := parseErr(t, rec)
	if code != http.StatusNotFound || errCode != "NOT_FOUND" {
		t.Errorf("expected 404 NOT_FOUND, got %d %s", code, errCode)
	}
}

func TestGetJobHandler_BadID(t *testing.T) {
	h := NewGetJobHandler(&mockQueue{})
	rec := httptest.NewRecorder()
	r := jsonReq(t, http.MethodGet, "/api/v1/jobs/abc", nil, uuid.New())
	h.ServeHTTP(rec, withJobID(r, "abc"))

	code, _ := parseErr(t, rec)
	if code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

// --- retry / cancel ---

func TestRetryJobHandler_Success(t *testing.T) {
	job := pendingJob(uuid.New())
	q := &mockQueue{
		retryFn: func(_ context.Context, _ uuid.UUID) (*models.Job, error) {
			return job, nil
		},
	}

	h := NewRetryJobHandler(q)
	rec := httptest.NewRecorder()
	r := jsonReq(t, http.MethodPost, "/api/v1/jobs/"+job.ID.String()+"/retry", nil, job.TenantID)
	h.ServeHTTP(rec, withJobID(r, job.ID.String()))

	data := parseData(t, rec, http.StatusOK)
	if data["status"] != models.JobStatusPending {
		t.Errorf("unexpected status: %v", data["status"])
	}
}

func TestRetryJobHandler_InvalidState(t *testing.T) {
	q := &mockQueue{
		retryFn: func(_ context.Context, _ uuid.UUID) (*models.Job, error) {
			return nil, fmt.Errorf("%w: status is pending", store.ErrInvalidState)
		},
	}

	h := NewRetryJobHandler(q)
	rec := httptest.NewRecorder()
	id := uuid.NewString()
	r := jsonReq(t, http.MethodPost, "/api/v1/jobs/"+id+"/retry", nil, uuid.New())
	h.ServeHTTP(rec, withJobID(r, id))

	code, errCode := parseErr(t, rec)
	if code != http.StatusConflict || errCode != "INVALID_STATE" {
		t.Errorf("expected 409 INVALID_STATE, got %d %s", code, errCode)
	}
}

func TestRetryJobHandler_NotFound(t *testing.T) {
	q := &mockQueue{
		retryFn: func(_ context.Context, _ uuid.UUID) (*models.Job, error) {
			return nil, store.ErrNotFound
		},
	}

	h := NewRetryJobHandler(q)
	rec := httptest.NewRecorder()
	id := uuid.NewString()
	r := jsonReq(t, http.MethodPost, "/api/v1/jobs/"+id+"/retry", nil, uuid.New())
	h.ServeHTTP(rec, withJobID(r, id))

	code, errCode := parseErr(t, rec)
	if code != http.StatusNotFound || errCode != "NOT_FOUND" {
		t.Errorf("expected 404 NOT_FOUND, got %d %s", code, errCode)
	}
}

func TestCancelJobHandler_InvalidState(t *testing.T) {
	q := &mockQueue{
		cancelFn: func(_ context.Context, _ uuid.UUID) (*models.Job, error) {
			return nil, fmt.Errorf("%w: status is processing", store.ErrInvalidState)
		},
	}

	h := NewCancelJobHandler(q)
	rec := httptest.NewRecorder()
	id := uuid.NewString()
	r := jsonReq(t, http.MethodPost, "/api/v1/jobs/"+id+"/cancel", nil, uuid.New())
	h.ServeHTTP(rec, withJobID(r, id))

	code, errCode := parseErr(t, rec)
	if code != http.StatusConflict || errCode != "INVALID_STATE" {
		t.Errorf("expected 409 INVALID_STATE, got %d %s", code, errCode)
	}
}

func TestCancelJobHandler_UnexpectedError(t *testing.T) {
	q := &mockQueue{
		cancelFn: func(_ context.Context, _ uuid.UUID) (*models.Job, error) {
			return nil, errors.New("db offline")
		},
	}

	h := NewCancelJobHandler(q)
	rec := httptest.NewRecorder()
	id := uuid.NewString()
	r := jsonReq(t, http.MethodPost, "/api/v1/jobs/"+id+"/cancel", nil, uuid.New())
	h.ServeHTTP(rec, withJobID(r, id))

	code, errCode := parseErr(t, rec)
	if code != http.StatusInternalServerError || errCode != "INTERNAL_ERROR" {
		t.Errorf("expected 500 INTERNAL_ERROR, got %d %s", code, errCode)
	}
}
