package queue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/civitas-io/mediawatch/internal/analysis"
	"github.com/civitas-io/mediawatch/internal/engine"
	enginemock "github.com/civitas-io/mediawatch/internal/engine/mock"
	"github.com/civitas-io/mediawatch/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(st *mockStore, eng *enginemock.Engine) (*Executor, *mockCache) {
	ca := newMockCache()
	orch := analysis.NewOrchestrator(eng, st, testEngineConfig())
	return NewExecutor(st, ca, orch, testWorkerConfig()), ca
}

func TestExecuteCompletesJob(t *testing.T) {
	st := newMockStore()
	job := seedJob(st, uuid.New(), models.PriorityNormal)

	exec, ca := newTestExecutor(st, &enginemock.Engine{})
	exec.Execute(context.Background(), job)

	got := st.job(t, job.ID)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	require.NotNil(t, got.AnalysisResultID)
	assert.NotNil(t, got.ProcessedAt)
	assert.Nil(t, got.ErrorDetail)

	require.Len(t, st.results, 1)
	assert.Equal(t, *got.AnalysisResultID, st.results[0].ID)
	assert.Equal(t, job.ContentID, st.results[0].ContentID)

	status, ok, _ := ca.GetJobStatus(context.Background(), job.ID)
	assert.True(t, ok)
	assert.Equal(t, models.JobStatusCompleted, status)
}

func TestExecuteArticleJob(t *testing.T) {
	st := newMockStore()
	tenantID := uuid.New()
	article := &models.Article{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Source:      "gazette",
		Title:       "Budget shortfall widens",
		Body:        "The city faces a widening budget shortfall this quarter.",
		PublishedAt: time.Now().UTC(),
	}
	st.articles[article.ID] = article
	job := &models.Job{
		ID:          uuid.New(),
		TenantID:    tenantID,
		ContentType: models.ContentTypeArticle,
		ContentID:   article.ID,
		Priority:    models.PriorityNormal,
		Status:      models.JobStatusPending,
		ScheduledAt: time.Now().UTC().Add(-time.Second),
	}
	st.jobs[job.ID] = job

	exec, _ := newTestExecutor(st, &enginemock.Engine{})
	exec.Execute(context.Background(), job)

	assert.Equal(t, models.JobStatusCompleted, st.job(t, job.ID).Status)
}

func TestExecuteRetryableFailureReschedules(t *testing.T) {
	st := newMockStore()
	job := seedJob(st, uuid.New(), models.PriorityNormal)

	eng := enginemock.NewFailing(errors.New("status code: 429, rate limit exceeded"))
	exec, ca := newTestExecutor(st, eng)
	before := time.Now().UTC()
	exec.Execute(context.Background(), job)

	got := st.job(t, job.ID)
	assert.Equal(t, models.JobStatusPending, got.Status)
	assert.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.ErrorDetail)
	assert.False(t, got.ErrorDetail.Terminal)
	assert.Equal(t, 1, got.ErrorDetail.Attempt)

	// First retry backs off by the base delay.
	assert.False(t, got.ScheduledAt.Before(before.Add(5*time.Second)))
	assert.True(t, got.ScheduledAt.Before(before.Add(10*time.Second)))

	assert.Empty(t, st.results, "no result may be persisted for a failed run")

	status, ok, _ := ca.GetJobStatus(context.Background(), job.ID)
	assert.True(t, ok)
	assert.Equal(t, models.JobStatusPending, status)
}

func TestExecuteSecondRetryDoublesDelay(t *testing.T) {
	st := newMockStore()
	job := seedJob(st, uuid.New(), models.PriorityNormal)
	st.jobs[job.ID].Attempts = 1
	job.Attempts = 1

	eng := enginemock.NewFailing(engine.ErrUnavailable)
	exec, _ := newTestExecutor(st, eng)
	before := time.Now().UTC()
	exec.Execute(context.Background(), job)

	got := st.job(t, job.ID)
	assert.Equal(t, models.JobStatusPending, got.Status)
	assert.Equal(t, 2, got.Attempts)
	assert.False(t, got.ScheduledAt.Before(before.Add(10*time.Second)))
}

func TestExecuteExhaustedAttemptsFails(t *testing.T) {
	st := newMockStore()
	job := seedJob(st, uuid.New(), models.PriorityNormal)
	st.jobs[job.ID].Attempts = 2
	job.Attempts = 2

	eng := enginemock.NewFailing(errors.New("connection reset by peer"))
	exec, ca := newTestExecutor(st, eng)
	exec.Execute(context.Background(), job)

	got := st.job(t, job.ID)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorDetail)
	assert.True(t, got.ErrorDetail.Terminal)
	assert.Equal(t, 3, got.ErrorDetail.Attempt)
	assert.NotNil(t, got.ProcessedAt)

	status, _, _ := ca.GetJobStatus(context.Background(), job.ID)
	assert.Equal(t, models.JobStatusFailed, status)
}

func TestExecuteFatalEngineErrorFailsImmediately(t *testing.T) {
	st := newMockStore()
	job := seedJob(st, uuid.New(), models.PriorityNormal)

	eng := &enginemock.Engine{
		CompleteFunc: func(_ context.Context, _ engine.CompletionRequest) (engine.CompletionResponse, error) {
			return engine.CompletionResponse{Content: "{not json"}, nil
		},
	}
	exec, _ := newTestExecutor(st, eng)
	exec.Execute(context.Background(), job)

	got := st.job(t, job.ID)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorDetail)
	assert.True(t, got.ErrorDetail.Terminal)
	assert.Contains(t, got.ErrorDetail.Message, "malformed engine response")
	assert.Empty(t, st.results)
}

func TestExecuteMissingContentIsFatal(t *testing.T) {
	st := newMockStore()
	tenantID := uuid.New()
	job := &models.Job{
		ID:          uuid.New(),
		TenantID:    tenantID,
		ContentType: models.ContentTypePost,
		ContentID:   uuid.New(), // no such post
		Priority:    models.PriorityHigh,
		Status:      models.JobStatusPending,
		ScheduledAt: time.Now().UTC().Add(-time.Second),
	}
	st.jobs[job.ID] = job

	exec, _ := newTestExecutor(st, &enginemock.Engine{})
	exec.Execute(context.Background(), job)

	got := st.job(t, job.ID)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorDetail)
	assert.True(t, got.ErrorDetail.Terminal)
}

func TestExecuteUnknownContentTypeIsFatal(t *testing.T) {
	st := newMockStore()
	job := seedJob(st, uuid.New(), models.PriorityNormal)
	st.jobs[job.ID].ContentType = "podcast"
	job.ContentType = "podcast"

	exec, _ := newTestExecutor(st, &enginemock.Engine{})
	exec.Execute(context.Background(), job)

	assert.Equal(t, models.JobStatusFailed, st.job(t, job.ID).Status)
}

func TestExecuteSkipsJobNotPending(t *testing.T) {
	st := newMockStore()
	job := seedJob(st, uuid.New(), models.PriorityNormal)
	st.jobs[job.ID].Status = models.JobStatusProcessing

	eng := &enginemock.Engine{}
	exec, _ := newTestExecutor(st, eng)
	exec.Execute(context.Background(), job)

	assert.Zero(t, eng.CallCount(), "an already-claimed job must not be executed")
	assert.Equal(t, models.JobStatusProcessing, st.job(t, job.ID).Status)
}

func TestExecuteNoContentResponseIsRetryable(t *testing.T) {
	st := newMockStore()
	job := seedJob(st, uuid.New(), models.PriorityNormal)

	eng := &enginemock.Engine{
		CompleteFunc: func(_ context.Context, _ engine.CompletionRequest) (engine.CompletionResponse, error) {
			return engine.CompletionResponse{}, nil
		},
	}
	exec, _ := newTestExecutor(st, eng)
	exec.Execute(context.Background(), job)

	got := st.job(t, job.ID)
	assert.Equal(t, models.JobStatusPending, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.Empty(t, st.results)
}

func TestExecuteRecoversFromPanic(t *testing.T) {
	st := newMockStore()
	job := seedJob(st, uuid.New(), models.PriorityNormal)

	// A panicking engine client must fail the job, never the process.
	eng := &enginemock.Engine{
		CompleteFunc: func(_ context.Context, req engine.CompletionRequest) (engine.CompletionResponse, error) {
			if strings.Contains(req.Prompt, "risk") {
				panic("engine blew up")
			}
			return engine.CompletionResponse{
				Content: `{}`,
				Usage:   engine.Usage{InputTokens: 1, OutputTokens: 1},
			}, nil
		},
	}
	exec, _ := newTestExecutor(st, eng)
	require.NotPanics(t, func() {
		exec.Execute(context.Background(), job)
	})

	got := st.job(t, job.ID)
	// A panic is not a recognized retryable signature, so the job fails.
	assert.Equal(t, models.JobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorDetail)
	assert.Contains(t, got.ErrorDetail.Message, "panic")
}
