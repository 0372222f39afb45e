package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/civitas-io/mediawatch/internal/analysis"
	"github.com/civitas-io/mediawatch/internal/cache"
	"github.com/civitas-io/mediawatch/internal/config"
	"github.com/civitas-io/mediawatch/internal/store"
	"github.com/civitas-io/mediawatch/pkg/models"
)

const jobStatusTTL = 30 * time.Minute

// Executor runs one job end to end: mark processing, resolve content, invoke
// the orchestrator, and apply the outcome through the retry policy.
type Executor struct {
	store        store.Store
	cache        cache.Cache
	orchestrator *analysis.Orchestrator
	cfg          config.WorkerConfig
}

// NewExecutor creates a new Executor.
func NewExecutor(st store.Store, ca cache.Cache, orch *analysis.Orchestrator, cfg config.WorkerConfig) *Executor {
	return &Executor{store: st, cache: ca, orchestrator: orch, cfg: cfg}
}

// Execute processes one selected job. It always leaves the job in a
// consistent status; store write failures are logged and left for the next
// tick's visibility.
func (e *Executor) Execute(ctx context.Context, job *models.Job) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while executing job", "error", r, "job_id", job.ID)
			e.applyFailure(ctx, job, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := e.store.MarkJobProcessing(ctx, job.ID); err != nil {
		// Another poller or an operator got there first; leave the job alone.
		slog.Warn("skipping job, could not mark processing", "job_id", job.ID, "error", err)
		return
	}
	_ = e.cache.SetJobStatus(ctx, job.ID, models.JobStatusProcessing, jobStatusTTL)

	req, err := e.resolveContent(ctx, job)
	if err != nil {
		e.applyFailure(ctx, job, err)
		return
	}

	result, err := e.orchestrator.Analyze(ctx, req)
	if err != nil {
		e.applyFailure(ctx, job, err)
		return
	}

	if err := e.store.CompleteJob(ctx, job.ID, result.ID); err != nil {
		slog.Error("failed to mark job completed", "job_id", job.ID, "error", err)
		return
	}
	_ = e.cache.SetJobStatus(ctx, job.ID, models.JobStatusCompleted, jobStatusTTL)

	slog.Info("job completed",
		"job_id", job.ID,
		"content_type", job.ContentType,
		"content_id", job.ContentID,
		"processing_time_ms", result.ProcessingTimeMs,
		"total_cost", result.TotalCost,
	)
}

// resolveContent loads the referenced post or article. A missing row is
// fatal; retrying cannot make it appear.
func (e *Executor) resolveContent(ctx context.Context, job *models.Job) (analysis.Request, error) {
	req := analysis.Request{
		TenantID:    job.TenantID,
		ContentID:   job.ContentID,
		ContentType: job.ContentType,
	}

	switch job.ContentType {
	case models.ContentTypePost:
		post, err := e.store.GetSocialPost(ctx, job.ContentID, job.TenantID)
		if err != nil {
			return req, fmt.Errorf("resolving social post %s: %w", job.ContentID, err)
		}
		req.Body = post.Content
	case models.ContentTypeArticle:
		article, err := e.store.GetArticle(ctx, job.ContentID, job.TenantID)
		if err != nil {
			return req, fmt.Errorf("resolving article %s: %w", job.ContentID, err)
		}
		req.Title = article.Title
		req.Body = article.Body
	default:
		return req, fmt.Errorf("unknown content type %q", job.ContentType)
	}
	return req, nil
}

// applyFailure routes a failed execution through the retry policy: back to
// pending with backoff, or terminal failed.
func (e *Executor) applyFailure(ctx context.Context, job *models.Job, execErr error) {
	decision := Decide(execErr, job.Attempts, e.cfg.MaxAttempts, e.cfg.RetryBaseDelay)

	if decision.Retry {
		jobErr := &models.JobError{
			Message: execErr.Error(),
			Attempt: job.Attempts + 1,
			At:      time.Now().UTC(),
		}
		scheduledAt := time.Now().UTC().Add(decision.Delay)
		if err := e.store.RescheduleJob(ctx, job.ID, job.Attempts+1, scheduledAt, jobErr); err != nil {
			slog.Error("failed to reschedule job", "job_id", job.ID, "error", err)
			return
		}
		_ = e.cache.SetJobStatus(ctx, job.ID, models.JobStatusPending, jobStatusTTL)
		slog.Warn("job rescheduled",
			"job_id", job.ID,
			"attempt", job.Attempts+1,
			"max_attempts", e.cfg.MaxAttempts,
			"delay", decision.Delay.String(),
			"error", execErr,
		)
		return
	}

	jobErr := &models.JobError{
		Message:  execErr.Error(),
		Attempt:  job.Attempts + 1,
		At:       time.Now().UTC(),
		Terminal: true,
	}
	if err := e.store.FailJob(ctx, job.ID, jobErr); err != nil {
		slog.Error("failed to mark job failed", "job_id", job.ID, "error", err)
		return
	}
	_ = e.cache.SetJobStatus(ctx, job.ID, models.JobStatusFailed, jobStatusTTL)
	slog.Error("job failed",
		"job_id", job.ID,
		"attempts", job.Attempts+1,
		"retryable", IsRetryable(execErr),
		"error", execErr,
	)
}
