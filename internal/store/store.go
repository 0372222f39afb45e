package store

import (
	"context"
	"errors"
	"time"

	"github.com/civitas-io/mediawatch/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrInvalidState is returned when an operator operation targets a job whose
// current status does not permit the transition.
var ErrInvalidState = errors.New("job is not in a valid state for this operation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error
	GetDefaultTenant(ctx context.Context) (*models.Tenant, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error

	GetSocialPost(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.SocialPost, error)
	GetArticle(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Article, error)

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	SelectPendingJobs(ctx context.Context, limit int, maxAttempts int) ([]*models.Job, error)
	MarkJobProcessing(ctx context.Context, id uuid.UUID) error
	CompleteJob(ctx context.Context, id uuid.UUID, resultID uuid.UUID) error
	RescheduleJob(ctx context.Context, id uuid.UUID, attempts int, scheduledAt time.Time, jobErr *models.JobError) error
	FailJob(ctx context.Context, id uuid.UUID, jobErr *models.JobError) error
	RetryFailedJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	CancelPendingJob(ctx context.Context, id uuid.UUID, reason string) (*models.Job, error)
	GetJobStats(ctx context.Context) (*JobStats, error)

	CreateAnalysisResult(ctx context.Context, result *models.AnalysisResult) error
	GetAnalysisResult(ctx context.Context, id uuid.UUID) (*models.AnalysisResult, error)

	CreateAlert(ctx context.Context, alert *models.Alert) error
	ListRecentAlerts(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Alert, error)
}

// JobStats aggregates queue counters for the operator surface.
type JobStats struct {
	Pending             int     `json:"pending"`
	Processing          int     `json:"processing"`
	Completed           int     `json:"completed"`
	Failed              int     `json:"failed"`
	AvgProcessingTimeMs float64 `json:"avg_processing_time_ms"`
}
