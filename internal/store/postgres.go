package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/civitas-io/mediawatch/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Tenants ---

func (s *PostgresStore) GetDefaultTenant(ctx context.Context) (*models.Tenant, error) {
	var t models.Tenant
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM tenants WHERE slug = 'default' LIMIT 1`,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get default tenant: %w", err)
	}
	return &t, nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.TenantID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, tenant_id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.TenantID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

// --- Content ---

func (s *PostgresStore) GetSocialPost(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.SocialPost, error) {
	var p models.SocialPost
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, platform, author, content, posted_at, created_at
		 FROM social_posts WHERE id = $1 AND tenant_id = $2`, id, tenantID,
	).Scan(&p.ID, &p.TenantID, &p.Platform, &p.Author, &p.Content, &p.PostedAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get social post: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) GetArticle(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Article, error) {
	var a models.Article
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, source, title, body, published_at, created_at
		 FROM articles WHERE id = $1 AND tenant_id = $2`, id, tenantID,
	).Scan(&a.ID, &a.TenantID, &a.Source, &a.Title, &a.Body, &a.PublishedAt, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	return &a, nil
}

// --- Jobs ---

const jobColumns = `id, tenant_id, content_type, content_id, priority, status, attempts,
	scheduled_at, processing_started_at, processed_at, analysis_result_id, error_detail,
	created_at, updated_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	var detail []byte
	err := row.Scan(&j.ID, &j.TenantID, &j.ContentType, &j.ContentID, &j.Priority, &j.Status,
		&j.Attempts, &j.ScheduledAt, &j.ProcessingStartedAt, &j.ProcessedAt,
		&j.AnalysisResultID, &detail, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(detail) > 0 {
		var je models.JobError
		if err := json.Unmarshal(detail, &je); err != nil {
			return nil, fmt.Errorf("decode error_detail: %w", err)
		}
		j.ErrorDetail = &je
	}
	return &j, nil
}

func encodeJobError(jobErr *models.JobError) ([]byte, error) {
	if jobErr == nil {
		return nil, nil
	}
	raw, err := json.Marshal(jobErr)
	if err != nil {
		return nil, fmt.Errorf("encode error_detail: %w", err)
	}
	return raw, nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	detail, err := encodeJobError(job.ErrorDetail)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, tenant_id, content_type, content_id, priority, status, attempts, scheduled_at, error_detail, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		job.ID, job.TenantID, job.ContentType, job.ContentID, job.Priority, job.Status,
		job.Attempts, job.ScheduledAt, detail, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// SelectPendingJobs returns up to limit eligible pending jobs, highest
// priority first, oldest scheduled_at first within a priority tier. Jobs
// whose scheduled_at is still in the future (retry backoff) are skipped.
func (s *PostgresStore) SelectPendingJobs(ctx context.Context, limit int, maxAttempts int) ([]*models.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs
		 WHERE status = 'pending' AND attempts < $1 AND scheduled_at <= NOW()
		 ORDER BY CASE priority
		   WHEN 'critical' THEN 3
		   WHEN 'high' THEN 2
		   WHEN 'normal' THEN 1
		   ELSE 0
		 END DESC, scheduled_at ASC
		 LIMIT $2`, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) MarkJobProcessing(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = 'processing', processing_started_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("mark job processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, id uuid.UUID, resultID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = 'completed', analysis_result_id = $2, processed_at = NOW(),
		   error_detail = NULL, updated_at = NOW()
		 WHERE id = $1 AND status = 'processing'`, id, resultID)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) RescheduleJob(ctx context.Context, id uuid.UUID, attempts int, scheduledAt time.Time, jobErr *models.JobError) error {
	detail, err := encodeJobError(jobErr)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = 'pending', attempts = $2, scheduled_at = $3,
		   error_detail = $4, updated_at = NOW()
		 WHERE id = $1 AND status = 'processing'`, id, attempts, scheduledAt, detail)
	if err != nil {
		return fmt.Errorf("reschedule job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) FailJob(ctx context.Context, id uuid.UUID, jobErr *models.JobError) error {
	detail, err := encodeJobError(jobErr)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = 'failed', processed_at = NOW(), error_detail = $2, updated_at = NOW()
		 WHERE id = $1 AND status = 'processing'`, id, detail)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

// RetryFailedJob resets a failed job back to pending with zero attempts. The
// status guard keeps the update atomic; a miss is disambiguated afterwards.
func (s *PostgresStore) RetryFailedJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`UPDATE jobs SET status = 'pending', attempts = 0, scheduled_at = NOW(),
		   error_detail = NULL, processed_at = NULL, analysis_result_id = NULL, updated_at = NOW()
		 WHERE id = $1 AND status = 'failed'
		 RETURNING `+jobColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.jobMissReason(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("retry failed job: %w", err)
	}
	return j, nil
}

// CancelPendingJob moves a pending job straight to failed with the given
// reason. Jobs already processing cannot be cancelled.
func (s *PostgresStore) CancelPendingJob(ctx context.Context, id uuid.UUID, reason string) (*models.Job, error) {
	detail, err := encodeJobError(&models.JobError{
		Message:  reason,
		At:       time.Now().UTC(),
		Terminal: true,
	})
	if err != nil {
		return nil, err
	}
	j, err := scanJob(s.pool.QueryRow(ctx,
		`UPDATE jobs SET status = 'failed', processed_at = NOW(), error_detail = $2, updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+jobColumns, id, detail))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.jobMissReason(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("cancel pending job: %w", err)
	}
	return j, nil
}

// jobMissReason distinguishes a missing job from one in the wrong state.
func (s *PostgresStore) jobMissReason(ctx context.Context, id uuid.UUID) error {
	var status string
	err := s.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}
	return fmt.Errorf("%w: status is %s", ErrInvalidState, status)
}

func (s *PostgresStore) GetJobStats(ctx context.Context) (*JobStats, error) {
	var stats JobStats
	err := s.pool.QueryRow(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE status = 'pending'),
		   COUNT(*) FILTER (WHERE status = 'processing'),
		   COUNT(*) FILTER (WHERE status = 'completed'),
		   COUNT(*) FILTER (WHERE status = 'failed'),
		   COALESCE(AVG(EXTRACT(EPOCH FROM (processed_at - processing_started_at)) * 1000)
		     FILTER (WHERE status = 'completed' AND processing_started_at IS NOT NULL), 0)
		 FROM jobs`,
	).Scan(&stats.Pending, &stats.Processing, &stats.Completed, &stats.Failed, &stats.AvgProcessingTimeMs)
	if err != nil {
		return nil, fmt.Errorf("get job stats: %w", err)
	}
	return &stats, nil
}

// --- Analysis Results ---

func (s *PostgresStore) CreateAnalysisResult(ctx context.Context, result *models.AnalysisResult) error {
	textJSON, err := json.Marshal(result.Text)
	if err != nil {
		return fmt.Errorf("encode text analysis: %w", err)
	}
	sentimentJSON, err := json.Marshal(result.Sentiment)
	if err != nil {
		return fmt.Errorf("encode sentiment analysis: %w", err)
	}
	entitiesJSON, err := json.Marshal(result.Entities)
	if err != nil {
		return fmt.Errorf("encode entity recognition: %w", err)
	}
	riskJSON, err := json.Marshal(result.Risk)
	if err != nil {
		return fmt.Errorf("encode risk assessment: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analysis_results (id, tenant_id, content_id, content_type,
		   text_analysis, sentiment_analysis, entity_recognition, risk_assessment,
		   processing_time_ms, input_tokens, output_tokens, total_cost, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		result.ID, result.TenantID, result.ContentID, result.ContentType,
		textJSON, sentimentJSON, entitiesJSON, riskJSON,
		result.ProcessingTimeMs, result.InputTokens, result.OutputTokens,
		result.TotalCost, result.CreatedAt)
	if err != nil {
		return fmt.Errorf("create analysis result: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAnalysisResult(ctx context.Context, id uuid.UUID) (*models.AnalysisResult, error) {
	var r models.AnalysisResult
	var textJSON, sentimentJSON, entitiesJSON, riskJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, content_id, content_type,
		   text_analysis, sentiment_analysis, entity_recognition, risk_assessment,
		   processing_time_ms, input_tokens, output_tokens, total_cost, created_at
		 FROM analysis_results WHERE id = $1`, id,
	).Scan(&r.ID, &r.TenantID, &r.ContentID, &r.ContentType,
		&textJSON, &sentimentJSON, &entitiesJSON, &riskJSON,
		&r.ProcessingTimeMs, &r.InputTokens, &r.OutputTokens, &r.TotalCost, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis result: %w", err)
	}
	if err := json.Unmarshal(textJSON, &r.Text); err != nil {
		return nil, fmt.Errorf("decode text analysis: %w", err)
	}
	if err := json.Unmarshal(sentimentJSON, &r.Sentiment); err != nil {
		return nil, fmt.Errorf("decode sentiment analysis: %w", err)
	}
	if err := json.Unmarshal(entitiesJSON, &r.Entities); err != nil {
		return nil, fmt.Errorf("decode entity recognition: %w", err)
	}
	if err := json.Unmarshal(riskJSON, &r.Risk); err != nil {
		return nil, fmt.Errorf("decode risk assessment: %w", err)
	}
	return &r, nil
}

// --- Alerts ---

func (s *PostgresStore) CreateAlert(ctx context.Context, alert *models.Alert) error {
	meta, err := json.Marshal(alert.Metadata)
	if err != nil {
		return fmt.Errorf("encode alert metadata: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO alerts (id, tenant_id, type, severity, title, message, metadata, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		alert.ID, alert.TenantID, alert.Type, alert.Severity, alert.Title,
		alert.Message, meta, alert.Status, alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecentAlerts(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Alert, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, type, severity, title, message, metadata, status, created_at
		 FROM alerts WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		var a models.Alert
		var meta []byte
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Type, &a.Severity, &a.Title,
			&a.Message, &meta, &a.Status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &a.Metadata); err != nil {
				return nil, fmt.Errorf("decode alert metadata: %w", err)
			}
		}
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
