package queue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/civitas-io/mediawatch/internal/cache"
	"github.com/civitas-io/mediawatch/internal/config"
	"github.com/civitas-io/mediawatch/internal/store"
	"github.com/civitas-io/mediawatch/pkg/models"
	"github.com/google/uuid"
)

// Worker drives the job queue: a periodic tick selects a bounded batch of
// eligible pending jobs and dispatches them to the executor concurrently,
// with at most one batch in flight. All poller state is owned by the Worker
// instance so independent workers can be tested in isolation.
type Worker struct {
	store    store.Store
	cache    cache.Cache
	executor *Executor
	cfg      config.WorkerConfig

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	batchInFlight atomic.Bool
}

// NewWorker creates a new Worker.
func NewWorker(st store.Store, ca cache.Cache, exec *Executor, cfg config.WorkerConfig) *Worker {
	return &Worker{store: st, cache: ca, executor: exec, cfg: cfg}
}

// StartProcessing starts the periodic poller. Starting an already-running
// worker is a no-op. The first tick runs immediately.
func (w *Worker) StartProcessing() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.runLoop(ctx, w.done)

	slog.Info("job poller started",
		"interval", w.cfg.PollInterval.String(),
		"batch_size", w.cfg.BatchSize,
		"max_attempts", w.cfg.MaxAttempts,
	)
}

// StopProcessing stops the poller and waits for an in-flight batch to drain.
// Dispatched jobs are not aborted; each finishes with its own outcome.
// Stopping an already-stopped worker is a no-op.
func (w *Worker) StopProcessing() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	<-done
	slog.Info("job poller stopped")
}

// Running reports whether the poller is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Worker) runLoop(stop context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	// Batches run under a background context, not the stop context. Stopping
	// the poller only silences the ticker; jobs already dispatched finish
	// with their natural outcome and StopProcessing waits for them.
	w.tick(context.Background())

	for {
		select {
		case <-stop.Done():
			return
		case <-ticker.C:
			w.tick(context.Background())
		}
	}
}

// tick selects and executes one batch. If a previous batch is still
// executing the tick is skipped entirely; completion of the whole batch is
// what permits the next selection.
func (w *Worker) tick(ctx context.Context) {
	if !w.batchInFlight.CompareAndSwap(false, true) {
		slog.Debug("previous batch still in flight, skipping tick")
		return
	}
	defer w.batchInFlight.Store(false)

	jobs, err := w.store.SelectPendingJobs(ctx, w.cfg.BatchSize, w.cfg.MaxAttempts)
	if err != nil {
		slog.Error("failed to select pending jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	slog.Info("dispatching job batch", "count", len(jobs))

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(j *models.Job) {
			defer wg.Done()
			w.executor.Execute(ctx, j)
		}(job)
	}
	wg.Wait()
}

// Enqueue creates a pending job for a content item, scheduled immediately.
func (w *Worker) Enqueue(ctx context.Context, tenantID, contentID uuid.UUID, contentType, priority string) (*models.Job, error) {
	if _, ok := models.PriorityRank[priority]; !ok {
		priority = models.PriorityNormal
	}
	now := time.Now().UTC()
	job := &models.Job{
		ID:          uuid.New(),
		TenantID:    tenantID,
		ContentType: contentType,
		ContentID:   contentID,
		Priority:    priority,
		Status:      models.JobStatusPending,
		ScheduledAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := w.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	_ = w.cache.SetJobStatus(ctx, job.ID, models.JobStatusPending, jobStatusTTL)
	return job, nil
}

// GetJob looks up one job by id.
func (w *Worker) GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	return w.store.GetJob(ctx, jobID)
}

// RetryFailedJob resets a failed job for another round of attempts. Returns
// store.ErrInvalidState unless the job's status is failed.
func (w *Worker) RetryFailedJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	job, err := w.store.RetryFailedJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	_ = w.cache.SetJobStatus(ctx, jobID, models.JobStatusPending, jobStatusTTL)
	slog.Info("failed job reset for retry", "job_id", jobID)
	return job, nil
}

// CancelPendingJob cancels a job that has not started processing. Returns
// store.ErrInvalidState unless the job's status is pending.
func (w *Worker) CancelPendingJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	job, err := w.store.CancelPendingJob(ctx, jobID, "manually cancelled")
	if err != nil {
		return nil, err
	}
	_ = w.cache.SetJobStatus(ctx, jobID, models.JobStatusFailed, jobStatusTTL)
	slog.Info("pending job cancelled", "job_id", jobID)
	return job, nil
}

// Stats is the operator-facing snapshot of the queue and poller.
type Stats struct {
	Running      bool           `json:"running"`
	PollInterval string         `json:"poll_interval"`
	BatchSize    int            `json:"batch_size"`
	MaxAttempts  int            `json:"max_attempts"`
	Jobs         store.JobStats `json:"jobs"`
}

// GetStats returns current per-status counts, average processing duration of
// completed jobs, and the poller's running flag plus static configuration.
func (w *Worker) GetStats(ctx context.Context) (*Stats, error) {
	jobStats, err := w.store.GetJobStats(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Running:      w.Running(),
		PollInterval: w.cfg.PollInterval.String(),
		BatchSize:    w.cfg.BatchSize,
		MaxAttempts:  w.cfg.MaxAttempts,
		Jobs:         *jobStats,
	}, nil
}
