package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityNormal   = "normal"
	PriorityLow      = "low"
)

const (
	ContentTypePost    = "post"
	ContentTypeArticle = "article"
)

// PriorityRank orders priorities for batch selection; higher is selected
// first. Ordering only affects which jobs enter a batch, never preemption.
var PriorityRank = map[string]int{
	PriorityCritical: 3,
	PriorityHigh:     2,
	PriorityNormal:   1,
	PriorityLow:      0,
}

// JobError records the most recent failure of a job attempt. Stored as JSONB
// in the error_detail column.
type JobError struct {
	Message  string    `json:"message"`
	Attempt  int       `json:"attempt"`
	At       time.Time `json:"at"`
	Terminal bool      `json:"terminal,omitempty"`
}

// Job is one queued request to analyze a single content item. The poller
// selects eligible pending jobs by priority and scheduled_at; the executor
// walks each through processing to a terminal status, or back to pending
// with an advanced scheduled_at when the failure is retryable.
type Job struct {
	ID                  uuid.UUID  `db:"id"                    json:"id"`
	TenantID            uuid.UUID  `db:"tenant_id"             json:"tenant_id"`
	ContentType         string     `db:"content_type"          json:"content_type"`
	ContentID           uuid.UUID  `db:"content_id"            json:"content_id"`
	Priority            string     `db:"priority"              json:"priority"`
	Status              string     `db:"status"                json:"status"`
	Attempts            int        `db:"attempts"              json:"attempts"`
	ScheduledAt         time.Time  `db:"scheduled_at"          json:"scheduled_at"`
	ProcessingStartedAt *time.Time `db:"processing_started_at" json:"processing_started_at,omitempty"`
	ProcessedAt         *time.Time `db:"processed_at"          json:"processed_at,omitempty"`
	AnalysisResultID    *uuid.UUID `db:"analysis_result_id"    json:"analysis_result_id,omitempty"`
	ErrorDetail         *JobError  `db:"error_detail"          json:"error_detail,omitempty"`
	CreatedAt           time.Time  `db:"created_at"            json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"            json:"updated_at"`
}
