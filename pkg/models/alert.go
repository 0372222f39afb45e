package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AlertSeverityMedium   = "medium"
	AlertSeverityHigh     = "high"
	AlertSeverityCritical = "critical"
)

const (
	AlertTypeHighRisk             = "high-risk-content"
	AlertTypeNegativeSentiment    = "negative-sentiment"
	AlertTypeCriticalIntervention = "critical-intervention"
)

const AlertStatusUnread = "unread"

// Alert is a derived notification raised when a completed analysis crosses a
// configured threshold. Metadata carries the triggering scores and the
// originating analysis id.
type Alert struct {
	ID        uuid.UUID      `db:"id"         json:"id"`
	TenantID  uuid.UUID      `db:"tenant_id"  json:"tenant_id"`
	Type      string         `db:"type"       json:"type"`
	Severity  string         `db:"severity"   json:"severity"`
	Title     string         `db:"title"      json:"title"`
	Message   string         `db:"message"    json:"message"`
	Metadata  map[string]any `db:"metadata"   json:"metadata"`
	Status    string         `db:"status"     json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
