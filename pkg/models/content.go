// Package models contains shared data models used across the mediawatch codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// SocialPost is an ingested short-form content item. Read-only from the
// worker's perspective; the ingestion pipeline owns writes.
type SocialPost struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	TenantID  uuid.UUID `db:"tenant_id"  json:"tenant_id"`
	Platform  string    `db:"platform"   json:"platform"`
	Author    string    `db:"author"     json:"author"`
	Content   string    `db:"content"    json:"content"`
	PostedAt  time.Time `db:"posted_at"  json:"posted_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Article is an ingested long-form content item. Read-only from the
// worker's perspective.
type Article struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	TenantID    uuid.UUID `db:"tenant_id"    json:"tenant_id"`
	Source      string    `db:"source"       json:"source"`
	Title       string    `db:"title"        json:"title"`
	Body        string    `db:"body"         json:"body"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}
