package models

import (
	"time"

	"github.com/google/uuid"
)

// TextAnalysis is the structured output of the text-analysis sub-call.
type TextAnalysis struct {
	Summary    string   `json:"summary"`
	KeyPoints  []string `json:"key_points"`
	Keywords   []string `json:"keywords"`
	Category   string   `json:"category"`
	Complexity string   `json:"complexity"`
	WordCount  int      `json:"word_count"`
}

// SentimentAnalysis is the structured output of the sentiment sub-call.
// Score is in [-1, 1], Intensity and Subjectivity in [0, 1].
type SentimentAnalysis struct {
	Overall        string             `json:"overall"`
	Score          float64            `json:"score"`
	Intensity      float64            `json:"intensity"`
	Emotions       map[string]float64 `json:"emotions"`
	UrgencyLevel   string             `json:"urgency_level"`
	Subjectivity   float64            `json:"subjectivity"`
	BiasIndicators []string           `json:"bias_indicators"`
}

// RecognizedEntity is a single named entity with a relevance score in [0, 1].
type RecognizedEntity struct {
	Name      string  `json:"name"`
	Relevance float64 `json:"relevance"`
}

// EntityRecognition is the structured output of the entity sub-call.
type EntityRecognition struct {
	Persons            []RecognizedEntity `json:"persons"`
	Organizations      []RecognizedEntity `json:"organizations"`
	Locations          []RecognizedEntity `json:"locations"`
	GovernmentEntities []RecognizedEntity `json:"government_entities"`
}

// RiskAssessment is the structured output of the risk sub-call. It consumes
// the sentiment and entity results as prompt context, so it always runs last.
type RiskAssessment struct {
	OverallRiskScore    float64            `json:"overall_risk_score"`
	Categories          map[string]float64 `json:"categories"`
	GovernanceImpact    map[string]float64 `json:"governance_impact"`
	InterventionUrgency string             `json:"intervention_urgency"`
}

// AnalysisResult is the composite output for one content item. Created once,
// atomically, after all four sub-analyses succeed; never mutated afterward.
type AnalysisResult struct {
	ID               uuid.UUID         `db:"id"                 json:"id"`
	TenantID         uuid.UUID         `db:"tenant_id"          json:"tenant_id"`
	ContentID        uuid.UUID         `db:"content_id"         json:"content_id"`
	ContentType      string            `db:"content_type"       json:"content_type"`
	Text             TextAnalysis      `db:"text_analysis"      json:"text_analysis"`
	Sentiment        SentimentAnalysis `db:"sentiment_analysis" json:"sentiment_analysis"`
	Entities         EntityRecognition `db:"entity_recognition" json:"entity_recognition"`
	Risk             RiskAssessment    `db:"risk_assessment"    json:"risk_assessment"`
	ProcessingTimeMs int64             `db:"processing_time_ms" json:"processing_time_ms"`
	InputTokens      int               `db:"input_tokens"       json:"input_tokens"`
	OutputTokens     int               `db:"output_tokens"      json:"output_tokens"`
	TotalCost        float64           `db:"total_cost"         json:"total_cost"`
	CreatedAt        time.Time         `db:"created_at"         json:"created_at"`
}
