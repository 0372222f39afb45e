// Package alerts derives operational alerts from completed analysis results.
package alerts

import (
	"fmt"
	"time"

	"github.com/civitas-io/mediawatch/pkg/models"
	"github.com/google/uuid"
)

const (
	highRiskThreshold     = 70.0
	criticalRiskThreshold = 80.0
	negativeSentimentMax  = -0.7
	intensityMin          = 0.8
)

// Evaluate checks each alert condition independently against a completed
// analysis result. A single result can produce zero, one, or several alerts.
func Evaluate(result *models.AnalysisResult) []*models.Alert {
	var out []*models.Alert
	now := time.Now().UTC()

	newAlert := func(alertType, severity, title, message string, metadata map[string]any) *models.Alert {
		metadata["analysis_result_id"] = result.ID.String()
		metadata["content_id"] = result.ContentID.String()
		metadata["content_type"] = result.ContentType
		return &models.Alert{
			ID:        uuid.New(),
			TenantID:  result.TenantID,
			Type:      alertType,
			Severity:  severity,
			Title:     title,
			Message:   message,
			Metadata:  metadata,
			Status:    models.AlertStatusUnread,
			CreatedAt: now,
		}
	}

	if risk := result.Risk.OverallRiskScore; risk > highRiskThreshold {
		severity := models.AlertSeverityHigh
		if risk > criticalRiskThreshold {
			severity = models.AlertSeverityCritical
		}
		out = append(out, newAlert(
			models.AlertTypeHighRisk,
			severity,
			"High-risk content detected",
			fmt.Sprintf("Content scored %.0f/100 on overall risk.", risk),
			map[string]any{"overall_risk_score": risk},
		))
	}

	if s := result.Sentiment; s.Score < negativeSentimentMax && s.Intensity > intensityMin {
		out = append(out, newAlert(
			models.AlertTypeNegativeSentiment,
			models.AlertSeverityMedium,
			"Strongly negative sentiment detected",
			fmt.Sprintf("Content sentiment score %.2f with intensity %.2f.", s.Score, s.Intensity),
			map[string]any{"sentiment_score": s.Score, "intensity": s.Intensity},
		))
	}

	if result.Risk.InterventionUrgency == "critical" {
		out = append(out, newAlert(
			models.AlertTypeCriticalIntervention,
			models.AlertSeverityCritical,
			"Critical intervention urgency",
			"Risk assessment flagged this content as requiring immediate intervention.",
			map[string]any{"intervention_urgency": result.Risk.InterventionUrgency},
		))
	}

	return out
}
