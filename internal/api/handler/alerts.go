package handler

import (
	"context"
	"net/http"
	"strconv"

	mw "github.com/civitas-io/mediawatch/internal/api/middleware"
	"github.com/civitas-io/mediawatch/internal/api/response"
	"github.com/civitas-io/mediawatch/pkg/models"
	"github.com/google/uuid"
)

// AlertReader defines the alert lookups the handler depends on.
type AlertReader interface {
	ListRecentAlerts(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Alert, error)
}

// NewListAlertsHandler returns an http.HandlerFunc for GET /api/v1/alerts.
func NewListAlertsHandler(st AlertReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				limit = n
			}
		}

		alerts, err := st.ListRecentAlerts(r.Context(), tenantID, limit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list alerts", nil)
			return
		}
		if alerts == nil {
			alerts = []*models.Alert{}
		}
		response.JSON(w, alerts)
	}
}
