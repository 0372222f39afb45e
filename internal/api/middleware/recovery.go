package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/civitas-io/mediawatch/internal/api/response"
)

// Recovery converts a handler panic into a 500 response. The job executor
// has its own containment; this covers the HTTP surface only.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				attrs := []any{
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				}
				if tenantID, ok := GetTenantID(r); ok {
					attrs = append(attrs, "tenant_id", tenantID)
				}
				slog.Error("handler panic recovered", attrs...)
				response.Error(w, http.StatusInternalServerError,
					"INTERNAL_ERROR", "An unexpected error occurred", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
