package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/civitas-io/mediawatch/internal/api/response"
	"github.com/civitas-io/mediawatch/internal/store"
	"github.com/civitas-io/mediawatch/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// The first eight characters of a key double as its lookup prefix, so
// validation is one indexed query plus a bcrypt comparison per candidate.
const keyPrefixLen = 8

// Auth authenticates API keys and gates scoped routes. Every authenticated
// request is pinned to the key's tenant, so handlers only ever see that
// tenant's jobs, content, and alerts.
type Auth struct {
	store store.Store
}

// NewAuth creates a new Auth middleware.
func NewAuth(s store.Store) *Auth {
	return &Auth{store: s}
}

// Authenticate resolves the Bearer token to an API key and stashes the
// tenant id, key prefix, and scopes in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawKey := bearerToken(r)
		if len(rawKey) < keyPrefixLen {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or malformed API key", nil)
			return
		}

		prefix := rawKey[:keyPrefixLen]
		candidates, err := a.store.GetAPIKeyByPrefix(r.Context(), prefix)
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to validate API key", nil)
			return
		}

		key := matchKey(candidates, rawKey)
		if key == nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key", nil)
			return
		}

		// last_used_at is advisory; never hold the request for it.
		go a.store.UpdateAPIKeyLastUsed(context.Background(), key.ID)

		ctx := SetTenantID(r.Context(), key.TenantID)
		ctx = setKeyPrefix(ctx, prefix)
		ctx = setScopes(ctx, key.Scopes)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func matchKey(candidates []*models.APIKey, rawKey string) *models.APIKey {
	for _, key := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(rawKey)) == nil {
			return key
		}
	}
	return nil
}

// RequireScope gates a route on one scope of the authenticated key. Queue
// operations run under "jobs"; poller start/stop requires "admin".
func (a *Auth) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hasScope(getScopes(r), scope) {
				response.Error(w, http.StatusForbidden,
					"FORBIDDEN", "API key lacks the required scope", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
