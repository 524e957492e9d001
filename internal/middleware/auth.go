package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pucet-prep/backend/internal/models"
	"github.com/pucet-prep/backend/internal/token"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserID extracts the authenticated user ID from the request context.
func UserID(ctx context.Context) (int64, bool) {
	uid, ok := ctx.Value(userIDKey).(int64)
	return uid, ok
}

// WithUserID stores an authenticated user ID on ctx.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Auth rejects requests without a valid token. The token is read from a
// Bearer Authorization header, falling back to the "token" cookie.
func Auth(issuer *token.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "No token, authorization denied"})
				return
			}

			userID, err := issuer.Parse(raw)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Token is not valid"})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie("token"); err == nil {
		return c.Value
	}
	return ""
}

// RoleLookup returns the stored role for a user.
type RoleLookup func(ctx context.Context, userID int64) (models.Role, error)

// AdminOnly must run after Auth.
func AdminOnly(lookup RoleLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserID(r.Context())
			if !ok {
				writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
				return
			}
			role, err := lookup(r.Context(), userID)
			if err != nil || role != models.RoleAdmin {
				writeJSON(w, http.StatusForbidden, models.ErrorResponse{Error: "Access denied. Admin only."})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
