package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"convene/internal/auth"
	"convene/models"
)

// IdentityProvider resolves an opaque bearer token to a user record. The
// core treats identity as an external collaborator behind this interface.
type IdentityProvider interface {
	Resolve(token string) (models.User, error)
}

// AuthMiddleware creates middleware that resolves bearer tokens through the
// identity provider and injects the user into the request context.
// Tokens can be provided via Authorization header or ?token= query param.
func AuthMiddleware(identity IdentityProvider) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Always allow OPTIONS for CORS
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				writeAuthError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			if identity == nil {
				writeAuthError(w, http.StatusInternalServerError, "identity provider unavailable")
				return
			}

			user, err := identity.Resolve(token)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), auth.ContextKeyUserID, user.ID)
			ctx = context.WithValue(ctx, auth.ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// extractToken extracts the bearer token from headers or query param.
// Priority: Authorization header > ?token= query param.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token
			}
		}
	}

	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}

	return ""
}
