package auth

import (
	"net/http"

	"convene/models"
)

// ContextKey is the type used for context keys
type ContextKey string

const (
	// ContextKeyUserID is the key for the authenticated user id in the context
	ContextKeyUserID ContextKey = "userID"
	// ContextKeyUser is the key for the resolved user record in the context
	ContextKeyUser ContextKey = "user"
)

// GetUserID retrieves the authenticated user id from the request context.
func GetUserID(r *http.Request) string {
	if id, ok := r.Context().Value(ContextKeyUserID).(string); ok {
		return id
	}
	return ""
}

// GetUser retrieves the resolved user record from the request context.
func GetUser(r *http.Request) (models.User, bool) {
	user, ok := r.Context().Value(ContextKeyUser).(models.User)
	return user, ok
}
