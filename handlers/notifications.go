package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"convene/internal/auth"
	"convene/models"
	"convene/services/notifications"
)

// NotificationsHandler handles the session notification feed endpoints.
type NotificationsHandler struct {
	hub *notifications.Hub
}

// NewNotificationsHandler creates a new notifications handler.
func NewNotificationsHandler(hub *notifications.Hub) *NotificationsHandler {
	return &NotificationsHandler{hub: hub}
}

// List returns the authenticated user's current feed, newest first.
// Subscribes the user on first call so subsequent pushes are captured.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	feed := h.hub.Subscribe(auth.GetUserID(r))

	entries := feed.Entries()
	if entries == nil {
		entries = []models.NotificationEvent{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// Dismiss removes one entry from the authenticated user's feed.
func (h *NotificationsHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	eventID, err := strconv.ParseInt(vars["eventID"], 10, 64)
	if err != nil {
		http.Error(w, `{"error": "invalid event id"}`, http.StatusBadRequest)
		return
	}

	feed := h.hub.Feed(auth.GetUserID(r))
	if feed == nil || !feed.Dismiss(eventID) {
		http.Error(w, `{"error": "notification not found"}`, http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
