package handlers

import (
	"encoding/json"
	"net/http"

	"convene/internal/auth"
	"convene/services/dashboard"
)

// DashboardHandler handles dashboard summary endpoints.
type DashboardHandler struct {
	dashboard *dashboard.Service
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(dashboardSvc *dashboard.Service) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboardSvc}
}

// Summary returns the authenticated user's invitation counts. Always a
// complete structure; a degraded bucket is named rather than omitted.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum := h.dashboard.Summary(auth.GetUserID(r))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sum)
}

// Status returns the state of the dashboard background worker.
func (h *DashboardHandler) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.dashboard.GetStatus())
}

// Refresh triggers an immediate recomputation of cached summaries.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.dashboard.Refresh()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "refresh scheduled"})
}
