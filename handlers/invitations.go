package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"convene/internal/auth"
	"convene/models"
	"convene/services/invitations"
	"convene/services/lifecycle"
	"convene/services/notifications"
	"convene/services/respond"
)

// InvitationsHandler handles invitation lifecycle endpoints.
type InvitationsHandler struct {
	invitations *invitations.Service
	coordinator *respond.Coordinator
	hub         *notifications.Hub
}

// NewInvitationsHandler creates a new invitations handler.
func NewInvitationsHandler(invitationsSvc *invitations.Service, coordinator *respond.Coordinator, hub *notifications.Hub) *InvitationsHandler {
	return &InvitationsHandler{
		invitations: invitationsSvc,
		coordinator: coordinator,
		hub:         hub,
	}
}

// CreateInvitationRequest represents the create invitation request body.
type CreateInvitationRequest struct {
	ReceiverID string                `json:"receiverId"`
	Session    models.SessionDetails `json:"sessionDetails"`
	Message    string                `json:"message"`
}

// RespondRequest represents the respond request body.
type RespondRequest struct {
	Status          models.InvitationStatus `json:"status"`
	ResponseMessage string                  `json:"responseMessage"`
}

// Create stores a new pending invitation from the authenticated user.
func (h *InvitationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	senderID := auth.GetUserID(r)
	inv, err := h.invitations.Create(senderID, req.ReceiverID, req.Session, req.Message)
	if err != nil {
		status := http.StatusInternalServerError
		if invitations.IsValidationError(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}

	h.notify(r, inv.ReceiverID, inv.ID, "sent you an invitation", inv.Message != "")
	if gen := h.coordinator.Generation(); gen != nil {
		gen.Bump()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(invitations.Annotate(*inv, time.Now().UTC()))
}

// List returns the authenticated user's invitations filtered by type and status.
func (h *InvitationsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseListFilter(r)
	if !ok {
		http.Error(w, `{"error": "invalid filter"}`, http.StatusBadRequest)
		return
	}

	views, err := h.invitations.List(auth.GetUserID(r), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if views == nil {
		views = []invitations.View{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

// Get returns a single invitation visible to the authenticated user.
func (h *InvitationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	invitationID := vars["invitationID"]
	userID := auth.GetUserID(r)

	inv, err := h.invitations.Get(invitationID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, invitations.ErrInvitationNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}

	// Participants only; everyone else sees not-found.
	if inv.SenderID != userID && inv.ReceiverID != userID {
		http.Error(w, `{"error": "invitation not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(invitations.Annotate(*inv, time.Now().UTC()))
}

// Respond commits the authenticated user's accept or decline decision
// through the response coordinator.
func (h *InvitationsHandler) Respond(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	invitationID := vars["invitationID"]

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Status != models.StatusAccepted && req.Status != models.StatusDeclined {
		http.Error(w, `{"error": "status must be accepted or declined"}`, http.StatusBadRequest)
		return
	}

	actorID := auth.GetUserID(r)
	inv, err := h.coordinator.Respond(r.Context(), invitationID, actorID, req.Status, req.ResponseMessage)
	if err != nil {
		h.writeTransitionError(w, err)
		return
	}

	h.notify(r, inv.SenderID, inv.ID, string(inv.Status)+" your invitation", inv.ResponseMessage != "")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(invitations.Annotate(*inv, time.Now().UTC()))
}

// Cancel withdraws a pending invitation on behalf of its sender.
func (h *InvitationsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	invitationID := vars["invitationID"]
	actorID := auth.GetUserID(r)

	inv, err := h.invitations.Transition(invitationID, actorID, models.StatusCancelled, "")
	if err != nil {
		h.writeTransitionError(w, err)
		return
	}

	h.notify(r, inv.ReceiverID, inv.ID, "cancelled an invitation", false)
	if gen := h.coordinator.Generation(); gen != nil {
		gen.Bump()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(invitations.Annotate(*inv, time.Now().UTC()))
}

// Options handles CORS preflight requests.
func (h *InvitationsHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// writeTransitionError maps lifecycle and transport failures to HTTP
// statuses. Business rejections surface as-is; an exhausted transport chain
// becomes a 502 so callers know retrying might help.
func (h *InvitationsHandler) writeTransitionError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, invitations.ErrInvitationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lifecycle.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, lifecycle.ErrAlreadyTerminal):
		status = http.StatusConflict
	case errors.Is(err, lifecycle.ErrInvalidTarget):
		status = http.StatusBadRequest
	case respond.IsTransport(err):
		status = http.StatusBadGateway
		err = errors.New("submission failed, please retry")
	}
	writeError(w, status, err)
}

// notify pushes an activity event to the other participant's session feed.
func (h *InvitationsHandler) notify(r *http.Request, recipientID, subjectID, preview string, hasAttachments bool) {
	if h.hub == nil {
		return
	}

	actorID := auth.GetUserID(r)
	displayName := actorID
	avatarRef := ""
	if user, ok := auth.GetUser(r); ok {
		if user.DisplayName != "" {
			displayName = user.DisplayName
		}
		avatarRef = user.AvatarRef
	}

	h.hub.Publish(recipientID, models.NotificationEvent{
		SubjectID: subjectID,
		ActorID:   actorID,
		Summary: models.EventSummary{
			DisplayName:    displayName,
			AvatarRef:      avatarRef,
			PreviewText:    preview,
			HasAttachments: hasAttachments,
		},
	})
}

func parseListFilter(r *http.Request) (models.ListFilter, bool) {
	filter := models.ListFilter{Type: models.ListAll, Status: "all"}

	switch t := r.URL.Query().Get("type"); t {
	case "", "all":
	case "sent":
		filter.Type = models.ListSent
	case "received":
		filter.Type = models.ListReceived
	default:
		return models.ListFilter{}, false
	}

	switch s := r.URL.Query().Get("status"); s {
	case "", "all":
	default:
		status := models.InvitationStatus(s)
		if !models.ValidStatus(status) {
			return models.ListFilter{}, false
		}
		filter.Status = status
	}

	return filter, true
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
