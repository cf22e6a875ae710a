package models

// EventSummary is the display payload attached to a notification event.
type EventSummary struct {
	DisplayName    string `json:"displayName"`
	AvatarRef      string `json:"avatarRef,omitempty"`
	PreviewText    string `json:"previewText,omitempty"`
	HasAttachments bool   `json:"hasAttachments"`
}

// NotificationEvent is one piece of pushed activity (new message, new
// invitation) for a recipient's session feed. Events are ephemeral: they are
// never written to durable storage.
type NotificationEvent struct {
	ID        int64        `json:"id"` // per-session ordering token
	SubjectID string       `json:"subjectId"`
	ActorID   string       `json:"actorId"`
	Summary   EventSummary `json:"summary"`
}
