package models

import "time"

// InvitationStatus is the lifecycle phase of an invitation.
type InvitationStatus string

const (
	StatusPending   InvitationStatus = "pending"
	StatusAccepted  InvitationStatus = "accepted"
	StatusDeclined  InvitationStatus = "declined"
	StatusCancelled InvitationStatus = "cancelled"
)

// ValidStatus reports whether s is one of the four known statuses.
func ValidStatus(s InvitationStatus) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s is a final status. Terminal invitations are
// immutable and are retained for history.
func (s InvitationStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusDeclined || s == StatusCancelled
}

// SessionDetails describes the proposed conversation.
type SessionDetails struct {
	ProposedDate time.Time `json:"proposedDate"`
	Duration     int       `json:"duration"` // minutes
	Topic        string    `json:"topic"`
}

// Invitation represents a meeting request from a sender to a receiver.
// Status starts at pending and is mutated at most once: the receiver accepts
// or declines, or the sender cancels. ProposedDate is immutable after
// creation; rescheduling is modeled as a new invitation.
type Invitation struct {
	ID              string           `json:"id"`
	SenderID        string           `json:"senderId"`
	ReceiverID      string           `json:"receiverId"`
	Status          InvitationStatus `json:"status"`
	Session         SessionDetails   `json:"sessionDetails"`
	Message         string           `json:"message,omitempty"`
	ResponseMessage string           `json:"responseMessage,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// ListType selects which side of an invitation a user must be on.
type ListType string

const (
	ListSent     ListType = "sent"
	ListReceived ListType = "received"
	ListAll      ListType = "all"
)

// ListFilter narrows an invitation listing for one user.
// Status "" or "all" means any status.
type ListFilter struct {
	Type   ListType
	Status InvitationStatus
}
