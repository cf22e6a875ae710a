package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"convene/models"
)

var (
	// ErrUnauthorized means the actor is not allowed to perform the
	// requested transition (wrong side of the invitation).
	ErrUnauthorized = errors.New("actor not authorized for this transition")
	// ErrAlreadyTerminal means the invitation already left pending.
	// Returned for any transition attempt on a non-pending invitation,
	// including a repeat of the transition that made it terminal, so a
	// double submission is never masked as success.
	ErrAlreadyTerminal = errors.New("invitation already responded to")
	// ErrInvalidTarget means the requested target status is not a legal
	// transition destination.
	ErrInvalidTarget = errors.New("invalid target status")
)

// ExpiryDisplayFloor is the remaining-time display used for anything under an
// hour. Minute-level countdowns flicker, so everything below an hour reports
// the same sentinel.
const ExpiryDisplayFloor = "less than 1 hour"

// Expiry is the read-time derived expiration state of an invitation. It is
// never persisted.
type Expiry struct {
	Expired   bool          `json:"expired"`
	Remaining time.Duration `json:"-"`
	Display   string        `json:"timeRemaining"`
}

// ValidateTransition checks whether actorID may move inv to target.
//
// Rules: the receiver may move pending to accepted or declined; the sender
// may move pending to cancelled. Any attempt on a non-pending invitation
// fails with ErrAlreadyTerminal regardless of actor or target. All errors are
// terminal; callers must not retry them.
func ValidateTransition(inv models.Invitation, actorID string, target models.InvitationStatus) error {
	switch target {
	case models.StatusAccepted, models.StatusDeclined:
		if inv.Status != models.StatusPending {
			return ErrAlreadyTerminal
		}
		if actorID != inv.ReceiverID {
			return ErrUnauthorized
		}
		return nil
	case models.StatusCancelled:
		if inv.Status != models.StatusPending {
			return ErrAlreadyTerminal
		}
		if actorID != inv.SenderID {
			return ErrUnauthorized
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}
}

// ComputeExpiry derives the expiration state of inv at the given time.
// Only a pending invitation whose proposed date is strictly in the past is
// expired; terminal invitations keep their terminal status and never report
// as expired.
func ComputeExpiry(inv models.Invitation, now time.Time) Expiry {
	if inv.Status != models.StatusPending {
		return Expiry{}
	}

	remaining := inv.Session.ProposedDate.Sub(now)
	if remaining < 0 {
		return Expiry{Expired: true, Display: "Expired"}
	}

	return Expiry{
		Remaining: remaining,
		Display:   displayRemaining(remaining),
	}
}

// displayRemaining buckets a non-negative duration to day or hour granularity.
func displayRemaining(d time.Duration) string {
	switch {
	case d >= 48*time.Hour:
		return fmt.Sprintf("%d days", int(d.Hours())/24)
	case d >= 24*time.Hour:
		return "1 day"
	case d >= 2*time.Hour:
		return fmt.Sprintf("%d hours", int(d.Hours()))
	case d >= time.Hour:
		return "1 hour"
	default:
		return ExpiryDisplayFloor
	}
}
