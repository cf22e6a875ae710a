package invitations

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"convene/internal/database"
	"convene/models"
	"convene/services/lifecycle"
)

var (
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrSelfInvitation       = errors.New("sender and receiver must be different users")
	ErrParticipantRequired  = errors.New("sender and receiver are required")
	ErrTopicRequired        = errors.New("session topic is required")
	ErrProposedDateRequired = errors.New("session proposed date is required")
	ErrInvalidDuration      = errors.New("session duration must be positive")
)

// Service is the source of truth for invitations. It validates creation
// input, routes every transition through the lifecycle rules, and serializes
// writes per invitation id so racing transitions cannot both commit.
type Service struct {
	repo *database.InvitationRepository

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewService creates an invitations service over the given repository.
func NewService(repo *database.InvitationRepository) *Service {
	return &Service{
		repo:  repo,
		locks: make(map[string]*sync.Mutex),
	}
}

// View is an invitation annotated with its read-time derived expiration
// state. The derived fields are never persisted.
type View struct {
	models.Invitation
	IsExpired     bool   `json:"isExpired"`
	TimeRemaining string `json:"timeRemaining,omitempty"`
}

// Create stores a new pending invitation from sender to receiver.
func (s *Service) Create(senderID, receiverID string, session models.SessionDetails, message string) (*models.Invitation, error) {
	if senderID == "" || receiverID == "" {
		return nil, ErrParticipantRequired
	}
	if senderID == receiverID {
		return nil, ErrSelfInvitation
	}
	if session.Topic == "" {
		return nil, ErrTopicRequired
	}
	if session.ProposedDate.IsZero() {
		return nil, ErrProposedDateRequired
	}
	if session.Duration <= 0 {
		return nil, ErrInvalidDuration
	}

	now := time.Now().UTC()
	inv := &models.Invitation{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.StatusPending,
		Session:    session,
		Message:    message,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Get returns the invitation with the given id.
func (s *Service) Get(id string) (*models.Invitation, error) {
	inv, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrInvitationNotFound
	}
	return inv, nil
}

// List returns the invitations visible to userID under the filter, newest
// first, annotated with expiration state computed against the current time.
func (s *Service) List(userID string, filter models.ListFilter) ([]View, error) {
	invitations, err := s.repo.List(userID, filter)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	views := make([]View, 0, len(invitations))
	for _, inv := range invitations {
		views = append(views, Annotate(inv, now))
	}
	return views, nil
}

// Count returns how many invitations match the filter for userID.
func (s *Service) Count(userID string, filter models.ListFilter) (int, error) {
	return s.repo.Count(userID, filter)
}

// Transition moves an invitation to a terminal status on behalf of actorID.
// The response message is recorded only for accept and decline. A second
// transition on the same invitation, even racing with the first, observes
// lifecycle.ErrAlreadyTerminal.
func (s *Service) Transition(id, actorID string, target models.InvitationStatus, responseMessage string) (*models.Invitation, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	inv, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.ValidateTransition(*inv, actorID, target); err != nil {
		if errors.Is(err, lifecycle.ErrAlreadyTerminal) {
			s.evictLock(id)
		}
		return nil, err
	}

	if target == models.StatusCancelled {
		responseMessage = ""
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(id, target, responseMessage, now); err != nil {
		// The row guard is the backstop for writers outside this
		// process; inside it the per-id lock already serialized us.
		if errors.Is(err, database.ErrNoRowsUpdated) {
			s.evictLock(id)
			return nil, lifecycle.ErrAlreadyTerminal
		}
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	// Terminal now, so no later transition needs serializing.
	s.evictLock(id)

	inv.Status = target
	inv.ResponseMessage = responseMessage
	inv.UpdatedAt = now
	return inv, nil
}

// IsValidationError reports whether err is one of this service's creation
// validation failures.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrSelfInvitation) ||
		errors.Is(err, ErrParticipantRequired) ||
		errors.Is(err, ErrTopicRequired) ||
		errors.Is(err, ErrProposedDateRequired) ||
		errors.Is(err, ErrInvalidDuration)
}

func (s *Service) lockFor(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// evictLock drops the per-id mutex once the invitation is terminal, so the
// map does not grow with history. A goroutine that already fetched the old
// mutex may still lock it, but its write is stopped by the pending-only row
// guard.
func (s *Service) evictLock(id string) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	delete(s.locks, id)
}

// Annotate attaches the read-time expiration state to an invitation.
func Annotate(inv models.Invitation, now time.Time) View {
	exp := lifecycle.ComputeExpiry(inv, now)
	return View{
		Invitation:    inv,
		IsExpired:     exp.Expired,
		TimeRemaining: exp.Display,
	}
}
