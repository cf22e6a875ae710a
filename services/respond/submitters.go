package respond

import (
	"context"

	"convene/models"
)

// Request is the single intended user action a submitter carries.
type Request struct {
	InvitationID string
	ActorID      string
	Target       models.InvitationStatus
	Message      string
}

// Submitter is one way of delivering a response to the invitation store.
// Implementations must return a *TransportError (or a deadline error) for
// delivery failures and pass business rejections through untouched.
type Submitter interface {
	Name() string
	Submit(ctx context.Context, req Request) (*models.Invitation, error)
}

// TransitionService is the slice of the invitations service the submitters
// need.
type TransitionService interface {
	Transition(id, actorID string, target models.InvitationStatus, responseMessage string) (*models.Invitation, error)
}

// fullSubmitter delivers the complete payload, response message included.
type fullSubmitter struct {
	svc TransitionService
}

func (s *fullSubmitter) Name() string { return "full" }

func (s *fullSubmitter) Submit(ctx context.Context, req Request) (*models.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.svc.Transition(req.InvitationID, req.ActorID, req.Target, req.Message)
}

// reducedSubmitter delivers status only, for endpoints that reject the full
// payload shape. The response message is dropped, not the response itself.
type reducedSubmitter struct {
	svc TransitionService
}

func (s *reducedSubmitter) Name() string { return "reduced" }

func (s *reducedSubmitter) Submit(ctx context.Context, req Request) (*models.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.svc.Transition(req.InvitationID, req.ActorID, req.Target, "")
}

// legacySubmitter is the last-resort minimal path. It still routes through
// the lifecycle rules: there is no direct status write that skips validation.
type legacySubmitter struct {
	svc TransitionService
}

func (s *legacySubmitter) Name() string { return "legacy" }

func (s *legacySubmitter) Submit(ctx context.Context, req Request) (*models.Invitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.svc.Transition(req.InvitationID, req.ActorID, req.Target, "")
}

// DefaultSubmitters returns the production strategy chain in priority order.
func DefaultSubmitters(svc TransitionService) []Submitter {
	return []Submitter{
		&fullSubmitter{svc: svc},
		&reducedSubmitter{svc: svc},
		&legacySubmitter{svc: svc},
	}
}
