package respond

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/avast/retry-go/v4"

	"convene/models"
)

var ErrNoSubmitters = errors.New("no submission strategies configured")

const (
	// DefaultAttemptTimeout bounds a single submission attempt. The
	// coordinator as a whole has no tighter deadline; callers needing one
	// impose it through ctx.
	DefaultAttemptTimeout = 10 * time.Second

	// attemptsPerStrategy is how many times one strategy is tried before
	// falling through to the next. Only transport failures are retried.
	attemptsPerStrategy = 2

	retryDelay = 250 * time.Millisecond
)

// Coordinator commits a user's accept/decline/cancel decision through an
// ordered chain of submission strategies, stopping at the first success. A
// business rejection from any strategy ends the chain immediately: falling
// through on a validated "no" would just re-ask the same question on a path
// that might answer differently. Strategies run sequentially, never in
// parallel, so at most one durable mutation can occur.
type Coordinator struct {
	submitters     []Submitter
	gen            *Generation
	attemptTimeout time.Duration
}

// NewCoordinator creates a coordinator over the given strategy chain.
// attemptTimeout <= 0 selects DefaultAttemptTimeout. gen may be nil when no
// consumer needs refresh signals.
func NewCoordinator(submitters []Submitter, gen *Generation, attemptTimeout time.Duration) *Coordinator {
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	return &Coordinator{
		submitters:     submitters,
		gen:            gen,
		attemptTimeout: attemptTimeout,
	}
}

// Generation returns the refresh token bumped after each committed response.
func (c *Coordinator) Generation() *Generation {
	return c.gen
}

// Respond submits the action until one strategy commits it. On success the
// generation token is bumped so dependent views re-query the store. If every
// strategy fails at the transport level the last transport error is
// returned and nothing was mutated.
func (c *Coordinator) Respond(ctx context.Context, invitationID, actorID string, target models.InvitationStatus, message string) (*models.Invitation, error) {
	if len(c.submitters) == 0 {
		return nil, ErrNoSubmitters
	}

	req := Request{
		InvitationID: invitationID,
		ActorID:      actorID,
		Target:       target,
		Message:      message,
	}

	var lastErr error
	for _, sub := range c.submitters {
		var result *models.Invitation

		err := retry.Do(
			func() error {
				attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
				defer cancel()

				inv, err := sub.Submit(attemptCtx, req)
				if err != nil {
					return err
				}
				result = inv
				return nil
			},
			retry.Context(ctx),
			retry.Attempts(attemptsPerStrategy),
			retry.Delay(retryDelay),
			retry.DelayType(retry.FixedDelay),
			retry.LastErrorOnly(true),
			retry.RetryIf(IsTransport),
		)
		if err == nil {
			if c.gen != nil {
				c.gen.Bump()
			}
			return result, nil
		}

		if !IsTransport(err) {
			// Validated rejection; callers must see it unchanged.
			return nil, err
		}

		log.Printf("[respond] strategy %s failed for invitation %s: %v", sub.Name(), invitationID, err)
		lastErr = err
	}

	return nil, lastErr
}
