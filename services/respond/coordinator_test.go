package respond

import (
	"context"
	"errors"
	"testing"
	"time"

	"convene/models"
	"convene/services/lifecycle"
)

type scriptedSubmitter struct {
	name  string
	calls int
	fn    func(req Request) (*models.Invitation, error)
}

func (s *scriptedSubmitter) Name() string { return s.name }

func (s *scriptedSubmitter) Submit(ctx context.Context, req Request) (*models.Invitation, error) {
	s.calls++
	return s.fn(req)
}

func accepted(id string) *models.Invitation {
	return &models.Invitation{ID: id, Status: models.StatusAccepted}
}

func transportFailure(name string) *scriptedSubmitter {
	return &scriptedSubmitter{
		name: name,
		fn: func(Request) (*models.Invitation, error) {
			return nil, NewTransportError(name, errors.New("connection refused"))
		},
	}
}

func newTestCoordinator(subs ...Submitter) (*Coordinator, *Generation) {
	gen := NewGeneration()
	return NewCoordinator(subs, gen, 50*time.Millisecond), gen
}

func TestRespond_FirstStrategySucceeds(t *testing.T) {
	t.Parallel()

	full := &scriptedSubmitter{name: "full", fn: func(req Request) (*models.Invitation, error) {
		if req.Message != "gladly" {
			t.Errorf("full strategy must carry the message, got %q", req.Message)
		}
		return accepted(req.InvitationID), nil
	}}
	reduced := transportFailure("reduced")

	c, gen := newTestCoordinator(full, reduced)
	inv, err := c.Respond(context.Background(), "inv-1", "pro-1", models.StatusAccepted, "gladly")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if inv.Status != models.StatusAccepted {
		t.Fatalf("expected accepted result, got %q", inv.Status)
	}
	if reduced.calls != 0 {
		t.Fatalf("later strategy attempted after success: %d calls", reduced.calls)
	}
	if gen.Current() != 1 {
		t.Fatalf("expected generation bump to 1, got %d", gen.Current())
	}
}

func TestRespond_BusinessErrorStopsChain(t *testing.T) {
	t.Parallel()

	businessErrors := []error{
		lifecycle.ErrUnauthorized,
		lifecycle.ErrAlreadyTerminal,
		lifecycle.ErrInvalidTarget,
		errors.New("invitation not found"),
	}

	for _, businessErr := range businessErrors {
		full := &scriptedSubmitter{name: "full", fn: func(Request) (*models.Invitation, error) {
			return nil, businessErr
		}}
		reduced := transportFailure("reduced")
		legacy := transportFailure("legacy")

		c, gen := newTestCoordinator(full, reduced, legacy)
		_, err := c.Respond(context.Background(), "inv-1", "pro-1", models.StatusAccepted, "")
		if !errors.Is(err, businessErr) {
			t.Fatalf("expected %v to propagate unchanged, got %v", businessErr, err)
		}
		if full.calls != 1 {
			t.Fatalf("business rejection must not be retried, got %d calls", full.calls)
		}
		if reduced.calls != 0 || legacy.calls != 0 {
			t.Fatalf("business rejection must not trigger fallback: reduced=%d legacy=%d",
				reduced.calls, legacy.calls)
		}
		if gen.Current() != 0 {
			t.Fatal("failed response must not bump the generation")
		}
	}
}

func TestRespond_TransportErrorFallsThrough(t *testing.T) {
	t.Parallel()

	full := transportFailure("full")
	reduced := &scriptedSubmitter{name: "reduced", fn: func(req Request) (*models.Invitation, error) {
		return accepted(req.InvitationID), nil
	}}

	c, gen := newTestCoordinator(full, reduced)
	inv, err := c.Respond(context.Background(), "inv-1", "pro-1", models.StatusAccepted, "")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if inv == nil || inv.ID != "inv-1" {
		t.Fatalf("unexpected result: %+v", inv)
	}
	if full.calls != attemptsPerStrategy {
		t.Fatalf("expected %d retried attempts on transport failure, got %d", attemptsPerStrategy, full.calls)
	}
	if gen.Current() != 1 {
		t.Fatalf("expected generation bump, got %d", gen.Current())
	}
}

func TestRespond_TimeoutCountsAsTransport(t *testing.T) {
	t.Parallel()

	slow := &scriptedSubmitter{name: "full", fn: func(Request) (*models.Invitation, error) {
		return nil, context.DeadlineExceeded
	}}
	legacy := &scriptedSubmitter{name: "legacy", fn: func(req Request) (*models.Invitation, error) {
		return accepted(req.InvitationID), nil
	}}

	c, _ := newTestCoordinator(slow, legacy)
	if _, err := c.Respond(context.Background(), "inv-1", "pro-1", models.StatusAccepted, ""); err != nil {
		t.Fatalf("expected legacy strategy to rescue a timed-out chain: %v", err)
	}
	if legacy.calls != 1 {
		t.Fatalf("expected exactly one legacy call, got %d", legacy.calls)
	}
}

func TestRespond_AllStrategiesFailReturnsLastError(t *testing.T) {
	t.Parallel()

	full := transportFailure("full")
	reduced := transportFailure("reduced")
	legacy := transportFailure("legacy")

	c, gen := newTestCoordinator(full, reduced, legacy)
	_, err := c.Respond(context.Background(), "inv-1", "pro-1", models.StatusAccepted, "")
	if err == nil {
		t.Fatal("expected error when every strategy fails")
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected a transport error, got %v", err)
	}
	if te.Op != "legacy" {
		t.Fatalf("expected the last strategy's error, got op %q", te.Op)
	}
	if gen.Current() != 0 {
		t.Fatal("all-fail must not bump the generation")
	}
}

func TestRespond_ScenarioTwoTimeoutsThenLegacyCommitsOnce(t *testing.T) {
	t.Parallel()

	commits := 0
	full := transportFailure("full")
	reduced := transportFailure("reduced")
	legacy := &scriptedSubmitter{name: "legacy", fn: func(req Request) (*models.Invitation, error) {
		commits++
		return accepted(req.InvitationID), nil
	}}

	c, _ := newTestCoordinator(full, reduced, legacy)
	inv, err := c.Respond(context.Background(), "inv-1", "pro-1", models.StatusAccepted, "")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if inv.Status != models.StatusAccepted {
		t.Fatalf("expected committed status, got %q", inv.Status)
	}
	if commits != 1 {
		t.Fatalf("expected exactly one durable mutation, got %d", commits)
	}
}

func TestRespond_NoSubmitters(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(nil, nil, 0)
	if _, err := c.Respond(context.Background(), "inv-1", "pro-1", models.StatusAccepted, ""); !errors.Is(err, ErrNoSubmitters) {
		t.Fatalf("expected ErrNoSubmitters, got %v", err)
	}
}

func TestGeneration_BumpAndWatch(t *testing.T) {
	t.Parallel()

	gen := NewGeneration()
	if gen.Current() != 0 {
		t.Fatalf("expected initial generation 0, got %d", gen.Current())
	}

	// Bump must never block, even with no watcher draining.
	for i := 0; i < 10; i++ {
		gen.Bump()
	}
	if gen.Current() != 10 {
		t.Fatalf("expected generation 10, got %d", gen.Current())
	}

	select {
	case <-gen.Watch():
	default:
		t.Fatal("expected a pending watch signal after bumps")
	}
	select {
	case <-gen.Watch():
		t.Fatal("expected at most one pending signal")
	default:
	}
}

func TestIsTransport(t *testing.T) {
	t.Parallel()

	if !IsTransport(NewTransportError("full", errors.New("boom"))) {
		t.Fatal("TransportError must classify as transport")
	}
	if !IsTransport(context.DeadlineExceeded) {
		t.Fatal("deadline expiry must classify as transport")
	}
	if IsTransport(lifecycle.ErrAlreadyTerminal) {
		t.Fatal("business error must not classify as transport")
	}
	if IsTransport(errors.New("validation failed")) {
		t.Fatal("unknown errors must not classify as transport")
	}
}
