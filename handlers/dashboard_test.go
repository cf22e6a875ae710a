package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"convene/handlers"
	"convene/internal/database"
	"convene/models"
	"convene/services/dashboard"
	"convene/services/invitations"
)

func setupDashboardHandler(t *testing.T) (*handlers.DashboardHandler, *invitations.Service) {
	t.Helper()

	db, err := database.NewDB(database.Config{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	invitationsSvc := invitations.NewService(database.NewInvitationRepository(db.Connection()))
	dashboardSvc := dashboard.New(invitationsSvc)

	return handlers.NewDashboardHandler(dashboardSvc), invitationsSvc
}

func testDate() time.Time {
	return time.Now().UTC().Add(48 * time.Hour)
}

func TestDashboardSummary(t *testing.T) {
	handler, svc := setupDashboardHandler(t)

	mustCreate := func(sender, receiver string) *models.Invitation {
		inv, err := svc.Create(sender, receiver, models.SessionDetails{
			ProposedDate: testDate(),
			Duration:     30,
			Topic:        "intro chat",
		}, "")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		return inv
	}

	mustCreate("alice", "bob")
	mustCreate("carol", "alice")
	accepted := mustCreate("dave", "alice")
	if _, err := svc.Transition(accepted.ID, "alice", models.StatusAccepted, ""); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	req := authed(httptest.NewRequest(http.MethodGet, "/api/dashboard/summary", nil), models.User{ID: "alice"})
	rec := httptest.NewRecorder()
	handler.Summary(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var sum dashboard.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if sum.PendingReceived != 1 || sum.PendingSent != 1 || sum.Accepted != 1 || sum.Declined != 0 {
		t.Fatalf("unexpected buckets: %+v", sum)
	}
	if sum.Total != 3 {
		t.Fatalf("expected total 3, got %d", sum.Total)
	}
	if len(sum.Degraded) != 0 {
		t.Fatalf("expected no degraded buckets, got %v", sum.Degraded)
	}
}

func TestDashboardStatusAndRefresh(t *testing.T) {
	handler, _ := setupDashboardHandler(t)

	rec := httptest.NewRecorder()
	handler.Status(rec, authed(httptest.NewRequest(http.MethodGet, "/api/dashboard/status", nil), models.User{ID: "alice"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var status dashboard.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.Running {
		t.Fatal("expected worker to be stopped before StartBackgroundRefresh")
	}

	rec = httptest.NewRecorder()
	handler.Refresh(rec, authed(httptest.NewRequest(http.MethodPost, "/api/dashboard/refresh", nil), models.User{ID: "alice"}))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rec.Code)
	}
}
