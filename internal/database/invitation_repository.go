package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"convene/models"
)

// ErrNoRowsUpdated is returned when a guarded status update matched no row,
// either because the invitation does not exist or because it already left
// pending.
var ErrNoRowsUpdated = errors.New("no rows updated")

// InvitationRepository handles invitation persistence.
type InvitationRepository struct {
	db *sql.DB
}

// NewInvitationRepository creates a new invitation repository.
func NewInvitationRepository(db *sql.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// Create inserts a new invitation row.
func (r *InvitationRepository) Create(inv *models.Invitation) error {
	_, err := r.db.Exec(`
		INSERT INTO invitations
			(id, sender_id, receiver_id, status, proposed_date, duration_minutes,
			 topic, message, response_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.SenderID, inv.ReceiverID, string(inv.Status),
		inv.Session.ProposedDate.UTC(), inv.Session.Duration, inv.Session.Topic,
		inv.Message, inv.ResponseMessage, inv.CreatedAt.UTC(), inv.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

// Get returns the invitation with the given id, or nil if none exists.
func (r *InvitationRepository) Get(id string) (*models.Invitation, error) {
	row := r.db.QueryRow(selectColumns+` FROM invitations WHERE id = ?`, id)
	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

// UpdateStatus moves a pending invitation to the given terminal status. The
// WHERE clause is the write-side guard: if the row already left pending the
// update matches nothing and ErrNoRowsUpdated is returned, so two racing
// transitions cannot both commit.
func (r *InvitationRepository) UpdateStatus(id string, status models.InvitationStatus, responseMessage string, updatedAt time.Time) error {
	res, err := r.db.Exec(`
		UPDATE invitations
		SET status = ?, response_message = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'`,
		string(status), responseMessage, updatedAt.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update invitation status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update invitation status: rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNoRowsUpdated
	}
	return nil
}

// filterClause builds the WHERE clause shared by List and Count.
func filterClause(userID string, filter models.ListFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	switch filter.Type {
	case models.ListSent:
		clauses = append(clauses, "sender_id = ?")
		args = append(args, userID)
	case models.ListReceived:
		clauses = append(clauses, "receiver_id = ?")
		args = append(args, userID)
	default:
		clauses = append(clauses, "(sender_id = ? OR receiver_id = ?)")
		args = append(args, userID, userID)
	}

	if filter.Status != "" && filter.Status != "all" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}

	return strings.Join(clauses, " AND "), args
}

// List returns the invitations visible to userID under the given filter,
// newest first.
func (r *InvitationRepository) List(userID string, filter models.ListFilter) ([]models.Invitation, error) {
	where, args := filterClause(userID, filter)
	query := selectColumns + ` FROM invitations WHERE ` + where + ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invitations, nil
}

// Count returns the number of invitations matching the filter for userID.
func (r *InvitationRepository) Count(userID string, filter models.ListFilter) (int, error) {
	where, args := filterClause(userID, filter)
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM invitations WHERE `+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count invitations: %w", err)
	}
	return n, nil
}

const selectColumns = `
	SELECT id, sender_id, receiver_id, status, proposed_date, duration_minutes,
	       topic, message, response_message, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row rowScanner) (*models.Invitation, error) {
	var (
		inv    models.Invitation
		status string
	)
	err := row.Scan(
		&inv.ID, &inv.SenderID, &inv.ReceiverID, &status,
		&inv.Session.ProposedDate, &inv.Session.Duration, &inv.Session.Topic,
		&inv.Message, &inv.ResponseMessage, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.Status = models.InvitationStatus(status)
	return &inv, nil
}
