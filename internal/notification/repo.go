// Package notification is the per-user outbox of system messages. Rows are
// only ever created and flipped to read, never deleted.
package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"schoolattend/internal/apperr"
)

// Notification types produced by the leave workflow.
const (
	TypeLeaveRequest = "leave_request"
	TypeLeaveUpdate  = "leave_request_update"
)

// Notification is one outbox entry.
type Notification struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
	Read      bool            `json:"read"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Repository persists notifications in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes one notification.
func (r *Repository) Insert(ctx context.Context, n Notification) (Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	var data any
	if len(n.Data) > 0 {
		data = []byte(n.Data)
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (id, user_id, type, message, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, n.ID, n.UserID, n.Type, n.Message, data)
	if err := row.Scan(&n.CreatedAt); err != nil {
		return Notification{}, err
	}
	return n, nil
}

// InsertAll writes one notification per recipient with a shared message.
func (r *Repository) InsertAll(ctx context.Context, userIDs []string, typ, message string, data json.RawMessage) error {
	for _, id := range userIDs {
		if _, err := r.Insert(ctx, Notification{UserID: id, Type: typ, Message: message, Data: data}); err != nil {
			return err
		}
	}
	return nil
}

// ListUnread returns a user's unread notifications, newest first.
func (r *Repository) ListUnread(ctx context.Context, userID string) ([]Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, type, message, COALESCE(data, 'null'::jsonb), read, created_at
		FROM notifications
		WHERE user_id = $1 AND NOT read
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		var n Notification
		var data []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &data, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		if string(data) != "null" {
			n.Data = data
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flips the read flag. A recipient can only touch their own rows.
func (r *Repository) MarkRead(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.NotFoundf("notification not found")
	}
	return nil
}
