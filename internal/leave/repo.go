package leave

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"schoolattend/internal/apperr"
	"schoolattend/internal/store"
)

// Request statuses. pending is the only non-terminal state.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Request is one leave request with its decision trail.
type Request struct {
	ID               string     `json:"id"`
	StudentID        string     `json:"studentId"`
	Date             time.Time  `json:"date"`
	Duration         int        `json:"duration"`
	ClassLabel       string     `json:"class"`
	Reason           string     `json:"reason"`
	EmergencyContact string     `json:"emergencyContact"`
	Status           string     `json:"status"`
	UpdatedBy        *string    `json:"updatedBy,omitempty"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// StaffView is a request joined with the student's display name.
type StaffView struct {
	Request
	StudentName string `json:"studentName"`
}

const dateLayout = "2006-01-02"

// Repository persists leave requests in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a pending request. The partial unique index on active
// (student, date) pairs rejects a second pending-or-approved request for
// the same day atomically.
func (r *Repository) Insert(ctx context.Context, req Request) (Request, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Status = StatusPending
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO leave_requests (id, student_id, date, duration, class_label, reason, emergency_contact, status)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, req.ID, req.StudentID, req.Date.Format(dateLayout), req.Duration,
		req.ClassLabel, req.Reason, req.EmergencyContact, req.Status)
	if err := row.Scan(&req.CreatedAt); err != nil {
		if store.IsUniqueViolation(err, "leave_requests_active") {
			return Request{}, apperr.Duplicatef("Leave request already exists for this date")
		}
		return Request{}, err
	}
	return req, nil
}

// Get returns a request by id, or nil.
func (r *Repository) Get(ctx context.Context, id string) (*Request, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, date, duration, class_label, reason, emergency_contact,
		       status, updated_by, updated_at, created_at
		FROM leave_requests WHERE id = $1
	`, id)
	var req Request
	err := row.Scan(&req.ID, &req.StudentID, &req.Date, &req.Duration, &req.ClassLabel,
		&req.Reason, &req.EmergencyContact, &req.Status, &req.UpdatedBy, &req.UpdatedAt, &req.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// Decide moves a pending request to a terminal status. The status guard is
// in the statement itself, so a concurrent decision loses cleanly.
func (r *Repository) Decide(ctx context.Context, id, status, staffID string) (*Request, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE leave_requests
		SET status = $2, updated_by = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING id, student_id, date, duration, class_label, reason, emergency_contact,
		          status, updated_by, updated_at, created_at
	`, id, status, staffID, StatusPending)
	var req Request
	err := row.Scan(&req.ID, &req.StudentID, &req.Date, &req.Duration, &req.ClassLabel,
		&req.Reason, &req.EmergencyContact, &req.Status, &req.UpdatedBy, &req.UpdatedAt, &req.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// ListByStudent returns a student's own requests, newest first.
func (r *Repository) ListByStudent(ctx context.Context, studentID string) ([]Request, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, date, duration, class_label, reason, emergency_contact,
		       status, updated_by, updated_at, created_at
		FROM leave_requests
		WHERE student_id = $1
		ORDER BY date DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Request
	for rows.Next() {
		var req Request
		if err := rows.Scan(&req.ID, &req.StudentID, &req.Date, &req.Duration, &req.ClassLabel,
			&req.Reason, &req.EmergencyContact, &req.Status, &req.UpdatedBy, &req.UpdatedAt, &req.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// ListAll returns every request with the student's name, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]StaffView, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT l.id, l.student_id, l.date, l.duration, l.class_label, l.reason,
		       l.emergency_contact, l.status, l.updated_by, l.updated_at, l.created_at,
		       u.name
		FROM leave_requests l JOIN users u ON u.id = l.student_id
		ORDER BY l.date DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StaffView
	for rows.Next() {
		var v StaffView
		if err := rows.Scan(&v.ID, &v.StudentID, &v.Date, &v.Duration, &v.ClassLabel, &v.Reason,
			&v.EmergencyContact, &v.Status, &v.UpdatedBy, &v.UpdatedAt, &v.CreatedAt, &v.StudentName); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
