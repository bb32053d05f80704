package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"schoolattend/internal/apperr"
	"schoolattend/internal/store"
)

// Roles a user record can carry. Role never changes after provisioning.
const (
	RoleAdmin   = "admin"
	RoleStaff   = "staff"
	RoleStudent = "student"
)

// User is a credential-store record.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
}

// Class is a directory entry; students belong to at most one class.
type Class struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	TeacherName string `json:"teacher"`
}

// RosterEntry identifies one student on a class marking screen.
type RosterEntry struct {
	RollNo string `json:"rollNo"`
	Name   string `json:"name"`
}

// Repository persists users and classes in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a user. Username and email collisions surface as
// duplicate errors.
func (r *Repository) Create(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, role, name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.Name)
	if err := row.Scan(&u.CreatedAt); err != nil {
		if store.IsUniqueViolation(err, "username") {
			return User{}, apperr.Duplicatef("username already taken")
		}
		if store.IsUniqueViolation(err, "email") {
			return User{}, apperr.Duplicatef("email already registered")
		}
		return User{}, err
	}
	return u, nil
}

// GetByUsername returns the user or nil when absent.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, `
		SELECT id, username, email, password_hash, role, name, created_at
		FROM users WHERE username = $1
	`, username)
}

// GetByID returns the user or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, `
		SELECT id, username, email, password_hash, role, name, created_at
		FROM users WHERE id = $1
	`, id)
}

// GetByEmailAndRole backs the forgot-password lookup.
func (r *Repository) GetByEmailAndRole(ctx context.Context, email, role string) (*User, error) {
	return r.getOne(ctx, `
		SELECT id, username, email, password_hash, role, name, created_at
		FROM users WHERE email = $1 AND role = $2
	`, email, role)
}

func (r *Repository) getOne(ctx context.Context, query string, args ...any) (*User, error) {
	var u User
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Name, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// CountByRole counts users holding a role.
func (r *Repository) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&n)
	return n, err
}

// IDsByRole lists user ids holding a role; used for staff-wide notification fan-out.
func (r *Repository) IDsByRole(ctx context.Context, role string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users WHERE role = $1`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListClasses returns all classes with their teacher's display name.
func (r *Repository) ListClasses(ctx context.Context) ([]Class, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, COALESCE(u.name, '')
		FROM classes c LEFT JOIN users u ON u.id = c.teacher_id
		ORDER BY c.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var classes []Class
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.ID, &c.Name, &c.TeacherName); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// ClassRoster lists the students enrolled in a class, ordered by roll number.
func (r *Repository) ClassRoster(ctx context.Context, classID int) ([]RosterEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT cs.roll_no, u.name
		FROM class_students cs JOIN users u ON u.id = cs.student_id
		WHERE cs.class_id = $1
		ORDER BY cs.roll_no
	`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roster []RosterEntry
	for rows.Next() {
		var e RosterEntry
		if err := rows.Scan(&e.RollNo, &e.Name); err != nil {
			return nil, err
		}
		roster = append(roster, e)
	}
	return roster, rows.Err()
}

// StudentClass returns the class a student belongs to, or nil when unassigned.
// Queries assume at most one membership.
func (r *Repository) StudentClass(ctx context.Context, studentID string) (*Class, error) {
	var c Class
	err := r.db.QueryRowContext(ctx, `
		SELECT c.id, c.name, COALESCE(u.name, '')
		FROM class_students cs
		JOIN classes c ON c.id = cs.class_id
		LEFT JOIN users u ON u.id = c.teacher_id
		WHERE cs.student_id = $1
		LIMIT 1
	`, studentID).Scan(&c.ID, &c.Name, &c.TeacherName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// StudentRollNo returns the student's roll number within their class, or ""
// when the student is not enrolled anywhere.
func (r *Repository) StudentRollNo(ctx context.Context, studentID string) (string, error) {
	var rollNo string
	err := r.db.QueryRowContext(ctx, `
		SELECT roll_no FROM class_students WHERE student_id = $1 LIMIT 1
	`, studentID).Scan(&rollNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return rollNo, nil
}

// CreateClass inserts a class; used by the seeding tool.
func (r *Repository) CreateClass(ctx context.Context, name, teacherID string) (int, error) {
	var id int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO classes (name, teacher_id) VALUES ($1, $2) RETURNING id
	`, name, teacherID).Scan(&id)
	return id, err
}

// Enroll adds a student to a class with a roll number; used by the seeding tool.
func (r *Repository) Enroll(ctx context.Context, classID int, studentID, rollNo string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO class_students (class_id, student_id, roll_no)
		VALUES ($1, $2, $3)
		ON CONFLICT (class_id, student_id) DO NOTHING
	`, classID, studentID, rollNo)
	return err
}
