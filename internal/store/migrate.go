package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schema holds the DDL applied at startup. Every statement is idempotent
// so repeated boots are safe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL CHECK (role IN ('admin', 'staff', 'student')),
		name          TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS classes (
		id         SERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		teacher_id UUID REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS class_students (
		class_id   INT NOT NULL REFERENCES classes(id),
		student_id UUID NOT NULL REFERENCES users(id),
		roll_no    TEXT NOT NULL,
		UNIQUE (class_id, student_id)
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id          UUID PRIMARY KEY,
		class_id    INT NOT NULL REFERENCES classes(id),
		date        DATE NOT NULL,
		recorder_id UUID NOT NULL REFERENCES users(id),
		roster      JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT attendance_records_class_date_recorder_key UNIQUE (class_id, date, recorder_id)
	)`,
	`CREATE TABLE IF NOT EXISTS self_marks (
		id         UUID PRIMARY KEY,
		student_id UUID NOT NULL REFERENCES users(id),
		date       DATE NOT NULL,
		status     TEXT NOT NULL CHECK (status IN ('present', 'absent', 'late')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT self_marks_student_date_key UNIQUE (student_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS leave_requests (
		id                UUID PRIMARY KEY,
		student_id        UUID NOT NULL REFERENCES users(id),
		date              DATE NOT NULL,
		duration          INT NOT NULL CHECK (duration BETWEEN 1 AND 30),
		class_label       TEXT NOT NULL,
		reason            TEXT NOT NULL,
		emergency_contact TEXT NOT NULL,
		status            TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
		updated_by        UUID REFERENCES users(id),
		updated_at        TIMESTAMPTZ,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS leave_requests_active_student_date_key
		ON leave_requests (student_id, date)
		WHERE status IN ('pending', 'approved')`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id         UUID PRIMARY KEY,
		user_id    UUID NOT NULL REFERENCES users(id),
		type       TEXT NOT NULL,
		message    TEXT NOT NULL,
		data       JSONB,
		read       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS attendance_records_date_idx ON attendance_records (date)`,
	`CREATE INDEX IF NOT EXISTS self_marks_date_idx ON self_marks (date)`,
	`CREATE INDEX IF NOT EXISTS notifications_user_unread_idx ON notifications (user_id) WHERE NOT read`,
}

// Migrate applies the schema to the database.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
