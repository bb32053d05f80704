package attendance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RosterMark is one student's mark inside a class attendance record.
type RosterMark struct {
	RollNo  string `json:"rollNo"`
	Name    string `json:"name"`
	Present bool   `json:"present"`
}

// Record is the per-class, per-date, per-recorder attendance document.
// The roster is replaced wholesale on re-save, never merged.
type Record struct {
	ID         string       `json:"id"`
	ClassID    int          `json:"classId"`
	Date       time.Time    `json:"date"`
	RecorderID string       `json:"staffId"`
	Roster     []RosterMark `json:"students"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// SelfMark is a student-initiated attendance mark, at most one per day.
type SelfMark struct {
	ID        string    `json:"id"`
	StudentID string    `json:"studentId"`
	Date      time.Time `json:"date"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryEntry is one day of a student's attendance as recorded by staff.
type HistoryEntry struct {
	Date       time.Time `json:"date"`
	Present    bool      `json:"status"`
	RecordedBy string    `json:"markedBy"`
	ClassID    int       `json:"class"`
}

// RecentEntry is one row of the dashboard's recent-activity feed.
type RecentEntry struct {
	StudentName string    `json:"studentName"`
	Date        time.Time `json:"date"`
	Status      string    `json:"status"`
	MarkedBy    string    `json:"markedBy"`
}

const dateLayout = "2006-01-02"

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Upsert writes a class attendance record atomically: one statement keyed
// on (class, date, recorder), overwriting the roster when the key already
// exists. Two different recorders for the same class/date stay independent.
func (r *Repository) Upsert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	roster, err := json.Marshal(rec.Roster)
	if err != nil {
		return Record{}, err
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, class_id, date, recorder_id, roster)
		VALUES ($1, $2, $3::date, $4, $5)
		ON CONFLICT ON CONSTRAINT attendance_records_class_date_recorder_key
		DO UPDATE SET roster = EXCLUDED.roster, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, rec.ID, rec.ClassID, rec.Date.Format(dateLayout), rec.RecorderID, roster)
	if err := row.Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Get returns the record for an exact (class, date, recorder) key, or nil.
func (r *Repository) Get(ctx context.Context, classID int, date time.Time, recorderID string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, class_id, date, recorder_id, roster, created_at, updated_at
		FROM attendance_records
		WHERE class_id = $1 AND date = $2::date AND recorder_id = $3
	`, classID, date.Format(dateLayout), recorderID)
	var rec Record
	var roster []byte
	if err := row.Scan(&rec.ID, &rec.ClassID, &rec.Date, &rec.RecorderID, &roster, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(roster, &rec.Roster); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByClass returns the recorder's own records for a class, newest
// first. from/to are optional day bounds.
func (r *Repository) ListByClass(ctx context.Context, classID int, recorderID string, from, to *time.Time, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 30
	}
	query := `
		SELECT id, class_id, date, recorder_id, roster, created_at, updated_at
		FROM attendance_records
		WHERE class_id = $1 AND recorder_id = $2`
	args := []any{classID, recorderID}
	if from != nil && to != nil {
		query += ` AND date BETWEEN $3::date AND $4::date`
		args = append(args, from.Format(dateLayout), to.Format(dateLayout))
	}
	query += fmt.Sprintf(` ORDER BY date DESC LIMIT %d`, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var rec Record
		var roster []byte
		if err := rows.Scan(&rec.ID, &rec.ClassID, &rec.Date, &rec.RecorderID, &roster, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(roster, &rec.Roster); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// HistoryByRoll scans records whose roster contains the roll number,
// newest first. from/to are optional day bounds.
func (r *Repository) HistoryByRoll(ctx context.Context, rollNo string, from, to *time.Time) ([]HistoryEntry, error) {
	query := `
		SELECT a.date, a.class_id, COALESCE(u.name, 'Staff'),
		       COALESCE((elem->>'present')::boolean, FALSE)
		FROM attendance_records a
		JOIN LATERAL jsonb_array_elements(a.roster) elem ON elem->>'rollNo' = $1
		LEFT JOIN users u ON u.id = a.recorder_id`
	args := []any{rollNo}
	if from != nil && to != nil {
		query += ` WHERE a.date BETWEEN $2::date AND $3::date`
		args = append(args, from.Format(dateLayout), to.Format(dateLayout))
	}
	query += ` ORDER BY a.date DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.Date, &e.ClassID, &e.RecordedBy, &e.Present); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// dayMark is a (date, present) pair feeding the summary aggregation.
type dayMark struct {
	date    time.Time
	present bool
}

// marksByRoll returns every staff-recorded mark for a roll number, oldest first.
func (r *Repository) marksByRoll(ctx context.Context, rollNo string) ([]dayMark, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.date, COALESCE((elem->>'present')::boolean, FALSE)
		FROM attendance_records a
		JOIN LATERAL jsonb_array_elements(a.roster) elem ON elem->>'rollNo' = $1
		ORDER BY a.date ASC
	`, rollNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var marks []dayMark
	for rows.Next() {
		var m dayMark
		if err := rows.Scan(&m.date, &m.present); err != nil {
			return nil, err
		}
		marks = append(marks, m)
	}
	return marks, rows.Err()
}

// InsertSelfMark writes a student's own mark for a day. The unique index on
// (student, date) makes the once-per-day rule atomic.
func (r *Repository) InsertSelfMark(ctx context.Context, m SelfMark) (SelfMark, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO self_marks (id, student_id, date, status)
		VALUES ($1, $2, $3::date, $4)
		RETURNING created_at
	`, m.ID, m.StudentID, m.Date.Format(dateLayout), m.Status)
	if err := row.Scan(&m.CreatedAt); err != nil {
		return SelfMark{}, err
	}
	return m, nil
}

// SelfMarkOn returns the student's mark for a day, or nil.
func (r *Repository) SelfMarkOn(ctx context.Context, studentID string, day time.Time) (*SelfMark, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, date, status, created_at
		FROM self_marks
		WHERE student_id = $1 AND date = $2::date
	`, studentID, day.Format(dateLayout))
	var m SelfMark
	if err := row.Scan(&m.ID, &m.StudentID, &m.Date, &m.Status, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// CountsOn aggregates self-mark statuses for one day.
func (r *Repository) CountsOn(ctx context.Context, day time.Time) (present, absent, late int, err error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM self_marks WHERE date = $1::date GROUP BY status
	`, day.Format(dateLayout))
	if err != nil {
		return 0, 0, 0, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return 0, 0, 0, err
		}
		switch status {
		case StatusPresent:
			present = n
		case StatusAbsent:
			absent = n
		case StatusLate:
			late = n
		}
	}
	return present, absent, late, rows.Err()
}

// RecentSelfMarks returns the latest student marks for the dashboard feed.
func (r *Repository) RecentSelfMarks(ctx context.Context, limit int) ([]RecentEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.name, m.date, m.status
		FROM self_marks m JOIN users u ON u.id = m.student_id
		ORDER BY m.created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []RecentEntry
	for rows.Next() {
		var e RecentEntry
		if err := rows.Scan(&e.StudentName, &e.Date, &e.Status); err != nil {
			return nil, err
		}
		e.MarkedBy = e.StudentName
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
