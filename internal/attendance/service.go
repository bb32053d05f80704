package attendance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"schoolattend/internal/apperr"
	"schoolattend/internal/queue"
	"schoolattend/internal/store"
	"schoolattend/internal/user"
)

// Self-mark statuses.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
)

// Stats is the dashboard aggregate for one day.
type Stats struct {
	TotalStudents    int           `json:"totalStudents"`
	PresentToday     int           `json:"presentToday"`
	AbsentToday      int           `json:"absentToday"`
	LateToday        int           `json:"lateToday"`
	RecentAttendance []RecentEntry `json:"recentAttendance"`
}

// MonthlyBucket is one month's attendance percentage for the student summary.
type MonthlyBucket struct {
	Month      string `json:"month"`
	Percentage string `json:"percentage"`
}

// Summary aggregates a student's whole attendance history.
type Summary struct {
	TotalClasses int             `json:"totalClasses"`
	PresentCount int             `json:"presentCount"`
	AbsentCount  int             `json:"absentCount"`
	MonthlyData  []MonthlyBucket `json:"monthlyData"`
}

// SubjectBucket is one subject's share of a student's attendance. Records
// carry no subject split, so every mark lands in the General bucket.
type SubjectBucket struct {
	Name       string `json:"name"`
	Total      int    `json:"total"`
	Present    int    `json:"present"`
	Percentage string `json:"percentage"`
}

// Ledger is the persistence surface the service works against.
type Ledger interface {
	Upsert(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, classID int, date time.Time, recorderID string) (*Record, error)
	ListByClass(ctx context.Context, classID int, recorderID string, from, to *time.Time, limit int) ([]Record, error)
	HistoryByRoll(ctx context.Context, rollNo string, from, to *time.Time) ([]HistoryEntry, error)
	marksByRoll(ctx context.Context, rollNo string) ([]dayMark, error)
	InsertSelfMark(ctx context.Context, m SelfMark) (SelfMark, error)
	SelfMarkOn(ctx context.Context, studentID string, day time.Time) (*SelfMark, error)
	CountsOn(ctx context.Context, day time.Time) (present, absent, late int, err error)
	RecentSelfMarks(ctx context.Context, limit int) ([]RecentEntry, error)
}

// Service coordinates the attendance ledger and its realtime fan-out.
type Service struct {
	repo  Ledger
	users *user.Repository
	bus   queue.Queue
}

// NewService creates a service backed by a ledger and the event bus.
func NewService(repo Ledger, users *user.Repository, bus queue.Queue) *Service {
	return &Service{repo: repo, users: users, bus: bus}
}

// SaveRoster upserts the attendance record for (class, date, recorder) and
// broadcasts an attendanceUpdate event to the class room. The roster
// replaces any previously saved one for the same key.
func (s *Service) SaveRoster(ctx context.Context, classID int, date string, roster []RosterMark, recorderID string) (Record, error) {
	if classID <= 0 {
		return Record{}, apperr.Validationf("Missing required fields: classId, date, or students")
	}
	if len(roster) == 0 {
		return Record{}, apperr.Validationf("Missing required fields: classId, date, or students")
	}
	day, err := parseDate(date)
	if err != nil {
		return Record{}, apperr.Validationf("invalid date %q", date)
	}

	rec, err := s.repo.Upsert(ctx, Record{
		ClassID:    classID,
		Date:       day,
		RecorderID: recorderID,
		Roster:     roster,
	})
	if err != nil {
		return Record{}, apperr.Storage(err)
	}

	msg, err := updateEvent(classID, date, roster)
	if err == nil {
		err = s.bus.Publish(ctx, msg)
	}
	if err != nil {
		// Fan-out is best effort; the save already succeeded.
		log.Warn().Err(err).Int("class", classID).Msg("attendance update publish failed")
	}
	return rec, nil
}

// MarkSelf records a student's own attendance for the current day. The
// second call on the same calendar day fails as a duplicate.
func (s *Service) MarkSelf(ctx context.Context, studentID, status string) (SelfMark, error) {
	switch status {
	case StatusPresent, StatusAbsent, StatusLate:
	default:
		return SelfMark{}, apperr.Validationf("invalid status %q", status)
	}
	day := startOfDay(time.Now())
	existing, err := s.repo.SelfMarkOn(ctx, studentID, day)
	if err != nil {
		return SelfMark{}, apperr.Storage(err)
	}
	if existing != nil {
		return SelfMark{}, apperr.Duplicatef("Attendance already marked for today")
	}
	mark, err := s.repo.InsertSelfMark(ctx, SelfMark{StudentID: studentID, Date: day, Status: status})
	if err != nil {
		if store.IsUniqueViolation(err, "self_marks") {
			return SelfMark{}, apperr.Duplicatef("Attendance already marked for today")
		}
		return SelfMark{}, apperr.Storage(err)
	}
	return mark, nil
}

// Today returns the student's self mark for the current day, or nil.
func (s *Service) Today(ctx context.Context, studentID string) (*SelfMark, error) {
	mark, err := s.repo.SelfMarkOn(ctx, studentID, startOfDay(time.Now()))
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return mark, nil
}

// History returns the student's staff-recorded attendance, newest first.
// from/to are optional "2006-01-02" bounds; both or neither must be set.
func (s *Service) History(ctx context.Context, studentID, from, to string) ([]HistoryEntry, error) {
	rollNo, err := s.users.StudentRollNo(ctx, studentID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if rollNo == "" {
		return nil, nil
	}
	var fromDay, toDay *time.Time
	if from != "" && to != "" {
		f, err := parseDate(from)
		if err != nil {
			return nil, apperr.Validationf("invalid start date %q", from)
		}
		t, err := parseDate(to)
		if err != nil {
			return nil, apperr.Validationf("invalid end date %q", to)
		}
		fromDay, toDay = &f, &t
	}
	entries, err := s.repo.HistoryByRoll(ctx, rollNo, fromDay, toDay)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return entries, nil
}

// Summary aggregates the student's history into totals and per-month
// percentages.
func (s *Service) Summary(ctx context.Context, studentID string) (Summary, error) {
	rollNo, err := s.users.StudentRollNo(ctx, studentID)
	if err != nil {
		return Summary{}, apperr.Storage(err)
	}
	if rollNo == "" {
		return Summary{}, nil
	}
	marks, err := s.repo.marksByRoll(ctx, rollNo)
	if err != nil {
		return Summary{}, apperr.Storage(err)
	}
	return summarize(marks), nil
}

// Stats computes today's dashboard counts. Recomputed on every call.
func (s *Service) Stats(ctx context.Context, asOf time.Time) (Stats, error) {
	day := startOfDay(asOf)
	total, err := s.users.CountByRole(ctx, user.RoleStudent)
	if err != nil {
		return Stats{}, apperr.Storage(err)
	}
	present, absent, late, err := s.repo.CountsOn(ctx, day)
	if err != nil {
		return Stats{}, apperr.Storage(err)
	}
	recent, err := s.repo.RecentSelfMarks(ctx, 10)
	if err != nil {
		return Stats{}, apperr.Storage(err)
	}
	return Stats{
		TotalStudents:    total,
		PresentToday:     present,
		AbsentToday:      absent,
		LateToday:        late,
		RecentAttendance: recent,
	}, nil
}

// Subjects groups the student's recorded days by subject. subject and
// month are optional filters; "all" means no filter. The ledger keeps a
// single undifferentiated stream, so at most one General bucket comes back.
func (s *Service) Subjects(ctx context.Context, studentID, subject, month string) ([]SubjectBucket, error) {
	rollNo, err := s.users.StudentRollNo(ctx, studentID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if rollNo == "" {
		return []SubjectBucket{}, nil
	}
	marks, err := s.repo.marksByRoll(ctx, rollNo)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return subjectBuckets(marks, subject, month, time.Now().Year()), nil
}

// ClassHistory lists the caller's saved records for a class, newest first,
// capped at 30 days. from/to are optional bounds; both or neither.
func (s *Service) ClassHistory(ctx context.Context, classID int, recorderID, from, to string) ([]Record, error) {
	if classID <= 0 {
		return nil, apperr.Validationf("invalid class id")
	}
	var fromDay, toDay *time.Time
	if from != "" && to != "" {
		f, err := parseDate(from)
		if err != nil {
			return nil, apperr.Validationf("invalid start date %q", from)
		}
		t, err := parseDate(to)
		if err != nil {
			return nil, apperr.Validationf("invalid end date %q", to)
		}
		fromDay, toDay = &f, &t
	}
	records, err := s.repo.ListByClass(ctx, classID, recorderID, fromDay, toDay, 30)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return records, nil
}

// ClassRecord is the staff read-back of a saved day, scoped to the caller's
// own records.
func (s *Service) ClassRecord(ctx context.Context, classID int, date, recorderID string) (*Record, error) {
	if date == "" {
		return nil, apperr.Validationf("Date parameter is required")
	}
	day, err := parseDate(date)
	if err != nil {
		return nil, apperr.Validationf("invalid date %q", date)
	}
	rec, err := s.repo.Get(ctx, classID, day, recorderID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return rec, nil
}

// Room names the realtime channel for a class.
func Room(classID int) string {
	return fmt.Sprintf("class_%d", classID)
}

// updateEvent builds the fan-out message for a saved roster.
func updateEvent(classID int, date string, roster []RosterMark) (queue.Message, error) {
	present := 0
	for _, m := range roster {
		if m.Present {
			present++
		}
	}
	body, err := json.Marshal(map[string]any{
		"classId": classID,
		"date":    date,
		"attendance": map[string]any{
			"total":   len(roster),
			"present": present,
			"data":    roster,
		},
	})
	if err != nil {
		return queue.Message{}, err
	}
	return queue.Message{Type: "attendanceUpdate", Room: Room(classID), Body: body}, nil
}

const generalSubject = "General"

// subjectBuckets filters day marks by subject name and English month name,
// then folds the survivors into per-subject totals. Only the General
// subject exists, so any other name matches nothing. The month filter is
// scoped to the given year, matching how the dashboard reads it.
func subjectBuckets(marks []dayMark, subject, month string, year int) []SubjectBucket {
	if subject != "" && subject != "all" && subject != generalSubject {
		return []SubjectBucket{}
	}
	var monthFilter time.Month
	if month != "" && month != "all" {
		t, err := time.Parse("January", month)
		if err != nil {
			return []SubjectBucket{}
		}
		monthFilter = t.Month()
	}

	total, present := 0, 0
	for _, m := range marks {
		if monthFilter != 0 && (m.date.Month() != monthFilter || m.date.Year() != year) {
			continue
		}
		total++
		if m.present {
			present++
		}
	}
	if total == 0 {
		return []SubjectBucket{}
	}
	return []SubjectBucket{{
		Name:       generalSubject,
		Total:      total,
		Present:    present,
		Percentage: fmt.Sprintf("%.2f", float64(present)/float64(total)*100),
	}}
}

// summarize folds day marks into totals and month buckets, keeping the
// months in first-seen (chronological) order.
func summarize(marks []dayMark) Summary {
	sum := Summary{MonthlyData: []MonthlyBucket{}}
	type bucket struct{ total, present int }
	months := map[string]*bucket{}
	var order []string

	for _, m := range marks {
		sum.TotalClasses++
		if m.present {
			sum.PresentCount++
		}
		label := m.date.Format("Jan 06")
		b, ok := months[label]
		if !ok {
			b = &bucket{}
			months[label] = b
			order = append(order, label)
		}
		b.total++
		if m.present {
			b.present++
		}
	}
	sum.AbsentCount = sum.TotalClasses - sum.PresentCount

	for _, label := range order {
		b := months[label]
		sum.MonthlyData = append(sum.MonthlyData, MonthlyBucket{
			Month:      label,
			Percentage: fmt.Sprintf("%.2f", float64(b.present)/float64(b.total)*100),
		})
	}
	return sum
}
