package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"schoolattend/internal/apperr"
	"schoolattend/internal/queue"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain day", "2024-03-01", "2024-03-01", false},
		{"rfc3339 timestamp", "2024-03-01T09:30:00Z", "", false},
		{"empty", "", "", true},
		{"garbage", "first of march", "", true},
		{"partial", "2024-03", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.want != "" && got.Format(dateLayout) != tt.want {
				t.Errorf("parseDate(%q) = %s, want %s", tt.in, got.Format(dateLayout), tt.want)
			}
		})
	}
}

func TestStartOfDay(t *testing.T) {
	in := time.Date(2024, 3, 1, 17, 45, 12, 999, time.Local)
	got := startOfDay(in)
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 || got.Nanosecond() != 0 {
		t.Errorf("startOfDay left time-of-day: %v", got)
	}
	if got.Year() != 2024 || got.Month() != 3 || got.Day() != 1 {
		t.Errorf("startOfDay moved the date: %v", got)
	}
}

func TestUpdateEventPayload(t *testing.T) {
	roster := []RosterMark{
		{RollNo: "01", Name: "A", Present: true},
		{RollNo: "02", Name: "B", Present: false},
	}
	msg, err := updateEvent(5, "2024-03-01", roster)
	if err != nil {
		t.Fatalf("updateEvent() error: %v", err)
	}
	if msg.Type != "attendanceUpdate" {
		t.Errorf("Type = %q, want attendanceUpdate", msg.Type)
	}
	if msg.Room != "class_5" {
		t.Errorf("Room = %q, want class_5", msg.Room)
	}

	var payload struct {
		ClassID    int    `json:"classId"`
		Date       string `json:"date"`
		Attendance struct {
			Total   int          `json:"total"`
			Present int          `json:"present"`
			Data    []RosterMark `json:"data"`
		} `json:"attendance"`
	}
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if payload.Attendance.Total != 2 || payload.Attendance.Present != 1 {
		t.Errorf("got total=%d present=%d, want total=2 present=1",
			payload.Attendance.Total, payload.Attendance.Present)
	}
	if len(payload.Attendance.Data) != 2 {
		t.Errorf("data length = %d, want 2", len(payload.Attendance.Data))
	}
}

func TestSummarize(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	}
	marks := []dayMark{
		{day(2024, 2, 1), true},
		{day(2024, 2, 2), false},
		{day(2024, 3, 1), true},
		{day(2024, 3, 4), true},
		{day(2024, 3, 5), false},
	}
	sum := summarize(marks)
	if sum.TotalClasses != 5 || sum.PresentCount != 3 || sum.AbsentCount != 2 {
		t.Errorf("totals = %d/%d/%d, want 5/3/2",
			sum.TotalClasses, sum.PresentCount, sum.AbsentCount)
	}
	if len(sum.MonthlyData) != 2 {
		t.Fatalf("months = %d, want 2", len(sum.MonthlyData))
	}
	if sum.MonthlyData[0].Month != "Feb 24" || sum.MonthlyData[0].Percentage != "50.00" {
		t.Errorf("month[0] = %+v, want Feb 24 at 50.00", sum.MonthlyData[0])
	}
	if sum.MonthlyData[1].Month != "Mar 24" || sum.MonthlyData[1].Percentage != "66.67" {
		t.Errorf("month[1] = %+v, want Mar 24 at 66.67", sum.MonthlyData[1])
	}
}

func TestSummarizeEmpty(t *testing.T) {
	sum := summarize(nil)
	if sum.TotalClasses != 0 || len(sum.MonthlyData) != 0 {
		t.Errorf("empty history should yield zero summary, got %+v", sum)
	}
}

// The validation paths below must reject before any repository call; the
// nil-repo services would panic otherwise.

func TestMarkSelfRejectsUnknownStatus(t *testing.T) {
	s := NewService(nil, nil, nil)
	_, err := s.MarkSelf(context.Background(), "student-1", "asleep")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestSaveRosterValidation(t *testing.T) {
	s := NewService(nil, nil, nil)
	roster := []RosterMark{{RollNo: "01", Name: "A", Present: true}}

	tests := []struct {
		name    string
		classID int
		date    string
		roster  []RosterMark
	}{
		{"zero class", 0, "2024-03-01", roster},
		{"empty roster", 5, "2024-03-01", nil},
		{"bad date", 5, "yesterday-ish", roster},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SaveRoster(context.Background(), tt.classID, tt.date, tt.roster, "staff-1")
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestClassRecordRequiresDate(t *testing.T) {
	s := NewService(nil, nil, nil)
	_, err := s.ClassRecord(context.Background(), 5, "", "staff-1")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestRoomNaming(t *testing.T) {
	if got := Room(5); got != "class_5" {
		t.Errorf("Room(5) = %q, want class_5", got)
	}
}

// memoryLedger backs service tests without Postgres. Keys mirror the
// database uniqueness rules.
type memoryLedger struct {
	records map[string]Record
	marks   map[string]SelfMark
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{records: map[string]Record{}, marks: map[string]SelfMark{}}
}

func recordKey(classID int, day time.Time, recorderID string) string {
	return fmt.Sprintf("%d|%s|%s", classID, day.Format(dateLayout), recorderID)
}

func (l *memoryLedger) Upsert(_ context.Context, rec Record) (Record, error) {
	key := recordKey(rec.ClassID, rec.Date, rec.RecorderID)
	if prev, ok := l.records[key]; ok {
		rec.ID = prev.ID
		rec.CreatedAt = prev.CreatedAt
	}
	l.records[key] = rec
	return rec, nil
}

func (l *memoryLedger) Get(_ context.Context, classID int, date time.Time, recorderID string) (*Record, error) {
	rec, ok := l.records[recordKey(classID, date, recorderID)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (l *memoryLedger) ListByClass(_ context.Context, _ int, _ string, _, _ *time.Time, _ int) ([]Record, error) {
	return nil, nil
}

func (l *memoryLedger) HistoryByRoll(_ context.Context, _ string, _, _ *time.Time) ([]HistoryEntry, error) {
	return nil, nil
}

func (l *memoryLedger) marksByRoll(_ context.Context, _ string) ([]dayMark, error) {
	return nil, nil
}

func (l *memoryLedger) InsertSelfMark(_ context.Context, m SelfMark) (SelfMark, error) {
	l.marks[m.StudentID+"|"+m.Date.Format(dateLayout)] = m
	return m, nil
}

func (l *memoryLedger) SelfMarkOn(_ context.Context, studentID string, day time.Time) (*SelfMark, error) {
	m, ok := l.marks[studentID+"|"+day.Format(dateLayout)]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (l *memoryLedger) CountsOn(_ context.Context, _ time.Time) (int, int, int, error) {
	return 0, 0, 0, nil
}

func (l *memoryLedger) RecentSelfMarks(_ context.Context, _ int) ([]RecentEntry, error) {
	return nil, nil
}

func TestSaveRosterOverwritesPriorRoster(t *testing.T) {
	ledger := newMemoryLedger()
	s := NewService(ledger, nil, queue.NewInMemory(4))
	ctx := context.Background()

	first := []RosterMark{
		{RollNo: "01", Name: "A", Present: true},
		{RollNo: "02", Name: "B", Present: false},
	}
	if _, err := s.SaveRoster(ctx, 5, "2024-03-01", first, "staff-1"); err != nil {
		t.Fatalf("first SaveRoster() error: %v", err)
	}

	second := []RosterMark{{RollNo: "01", Name: "A", Present: false}}
	if _, err := s.SaveRoster(ctx, 5, "2024-03-01", second, "staff-1"); err != nil {
		t.Fatalf("second SaveRoster() error: %v", err)
	}

	rec, err := s.ClassRecord(ctx, 5, "2024-03-01", "staff-1")
	if err != nil {
		t.Fatalf("ClassRecord() error: %v", err)
	}
	if rec == nil {
		t.Fatal("ClassRecord() returned nil after save")
	}
	if len(rec.Roster) != 1 {
		t.Fatalf("roster length = %d, want the last written roster of 1", len(rec.Roster))
	}
	if rec.Roster[0].RollNo != "01" || rec.Roster[0].Present {
		t.Errorf("roster[0] = %+v, want 01 absent", rec.Roster[0])
	}
}

func TestSaveRosterKeepsRecordersSeparate(t *testing.T) {
	ledger := newMemoryLedger()
	s := NewService(ledger, nil, queue.NewInMemory(4))
	ctx := context.Background()

	roster := []RosterMark{{RollNo: "01", Name: "A", Present: true}}
	if _, err := s.SaveRoster(ctx, 5, "2024-03-01", roster, "staff-1"); err != nil {
		t.Fatalf("SaveRoster() error: %v", err)
	}
	other := []RosterMark{{RollNo: "01", Name: "A", Present: false}}
	if _, err := s.SaveRoster(ctx, 5, "2024-03-01", other, "staff-2"); err != nil {
		t.Fatalf("SaveRoster() error: %v", err)
	}

	rec, err := s.ClassRecord(ctx, 5, "2024-03-01", "staff-1")
	if err != nil {
		t.Fatalf("ClassRecord() error: %v", err)
	}
	if rec == nil || !rec.Roster[0].Present {
		t.Errorf("staff-1's record was clobbered by staff-2's save: %+v", rec)
	}
}

func TestMarkSelfSecondCallSameDayIsDuplicate(t *testing.T) {
	ledger := newMemoryLedger()
	s := NewService(ledger, nil, queue.NewInMemory(4))
	ctx := context.Background()

	if _, err := s.MarkSelf(ctx, "student-1", StatusPresent); err != nil {
		t.Fatalf("first MarkSelf() error: %v", err)
	}
	_, err := s.MarkSelf(ctx, "student-1", StatusLate)
	if !errors.Is(err, apperr.ErrDuplicate) {
		t.Errorf("second same-day mark: err = %v, want ErrDuplicate", err)
	}

	// A different student is unaffected.
	if _, err := s.MarkSelf(ctx, "student-2", StatusPresent); err != nil {
		t.Errorf("other student's mark failed: %v", err)
	}
}

func TestSubjectBuckets(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	}
	marks := []dayMark{
		{day(2024, 2, 1), true},
		{day(2024, 3, 1), true},
		{day(2024, 3, 4), false},
	}

	tests := []struct {
		name        string
		subject     string
		month       string
		wantTotal   int
		wantPresent int
		wantPct     string
		wantEmpty   bool
	}{
		{"no filters", "", "", 3, 2, "66.67", false},
		{"all all", "all", "all", 3, 2, "66.67", false},
		{"general subject", "General", "", 3, 2, "66.67", false},
		{"march only", "", "March", 2, 1, "50.00", false},
		{"unknown subject", "Physics", "", 0, 0, "", true},
		{"unknown month", "", "Brumaire", 0, 0, "", true},
		{"month with no marks", "", "July", 0, 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := subjectBuckets(marks, tt.subject, tt.month, 2024)
			if tt.wantEmpty {
				if len(got) != 0 {
					t.Errorf("got %+v, want no buckets", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("bucket count = %d, want 1", len(got))
			}
			b := got[0]
			if b.Name != "General" || b.Total != tt.wantTotal || b.Present != tt.wantPresent || b.Percentage != tt.wantPct {
				t.Errorf("bucket = %+v, want General %d/%d at %s", b, tt.wantTotal, tt.wantPresent, tt.wantPct)
			}
		})
	}
}

func TestSubjectBucketsEmptyHistory(t *testing.T) {
	if got := subjectBuckets(nil, "", "", 2024); len(got) != 0 {
		t.Errorf("empty history should yield no buckets, got %+v", got)
	}
}

func TestClassHistoryValidation(t *testing.T) {
	s := NewService(nil, nil, nil)
	ctx := context.Background()

	if _, err := s.ClassHistory(ctx, 0, "staff-1", "", ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("zero class: err = %v, want ErrValidation", err)
	}
	if _, err := s.ClassHistory(ctx, 5, "staff-1", "yesterday-ish", "2024-03-01"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad start date: err = %v, want ErrValidation", err)
	}
	if _, err := s.ClassHistory(ctx, 5, "staff-1", "2024-03-01", "someday"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad end date: err = %v, want ErrValidation", err)
	}
}
