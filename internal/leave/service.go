package leave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"

	"schoolattend/internal/apperr"
	"schoolattend/internal/notification"
	"schoolattend/internal/user"
)

var contactPattern = regexp.MustCompile(`^[0-9]{10}$`)

const (
	minDuration = 1
	maxDuration = 30
)

// Service runs the leave request workflow: student submission, staff
// decision, and the notifications both sides produce.
type Service struct {
	repo  *Repository
	users *user.Repository
	notes *notification.Repository
}

// NewService creates a service backed by the given repositories.
func NewService(repo *Repository, users *user.Repository, notes *notification.Repository) *Service {
	return &Service{repo: repo, users: users, notes: notes}
}

// Submit validates and persists a pending request, then notifies every
// staff user. Validation failures happen before any write.
func (s *Service) Submit(ctx context.Context, studentID, date string, duration int, reason, classLabel, emergencyContact string) (Request, error) {
	if date == "" || reason == "" || classLabel == "" || emergencyContact == "" {
		return Request{}, apperr.Validationf("All fields are required")
	}
	if duration < minDuration || duration > maxDuration {
		return Request{}, apperr.Validationf("Duration must be between %d and %d days", minDuration, maxDuration)
	}
	if !contactPattern.MatchString(emergencyContact) {
		return Request{}, apperr.Validationf("Invalid emergency contact number")
	}
	day, err := time.ParseInLocation(dateLayout, date, time.Local)
	if err != nil {
		return Request{}, apperr.Validationf("invalid date %q", date)
	}

	req, err := s.repo.Insert(ctx, Request{
		StudentID:        studentID,
		Date:             day,
		Duration:         duration,
		ClassLabel:       classLabel,
		Reason:           reason,
		EmergencyContact: emergencyContact,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrDuplicate) {
			return Request{}, err
		}
		return Request{}, apperr.Storage(err)
	}

	s.notifyStaff(ctx, req)
	return req, nil
}

// Decide moves a pending request to approved or rejected and notifies the
// student. Terminal states are final: a second decision fails.
func (s *Service) Decide(ctx context.Context, requestID, staffID, decision string) (Request, error) {
	if decision != StatusApproved && decision != StatusRejected {
		return Request{}, apperr.Validationf("Invalid status")
	}
	existing, err := s.repo.Get(ctx, requestID)
	if err != nil {
		return Request{}, apperr.Storage(err)
	}
	if existing == nil {
		return Request{}, apperr.NotFoundf("Leave request not found")
	}
	if existing.Status != StatusPending {
		return Request{}, apperr.Validationf("Leave request already %s", existing.Status)
	}

	decided, err := s.repo.Decide(ctx, requestID, decision, staffID)
	if err != nil {
		return Request{}, apperr.Storage(err)
	}
	if decided == nil {
		// Lost a race with another decision between the read and the update.
		return Request{}, apperr.Validationf("Leave request already decided")
	}

	s.notifyStudent(ctx, *decided)
	return *decided, nil
}

// ListMine returns the student's own requests, newest first.
func (s *Service) ListMine(ctx context.Context, studentID string) ([]Request, error) {
	out, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return out, nil
}

// ListAll returns every request for the staff review screen.
func (s *Service) ListAll(ctx context.Context) ([]StaffView, error) {
	out, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return out, nil
}

// notifyStaff fans one notification out to every staff user. Failures are
// logged, not surfaced: the request itself is already saved.
func (s *Service) notifyStaff(ctx context.Context, req Request) {
	student, err := s.users.GetByID(ctx, req.StudentID)
	if err != nil || student == nil {
		log.Warn().Err(err).Str("student", req.StudentID).Msg("leave notify: student lookup failed")
		return
	}
	staffIDs, err := s.users.IDsByRole(ctx, user.RoleStaff)
	if err != nil {
		log.Warn().Err(err).Msg("leave notify: staff lookup failed")
		return
	}
	message := fmt.Sprintf("New leave request from %s (%s) for %d day(s) starting %s",
		student.Name, req.ClassLabel, req.Duration, req.Date.Format("Jan 2, 2006"))
	data, _ := json.Marshal(map[string]any{
		"leaveRequestId": req.ID,
		"studentId":      req.StudentID,
		"studentName":    student.Name,
		"class":          req.ClassLabel,
		"date":           req.Date.Format(dateLayout),
		"duration":       req.Duration,
	})
	if err := s.notes.InsertAll(ctx, staffIDs, notification.TypeLeaveRequest, message, data); err != nil {
		log.Warn().Err(err).Msg("leave notify: staff notifications failed")
	}
}

// notifyStudent tells the student about the decision.
func (s *Service) notifyStudent(ctx context.Context, req Request) {
	message := fmt.Sprintf("Your leave request for %s has been %s",
		req.Date.Format("Jan 2, 2006"), req.Status)
	data, _ := json.Marshal(map[string]any{
		"leaveRequestId": req.ID,
		"status":         req.Status,
	})
	if _, err := s.notes.Insert(ctx, notification.Notification{
		UserID:  req.StudentID,
		Type:    notification.TypeLeaveUpdate,
		Message: message,
		Data:    data,
	}); err != nil {
		log.Warn().Err(err).Str("request", req.ID).Msg("leave notify: student notification failed")
	}
}
