package leave

import (
	"context"
	"errors"
	"testing"

	"schoolattend/internal/apperr"
)

// Submit must reject invalid input before touching any repository; the
// nil-repo service panics if a write or notification is attempted.

func TestSubmitValidationNoSideEffects(t *testing.T) {
	s := NewService(nil, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		date     string
		duration int
		reason   string
		class    string
		contact  string
	}{
		{"missing date", "", 3, "fever", "5A", "9876543210"},
		{"missing reason", "2024-03-01", 3, "", "5A", "9876543210"},
		{"missing class", "2024-03-01", 3, "fever", "", "9876543210"},
		{"missing contact", "2024-03-01", 3, "fever", "5A", ""},
		{"duration too small", "2024-03-01", 0, "fever", "5A", "9876543210"},
		{"duration too large", "2024-03-01", 31, "fever", "5A", "9876543210"},
		{"short contact", "2024-03-01", 3, "fever", "5A", "12345"},
		{"alphabetic contact", "2024-03-01", 3, "fever", "5A", "abcdefghij"},
		{"contact with dashes", "2024-03-01", 3, "fever", "5A", "98-7654-321"},
		{"eleven digit contact", "2024-03-01", 3, "fever", "5A", "98765432100"},
		{"unparseable date", "soon", 3, "fever", "5A", "9876543210"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Submit(ctx, "student-1", tt.date, tt.duration, tt.reason, tt.class, tt.contact)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestDecideRejectsUnknownDecision(t *testing.T) {
	s := NewService(nil, nil, nil)
	_, err := s.Decide(context.Background(), "req-1", "staff-1", "maybe")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestContactPattern(t *testing.T) {
	valid := []string{"0000000000", "9876543210"}
	invalid := []string{"", "123456789", "12345678901", "987654321a", " 987654321", "9876543210 "}
	for _, v := range valid {
		if !contactPattern.MatchString(v) {
			t.Errorf("%q should be a valid contact", v)
		}
	}
	for _, v := range invalid {
		if contactPattern.MatchString(v) {
			t.Errorf("%q should be rejected", v)
		}
	}
}
