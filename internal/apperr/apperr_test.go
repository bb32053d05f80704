package apperr

import (
	"errors"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validationf("bad duration"), http.StatusBadRequest},
		{"duplicate", Duplicatef("already marked"), http.StatusBadRequest},
		{"auth", Authf("invalid credentials"), http.StatusUnauthorized},
		{"forbidden", Forbiddenf("staff only"), http.StatusForbidden},
		{"not found", NotFoundf("leave request not found"), http.StatusNotFound},
		{"storage", Storage(errors.New("connection refused")), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Status(tt.err); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMessageHidesInternalDetail(t *testing.T) {
	err := Storage(errors.New("dial tcp 10.0.0.1:5432: connection refused"))
	if got := Message(err); got != "server error" {
		t.Errorf("Message() = %q, want generic server error", got)
	}
	if !errors.Is(err, ErrStorage) {
		t.Error("storage error should match ErrStorage")
	}
}

func TestMessageSurfacesClientErrors(t *testing.T) {
	err := Validationf("duration must be between 1 and 30 days")
	if got := Message(err); got != "duration must be between 1 and 30 days" {
		t.Errorf("Message() = %q", got)
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("validation error should match ErrValidation")
	}
}
