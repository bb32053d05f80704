// Package apperr defines the error taxonomy shared by services and handlers.
// Services return errors wrapping these sentinels; the HTTP layer maps them
// to status codes and the uniform {success:false, message} response body.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation = errors.New("invalid input")
	ErrAuth       = errors.New("authentication required")
	ErrForbidden  = errors.New("access denied")
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("already exists")
	ErrStorage    = errors.New("storage unavailable")
)

// Error pairs a taxonomy kind with a caller-facing message. errors.Is
// against the sentinel kinds works through Unwrap.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// Validationf builds an ErrValidation with a caller-facing message.
func Validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// Authf builds an ErrAuth with a caller-facing message.
func Authf(format string, args ...any) error {
	return &Error{Kind: ErrAuth, Msg: fmt.Sprintf(format, args...)}
}

// Forbiddenf builds an ErrForbidden with a caller-facing message.
func Forbiddenf(format string, args ...any) error {
	return &Error{Kind: ErrForbidden, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf builds an ErrNotFound with a caller-facing message.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Duplicatef builds an ErrDuplicate with a caller-facing message.
func Duplicatef(format string, args ...any) error {
	return &Error{Kind: ErrDuplicate, Msg: fmt.Sprintf(format, args...)}
}

// Storage wraps a backing-store failure. The cause stays available for
// logs but is never shown to the caller.
func Storage(err error) error {
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// Status maps an error to its HTTP status code. Unrecognized errors are
// treated as server failures.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrDuplicate):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text safe to surface to the client. Storage and
// unknown errors collapse to a generic message.
func Message(err error) string {
	if Status(err) == http.StatusInternalServerError {
		return "server error"
	}
	return err.Error()
}
