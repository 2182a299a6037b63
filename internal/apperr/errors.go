// Package apperr defines the failure kinds shared by the booking ledger, the
// rating aggregator and the CRUD services around them. Operations wrap one of
// the sentinels with context using fmt.Errorf("%w: ...") so that handlers can
// branch with errors.Is and translate the kind into an HTTP status without
// matching on message text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned when a referenced trip, user, booking, review,
// message, notification or report does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidRequest is returned for malformed input: seat counts out of
// range, ratings outside [1,5], empty required text.
var ErrInvalidRequest = errors.New("invalid request")

// ErrForbidden is returned when the caller has no rights over the resource,
// including self-booking, self-review and self-report attempts.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidState is returned when the requested transition is not legal
// from the entity's current state.
var ErrInvalidState = errors.New("invalid state")

// ErrConflict is returned on uniqueness violations.
var ErrConflict = errors.New("conflict")

func NotFound(format string, args ...any) error {
	return wrap(ErrNotFound, format, args...)
}

func InvalidRequest(format string, args ...any) error {
	return wrap(ErrInvalidRequest, format, args...)
}

func Forbidden(format string, args ...any) error {
	return wrap(ErrForbidden, format, args...)
}

func InvalidState(format string, args ...any) error {
	return wrap(ErrInvalidState, format, args...)
}

func Conflict(format string, args ...any) error {
	return wrap(ErrConflict, format, args...)
}

func wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Kind returns the sentinel err wraps, or nil for infrastructure failures.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrInvalidRequest, ErrForbidden, ErrInvalidState, ErrConflict} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// HTTPStatus maps an error to the status code handlers should answer with.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrForbidden:
		return http.StatusForbidden
	case ErrInvalidState, ErrConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// ItemResult is the outcome of one id in a batch operation. Err is nil on success.
type ItemResult struct {
	ID  uint
	Err error
}

// Succeeded counts the results without an error.
func Succeeded(results []ItemResult) int {
	n := 0
	for _, r := range results {
		if r.Err == nil {
			n++
		}
	}
	return n
}
