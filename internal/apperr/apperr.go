// Package apperr holds the error taxonomy shared by the history service and
// its clients.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthenticated means no valid caller identity was attached.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidArgument means a required field was missing or malformed.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInternal covers storage and network failures.
	ErrInternal = errors.New("internal error")
	// ErrNotFound is returned when a question or record does not exist.
	ErrNotFound = errors.New("not found")
)

// HTTPStatus maps an error onto the status code the handlers respond with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// FromStatus is the inverse of HTTPStatus, used by HTTP clients to turn a
// non-2xx response back into a sentinel.
func FromStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthenticated
	case status == http.StatusBadRequest:
		return ErrInvalidArgument
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 200 && status < 300:
		return nil
	default:
		return ErrInternal
	}
}
