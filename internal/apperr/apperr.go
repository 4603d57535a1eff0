package apperr

import "errors"

// Sentinel errors shared by the store and the services. Handlers map them
// to HTTP status codes, the websocket gateway maps them to error events.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
)

// StatusCode returns the HTTP status for an error from the taxonomy,
// falling back to 500 for anything unrecognized.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return 401
	case errors.Is(err, ErrForbidden):
		return 403
	case errors.Is(err, ErrValidation):
		return 400
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrConflict):
		return 409
	default:
		return 500
	}
}
