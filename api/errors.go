package api

import "github.com/pkg/errors"

// ErrUnauthorized marks 401/403-equivalent responses. Callers branch on
// it with errors.Is to decide between the refresh-and-retry path and a
// plain failure.
var ErrUnauthorized = errors.New("unauthorized")

// ServerError carries the server-provided failure payload so explicit
// user actions (login) can surface the message verbatim.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "request failed"
}

// Unwrap classifies 401/403 responses as ErrUnauthorized.
func (e *ServerError) Unwrap() error {
	if e.StatusCode == 401 || e.StatusCode == 403 {
		return ErrUnauthorized
	}
	return nil
}
