package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is matched by StatusError for 404 answers.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidResponse is returned when an answer cannot be decoded.
	ErrInvalidResponse = errors.New("invalid response")
)

// StatusError reports a non-2xx answer of the API.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: server error: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: server error: %d %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Is reports 404 answers as ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}
