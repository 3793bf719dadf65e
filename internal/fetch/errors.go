package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// Errors returned by the fetch client. None of them are fatal to a
// resolution: extractors treat every one as "nothing found".
var (
	// ErrNetwork indicates the request never produced a response.
	ErrNetwork = errors.New("network error")

	// ErrRateLimited indicates the remote host refused us for rate reasons.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrMalformed indicates a response arrived but could not be parsed.
	ErrMalformed = errors.New("malformed response")

	// ErrTooLarge indicates a response body exceeded the size cap.
	ErrTooLarge = errors.New("response too large")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusNotFound || se.StatusCode == http.StatusGone
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// IsTransient returns true for failures that may succeed on a later attempt.
func IsTransient(err error) bool {
	if errors.Is(err, ErrNetwork) || IsRateLimited(err) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	return false
}

// Malformed wraps a parse failure with ErrMalformed.
func Malformed(what string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrMalformed, what)
	}
	return fmt.Errorf("%w: %s: %v", ErrMalformed, what, err)
}
