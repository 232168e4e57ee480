package client

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrRateLimitExhausted matches an UpstreamError produced from a 429 that
// survived every retry.
var ErrRateLimitExhausted = errors.New("rate limit exhausted")

// TransportError is returned when the request never produced an HTTP response
// on the final attempt (connection refused, timeout, reset).
type TransportError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error after %d attempt(s) for %s: %v", e.Attempts, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError is a terminal non-2xx response.
type UpstreamError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d for %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("upstream returned status %d for %s: %s", e.StatusCode, e.URL, e.Body)
}

// Is lets errors.Is(err, ErrRateLimitExhausted) match a final 429.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrRateLimitExhausted && e.StatusCode == 429
}

// IsNotFound reports whether err is an upstream 404
func IsNotFound(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream) && upstream.StatusCode == 404
}
