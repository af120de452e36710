package rest

import (
	"fmt"
	"net/http"
	"time"
)

// AuthError aborts the run: bad credentials, unknown site scope, or an
// unreachable server during sign-in.
type AuthError struct {
	ServerURL string
	Site      string
	Err       error
}

func (e *AuthError) Error() string {
	if e.Site != "" {
		return fmt.Sprintf("authentication against %s (site %q) failed: %v", e.ServerURL, e.Site, e.Err)
	}
	return fmt.Sprintf("authentication against %s failed: %v", e.ServerURL, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response from the server. It implements the
// classification interfaces the retry executor looks for: 429 and 5xx are
// temporary, everything else is not.
type ServerError struct {
	StatusCode int
	Summary    string
	RetryAfter time.Duration
}

func (e *ServerError) Error() string {
	if e.Summary != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Summary)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

func (e *ServerError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// RetryAfterHint returns the server-supplied retry delay, zero when absent.
func (e *ServerError) RetryAfterHint() time.Duration { return e.RetryAfter }

// Unauthorized reports whether the session token was rejected.
func (e *ServerError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}
