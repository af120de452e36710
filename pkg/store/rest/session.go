package rest

import "time"

// Session is the authenticated state for one run. Exactly one valid session
// exists per run; scanners read it concurrently, renewal is the only
// mutation path and is exclusive (see Client.EnsureValid).
type Session struct {
	Token     string
	SiteScope string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ValidAt reports whether the token is usable at t, with a safety margin so
// a token about to expire is renewed before a request is issued with it.
func (s *Session) ValidAt(t time.Time) bool {
	if s == nil || s.Token == "" {
		return false
	}
	return t.Before(s.ExpiresAt.Add(-expiryMargin))
}

const expiryMargin = 30 * time.Second
