package domain

import "time"

// ResetSession tracks one password reset attempt
type ResetSession struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Verified  bool      `json:"verified"`
}

// Expired reports whether the session is past its expiry at now
func (s *ResetSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
