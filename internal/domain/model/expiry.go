package model

import "time"

// DefaultRefreshThreshold is how close to expiry a credential must be before it
// is proactively refreshed.
const DefaultRefreshThreshold = 5 * time.Minute

// Valid reports whether c is present and has not yet expired at now.
// A nil credential is never valid.
func (c *Credential) Valid(now time.Time) bool {
	return c != nil && now.Before(c.ExpiresAt)
}

// ExpiringSoon reports whether c is valid at now but will expire within threshold.
func (c *Credential) ExpiringSoon(now time.Time, threshold time.Duration) bool {
	return c.Valid(now) && c.ExpiresAt.Sub(now) < threshold
}

// Remaining returns the time left before c expires, or zero when c is absent or expired.
func (c *Credential) Remaining(now time.Time) time.Duration {
	if !c.Valid(now) {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}
