package model

import "time"

// Credential is the bearer token that proves an authenticated session, together
// with the instant it was issued and the absolute instant it stops being valid.
// ExpiresAt is fixed when the credential is written and never recomputed.
type Credential struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NewCredential builds a Credential issued at issuedAt and valid for ttl.
func NewCredential(token string, ttl time.Duration, issuedAt time.Time) Credential {
	return Credential{
		Token:     token,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(ttl),
	}
}
