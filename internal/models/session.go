package models

import "time"

// Session is a signed-in device. Access tokens carry its ID and stop being
// accepted once it is revoked or expired.
type Session struct {
	ID               string     `bson:"_id" json:"id"`
	UserID           string     `bson:"user_id" json:"user_id"`
	RefreshTokenHash string     `bson:"refresh_token_hash" json:"-"`
	CreatedAt        time.Time  `bson:"created_at" json:"created_at"`
	ExpiresAt        time.Time  `bson:"expires_at" json:"expires_at"`
	RevokedAt        *time.Time `bson:"revoked_at,omitempty" json:"revoked_at,omitempty"`
}

// Active reports whether the session can still authenticate requests at t.
func (s Session) Active(t time.Time) bool {
	return s.RevokedAt == nil && t.Before(s.ExpiresAt)
}

// TimeoutSettings configures the inactivity sign-out of one user.
type TimeoutSettings struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Minutes int  `json:"minutes" yaml:"minutes"`
}
