package model

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken tracks issued refresh tokens by JTI so they can be rotated and
// revoked server-side.
type RefreshToken struct {
	JTI       string     `gorm:"type:varchar(64);primaryKey" json:"jti"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Usable reports whether the token is neither revoked nor expired.
func (rt *RefreshToken) Usable(now time.Time) bool {
	return rt.RevokedAt == nil && now.Before(rt.ExpiresAt)
}
