package models

import (
	"time"

	"github.com/google/uuid"
)

// LinkCode is a short-lived, single-use token binding a LINE account to an
// identity. The unique index on UserID enforces at most one live code per
// identity; issuing a new code deletes the prior one in the same
// transaction. Expired rows are detected lazily at consumption time, not
// swept.
type LinkCode struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Code      string    `gorm:"column:code;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// ExpiredAt reports whether the code is expired at the given instant. The
// boundary is inclusive: a code issued at T with a 10 minute TTL is invalid
// at exactly T+10m.
func (c *LinkCode) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
