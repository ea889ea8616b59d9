package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
)

// User is the canonical identity/profile record. Created at first
// authentication, never hard-deleted; lifecycle is tracked in Status.
// LineUserID presence is the sole signal for "is linked".
type User struct {
	ID           uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string           `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string           `gorm:"column:password_hash;not null"`
	DisplayName  string           `gorm:"column:display_name;not null"`
	Status       enums.UserStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	LineUserID   *string          `gorm:"column:line_user_id;uniqueIndex"`
	LastLoginAt  *time.Time       `gorm:"column:last_login_at"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// IsLinked reports whether a LINE account is bound to this identity.
func (u *User) IsLinked() bool {
	return u != nil && u.LineUserID != nil && *u.LineUserID != ""
}
