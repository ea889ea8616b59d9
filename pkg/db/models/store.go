package models

import (
	"time"

	"github.com/google/uuid"
)

// Store is the tenant entity. Exactly one owner; non-owner members hang off
// StoreStaff records. The LINE channel columns back webhook verification:
// credentials presence derives the "has credentials" flag, and changing them
// resets WebhookVerified.
type Store struct {
	ID                uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name              string     `gorm:"column:name;not null"`
	OwnerID           uuid.UUID  `gorm:"column:owner_id;type:uuid;not null"`
	LineChannelID     *string    `gorm:"column:line_channel_id"`
	LineChannelSecret *string    `gorm:"column:line_channel_secret"`
	LineChannelToken  *string    `gorm:"column:line_channel_token"`
	WebhookVerified   bool       `gorm:"column:webhook_verified;not null;default:false"`
	WebhookVerifiedAt *time.Time `gorm:"column:webhook_verified_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// HasLineCredentials reports whether the full credential set is present:
// channel id, webhook signing secret, and channel access token.
func (s *Store) HasLineCredentials() bool {
	return s != nil &&
		s.LineChannelID != nil && *s.LineChannelID != "" &&
		s.LineChannelSecret != nil && *s.LineChannelSecret != "" &&
		s.LineChannelToken != nil && *s.LineChannelToken != ""
}
