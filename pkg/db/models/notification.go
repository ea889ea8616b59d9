package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to users.
// DeliverExternal marks events that should also be pushed to the user's
// linked LINE account; delivery is skipped silently when no link exists.
type Notification struct {
	ID              uuid.UUID                 `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID                 `gorm:"type:uuid;not null;index"`
	Urgency         enums.NotificationUrgency `gorm:"column:urgency;type:text;not null"`
	Title           string                    `gorm:"type:text;not null"`
	Message         string                    `gorm:"type:text;not null"`
	DeliverExternal bool                      `gorm:"column:deliver_external;not null;default:false"`
	ReadAt          *time.Time                `gorm:"type:timestamptz"`
	CreatedAt       time.Time                 `gorm:"type:timestamptz;default:now()"`
}
