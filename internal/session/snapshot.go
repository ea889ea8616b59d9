package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/MarMoonz01/tiresync-hub-backend/internal/permissions"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
)

// Snapshot is an immutable view of an authenticated identity: profile,
// role grants, and resolved store membership. Mutating operations build
// a fresh snapshot and swap it in whole; readers never observe a
// half-updated session.
type Snapshot struct {
	UserID      uuid.UUID          `json:"user_id"`
	Email       string             `json:"email"`
	DisplayName string             `json:"display_name"`
	Status      enums.UserStatus   `json:"status"`
	Roles       []enums.SystemRole `json:"roles"`
	LineLinked  bool               `json:"line_linked"`

	Membership *Membership `json:"membership,omitempty"`

	LoadedAt time.Time `json:"loaded_at"`
}

// Membership is the resolved store association for the active store.
type Membership struct {
	StoreID         uuid.UUID            `json:"store_id"`
	StoreName       string               `json:"store_name"`
	IsOwner         bool                 `json:"is_owner"`
	Role            enums.StaffRole      `json:"role"`
	Approved        bool                 `json:"approved"`
	WebhookVerified bool                 `json:"webhook_verified"`
	Capabilities    permissions.Resolved `json:"capabilities"`
}

// IsAdmin reports whether the identity holds the system admin role.
func (s *Snapshot) IsAdmin() bool {
	return s.HasRole(enums.SystemRoleAdmin)
}

// HasRole reports whether the identity holds the given system role.
func (s *Snapshot) HasRole(role enums.SystemRole) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasStore reports whether the identity has any store binding.
func (s *Snapshot) HasStore() bool {
	return s != nil && s.Membership != nil
}

// IsApproved reports whether the profile status is approved.
func (s *Snapshot) IsApproved() bool {
	return s != nil && s.Status == enums.UserStatusApproved
}
