package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
)

// RoleGrant is a (user, system role) pair. The unique index enforces set
// semantics; duplicate grants are also rejected proactively in the service.
type RoleGrant struct {
	ID        uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID        `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_role_grants_user_role"`
	Role      enums.SystemRole `gorm:"column:role;type:text;not null;uniqueIndex:idx_role_grants_user_role"`
	GrantedBy *uuid.UUID       `gorm:"column:granted_by;type:uuid"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
}
