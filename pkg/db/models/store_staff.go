package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/MarMoonz01/tiresync-hub-backend/pkg/db/types"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
)

// StoreStaff binds a non-owner identity to a store with a role and a
// structured capability grant. The unique index guarantees at most one
// association per (store, user); re-association updates in place.
type StoreStaff struct {
	ID          uuid.UUID               `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID     uuid.UUID               `gorm:"column:store_id;type:uuid;not null;uniqueIndex:idx_store_staff_store_user"`
	UserID      uuid.UUID               `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_store_staff_store_user"`
	Role        enums.StaffRole         `gorm:"column:role;type:text;not null"`
	Approved    bool                    `gorm:"column:approved;not null;default:false"`
	Permissions dbtypes.PermissionGrant `gorm:"column:permissions;type:jsonb"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
