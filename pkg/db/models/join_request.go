package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
)

// JoinRequest is a staff-initiated request to associate with a store. It is
// implicitly pending while it exists: approval materializes a StoreStaff row
// and removes the request, rejection deletes it with no residual record.
type JoinRequest struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID     uuid.UUID       `gorm:"column:store_id;type:uuid;not null;uniqueIndex:idx_join_requests_store_user"`
	UserID      uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_join_requests_store_user"`
	Role        enums.StaffRole `gorm:"column:role;type:text;not null;default:staff"`
	Note        string          `gorm:"column:note;not null;default:''"`
	RequestedAt time.Time       `gorm:"column:requested_at;autoCreateTime"`
}
