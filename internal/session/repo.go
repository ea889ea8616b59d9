package session

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MarMoonz01/tiresync-hub-backend/pkg/db/models"
	dbtypes "github.com/MarMoonz01/tiresync-hub-backend/pkg/db/types"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
)

// Repository loads the raw rows a snapshot is assembled from.
type Repository interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	ListRoles(ctx context.Context, userID uuid.UUID) ([]enums.SystemRole, error)
	GetMembership(ctx context.Context, userID uuid.UUID) (*MembershipRow, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a session repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

// MembershipRow joins a staff association (or ownership) with store
// metadata. Owner rows come from the stores table directly.
type MembershipRow struct {
	StoreID         uuid.UUID
	StoreName       string
	IsOwner         bool
	Role            enums.StaffRole
	Approved        bool
	WebhookVerified bool
	Permissions     dbtypes.PermissionGrant
}

func (r *repositoryImpl) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repositoryImpl) ListRoles(ctx context.Context, userID uuid.UUID) ([]enums.SystemRole, error) {
	var grants []models.RoleGrant
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("role").
		Find(&grants).Error; err != nil {
		return nil, err
	}
	roles := make([]enums.SystemRole, 0, len(grants))
	for _, g := range grants {
		roles = append(roles, g.Role)
	}
	return roles, nil
}

// GetMembership resolves the user's store binding. Ownership wins over a
// staff association; nil means no binding at all.
func (r *repositoryImpl) GetMembership(ctx context.Context, userID uuid.UUID) (*MembershipRow, error) {
	var owned models.Store
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", userID).
		Order("created_at").
		First(&owned).Error
	if err == nil {
		return &MembershipRow{
			StoreID:         owned.ID,
			StoreName:       owned.Name,
			IsOwner:         true,
			Role:            enums.StaffRoleManager,
			Approved:        true,
			WebhookVerified: owned.WebhookVerified,
		}, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	var staff models.StoreStaff
	err = r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").
		First(&staff).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", staff.StoreID).Error; err != nil {
		return nil, err
	}

	return &MembershipRow{
		StoreID:         staff.StoreID,
		StoreName:       store.Name,
		IsOwner:         false,
		Role:            staff.Role,
		Approved:        staff.Approved,
		WebhookVerified: store.WebhookVerified,
		Permissions:     staff.Permissions,
	}, nil
}
