package roster

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MarMoonz01/tiresync-hub-backend/pkg/db/models"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
)

// Repository exposes persistence for profiles and role grants.
type Repository interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateStatus(ctx context.Context, userID uuid.UUID, status enums.UserStatus, now time.Time) (bool, error)
	ListRoleGrants(ctx context.Context, userID uuid.UUID) ([]models.RoleGrant, error)
	CreateRoleGrant(ctx context.Context, grant *models.RoleGrant) error
	GetRoleGrant(ctx context.Context, grantID uuid.UUID) (*models.RoleGrant, error)
	DeleteRoleGrant(ctx context.Context, grantID uuid.UUID) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a roster repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repositoryImpl) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("created_at").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repositoryImpl) UpdateStatus(ctx context.Context, userID uuid.UUID, status enums.UserStatus, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"status": status, "updated_at": now})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) ListRoleGrants(ctx context.Context, userID uuid.UUID) ([]models.RoleGrant, error) {
	var grants []models.RoleGrant
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *repositoryImpl) CreateRoleGrant(ctx context.Context, grant *models.RoleGrant) error {
	return r.db.WithContext(ctx).Create(grant).Error
}

func (r *repositoryImpl) GetRoleGrant(ctx context.Context, grantID uuid.UUID) (*models.RoleGrant, error) {
	var grant models.RoleGrant
	if err := r.db.WithContext(ctx).First(&grant, "id = ?", grantID).Error; err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *repositoryImpl) DeleteRoleGrant(ctx context.Context, grantID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.RoleGrant{}, "id = ?", grantID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
