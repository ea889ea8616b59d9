package linking

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MarMoonz01/tiresync-hub-backend/pkg/db/models"
)

// Repository exposes persistence for link codes and the external binding.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Transaction(ctx context.Context, fn func(repo Repository) error) error

	GetCodeByUser(ctx context.Context, userID uuid.UUID) (*models.LinkCode, error)
	GetCodeByValue(ctx context.Context, code string) (*models.LinkCode, error)
	DeleteCodesForUser(ctx context.Context, userID uuid.UUID) error
	DeleteCode(ctx context.Context, codeID uuid.UUID) (bool, error)
	CreateCode(ctx context.Context, code *models.LinkCode) error

	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	BindLineUser(ctx context.Context, userID uuid.UUID, lineUserID string) error
	UnbindLineUser(ctx context.Context, userID uuid.UUID) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a linking repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Transaction(ctx context.Context, fn func(repo Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

func (r *repositoryImpl) GetCodeByUser(ctx context.Context, userID uuid.UUID) (*models.LinkCode, error) {
	var code models.LinkCode
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *repositoryImpl) GetCodeByValue(ctx context.Context, value string) (*models.LinkCode, error) {
	var code models.LinkCode
	if err := r.db.WithContext(ctx).Where("code = ?", value).First(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *repositoryImpl) DeleteCodesForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.LinkCode{}, "user_id = ?", userID).Error
}

func (r *repositoryImpl) DeleteCode(ctx context.Context, codeID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.LinkCode{}, "id = ?", codeID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) CreateCode(ctx context.Context, code *models.LinkCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *repositoryImpl) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repositoryImpl) BindLineUser(ctx context.Context, userID uuid.UUID, lineUserID string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("line_user_id", lineUserID).Error
}

func (r *repositoryImpl) UnbindLineUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("line_user_id", nil).Error
}
