package joinrequests

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MarMoonz01/tiresync-hub-backend/pkg/db/models"
)

// Repository exposes persistence for join requests and staff associations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Transaction(ctx context.Context, fn func(repo Repository) error) error

	GetRequest(ctx context.Context, requestID uuid.UUID) (*models.JoinRequest, error)
	GetRequestByStoreUser(ctx context.Context, storeID, userID uuid.UUID) (*models.JoinRequest, error)
	ListRequestsForStore(ctx context.Context, storeID uuid.UUID) ([]models.JoinRequest, error)
	CreateRequest(ctx context.Context, request *models.JoinRequest) error
	DeleteRequest(ctx context.Context, requestID uuid.UUID) (bool, error)

	UpsertAssociation(ctx context.Context, staff *models.StoreStaff) error
	GetAssociation(ctx context.Context, associationID uuid.UUID) (*models.StoreStaff, error)
	GetAssociationByStoreUser(ctx context.Context, storeID, userID uuid.UUID) (*models.StoreStaff, error)
	UpdateAssociationRole(ctx context.Context, associationID uuid.UUID, role string) error
	CountAssociations(ctx context.Context, storeID, userID uuid.UUID) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a join-request repository bound to the provided database.
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

func (r *repositoryImpl) GetRequest(ctx context.Context, requestID uuid.UUID) (*models.JoinRequest, error) {
	var request models.JoinRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", requestID).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repositoryImpl) GetRequestByStoreUser(ctx context.Context, storeID, userID uuid.UUID) (*models.JoinRequest, error) {
	var request models.JoinRequest
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND user_id = ?", storeID, userID).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repositoryImpl) ListRequestsForStore(ctx context.Context, storeID uuid.UUID) ([]models.JoinRequest, error) {
	var requests []models.JoinRequest
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("requested_at").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repositoryImpl) CreateRequest(ctx context.Context, request *models.JoinRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repositoryImpl) DeleteRequest(ctx context.Context, requestID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.JoinRequest{}, "id = ?", requestID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpsertAssociation enforces exactly one association per (store, user):
// a conflicting insert updates the existing row in place.
func (r *repositoryImpl) UpsertAssociation(ctx context.Context, staff *models.StoreStaff) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "approved", "permissions", "updated_at"}),
		}).
		Create(staff).Error
}

func (r *repositoryImpl) GetAssociation(ctx context.Context, associationID uuid.UUID) (*models.StoreStaff, error) {
	var staff models.StoreStaff
	if err := r.db.WithContext(ctx).First(&staff, "id = ?", associationID).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *repositoryImpl) GetAssociationByStoreUser(ctx context.Context, storeID, userID uuid.UUID) (*models.StoreStaff, error) {
	var staff models.StoreStaff
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND user_id = ?", storeID, userID).
		First(&staff).Error
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *repositoryImpl) UpdateAssociationRole(ctx context.Context, associationID uuid.UUID, role string) error {
	return r.db.WithContext(ctx).
		Model(&models.StoreStaff{}).
		Where("id = ?", associationID).
		Update("role", role).Error
}

func (r *repositoryImpl) CountAssociations(ctx context.Context, storeID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StoreStaff{}).
		Where("store_id = ? AND user_id = ?", storeID, userID).
		Count(&count).Error
	return count, err
}
