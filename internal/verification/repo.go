package verification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MarMoonz01/tiresync-hub-backend/pkg/db/models"
)

// Repository exposes the store columns backing webhook verification.
type Repository interface {
	GetStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error)
	// ListAwaiting returns stores with a full credential set that have not
	// yet been verified; these are the polling candidates.
	ListAwaiting(ctx context.Context) ([]models.Store, error)
	// MarkVerified flips webhook_verified for a store that was not already
	// verified. Returns false when the store was already verified (or
	// missing), which keeps retries and duplicate proofs idempotent.
	MarkVerified(ctx context.Context, storeID uuid.UUID, at time.Time) (bool, error)
	// UpdateCredentials replaces the LINE channel credentials and resets
	// verification in the same statement.
	UpdateCredentials(ctx context.Context, storeID uuid.UUID, creds Credentials) error
}

// Credentials is the per-store LINE channel credential set.
type Credentials struct {
	ChannelID     *string
	ChannelSecret *string
	ChannelToken  *string
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a verification repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) GetStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", storeID).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *repositoryImpl) ListAwaiting(ctx context.Context) ([]models.Store, error) {
	var stores []models.Store
	err := r.db.WithContext(ctx).
		Where("webhook_verified = ?", false).
		Where("line_channel_id IS NOT NULL AND line_channel_id <> ''").
		Where("line_channel_secret IS NOT NULL AND line_channel_secret <> ''").
		Where("line_channel_token IS NOT NULL AND line_channel_token <> ''").
		Find(&stores).Error
	if err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *repositoryImpl) MarkVerified(ctx context.Context, storeID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ? AND webhook_verified = ?", storeID, false).
		Updates(map[string]any{
			"webhook_verified":    true,
			"webhook_verified_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) UpdateCredentials(ctx context.Context, storeID uuid.UUID, creds Credentials) error {
	return r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ?", storeID).
		Updates(map[string]any{
			"line_channel_id":     creds.ChannelID,
			"line_channel_secret": creds.ChannelSecret,
			"line_channel_token":  creds.ChannelToken,
			"webhook_verified":    false,
			"webhook_verified_at": nil,
		}).Error
}
