package verification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MarMoonz01/tiresync-hub-backend/internal/events"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/db/models"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
	pkgerrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/errors"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
)

// Status is the externally visible verification state of one store.
type Status struct {
	StoreID        uuid.UUID               `json:"store_id"`
	State          enums.VerificationState `json:"state"`
	HasCredentials bool                    `json:"has_credentials"`
	Verified       bool                    `json:"verified"`
	VerifiedAt     *time.Time              `json:"verified_at,omitempty"`
}

// Service manages per-store webhook verification state.
type Service interface {
	Status(ctx context.Context, storeID uuid.UUID) (*Status, error)
	// SetCredentials replaces the store's LINE channel credentials. Any
	// prior verification is discarded: a new channel must prove delivery
	// again before the store is considered connected.
	SetCredentials(ctx context.Context, storeID uuid.UUID, creds Credentials) (*Status, error)
	// MarkVerified records a delivery proof for the store. Duplicate proofs
	// are no-ops; a state change is broadcast exactly once per transition.
	MarkVerified(ctx context.Context, storeID uuid.UUID) error
}

type service struct {
	repo      Repository
	publisher events.Publisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires verification dependencies.
func NewService(repo Repository, publisher events.Publisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "verification repository required")
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &service{
		repo:      repo,
		publisher: publisher,
		logg:      logg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// StateFor derives the verification state from the store columns.
func StateFor(store *models.Store) enums.VerificationState {
	switch {
	case !store.HasLineCredentials():
		return enums.VerificationStateNotStarted
	case store.WebhookVerified:
		return enums.VerificationStateConnected
	default:
		return enums.VerificationStateAwaiting
	}
}

func (s *service) Status(ctx context.Context, storeID uuid.UUID) (*Status, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	store, err := s.repo.GetStore(ctx, storeID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	return statusFor(store), nil
}

func (s *service) SetCredentials(ctx context.Context, storeID uuid.UUID, creds Credentials) (*Status, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if _, err := s.repo.GetStore(ctx, storeID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}

	if err := s.repo.UpdateCredentials(ctx, storeID, creds); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update credentials")
	}

	store, err := s.repo.GetStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload store")
	}

	s.broadcast(ctx, storeID, StateFor(store))
	return statusFor(store), nil
}

func (s *service) MarkVerified(ctx context.Context, storeID uuid.UUID) error {
	if storeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}

	changed, err := s.repo.MarkVerified(ctx, storeID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark verified")
	}
	if !changed {
		return nil
	}

	s.broadcast(ctx, storeID, enums.VerificationStateConnected)
	return nil
}

func (s *service) broadcast(ctx context.Context, storeID uuid.UUID, state enums.VerificationState) {
	event, err := events.NewChangeEvent(enums.EventWebhookStateChanged, nil, &storeID, map[string]string{
		"state": state.String(),
	})
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "build webhook state event", err)
		}
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "webhook state event publish failed")
	}
}

func statusFor(store *models.Store) *Status {
	return &Status{
		StoreID:        store.ID,
		State:          StateFor(store),
		HasCredentials: store.HasLineCredentials(),
		Verified:       store.WebhookVerified,
		VerifiedAt:     store.WebhookVerifiedAt,
	}
}
