package joinrequests

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MarMoonz01/tiresync-hub-backend/internal/events"
	dberrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/db"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/db/models"
	dbtypes "github.com/MarMoonz01/tiresync-hub-backend/pkg/db/types"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
	pkgerrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/errors"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
)

// SessionInvalidator drops cached session state after a roster mutation.
type SessionInvalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// Service defines the join-request workflow: requested → approved|rejected,
// both terminal.
type Service interface {
	Create(ctx context.Context, storeID, userID uuid.UUID, role enums.StaffRole, note string) (*models.JoinRequest, error)
	Approve(ctx context.Context, requestID uuid.UUID) error
	Reject(ctx context.Context, requestID uuid.UUID) error
	ChangeRole(ctx context.Context, associationID uuid.UUID, role enums.StaffRole) error
	ListForStore(ctx context.Context, storeID uuid.UUID) ([]models.JoinRequest, error)
}

type service struct {
	repo      Repository
	sessions  SessionInvalidator
	publisher events.Publisher
	logg      *logger.Logger
}

// NewService wires join-request dependencies.
func NewService(repo Repository, sessions SessionInvalidator, publisher events.Publisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "join request repository required")
	}
	if sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "session invalidator required")
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &service{repo: repo, sessions: sessions, publisher: publisher, logg: logg}, nil
}

// Create registers a pending join request. Re-requesting while one is
// already pending returns the existing request rather than a duplicate.
func (s *service) Create(ctx context.Context, storeID, userID uuid.UUID, role enums.StaffRole, note string) (*models.JoinRequest, error) {
	if storeID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id and user id required")
	}
	if role == "" {
		role = enums.StaffRoleStaff
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid staff role")
	}

	if existing, err := s.repo.GetRequestByStoreUser(ctx, storeID, userID); err == nil {
		return existing, nil
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending request")
	}

	if _, err := s.repo.GetAssociationByStoreUser(ctx, storeID, userID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "already a member of this store")
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing association")
	}

	request := &models.JoinRequest{
		StoreID: storeID,
		UserID:  userID,
		Role:    role,
		Note:    note,
	}
	if err := s.repo.CreateRequest(ctx, request); err != nil {
		// Concurrent re-request: the unique index wins the race, fall back
		// to the row it protected.
		if dberrors.IsUniqueViolation(err, "idx_join_requests_store_user") {
			return s.repo.GetRequestByStoreUser(ctx, storeID, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create join request")
	}
	return request, nil
}

// Approve materializes the association and closes the request in one
// transaction. Retrying an already-approved request is a no-op.
func (s *service) Approve(ctx context.Context, requestID uuid.UUID) error {
	if requestID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}

	request, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// Request already resolved; retry is a no-op.
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load join request")
	}

	err = s.repo.Transaction(ctx, func(repo Repository) error {
		staff := &models.StoreStaff{
			StoreID:     request.StoreID,
			UserID:      request.UserID,
			Role:        request.Role,
			Approved:    true,
			Permissions: dbtypes.DefaultStaffGrant(),
		}
		if err := repo.UpsertAssociation(ctx, staff); err != nil {
			return err
		}
		if _, err := repo.DeleteRequest(ctx, request.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve join request")
	}

	s.afterRosterChange(ctx, request.UserID, request.StoreID, "approved")
	return nil
}

// Reject deletes the request with no residual trace.
func (s *service) Reject(ctx context.Context, requestID uuid.UUID) error {
	if requestID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}

	request, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load join request")
	}

	if _, err := s.repo.DeleteRequest(ctx, request.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject join request")
	}
	return nil
}

// ChangeRole reassigns a staff role in place. Applying the same role
// twice is a no-op.
func (s *service) ChangeRole(ctx context.Context, associationID uuid.UUID, role enums.StaffRole) error {
	if associationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "association id required")
	}
	if !role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid staff role")
	}

	staff, err := s.repo.GetAssociation(ctx, associationID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "association not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load association")
	}

	if staff.Role == role {
		return nil
	}

	if err := s.repo.UpdateAssociationRole(ctx, associationID, role.String()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update association role")
	}

	s.afterRosterChange(ctx, staff.UserID, staff.StoreID, "role_changed")
	return nil
}

func (s *service) ListForStore(ctx context.Context, storeID uuid.UUID) ([]models.JoinRequest, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	requests, err := s.repo.ListRequestsForStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list join requests")
	}
	return requests, nil
}

func (s *service) afterRosterChange(ctx context.Context, userID, storeID uuid.UUID, op string) {
	if err := s.sessions.Invalidate(ctx, userID); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "session invalidation failed after roster change")
	}
	event, err := events.NewChangeEvent(enums.EventStoreRosterChanged, &userID, &storeID, map[string]string{"op": op})
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "build roster change event", err)
		}
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "roster change event publish failed")
	}
}
