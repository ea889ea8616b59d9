package roster

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MarMoonz01/tiresync-hub-backend/internal/events"
	dberrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/db"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/db/models"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
	pkgerrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/errors"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
)

// SessionInvalidator drops cached session state for a user after a
// roster mutation so the next refresh observes the change.
type SessionInvalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// Notifier delivers a structured notification to a user. Absence of an
// external link downstream is a skipped delivery, never an error here.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, urgency enums.NotificationUrgency, title, message string, deliverExternal bool) error
}

// Service defines status and role administration.
type Service interface {
	SetStatus(ctx context.Context, userID uuid.UUID, status enums.UserStatus) error
	GrantRole(ctx context.Context, userID uuid.UUID, role enums.SystemRole, grantedBy uuid.UUID) (*models.RoleGrant, error)
	RevokeRole(ctx context.Context, grantID uuid.UUID) error
	AvailableRoles(ctx context.Context, userID uuid.UUID) ([]enums.SystemRole, error)
	ListUsers(ctx context.Context) ([]UserRow, error)
}

// UserRow is a roster listing entry with display metadata resolved.
type UserRow struct {
	ID          uuid.UUID          `json:"id"`
	Email       string             `json:"email"`
	DisplayName string             `json:"display_name"`
	Status      enums.UserStatus   `json:"status"`
	StatusLabel enums.Display      `json:"status_label"`
	Roles       []enums.SystemRole `json:"roles"`
	LineLinked  bool               `json:"line_linked"`
	LastLoginAt *time.Time         `json:"last_login_at,omitempty"`
}

type service struct {
	repo      Repository
	sessions  SessionInvalidator
	publisher events.Publisher
	notifier  Notifier
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires roster dependencies. Publisher and notifier are
// fire-and-forget collaborators; their failures are logged, not returned.
func NewService(repo Repository, sessions SessionInvalidator, publisher events.Publisher, notifier Notifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "roster repository required")
	}
	if sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "session invalidator required")
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &service{
		repo:      repo,
		sessions:  sessions,
		publisher: publisher,
		notifier:  notifier,
		logg:      logg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) SetStatus(ctx context.Context, userID uuid.UUID, status enums.UserStatus) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}

	updated, err := s.repo.UpdateStatus(ctx, userID, status, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update status")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	s.afterMutation(ctx, userID, enums.EventUserStatusChanged, map[string]string{"status": status.String()})

	if s.notifier != nil {
		urgency := enums.NotificationUrgencyInfo
		if status == enums.UserStatusSuspended || status == enums.UserStatusRejected {
			urgency = enums.NotificationUrgencyWarning
		}
		display := status.Display()
		if err := s.notifier.Notify(ctx, userID, urgency, "Account status updated",
			"Your account status is now "+display.Label+".", true); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "status notification failed")
		}
	}
	return nil
}

func (s *service) GrantRole(ctx context.Context, userID uuid.UUID, role enums.SystemRole, grantedBy uuid.UUID) (*models.RoleGrant, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	held, err := s.repo.ListRoleGrants(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list role grants")
	}
	for _, g := range held {
		if g.Role == role {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "role already granted")
		}
	}

	grant := &models.RoleGrant{
		UserID:    userID,
		Role:      role,
		GrantedBy: &grantedBy,
	}
	if err := s.repo.CreateRoleGrant(ctx, grant); err != nil {
		// Unique index is the backstop for the race the pre-check can't close.
		if dberrors.IsUniqueViolation(err, "idx_role_grants_user_role") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "role already granted")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create role grant")
	}

	s.afterMutation(ctx, userID, enums.EventRoleGrantChanged, map[string]string{"role": role.String(), "op": "grant"})
	return grant, nil
}

func (s *service) RevokeRole(ctx context.Context, grantID uuid.UUID) error {
	if grantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "grant id required")
	}

	grant, err := s.repo.GetRoleGrant(ctx, grantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "role grant not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load role grant")
	}

	deleted, err := s.repo.DeleteRoleGrant(ctx, grantID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete role grant")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "role grant not found")
	}

	s.afterMutation(ctx, grant.UserID, enums.EventRoleGrantChanged, map[string]string{"role": grant.Role.String(), "op": "revoke"})
	return nil
}

// AvailableRoles returns the roles an identity does not yet hold, so
// callers can filter the offered set before a grant is attempted.
func (s *service) AvailableRoles(ctx context.Context, userID uuid.UUID) ([]enums.SystemRole, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	held, err := s.repo.ListRoleGrants(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list role grants")
	}

	heldSet := make(map[enums.SystemRole]struct{}, len(held))
	for _, g := range held {
		heldSet[g.Role] = struct{}{}
	}

	available := []enums.SystemRole{}
	for _, role := range enums.AllSystemRoles() {
		if _, ok := heldSet[role]; !ok {
			available = append(available, role)
		}
	}
	return available, nil
}

func (s *service) ListUsers(ctx context.Context) ([]UserRow, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}

	rows := make([]UserRow, 0, len(users))
	for _, u := range users {
		grants, err := s.repo.ListRoleGrants(ctx, u.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list role grants")
		}
		roles := make([]enums.SystemRole, 0, len(grants))
		for _, g := range grants {
			roles = append(roles, g.Role)
		}
		rows = append(rows, UserRow{
			ID:          u.ID,
			Email:       u.Email,
			DisplayName: u.DisplayName,
			Status:      u.Status,
			StatusLabel: u.Status.Display(),
			Roles:       roles,
			LineLinked:  u.IsLinked(),
			LastLoginAt: u.LastLoginAt,
		})
	}
	return rows, nil
}

// afterMutation invalidates cached session state and publishes the
// change event. Neither failure is allowed to fail the mutation itself.
func (s *service) afterMutation(ctx context.Context, userID uuid.UUID, eventType enums.EventType, payload any) {
	if err := s.sessions.Invalidate(ctx, userID); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "session invalidation failed after roster mutation")
	}

	event, err := events.NewChangeEvent(eventType, &userID, nil, payload)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "build change event", err)
		}
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "change event publish failed")
	}
}
