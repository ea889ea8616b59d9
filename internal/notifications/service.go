package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MarMoonz01/tiresync-hub-backend/pkg/db/models"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
	pkgerrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/errors"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/line"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/pagination"
)

// Pusher delivers messages to a linked LINE account.
type Pusher interface {
	Push(ctx context.Context, lineUserID string, messages ...line.PushMessage) error
}

// Service defines notification creation, listing, and read tracking.
// Notify is the write path other modules use; a missing LINE link only
// downgrades delivery to in-app, it never fails the caller.
type Service interface {
	Notify(ctx context.Context, userID uuid.UUID, urgency enums.NotificationUrgency, title, message string, deliverExternal bool) error
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}

type service struct {
	repo   Repository
	pusher Pusher
	logg   *logger.Logger
	now    func() time.Time
}

// ListParams configures pagination for a user's notification feed.
type ListParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notification dependencies. The pusher may be nil, in
// which case every delivery is in-app only.
func NewService(repo Repository, pusher Pusher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{
		repo:   repo,
		pusher: pusher,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Notify(ctx context.Context, userID uuid.UUID, urgency enums.NotificationUrgency, title, message string, deliverExternal bool) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !urgency.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid urgency")
	}
	if title == "" || message == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title and message required")
	}

	notification := &models.Notification{
		UserID:          userID,
		Urgency:         urgency,
		Title:           title,
		Message:         message,
		DeliverExternal: deliverExternal,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}

	if deliverExternal {
		s.pushExternal(ctx, userID, title, message)
	}
	return nil
}

// pushExternal attempts LINE delivery. The in-app record already exists,
// so an unlinked user or a push failure is logged and swallowed.
func (s *service) pushExternal(ctx context.Context, userID uuid.UUID, title, message string) {
	if s.pusher == nil {
		return
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "load user for external delivery failed")
		}
		return
	}
	if !user.IsLinked() {
		if s.logg != nil {
			s.logg.Debug(ctx, "external delivery skipped, no line link")
		}
		return
	}

	err = s.pusher.Push(ctx, *user.LineUserID, line.PushMessage{
		Type: "text",
		Text: title + "\n" + message,
	})
	if err != nil && s.logg != nil {
		s.logg.Warn(ctx, "line push delivery failed")
	}
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	query := listNotificationsParams{
		UserID:     params.UserID,
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, userID, notificationID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	count, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "retention must be positive")
	}

	count, err := s.repo.DeleteOlderThan(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete old notifications")
	}
	return count, nil
}
