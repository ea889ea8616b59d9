package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
)

const defaultNotificationRetentionDays = 90

// notificationPruner deletes notifications older than the retention window.
type notificationPruner interface {
	DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}

// NotificationCleanupJobParams configure the notification retention job.
type NotificationCleanupJobParams struct {
	Logger        *logger.Logger
	Notifications notificationPruner
	RetentionDays int
}

// NewNotificationCleanupJob prunes the notification feed down to the
// configured retention window.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	retention := params.RetentionDays
	if retention <= 0 {
		retention = defaultNotificationRetentionDays
	}
	return &notificationCleanupJob{
		logg:          params.Logger,
		notifications: params.Notifications,
		retention:     time.Duration(retention) * 24 * time.Hour,
	}, nil
}

type notificationCleanupJob struct {
	logg          *logger.Logger
	notifications notificationPruner
	retention     time.Duration
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	deleted, err := j.notifications.DeleteOlderThan(ctx, j.retention)
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
