package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
)

type fakePruner struct {
	calls     int
	retention time.Duration
	deleted   int64
	err       error
}

func (f *fakePruner) DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	f.calls++
	f.retention = retention
	return f.deleted, f.err
}

func TestNotificationCleanupJobUsesConfiguredRetention(t *testing.T) {
	pruner := &fakePruner{deleted: 42}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:        logger.New(logger.Options{ServiceName: "cron-test"}),
		Notifications: pruner,
		RetentionDays: 30,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if pruner.calls != 1 {
		t.Fatalf("expected one prune call, got %d", pruner.calls)
	}
	if pruner.retention != 30*24*time.Hour {
		t.Fatalf("expected 30 day retention, got %s", pruner.retention)
	}
}

func TestNotificationCleanupJobDefaultsRetention(t *testing.T) {
	pruner := &fakePruner{}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:        logger.New(logger.Options{ServiceName: "cron-test"}),
		Notifications: pruner,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if pruner.retention != defaultNotificationRetentionDays*24*time.Hour {
		t.Fatalf("expected default retention, got %s", pruner.retention)
	}
}

func TestNotificationCleanupJobPropagatesErrors(t *testing.T) {
	pruner := &fakePruner{err: errors.New("boom")}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:        logger.New(logger.Options{ServiceName: "cron-test"}),
		Notifications: pruner,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
