package notifications

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/MarMoonz01/tiresync-hub-backend/pkg/db/models"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
	pkgerrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/errors"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/line"
)

type fakePusher struct {
	calls []string
	err   error
}

func (p *fakePusher) Push(ctx context.Context, lineUserID string, messages ...line.PushMessage) error {
	p.calls = append(p.calls, lineUserID)
	return p.err
}

func newTestService(t *testing.T, pusher Pusher) (Service, Repository, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.Store{}, &models.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := NewRepository(conn)
	svc, err := NewService(repo, pusher, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo, conn
}

func seedUser(t *testing.T, conn *gorm.DB, lineUserID string) uuid.UUID {
	t.Helper()
	user := &models.User{
		Email:       uuid.NewString() + "@example.com",
		DisplayName: "Test User",
		Status:      enums.UserStatusApproved,
	}
	if lineUserID != "" {
		user.LineUserID = &lineUserID
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user.ID
}

func TestNotifyPushesOnlyToLinkedUsers(t *testing.T) {
	pusher := &fakePusher{}
	svc, _, conn := newTestService(t, pusher)
	ctx := context.Background()

	linked := seedUser(t, conn, "U-linked")
	unlinked := seedUser(t, conn, "")

	if err := svc.Notify(ctx, linked, enums.NotificationUrgencyInfo, "Hello", "Linked body", true); err != nil {
		t.Fatalf("notify linked: %v", err)
	}
	// No LINE link downgrades to in-app only, it never errors.
	if err := svc.Notify(ctx, unlinked, enums.NotificationUrgencyInfo, "Hello", "Unlinked body", true); err != nil {
		t.Fatalf("notify unlinked: %v", err)
	}

	if len(pusher.calls) != 1 || pusher.calls[0] != "U-linked" {
		t.Fatalf("expected one push to the linked user, got %v", pusher.calls)
	}

	var count int64
	conn.Model(&models.Notification{}).Count(&count)
	if count != 2 {
		t.Fatalf("expected both in-app records, got %d", count)
	}
}

func TestNotifyPushFailureStillPersists(t *testing.T) {
	pusher := &fakePusher{err: fmt.Errorf("line unavailable")}
	svc, _, conn := newTestService(t, pusher)
	ctx := context.Background()
	userID := seedUser(t, conn, "U-flaky")

	if err := svc.Notify(ctx, userID, enums.NotificationUrgencyCritical, "Heads up", "Body", true); err != nil {
		t.Fatalf("notify must not surface push failure: %v", err)
	}

	var count int64
	conn.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&count)
	if count != 1 {
		t.Fatalf("expected the in-app record, got %d", count)
	}
}

func TestMarkReadIsScopedToOwner(t *testing.T) {
	svc, _, conn := newTestService(t, nil)
	ctx := context.Background()

	owner := seedUser(t, conn, "")
	other := seedUser(t, conn, "")

	if err := svc.Notify(ctx, owner, enums.NotificationUrgencyInfo, "T", "M", false); err != nil {
		t.Fatalf("notify: %v", err)
	}
	var row models.Notification
	if err := conn.First(&row, "user_id = ?", owner).Error; err != nil {
		t.Fatalf("load notification: %v", err)
	}

	err := svc.MarkRead(ctx, other, row.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign notification, got %v", err)
	}

	if err := svc.MarkRead(ctx, owner, row.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	// Re-marking a read notification stays a success.
	if err := svc.MarkRead(ctx, owner, row.ID); err != nil {
		t.Fatalf("repeat mark read: %v", err)
	}
}

func TestListPaginatesNewestFirst(t *testing.T) {
	svc, repo, conn := newTestService(t, nil)
	ctx := context.Background()
	userID := seedUser(t, conn, "")

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		row := &models.Notification{
			UserID:    userID,
			Urgency:   enums.NotificationUrgencyInfo,
			Title:     fmt.Sprintf("n%d", i),
			Message:   "body",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, row); err != nil {
			t.Fatalf("seed notification: %v", err)
		}
	}

	first, err := svc.List(ctx, ListParams{UserID: userID, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first.Items) != 2 || first.Cursor == "" {
		t.Fatalf("expected a full page with cursor, got %d items", len(first.Items))
	}
	if first.Items[0].Title != "n4" {
		t.Fatalf("expected newest first, got %s", first.Items[0].Title)
	}

	second, err := svc.List(ctx, ListParams{UserID: userID, Limit: 2, Cursor: first.Cursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Items) != 2 || second.Items[0].Title != "n2" {
		t.Fatalf("unexpected second page: %+v", second.Items)
	}
}

func TestMarkAllReadAndUnreadFilter(t *testing.T) {
	svc, _, conn := newTestService(t, nil)
	ctx := context.Background()
	userID := seedUser(t, conn, "")

	for i := 0; i < 3; i++ {
		if err := svc.Notify(ctx, userID, enums.NotificationUrgencyInfo, "T", "M", false); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}

	count, err := svc.MarkAllRead(ctx, userID)
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 marked, got %d", count)
	}

	unread, err := svc.List(ctx, ListParams{UserID: userID, UnreadOnly: true})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread.Items) != 0 {
		t.Fatalf("expected empty unread feed, got %d", len(unread.Items))
	}
}

func TestDeleteOlderThanHonorsRetention(t *testing.T) {
	svc, repo, conn := newTestService(t, nil)
	ctx := context.Background()
	userID := seedUser(t, conn, "")

	old := &models.Notification{
		UserID:    userID,
		Urgency:   enums.NotificationUrgencyInfo,
		Title:     "old",
		Message:   "body",
		CreatedAt: time.Now().UTC().Add(-100 * 24 * time.Hour),
	}
	fresh := &models.Notification{
		UserID:    userID,
		Urgency:   enums.NotificationUrgencyInfo,
		Title:     "fresh",
		Message:   "body",
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	if err := repo.Create(ctx, old); err != nil {
		t.Fatalf("seed old: %v", err)
	}
	if err := repo.Create(ctx, fresh); err != nil {
		t.Fatalf("seed fresh: %v", err)
	}

	deleted, err := svc.DeleteOlderThan(ctx, 90*24*time.Hour)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected one deletion, got %d", deleted)
	}

	var remaining models.Notification
	if err := conn.First(&remaining, "user_id = ?", userID).Error; err != nil {
		t.Fatalf("load survivor: %v", err)
	}
	if remaining.Title != "fresh" {
		t.Fatalf("wrong row deleted, survivor is %s", remaining.Title)
	}
}
