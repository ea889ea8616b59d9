package notifications

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MarMoonz01/tiresync-hub-backend/internal/events"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/db/models"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
)

type fakeDeduper struct {
	seen map[string]bool
}

func (d *fakeDeduper) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

func (d *fakeDeduper) LockKey(name string) string { return "ts:lock:" + name }

func newTestConsumer(t *testing.T) (*Consumer, Service, uuid.UUID, uuid.UUID) {
	t.Helper()
	svc, repo, conn := newTestService(t, nil)
	ownerID := seedUser(t, conn, "")

	store := &models.Store{
		Name:    "Test Tire Shop",
		OwnerID: ownerID,
	}
	if err := conn.Create(store).Error; err != nil {
		t.Fatalf("seed store: %v", err)
	}

	consumer := &Consumer{
		svc:    svc,
		repo:   repo,
		dedupe: &fakeDeduper{},
		logg:   logger.New(logger.Options{Output: io.Discard}),
	}
	return consumer, svc, store.ID, ownerID
}

func marshalEvent(t *testing.T, event events.ChangeEvent) []byte {
	t.Helper()
	raw, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return raw
}

func TestConsumerNotifiesOwnerOnWebhookStateChange(t *testing.T) {
	consumer, svc, storeID, ownerID := newTestConsumer(t)
	ctx := context.Background()

	event, err := events.NewChangeEvent(enums.EventWebhookStateChanged, nil, &storeID, map[string]string{
		"state": enums.VerificationStateConnected.String(),
	})
	if err != nil {
		t.Fatalf("build event: %v", err)
	}

	if !consumer.process(ctx, marshalEvent(t, event), event.Type.String()) {
		t.Fatal("expected ack")
	}

	feed, err := svc.List(ctx, ListParams{UserID: ownerID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(feed.Items) != 1 {
		t.Fatalf("expected one owner notification, got %d", len(feed.Items))
	}
	if feed.Items[0].Urgency != enums.NotificationUrgencyInfo {
		t.Fatalf("connected state should be info urgency, got %s", feed.Items[0].Urgency)
	}
}

func TestConsumerDeduplicatesRedeliveries(t *testing.T) {
	consumer, svc, storeID, ownerID := newTestConsumer(t)
	ctx := context.Background()

	event, err := events.NewChangeEvent(enums.EventWebhookStateChanged, nil, &storeID, nil)
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	raw := marshalEvent(t, event)

	if !consumer.process(ctx, raw, event.Type.String()) {
		t.Fatal("expected ack on first delivery")
	}
	// Redelivery of the same event id acks without a second notification.
	if !consumer.process(ctx, raw, event.Type.String()) {
		t.Fatal("expected ack on redelivery")
	}

	feed, err := svc.List(ctx, ListParams{UserID: ownerID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(feed.Items) != 1 {
		t.Fatalf("expected one notification despite redelivery, got %d", len(feed.Items))
	}
}

func TestConsumerIgnoresUnrelatedAndMalformedEvents(t *testing.T) {
	consumer, svc, _, ownerID := newTestConsumer(t)
	ctx := context.Background()

	if !consumer.process(ctx, []byte("not json"), "garbage") {
		t.Fatal("malformed payload must ack, not redeliver")
	}

	event, err := events.NewChangeEvent(enums.EventUserStatusChanged, &ownerID, nil, nil)
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	if !consumer.process(ctx, marshalEvent(t, event), event.Type.String()) {
		t.Fatal("unrelated event must ack")
	}

	feed, err := svc.List(ctx, ListParams{UserID: ownerID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(feed.Items) != 0 {
		t.Fatalf("expected no notifications, got %d", len(feed.Items))
	}
}

func TestConsumerNotifiesMemberOnJoinApproval(t *testing.T) {
	consumer, svc, storeID, ownerID := newTestConsumer(t)
	ctx := context.Background()

	event, err := events.NewChangeEvent(enums.EventStoreRosterChanged, &ownerID, &storeID, map[string]string{"op": "approved"})
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	if !consumer.process(ctx, marshalEvent(t, event), event.Type.String()) {
		t.Fatal("expected ack")
	}

	feed, err := svc.List(ctx, ListParams{UserID: ownerID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(feed.Items) != 1 || feed.Items[0].Title != "Join request approved" {
		t.Fatalf("unexpected feed: %+v", feed.Items)
	}
}

func TestConsumerNotifiesUserOnLinkChange(t *testing.T) {
	consumer, svc, _, ownerID := newTestConsumer(t)
	ctx := context.Background()

	event, err := events.NewChangeEvent(enums.EventLineLinkChanged, &ownerID, nil, map[string]string{"op": "unlinked"})
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	if !consumer.process(ctx, marshalEvent(t, event), event.Type.String()) {
		t.Fatal("expected ack")
	}

	feed, err := svc.List(ctx, ListParams{UserID: ownerID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(feed.Items) != 1 || feed.Items[0].Title != "LINE account unlinked" {
		t.Fatalf("unexpected feed: %+v", feed.Items)
	}
}
