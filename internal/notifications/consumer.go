package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsublib "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MarMoonz01/tiresync-hub-backend/internal/events"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
)

const consumerDedupeTTL = 24 * time.Hour

// Deduper records that an event was handled; SetNX semantics make the
// first claim win. Satisfied by the redis client.
type Deduper interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	LockKey(name string) string
}

// Consumer turns change events into user notifications. Roster mutations
// notify their subject directly at the service layer; the consumer covers
// the fan-out cases where the recipient is derived, like telling a store
// owner their webhook channel flipped state.
type Consumer struct {
	svc          Service
	repo         Repository
	subscription *pubsublib.Subscriber
	dedupe       Deduper
	logg         *logger.Logger
}

// NewConsumer builds a change-event notification consumer.
func NewConsumer(svc Service, repo Repository, subscription *pubsublib.Subscriber, dedupe Deduper, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		svc:          svc,
		repo:         repo,
		subscription: subscription,
		dedupe:       dedupe,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsublib.Message) {
		if c.process(ctx, msg.Data, msg.Attributes["event_type"]) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process handles one message; the return value is the ack decision.
// Malformed payloads ack so they are not redelivered forever.
func (c *Consumer) process(ctx context.Context, data []byte, eventType string) bool {
	logCtx := c.logg.WithField(ctx, "event_type", eventType)

	var event events.ChangeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.logg.Error(logCtx, "failed to decode change event", err)
		return true
	}

	if c.dedupe != nil && event.ID != uuid.Nil {
		first, err := c.dedupe.SetNX(ctx, c.dedupe.LockKey("notif-consumer:"+event.ID.String()), 1, consumerDedupeTTL)
		if err != nil {
			c.logg.Error(logCtx, "dedupe check failed", err)
			return false
		}
		if !first {
			c.logg.Debug(logCtx, "event already handled")
			return true
		}
	}

	if err := c.handle(ctx, event); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		return false
	}
	return true
}

func (c *Consumer) handle(ctx context.Context, event events.ChangeEvent) error {
	switch event.Type {
	case enums.EventWebhookStateChanged:
		return c.notifyWebhookStateChanged(ctx, event)
	case enums.EventLineLinkChanged:
		return c.notifyLinkChanged(ctx, event)
	case enums.EventStoreRosterChanged:
		return c.notifyRosterChanged(ctx, event)
	default:
		return nil
	}
}

func (c *Consumer) notifyWebhookStateChanged(ctx context.Context, event events.ChangeEvent) error {
	if event.StoreID == nil {
		return nil
	}
	store, err := c.repo.GetStore(ctx, *event.StoreID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}

	var payload struct {
		State string `json:"state"`
	}
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil
		}
	}

	urgency := enums.NotificationUrgencyWarning
	message := fmt.Sprintf("The LINE channel for %s needs verification.", store.Name)
	if payload.State == enums.VerificationStateConnected.String() {
		urgency = enums.NotificationUrgencyInfo
		message = fmt.Sprintf("The LINE channel for %s is verified and live.", store.Name)
	}

	return c.svc.Notify(ctx, store.OwnerID, urgency, "LINE channel status", message, false)
}

func (c *Consumer) notifyRosterChanged(ctx context.Context, event events.ChangeEvent) error {
	if event.UserID == nil || event.StoreID == nil {
		return nil
	}
	store, err := c.repo.GetStore(ctx, *event.StoreID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}

	var payload struct {
		Op string `json:"op"`
	}
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil
		}
	}

	switch payload.Op {
	case "approved":
		return c.svc.Notify(ctx, *event.UserID, enums.NotificationUrgencyInfo,
			"Join request approved", fmt.Sprintf("You are now a member of %s.", store.Name), true)
	case "role_changed":
		return c.svc.Notify(ctx, *event.UserID, enums.NotificationUrgencyInfo,
			"Store role updated", fmt.Sprintf("Your role at %s has changed.", store.Name), false)
	default:
		return nil
	}
}

func (c *Consumer) notifyLinkChanged(ctx context.Context, event events.ChangeEvent) error {
	if event.UserID == nil {
		return nil
	}

	var payload struct {
		Op string `json:"op"`
	}
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil
		}
	}

	if payload.Op == "unlinked" {
		return c.svc.Notify(ctx, *event.UserID, enums.NotificationUrgencyInfo,
			"LINE account unlinked", "Your LINE account has been disconnected.", false)
	}
	// Linked: confirm over the channel that was just connected.
	return c.svc.Notify(ctx, *event.UserID, enums.NotificationUrgencyInfo,
		"LINE account linked", "Your LINE account is now connected.", true)
}
