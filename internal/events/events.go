package events

import (
	"context"
	"encoding/json"
	"time"

	pubsublib "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
	pkgerrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/errors"
)

// ChangeEvent is the envelope published whenever the roster, a link, or
// a store's verification state changes. Consumers use it to refresh
// cached sessions and to drive the push half of the reconciler.
type ChangeEvent struct {
	ID         uuid.UUID       `json:"id"`
	Type       enums.EventType `json:"type"`
	UserID     *uuid.UUID      `json:"user_id,omitempty"`
	StoreID    *uuid.UUID      `json:"store_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Publisher sends change events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

// NewChangeEvent stamps identity and time onto an event envelope.
func NewChangeEvent(eventType enums.EventType, userID, storeID *uuid.UUID, payload any) (ChangeEvent, error) {
	if !eventType.IsValid() {
		return ChangeEvent{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid event type")
	}
	event := ChangeEvent{
		ID:         uuid.New(),
		Type:       eventType,
		UserID:     userID,
		StoreID:    storeID,
		OccurredAt: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return ChangeEvent{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal event payload")
		}
		event.Payload = raw
	}
	return event, nil
}

// TopicPublisher publishes change events onto a Pub/Sub topic.
type TopicPublisher struct {
	publisher *pubsublib.Publisher
}

// NewTopicPublisher wraps a Pub/Sub publisher handle.
func NewTopicPublisher(publisher *pubsublib.Publisher) (*TopicPublisher, error) {
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pubsub publisher required")
	}
	return &TopicPublisher{publisher: publisher}, nil
}

// Publish serializes the event and blocks until the broker accepts it.
func (p *TopicPublisher) Publish(ctx context.Context, event ChangeEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal change event")
	}

	result := p.publisher.Publish(ctx, &pubsublib.Message{
		Data: raw,
		Attributes: map[string]string{
			"event_type": event.Type.String(),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish change event")
	}
	return nil
}

// NoopPublisher drops events; used when eventing is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event ChangeEvent) error {
	return nil
}
