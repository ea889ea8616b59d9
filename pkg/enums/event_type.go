package enums

import "fmt"

// EventType is the canonical event_type attribute on Pub/Sub change events.
type EventType string

const (
	EventUserStatusChanged     EventType = "user_status_changed"
	EventRoleGrantChanged      EventType = "role_grant_changed"
	EventStoreRosterChanged    EventType = "store_roster_changed"
	EventLineLinkChanged       EventType = "line_link_changed"
	EventWebhookProofReceived  EventType = "webhook_proof_received"
	EventWebhookStateChanged   EventType = "webhook_state_changed"
	EventNotificationDelivered EventType = "notification_delivered"
)

var validEventTypes = []EventType{
	EventUserStatusChanged,
	EventRoleGrantChanged,
	EventStoreRosterChanged,
	EventLineLinkChanged,
	EventWebhookProofReceived,
	EventWebhookStateChanged,
	EventNotificationDelivered,
}

// String returns the raw event type value.
func (e EventType) String() string {
	return string(e)
}

// IsValid reports whether the value matches the canonical event type enum.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventType converts the raw string to an EventType.
func ParseEventType(value string) (EventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
