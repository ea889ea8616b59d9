package enums

import "fmt"

// NotificationUrgency classifies outbound notification events.
type NotificationUrgency string

const (
	NotificationUrgencyInfo     NotificationUrgency = "info"
	NotificationUrgencyWarning  NotificationUrgency = "warning"
	NotificationUrgencyCritical NotificationUrgency = "critical"
)

var validNotificationUrgencies = []NotificationUrgency{
	NotificationUrgencyInfo,
	NotificationUrgencyWarning,
	NotificationUrgencyCritical,
}

// String implements fmt.Stringer.
func (n NotificationUrgency) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationUrgency.
func (n NotificationUrgency) IsValid() bool {
	for _, candidate := range validNotificationUrgencies {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationUrgency converts raw input into a NotificationUrgency.
func ParseNotificationUrgency(value string) (NotificationUrgency, error) {
	for _, candidate := range validNotificationUrgencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification urgency %q", value)
}
