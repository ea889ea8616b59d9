package enums

import "fmt"

// UserStatus captures the lifecycle state of a profile. It gates route
// access only; fine-grained capabilities are resolved from role grants
// and store associations.
type UserStatus string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusApproved  UserStatus = "approved"
	UserStatusRejected  UserStatus = "rejected"
	UserStatusSuspended UserStatus = "suspended"
)

var validUserStatuses = []UserStatus{
	UserStatusPending,
	UserStatusApproved,
	UserStatusRejected,
	UserStatusSuspended,
}

// Display carries the UI label and color for an enum value. Adding a new
// status or role means extending the tables in this package; nothing else
// in the codebase switches on raw strings.
type Display struct {
	Label string
	Color string
}

var userStatusDisplay = map[UserStatus]Display{
	UserStatusPending:   {Label: "Pending Review", Color: "amber"},
	UserStatusApproved:  {Label: "Approved", Color: "green"},
	UserStatusRejected:  {Label: "Rejected", Color: "red"},
	UserStatusSuspended: {Label: "Suspended", Color: "gray"},
}

// String implements fmt.Stringer.
func (u UserStatus) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserStatus.
func (u UserStatus) IsValid() bool {
	for _, candidate := range validUserStatuses {
		if candidate == u {
			return true
		}
	}
	return false
}

// Display returns the UI label/color mapping for the status.
func (u UserStatus) Display() Display {
	if d, ok := userStatusDisplay[u]; ok {
		return d
	}
	return Display{Label: string(u), Color: "gray"}
}

// ParseUserStatus converts raw input into a UserStatus.
func ParseUserStatus(value string) (UserStatus, error) {
	for _, candidate := range validUserStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user status %q", value)
}
