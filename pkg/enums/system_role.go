package enums

import "fmt"

// SystemRole is a platform-wide role grant. A user may hold several at once
// (set semantics, no duplicates). SystemRolePending is a role on its own
// axis and is unrelated to UserStatusPending.
type SystemRole string

const (
	SystemRoleAdmin       SystemRole = "admin"
	SystemRoleModerator   SystemRole = "moderator"
	SystemRoleStoreMember SystemRole = "store_member"
	SystemRolePending     SystemRole = "pending"
)

var validSystemRoles = []SystemRole{
	SystemRoleAdmin,
	SystemRoleModerator,
	SystemRoleStoreMember,
	SystemRolePending,
}

var systemRoleDisplay = map[SystemRole]Display{
	SystemRoleAdmin:       {Label: "Administrator", Color: "purple"},
	SystemRoleModerator:   {Label: "Moderator", Color: "blue"},
	SystemRoleStoreMember: {Label: "Store Member", Color: "green"},
	SystemRolePending:     {Label: "Awaiting Role", Color: "amber"},
}

// String implements fmt.Stringer.
func (s SystemRole) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SystemRole.
func (s SystemRole) IsValid() bool {
	for _, candidate := range validSystemRoles {
		if candidate == s {
			return true
		}
	}
	return false
}

// Display returns the UI label/color mapping for the role.
func (s SystemRole) Display() Display {
	if d, ok := systemRoleDisplay[s]; ok {
		return d
	}
	return Display{Label: string(s), Color: "gray"}
}

// AllSystemRoles returns the full role set in canonical order.
func AllSystemRoles() []SystemRole {
	out := make([]SystemRole, len(validSystemRoles))
	copy(out, validSystemRoles)
	return out
}

// ParseSystemRole converts raw input into a SystemRole.
func ParseSystemRole(value string) (SystemRole, error) {
	for _, candidate := range validSystemRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid system role %q", value)
}
