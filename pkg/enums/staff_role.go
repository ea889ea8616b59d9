package enums

import "fmt"

// StaffRole is the store-scoped role on a staff association. It is a
// separate axis from SystemRole: system roles gate platform surfaces,
// staff roles describe a member's job within one store.
type StaffRole string

const (
	StaffRoleManager StaffRole = "manager"
	StaffRoleStaff   StaffRole = "staff"
	StaffRoleSales   StaffRole = "sales"
)

var validStaffRoles = []StaffRole{
	StaffRoleManager,
	StaffRoleStaff,
	StaffRoleSales,
}

var staffRoleDisplay = map[StaffRole]Display{
	StaffRoleManager: {Label: "Manager", Color: "blue"},
	StaffRoleStaff:   {Label: "Staff", Color: "green"},
	StaffRoleSales:   {Label: "Sales", Color: "teal"},
}

// String implements fmt.Stringer.
func (s StaffRole) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StaffRole.
func (s StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if candidate == s {
			return true
		}
	}
	return false
}

// Display returns the UI label/color mapping for the role.
func (s StaffRole) Display() Display {
	if d, ok := staffRoleDisplay[s]; ok {
		return d
	}
	return Display{Label: string(s), Color: "gray"}
}

// ParseStaffRole converts raw input into a StaffRole.
func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}
