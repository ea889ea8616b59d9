package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// WebPermissions are the stored capability flags for the web console facet.
type WebPermissions struct {
	View   bool `json:"view"`
	Add    bool `json:"add"`
	Edit   bool `json:"edit"`
	Delete bool `json:"delete"`
}

// LinePermissions are the stored capability flags for the LINE channel facet.
type LinePermissions struct {
	View   bool `json:"view"`
	Adjust bool `json:"adjust"`
}

// PermissionGrant is the structured capability grant stored on a staff
// association (jsonb column). The stored flags only matter for non-owner,
// non-admin identities; capability resolution short-circuits before
// consulting them otherwise.
type PermissionGrant struct {
	Web  WebPermissions  `json:"web"`
	Line LinePermissions `json:"line"`
}

// DefaultStaffGrant is the grant applied when a join request is approved
// without an explicit permission selection.
func DefaultStaffGrant() PermissionGrant {
	return PermissionGrant{
		Web:  WebPermissions{View: true},
		Line: LinePermissions{View: true},
	}
}

// IsZero reports whether no capability flag is set.
func (p PermissionGrant) IsZero() bool {
	return p == PermissionGrant{}
}

// Value marshals the grant into jsonb.
func (p PermissionGrant) Value() (driver.Value, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("permission grant: marshal: %w", err)
	}
	return string(raw), nil
}

// Scan decodes the jsonb column. NULL decodes to the zero grant.
func (p *PermissionGrant) Scan(value interface{}) error {
	if value == nil {
		*p = PermissionGrant{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("permission grant: unsupported scan type %T", value)
	}

	if len(raw) == 0 {
		*p = PermissionGrant{}
		return nil
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return fmt.Errorf("permission grant: unmarshal: %w", err)
	}
	return nil
}
