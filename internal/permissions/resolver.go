package permissions

import (
	dbtypes "github.com/MarMoonz01/tiresync-hub-backend/pkg/db/types"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
)

// Resolved is the effective capability set for a user within a store
// context. User status never grants a capability on its own; it only
// gates route access upstream.
type Resolved struct {
	HasFullAccess  bool `json:"has_full_access"`
	HasStoreAccess bool `json:"has_store_access"`

	CanView   bool `json:"can_view"`
	CanAdd    bool `json:"can_add"`
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`

	CanViewLine   bool `json:"can_view_line"`
	CanAdjustLine bool `json:"can_adjust_line"`
}

// Input carries everything the resolver needs. It is deliberately a
// plain value so resolution stays a pure function.
type Input struct {
	IsOwner     bool
	SystemRoles []enums.SystemRole
	HasStore    bool
	Grant       dbtypes.PermissionGrant
}

// Resolve computes the effective capability set. Owners and system
// admins hold full access; every other capability is the stored flag
// OR'd with that full-access bit.
func Resolve(in Input) Resolved {
	full := in.IsOwner || hasSystemRole(in.SystemRoles, enums.SystemRoleAdmin)

	return Resolved{
		HasFullAccess:  full,
		HasStoreAccess: full || in.HasStore,
		CanView:        full || in.Grant.Web.View,
		CanAdd:         full || in.Grant.Web.Add,
		CanEdit:        full || in.Grant.Web.Edit,
		CanDelete:      full || in.Grant.Web.Delete,
		CanViewLine:    full || in.Grant.Line.View,
		CanAdjustLine:  full || in.Grant.Line.Adjust,
	}
}

func hasSystemRole(roles []enums.SystemRole, want enums.SystemRole) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
