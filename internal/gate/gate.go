package gate

import (
	"github.com/MarMoonz01/tiresync-hub-backend/internal/session"
)

// Decision names the outcome of evaluating a protected operation.
type Decision string

const (
	// DecisionSuspend means the session is still loading; hold the
	// request rather than deciding.
	DecisionSuspend Decision = "suspend"
	// DecisionLogin redirects unauthenticated access to the sign-in flow.
	DecisionLogin Decision = "login"
	// DecisionPending redirects unapproved identities to the holding page.
	DecisionPending Decision = "pending"
	// DecisionHome redirects non-admins away from admin-only operations.
	DecisionHome Decision = "home"
	// DecisionStoreSetup redirects store-less identities to store setup.
	DecisionStoreSetup Decision = "store_setup"
	// DecisionAllow admits the request.
	DecisionAllow Decision = "allow"
)

// Requirements are the declared guard flags for a protected operation.
type Requirements struct {
	RequireApproval bool
	RequireAdmin    bool
	RequireStore    bool
}

// DefaultRequirements matches the common protected route: approval
// required, no admin or store constraint.
func DefaultRequirements() Requirements {
	return Requirements{RequireApproval: true}
}

// Evaluate runs the fixed-order decision table. The order is load-bearing:
// each rule only fires if every earlier rule passed. An unknown session
// (loading=true, snap irrelevant) resolves to the most restrictive state.
func Evaluate(loading bool, snap *session.Snapshot, req Requirements) Decision {
	if loading {
		return DecisionSuspend
	}
	if snap == nil {
		return DecisionLogin
	}
	isAdmin := snap.IsAdmin()
	if req.RequireApproval && !snap.IsApproved() && !isAdmin {
		return DecisionPending
	}
	if req.RequireAdmin && !isAdmin {
		return DecisionHome
	}
	if req.RequireStore && !snap.HasStore() {
		return DecisionStoreSetup
	}
	return DecisionAllow
}
