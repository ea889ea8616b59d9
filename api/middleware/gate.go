package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/MarMoonz01/tiresync-hub-backend/api/responses"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/gate"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/session"
	pkgerrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/errors"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/metrics"
)

// Gate loads the caller's session snapshot and runs the fixed-order
// decision table against the route's declared requirements. Admitted
// requests carry the snapshot in context so handlers do not reload it.
func Gate(sessions session.Service, req gate.Requirements, authz *metrics.AuthzMetrics, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := uuid.Parse(UserIDFromContext(r.Context()))
			if err != nil {
				decide(authz, gate.DecisionLogin)
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}

			snap, err := sessions.Load(r.Context(), userID)
			if err != nil {
				if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
					decide(authz, gate.DecisionLogin)
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown identity"))
					return
				}
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			decision := gate.Evaluate(false, snap, req)
			decide(authz, decision)

			switch decision {
			case gate.DecisionAllow:
				next.ServeHTTP(w, r.WithContext(WithSnapshot(r.Context(), snap)))
			case gate.DecisionLogin:
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			case gate.DecisionPending:
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "account pending approval"))
			case gate.DecisionHome:
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "administrator access required"))
			case gate.DecisionStoreSetup:
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "store setup required"))
			default:
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "access denied"))
			}
		})
	}
}

func decide(authz *metrics.AuthzMetrics, decision gate.Decision) {
	if authz == nil {
		return
	}
	authz.IncGateDecision(string(decision))
}
