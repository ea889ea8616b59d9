package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/MarMoonz01/tiresync-hub-backend/api/middleware"
	"github.com/MarMoonz01/tiresync-hub-backend/api/responses"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/gate"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/session"
	pkgerrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/errors"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
)

type sessionResponse struct {
	Session  *session.Snapshot `json:"session"`
	Decision gate.Decision     `json:"decision"`
}

// SessionMe returns the caller's resolved session snapshot plus the
// gate decision for a default protected route, so clients route pending
// and store-less identities without a second round trip. Deliberately
// ungated: a pending user still needs to see their own state.
func SessionMe(sessions session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		snap, err := sessions.Load(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sessionResponse{
			Session:  snap,
			Decision: gate.Evaluate(false, snap, gate.DefaultRequirements()),
		})
	}
}

// SessionRefresh forces a snapshot rebuild from the database.
func SessionRefresh(sessions session.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		snap, err := sessions.Refresh(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sessionResponse{
			Session:  snap,
			Decision: gate.Evaluate(false, snap, gate.DefaultRequirements()),
		})
	}
}
