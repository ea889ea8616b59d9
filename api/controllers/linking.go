package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/MarMoonz01/tiresync-hub-backend/api/middleware"
	"github.com/MarMoonz01/tiresync-hub-backend/api/responses"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/linking"
	pkgerrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/errors"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
)

func callerID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, nil
}

// CreateLinkCode issues a short-lived code the user types into the LINE
// chat. Reissuing invalidates any earlier code.
func CreateLinkCode(svc linking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		issued, err := svc.CreateCode(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, issued)
	}
}

// LinkStatus reports whether the caller's account is bound to a LINE
// identity and whether an unexpired code is outstanding.
func LinkStatus(svc linking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.Status(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// Unlink severs the caller's LINE binding and burns outstanding codes.
func Unlink(svc linking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Unlink(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "unlinked"})
	}
}
