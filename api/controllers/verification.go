package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/MarMoonz01/tiresync-hub-backend/api/middleware"
	"github.com/MarMoonz01/tiresync-hub-backend/api/responses"
	"github.com/MarMoonz01/tiresync-hub-backend/api/validators"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/verification"
	pkgerrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/errors"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
)

type setCredentialsRequest struct {
	ChannelID     *string `json:"channel_id"`
	ChannelSecret *string `json:"channel_secret"`
	ChannelToken  *string `json:"channel_token"`
}

func activeStoreID(r *http.Request) (uuid.UUID, error) {
	snap := middleware.SnapshotFromContext(r.Context())
	if snap == nil || snap.Membership == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "store membership required")
	}
	return snap.Membership.StoreID, nil
}

// WebhookVerificationStatus reports the store's channel verification state.
func WebhookVerificationStatus(svc verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := activeStoreID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.Status(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// SetChannelCredentials rotates the store's LINE channel credentials.
// Any prior verification is reset; the channel must prove delivery again.
func SetChannelCredentials(svc verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := activeStoreID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setCredentialsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.SetCredentials(r.Context(), storeID, verification.Credentials{
			ChannelID:     body.ChannelID,
			ChannelSecret: body.ChannelSecret,
			ChannelToken:  body.ChannelToken,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
