package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/MarMoonz01/tiresync-hub-backend/api/middleware"
	"github.com/MarMoonz01/tiresync-hub-backend/api/responses"
	"github.com/MarMoonz01/tiresync-hub-backend/api/validators"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/joinrequests"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
	pkgerrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/errors"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
)

const maxJoinNoteLength = 500

type createJoinRequest struct {
	StoreID string `json:"store_id" validate:"required,uuid"`
	Role    string `json:"role" validate:"required"`
	Note    string `json:"note"`
}

type changeMemberRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// CreateJoinRequest files a request to join a store. Filing twice while
// one is pending returns the existing request.
func CreateJoinRequest(svc joinrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var body createJoinRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		storeID, err := uuid.Parse(body.StoreID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid store id"))
			return
		}
		role, err := enums.ParseStaffRole(body.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown role"))
			return
		}

		request, err := svc.Create(r.Context(), storeID, userID, role, validators.SanitizeString(body.Note, maxJoinNoteLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

// ListStoreJoinRequests returns the pending requests for one store.
func ListStoreJoinRequests(svc joinrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := pathUUID(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requests, err := svc.ListForStore(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"requests": requests})
	}
}

// ApproveJoinRequest admits the requester into the store roster.
func ApproveJoinRequest(svc joinrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Approve(r.Context(), requestID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "approved"})
	}
}

// RejectJoinRequest discards a pending join request.
func RejectJoinRequest(svc joinrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Reject(r.Context(), requestID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "rejected"})
	}
}

// ChangeMemberRole updates the staff role on an existing association.
func ChangeMemberRole(svc joinrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		associationID, err := pathUUID(r, "associationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body changeMemberRoleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := enums.ParseStaffRole(body.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown role"))
			return
		}

		if err := svc.ChangeRole(r.Context(), associationID, role); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"role": string(role)})
	}
}
