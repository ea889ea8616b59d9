package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MarMoonz01/tiresync-hub-backend/api/responses"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/events"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/linking"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/db/models"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
	pkgerrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/errors"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/line"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
)

// linkCodePattern matches the restricted code alphabet. Anything else in
// the chat is ordinary conversation and is ignored.
var linkCodePattern = regexp.MustCompile(`^[ABCDEFGHJKMNPQRSTUVWXYZ23456789]{6}$`)

// StoreCredentialsLoader resolves the channel credentials for one store.
type StoreCredentialsLoader interface {
	GetStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error)
}

// LineWebhook terminates one store's LINE channel. Every authentic
// delivery counts as a verification proof for that store; message events
// that look like link codes are additionally fed to the linking flow.
// Codes that do not resolve are dropped silently so the chat never leaks
// whether a guess was close.
func LineWebhook(stores StoreCredentialsLoader, links linking.Service, publisher events.Publisher, logg *logger.Logger) http.HandlerFunc {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := pathUUID(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := stores.GetStore(r.Context(), storeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "unknown channel"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store"))
			return
		}
		if store.LineChannelSecret == nil || *store.LineChannelSecret == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "unknown channel"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read webhook body"))
			return
		}

		if !line.ValidateSignature(*store.LineChannelSecret, body, r.Header.Get("X-Line-Signature")) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid signature"))
			return
		}

		// Signature checked out, so the channel round-trip works.
		publishProof(r.Context(), publisher, storeID, logg)

		var payload line.WebhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			// LINE's verify button posts an empty body; still a valid proof.
			responses.WriteSuccess(w, map[string]string{"status": "ok"})
			return
		}

		for _, event := range payload.Events {
			if event.Type != "message" || event.Message.Type != "text" {
				continue
			}
			code := strings.ToUpper(strings.TrimSpace(event.Message.Text))
			if !linkCodePattern.MatchString(code) || event.Source.UserID == "" {
				continue
			}
			if err := links.ConsumeCode(r.Context(), code, event.Source.UserID); err != nil {
				if logg != nil {
					logg.Debug(r.Context(), "link code not consumed")
				}
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

func publishProof(ctx context.Context, publisher events.Publisher, storeID uuid.UUID, logg *logger.Logger) {
	event, err := events.NewChangeEvent(enums.EventWebhookProofReceived, nil, &storeID, nil)
	if err != nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil && logg != nil {
		logg.Warn(ctx, "webhook proof publish failed")
	}
}
