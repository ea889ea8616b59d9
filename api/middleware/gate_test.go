package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/MarMoonz01/tiresync-hub-backend/internal/gate"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/session"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
	pkgerrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/errors"
)

type fakeSessions struct {
	snap *session.Snapshot
	err  error
}

func (f *fakeSessions) Load(ctx context.Context, userID uuid.UUID) (*session.Snapshot, error) {
	return f.snap, f.err
}

func (f *fakeSessions) Refresh(ctx context.Context, userID uuid.UUID) (*session.Snapshot, error) {
	return f.snap, f.err
}

func (f *fakeSessions) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func gateRequest(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if userID != "" {
		req = req.WithContext(WithUserID(req.Context(), userID))
	}
	return req
}

func TestGateAdmitsApprovedUserAndSeedsSnapshot(t *testing.T) {
	snap := &session.Snapshot{UserID: uuid.New(), Status: enums.UserStatusApproved}
	sessions := &fakeSessions{snap: snap}

	var seeded *session.Snapshot
	handler := Gate(sessions, gate.DefaultRequirements(), nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seeded = SnapshotFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, gateRequest(snap.UserID.String()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if seeded == nil || seeded.UserID != snap.UserID {
		t.Fatal("expected snapshot seeded in context")
	}
}

func TestGateRejectsMissingIdentity(t *testing.T) {
	handler := Gate(&fakeSessions{}, gate.DefaultRequirements(), nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, gateRequest(""))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestGateHoldsPendingUsers(t *testing.T) {
	snap := &session.Snapshot{UserID: uuid.New(), Status: enums.UserStatusPending}
	handler := Gate(&fakeSessions{snap: snap}, gate.DefaultRequirements(), nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, gateRequest(snap.UserID.String()))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestGateBlocksNonAdminsOnAdminRoutes(t *testing.T) {
	snap := &session.Snapshot{UserID: uuid.New(), Status: enums.UserStatusApproved}
	req := gate.Requirements{RequireApproval: true, RequireAdmin: true}
	handler := Gate(&fakeSessions{snap: snap}, req, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, gateRequest(snap.UserID.String()))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestGateRequiresStoreBinding(t *testing.T) {
	snap := &session.Snapshot{UserID: uuid.New(), Status: enums.UserStatusApproved}
	req := gate.Requirements{RequireApproval: true, RequireStore: true}
	handler := Gate(&fakeSessions{snap: snap}, req, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, gateRequest(snap.UserID.String()))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestGateTreatsUnknownUserAsUnauthenticated(t *testing.T) {
	sessions := &fakeSessions{err: pkgerrors.New(pkgerrors.CodeNotFound, "user not found")}
	handler := Gate(sessions, gate.DefaultRequirements(), nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, gateRequest(uuid.NewString()))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
