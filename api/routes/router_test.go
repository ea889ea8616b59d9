package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MarMoonz01/tiresync-hub-backend/internal/auth"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/events"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/linking"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/notifications"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/roster"
	sessionsvc "github.com/MarMoonz01/tiresync-hub-backend/internal/session"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/users"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/verification"
	pkgAuth "github.com/MarMoonz01/tiresync-hub-backend/pkg/auth"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/auth/session"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/config"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/db/models"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubAccessChecker struct{}

func (stubAccessChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	return &users.UserDTO{Email: req.Email, Status: enums.UserStatusPending}, nil
}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{}, nil
}

func (stubAuthService) Refresh(ctx context.Context, expiredAccessToken, refreshToken string) (*auth.RefreshResponse, error) {
	return &auth.RefreshResponse{}, nil
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error { return nil }

// stubSessions hands every caller the same snapshot, keyed off nothing;
// router tests only care about gate routing, not snapshot contents.
type stubSessions struct {
	snaps map[uuid.UUID]*sessionsvc.Snapshot
}

func (s *stubSessions) Load(ctx context.Context, userID uuid.UUID) (*sessionsvc.Snapshot, error) {
	if snap, ok := s.snaps[userID]; ok {
		return snap, nil
	}
	return &sessionsvc.Snapshot{UserID: userID, Status: enums.UserStatusPending}, nil
}

func (s *stubSessions) Refresh(ctx context.Context, userID uuid.UUID) (*sessionsvc.Snapshot, error) {
	return s.Load(ctx, userID)
}

func (s *stubSessions) Invalidate(ctx context.Context, userID uuid.UUID) error { return nil }

type stubRoster struct{}

func (stubRoster) SetStatus(ctx context.Context, userID uuid.UUID, status enums.UserStatus) error {
	return nil
}

func (stubRoster) GrantRole(ctx context.Context, userID uuid.UUID, role enums.SystemRole, grantedBy uuid.UUID) (*models.RoleGrant, error) {
	return &models.RoleGrant{}, nil
}

func (stubRoster) RevokeRole(ctx context.Context, grantID uuid.UUID) error { return nil }

func (stubRoster) AvailableRoles(ctx context.Context, userID uuid.UUID) ([]enums.SystemRole, error) {
	return nil, nil
}

func (stubRoster) ListUsers(ctx context.Context) ([]roster.UserRow, error) { return nil, nil }

type stubJoinRequests struct{}

func (stubJoinRequests) Create(ctx context.Context, storeID, userID uuid.UUID, role enums.StaffRole, note string) (*models.JoinRequest, error) {
	return &models.JoinRequest{StoreID: storeID, UserID: userID, Role: role}, nil
}

func (stubJoinRequests) Approve(ctx context.Context, requestID uuid.UUID) error { return nil }
func (stubJoinRequests) Reject(ctx context.Context, requestID uuid.UUID) error  { return nil }

func (stubJoinRequests) ChangeRole(ctx context.Context, associationID uuid.UUID, role enums.StaffRole) error {
	return nil
}

func (stubJoinRequests) ListForStore(ctx context.Context, storeID uuid.UUID) ([]models.JoinRequest, error) {
	return nil, nil
}

type stubLinking struct{}

func (stubLinking) CreateCode(ctx context.Context, userID uuid.UUID) (*linking.IssuedCode, error) {
	return &linking.IssuedCode{Code: "AB2CD3", ExpiresAt: time.Now().Add(10 * time.Minute)}, nil
}

func (stubLinking) ConsumeCode(ctx context.Context, code, lineUserID string) error { return nil }
func (stubLinking) Unlink(ctx context.Context, userID uuid.UUID) error             { return nil }

func (stubLinking) Status(ctx context.Context, userID uuid.UUID) (*linking.Status, error) {
	return &linking.Status{}, nil
}

type stubVerification struct{}

func (stubVerification) Status(ctx context.Context, storeID uuid.UUID) (*verification.Status, error) {
	return &verification.Status{StoreID: storeID}, nil
}

func (stubVerification) SetCredentials(ctx context.Context, storeID uuid.UUID, creds verification.Credentials) (*verification.Status, error) {
	return &verification.Status{StoreID: storeID}, nil
}

func (stubVerification) MarkVerified(ctx context.Context, storeID uuid.UUID) error { return nil }

type stubNotifications struct{}

func (stubNotifications) Notify(ctx context.Context, userID uuid.UUID, urgency enums.NotificationUrgency, title, message string, deliverExternal bool) error {
	return nil
}

func (stubNotifications) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (stubNotifications) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotifications) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubNotifications) DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	return 0, nil
}

type stubStoreLoader struct{}

func (stubStoreLoader) GetStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error) {
	secret := "secret"
	return &models.Store{ID: storeID, LineChannelSecret: &secret}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config, sessions *stubSessions) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	if sessions == nil {
		sessions = &stubSessions{snaps: map[uuid.UUID]*sessionsvc.Snapshot{}}
	}
	return NewRouter(Dependencies{
		Config:        cfg,
		Logger:        logg,
		DB:            stubPinger{},
		Redis:         nil,
		AccessCheck:   stubAccessChecker{},
		Auth:          stubAuthService{},
		Sessions:      sessions,
		Roster:        stubRoster{},
		JoinRequests:  stubJoinRequests{},
		Linking:       stubLinking{},
		Verification:  stubVerification{},
		Notifications: stubNotifications{},
		StoreLoader:   stubStoreLoader{},
		Publisher:     events.NoopPublisher{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, userID uuid.UUID, status enums.UserStatus, roles []enums.SystemRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Email:  "user@example.com",
		Status: status,
		Roles:  roles,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func approvedSessions(userID uuid.UUID, roles []enums.SystemRole, withStore bool) *stubSessions {
	snap := &sessionsvc.Snapshot{UserID: userID, Status: enums.UserStatusApproved, Roles: roles}
	if withStore {
		snap.Membership = &sessionsvc.Membership{StoreID: uuid.New(), Approved: true}
	}
	return &stubSessions{snaps: map[uuid.UUID]*sessionsvc.Snapshot{userID: snap}}
}

func TestProtectedGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/session/me", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestSessionMeWorksForPendingUsers(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil)

	userID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/session/me", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, userID, enums.UserStatusPending, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("pending users must see their own session, got %d", resp.Code)
	}
}

func TestGatedGroupHoldsPendingUsers(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil)

	userID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/linking/status", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, userID, enums.UserStatusPending, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for pending user got %d", resp.Code)
	}
}

func TestGatedGroupAdmitsApprovedUsers(t *testing.T) {
	cfg := testConfig()
	userID := uuid.New()
	router := newTestRouter(cfg, approvedSessions(userID, nil, false))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, userID, enums.UserStatusApproved, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for approved user got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	userID := uuid.New()
	router := newTestRouter(cfg, approvedSessions(userID, nil, false))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users/", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, userID, enums.UserStatusApproved, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	adminID := uuid.New()
	router = newTestRouter(cfg, approvedSessions(adminID, []enums.SystemRole{enums.SystemRoleAdmin}, false))
	admin := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users/", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, adminID, enums.UserStatusApproved, []enums.SystemRole{enums.SystemRoleAdmin}))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestVerificationRequiresStoreBinding(t *testing.T) {
	cfg := testConfig()
	userID := uuid.New()
	router := newTestRouter(cfg, approvedSessions(userID, nil, false))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stores/me/verification/", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, userID, enums.UserStatusApproved, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without store got %d", resp.Code)
	}

	memberID := uuid.New()
	router = newTestRouter(cfg, approvedSessions(memberID, nil, true))
	member := httptest.NewRequest(http.MethodGet, "/api/v1/stores/me/verification/", nil)
	member.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, memberID, enums.UserStatusApproved, nil))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, member)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with store got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestLineWebhookIsSignatureAuthenticated(t *testing.T) {
	router := newTestRouter(testConfig(), nil)

	// No bearer token needed; a bad signature is what gets rejected.
	req := httptest.NewRequest(http.MethodPost, "/webhooks/line/"+uuid.NewString(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unsigned delivery got %d", resp.Code)
	}
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
