package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MarMoonz01/tiresync-hub-backend/api/controllers"
	"github.com/MarMoonz01/tiresync-hub-backend/api/middleware"
	authsvc "github.com/MarMoonz01/tiresync-hub-backend/internal/auth"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/events"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/gate"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/joinrequests"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/linking"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/notifications"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/roster"
	sessionsvc "github.com/MarMoonz01/tiresync-hub-backend/internal/session"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/verification"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/auth/session"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/config"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/db"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/metrics"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/redis"
)

// Dependencies bundles everything the router wires into handlers.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *redis.Client
	AccessCheck session.AccessSessionChecker

	Auth          authsvc.Service
	Sessions      sessionsvc.Service
	Roster        roster.Service
	JoinRequests  joinrequests.Service
	Linking       linking.Service
	Verification  verification.Service
	Notifications notifications.Service
	StoreLoader   controllers.StoreCredentialsLoader
	Publisher     events.Publisher

	Authz *metrics.AuthzMetrics
}

// NewRouter assembles the HTTP surface. Route groups are layered:
// signature-authenticated webhooks, token-free auth endpoints, then
// token-authenticated groups whose gate requirements tighten from
// default to admin.
func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var idemStore redis.IdempotencyStore
	if deps.Redis != nil {
		idemStore = deps.Redis
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	// Authenticated by channel signature, not by bearer token.
	r.Post("/webhooks/line/{storeId}", controllers.LineWebhook(deps.StoreLoader, deps.Linking, deps.Publisher, logg))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(
			middleware.AuthRateLimit(loginPolicy, deps.Redis, logg),
			middleware.Idempotency(idemStore, logg),
		).Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.AccessCheck, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		// Ungated: pending users still need their own session state and
		// link status to render the holding screens.
		r.Route("/session", func(r chi.Router) {
			r.Get("/me", controllers.SessionMe(deps.Sessions, logg))
			r.Post("/refresh", controllers.SessionRefresh(deps.Sessions, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Gate(deps.Sessions, gate.DefaultRequirements(), deps.Authz, logg))

			r.Route("/linking", func(r chi.Router) {
				r.Post("/code", controllers.CreateLinkCode(deps.Linking, logg))
				r.Get("/status", controllers.LinkStatus(deps.Linking, logg))
				r.Delete("/", controllers.Unlink(deps.Linking, logg))
			})

			r.Post("/join-requests", controllers.CreateJoinRequest(deps.JoinRequests, logg))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Gate(deps.Sessions, gate.Requirements{RequireApproval: true, RequireStore: true}, deps.Authz, logg))

			r.Route("/stores/me/verification", func(r chi.Router) {
				r.Get("/", controllers.WebhookVerificationStatus(deps.Verification, logg))
				r.Put("/", controllers.SetChannelCredentials(deps.Verification, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Gate(deps.Sessions, gate.Requirements{RequireApproval: true, RequireAdmin: true}, deps.Authz, logg))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", controllers.AdminListUsers(deps.Roster, logg))
				r.Post("/{userId}/status", controllers.AdminSetUserStatus(deps.Roster, logg))
				r.Get("/{userId}/roles", controllers.AdminUserRoles(deps.Roster, logg))
				r.Post("/{userId}/roles", controllers.AdminGrantRole(deps.Roster, logg))
			})
			r.Delete("/roles/{grantId}", controllers.AdminRevokeRole(deps.Roster, logg))

			r.Route("/join-requests", func(r chi.Router) {
				r.Post("/{requestId}/approve", controllers.ApproveJoinRequest(deps.JoinRequests, logg))
				r.Post("/{requestId}/reject", controllers.RejectJoinRequest(deps.JoinRequests, logg))
			})
			r.Get("/stores/{storeId}/join-requests", controllers.ListStoreJoinRequests(deps.JoinRequests, logg))
			r.Post("/associations/{associationId}/role", controllers.ChangeMemberRole(deps.JoinRequests, logg))
		})
	})

	return r
}
