package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MarMoonz01/tiresync-hub-backend/api/routes"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/auth"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/events"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/joinrequests"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/linking"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/notifications"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/roster"
	sessionsvc "github.com/MarMoonz01/tiresync-hub-backend/internal/session"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/users"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/verification"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/auth/session"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/config"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/db"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/line"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/metrics"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/migrate"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/pubsub"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	rosterPublisher, err := events.NewTopicPublisher(pubsubClient.RosterPublisher())
	if err != nil {
		logg.Error(context.Background(), "failed to create roster publisher", err)
		os.Exit(1)
	}
	verificationPublisher, err := events.NewTopicPublisher(pubsubClient.VerificationPublisher())
	if err != nil {
		logg.Error(context.Background(), "failed to create verification publisher", err)
		os.Exit(1)
	}
	notificationPublisher, err := events.NewTopicPublisher(pubsubClient.NotificationPublisher())
	if err != nil {
		logg.Error(context.Background(), "failed to create notification publisher", err)
		os.Exit(1)
	}

	lineClient, err := line.NewClient(cfg.Line)
	if err != nil {
		logg.Error(context.Background(), "failed to create line client", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	sessionService, err := sessionsvc.NewService(sessionsvc.NewRepository(dbClient.DB()), redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create session service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), lineClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	authzMetrics := metrics.NewAuthzMetrics(prometheus.DefaultRegisterer)

	rosterService, err := roster.NewService(roster.NewRepository(dbClient.DB()), sessionService, rosterPublisher, notificationService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create roster service", err)
		os.Exit(1)
	}

	joinRequestService, err := joinrequests.NewService(joinrequests.NewRepository(dbClient.DB()), sessionService, rosterPublisher, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create join request service", err)
		os.Exit(1)
	}

	linkingService, err := linking.NewService(linking.NewRepository(dbClient.DB()), sessionService, notificationPublisher, authzMetrics, cfg.Linking, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create linking service", err)
		os.Exit(1)
	}

	verificationRepo := verification.NewRepository(dbClient.DB())
	verificationService, err := verification.NewService(verificationRepo, notificationPublisher, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create verification service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			AccessCheck: sessionManager,

			Auth:          authService,
			Sessions:      sessionService,
			Roster:        rosterService,
			JoinRequests:  joinRequestService,
			Linking:       linkingService,
			Verification:  verificationService,
			Notifications: notificationService,
			StoreLoader:   verificationRepo,
			Publisher:     verificationPublisher,

			Authz: authzMetrics,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
