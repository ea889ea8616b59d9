package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/MarMoonz01/tiresync-hub-backend/internal/events"
	"github.com/MarMoonz01/tiresync-hub-backend/internal/verification"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/config"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/db"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/instance"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/line"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/migrate"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/pubsub"
)

// The verify worker converges per-store webhook verification: it drains
// delivery proofs off the verification subscription and probes endpoints
// for stores still awaiting their first delivery.
func main() {
	logg := logger.New(logger.Options{ServiceName: "verify-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "verify-worker",
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

	lineClient, err := line.NewClient(cfg.Line)
	if err != nil {
		logg.Error(context.Background(), "failed to create line client", err)
		os.Exit(1)
	}

	notificationPublisher, err := events.NewTopicPublisher(pubsubClient.NotificationPublisher())
	if err != nil {
		logg.Error(context.Background(), "failed to create notification publisher", err)
		os.Exit(1)
	}

	verificationRepo := verification.NewRepository(dbClient.DB())
	verificationService, err := verification.NewService(verificationRepo, notificationPublisher, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create verification service", err)
		os.Exit(1)
	}

	reconciler, err := verification.NewReconciler(
		verificationService,
		verificationRepo,
		lineClient,
		pubsubClient.VerificationSubscription(),
		cfg.Verification.PollInterval,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting verify worker")

	if err := reconciler.Start(ctx); err != nil {
		logg.Error(ctx, "failed to start reconciler", err)
		os.Exit(1)
	}

	<-ctx.Done()
	reconciler.Close()
	logg.Info(ctx, "verify worker shutting down gracefully")
}
