package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/ordering-backend/internal/notifications"
	"github.com/angelmondragon/ordering-backend/internal/orders"
	"github.com/angelmondragon/ordering-backend/internal/settings"
	"github.com/angelmondragon/ordering-backend/pkg/config"
	"github.com/angelmondragon/ordering-backend/pkg/db"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
	"github.com/angelmondragon/ordering-backend/pkg/metrics"
	"github.com/angelmondragon/ordering-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/ordering-backend/pkg/pubsub"
	"github.com/angelmondragon/ordering-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "instance": instanceID()})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	settingsProvider, err := settings.NewProvider(settings.NewRepository(dbClient.DB()), redisClient, cfg.Settings.CacheTTL, logg)
	if err != nil {
		return err
	}

	notifier, err := notifications.NewService(notifications.ServiceParams{
		Orders:   orders.NewRepository(dbClient.DB()),
		Settings: settingsProvider,
		Sender:   newSender(ctx, cfg.Sendgrid, logg),
		Sendgrid: cfg.Sendgrid,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	idem, err := idempotency.NewManager(redisClient, cfg.Eventing.ConsumerIdempotencyTTL)
	if err != nil {
		return err
	}

	consumer, err := notifications.NewConsumer(
		notifier,
		pubsubClient.NotificationSubscription(),
		idem.Scoped(notifications.ConsumerName),
		metrics.NewOrderingMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		return err
	}

	service, err := NewService(ServiceParams{
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		PubSub:   pubsubClient,
		Consumer: consumer,
	})
	if err != nil {
		return err
	}

	logg.Info(ctx, "starting worker")
	return service.Run(ctx)
}

func newSender(ctx context.Context, cfg config.SendgridConfig, logg *logger.Logger) notifications.Sender {
	sender, err := notifications.NewSendgridSender(cfg)
	if err == nil {
		return sender
	}
	logg.Warn(ctx, "sendgrid api key not set, emails will only be logged")
	return notifications.LogSender{Sent: func(email notifications.Email) {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"to":      email.To,
			"subject": email.Subject,
		}), "email suppressed")
	}}
}

func instanceID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	return "worker-0"
}
