package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shiftwiseapp/shiftwise-backend/internal/notifications"
	"github.com/shiftwiseapp/shiftwise-backend/internal/users"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/config"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/db"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/email"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/logger"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/pubsub"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/redis"
)

// The notification worker drains the notification topic and emails each
// recipient. Delivery is at-least-once from Pub/Sub; the consumer dedupes
// per message id in redis before sending.
func main() {
	logg := logger.New(logger.Options{ServiceName: "notification-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "notification-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	requireResource(logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(logg, "pubsub", err)
	defer pubsubClient.Close()

	sender, err := email.NewSender(context.Background(), cfg.Email)
	requireResource(logg, "email sender", err)

	consumer, err := notifications.NewConsumer(
		pubsubClient.NotificationSubscription(),
		users.NewRepository(dbClient.DB()),
		sender,
		redisClient,
		logg,
	)
	requireResource(logg, "notification consumer", err)

	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": id,
	})
	logg.Info(runCtx, "starting notification worker")

	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		logg.Error(runCtx, "notification worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "notification worker shutting down gracefully")
}

func requireResource(logg *logger.Logger, name string, err error) {
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap "+name, err)
		os.Exit(1)
	}
}
