package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shiftwiseapp/shiftwise-backend/api/controllers"
	"github.com/shiftwiseapp/shiftwise-backend/api/routes"
	"github.com/shiftwiseapp/shiftwise-backend/internal/address"
	"github.com/shiftwiseapp/shiftwise-backend/internal/assignments"
	"github.com/shiftwiseapp/shiftwise-backend/internal/auth"
	"github.com/shiftwiseapp/shiftwise-backend/internal/completions"
	"github.com/shiftwiseapp/shiftwise-backend/internal/notifications"
	"github.com/shiftwiseapp/shiftwise-backend/internal/shifts"
	"github.com/shiftwiseapp/shiftwise-backend/internal/subscriptions"
	"github.com/shiftwiseapp/shiftwise-backend/internal/users"
	stripewebhook "github.com/shiftwiseapp/shiftwise-backend/internal/webhooks/stripe"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/config"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/db"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/logger"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/maps"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/metrics"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/migrate"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/pubsub"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/redis"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/storage/gcs"
	pkgstripe "github.com/shiftwiseapp/shiftwise-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(logg, "database", err)
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
	requireResource(logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	requireResource(logg, "gcs", err)

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(logg, "pubsub", err)
	defer pubsubClient.Close()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	requireResource(logg, "stripe", err)

	var placesClient *maps.Client
	if cfg.GoogleMaps.APIKey != "" {
		placesClient, err = maps.NewClient(cfg.GoogleMaps.APIKey)
		requireResource(logg, "google maps", err)
	} else {
		logg.Warn(context.Background(), "google maps api key missing, address lookup degraded")
	}

	workflow := metrics.NewWorkflowMetrics(prometheus.DefaultRegisterer)

	usersRepo := users.NewRepository(dbClient.DB())
	shiftsRepo := shifts.NewRepository(dbClient.DB())
	assignmentsRepo := assignments.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())
	subscriptionsRepo := subscriptions.NewRepository(dbClient.DB())

	dispatcher, err := notifications.NewDispatcher(notificationsRepo, pubsubClient.NotificationPublisher(), logg)
	requireResource(logg, "notification dispatcher", err)

	authService, err := auth.NewService(usersRepo, redisClient, cfg.JWT, cfg.Password, logg)
	requireResource(logg, "auth service", err)

	usersService, err := users.NewService(usersRepo, cfg.Password, logg)
	requireResource(logg, "users service", err)

	shiftsService, err := shifts.NewService(shiftsRepo, dbClient, dispatcher)
	requireResource(logg, "shifts service", err)

	assignmentsService, err := assignments.NewService(assignmentsRepo, dbClient, dispatcher, workflow)
	requireResource(logg, "assignments service", err)

	completionsService, err := completions.NewService(assignmentsRepo, dbClient, dispatcher, gcsClient, cfg.Geo, cfg.Signature, workflow, logg)
	requireResource(logg, "completions service", err)

	notificationsService, err := notifications.NewService(notificationsRepo)
	requireResource(logg, "notifications service", err)

	// Address lookup degrades to empty suggestions when no provider is
	// configured, so the service is built either way.
	var addressService address.Service
	if placesClient != nil {
		addressService = address.NewService(placesClient, logg)
	} else {
		addressService = address.NewService(nil, logg)
	}

	stripeSubscriptions := subscriptions.NewStripeClient(stripeClient)

	subscriptionsService, err := subscriptions.NewService(subscriptionsRepo, dbClient, stripeSubscriptions)
	requireResource(logg, "subscriptions service", err)

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, "stripe-webhook")
	requireResource(logg, "webhook idempotency guard", err)

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		SubscriptionRepo:  subscriptionsRepo,
		EventRepo:         stripewebhook.NewEventRepository(dbClient.DB()),
		StripeClient:      stripeSubscriptions,
		TransactionRunner: dbClient,
		Guard:             webhookGuard,
		Dispatcher:        dispatcher,
		Admins:            assignmentsRepo,
		Metrics:           workflow,
		Logger:            logg,
	})
	requireResource(logg, "stripe webhook service", err)

	readiness := map[string]controllers.Pinger{
		"postgres": dbClient,
		"redis":    redisClient,
		"gcs":      gcsClient,
		"pubsub":   pubsubClient,
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
		Handler: routes.NewRouter(cfg, logg, redisClient, readiness, routes.Services{
			Auth:          authService,
			Users:         usersService,
			Shifts:        shiftsService,
			Assignments:   assignmentsService,
			Completions:   completionsService,
			Notifications: notificationsService,
			Address:       addressService,
			Subscriptions: subscriptionsService,
			StripeWebhook: webhookService,
			StripeClient:  stripeClient,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireResource(logg *logger.Logger, name string, err error) {
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap "+name, err)
		os.Exit(1)
	}
}
