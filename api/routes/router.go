package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shiftwiseapp/shiftwise-backend/api/controllers"
	webhookcontrollers "github.com/shiftwiseapp/shiftwise-backend/api/controllers/webhooks"
	"github.com/shiftwiseapp/shiftwise-backend/api/middleware"
	"github.com/shiftwiseapp/shiftwise-backend/internal/address"
	"github.com/shiftwiseapp/shiftwise-backend/internal/assignments"
	"github.com/shiftwiseapp/shiftwise-backend/internal/auth"
	"github.com/shiftwiseapp/shiftwise-backend/internal/completions"
	"github.com/shiftwiseapp/shiftwise-backend/internal/notifications"
	"github.com/shiftwiseapp/shiftwise-backend/internal/shifts"
	subscriptionsvc "github.com/shiftwiseapp/shiftwise-backend/internal/subscriptions"
	"github.com/shiftwiseapp/shiftwise-backend/internal/users"
	stripewebhook "github.com/shiftwiseapp/shiftwise-backend/internal/webhooks/stripe"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/config"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/logger"
	pkgredis "github.com/shiftwiseapp/shiftwise-backend/pkg/redis"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/stripe"
)

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Auth          auth.Service
	Users         users.Service
	Shifts        shifts.Service
	Assignments   assignments.Service
	Completions   completions.Service
	Notifications notifications.Service
	Address       address.Service
	Subscriptions subscriptionsvc.Service
	StripeWebhook *stripewebhook.Service
	StripeClient  *stripe.Client
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *pkgredis.Client,
	readiness map[string]controllers.Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	// Typed nil pointers must not reach the middleware as non-nil interfaces.
	var (
		sessions  middleware.SessionChecker
		idemStore pkgredis.IdempotencyStore
	)
	if redisClient != nil {
		sessions = redisClient
		idemStore = redisClient
	}

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.With(middleware.WebhookRateLimit(cfg.Webhook, redisClient, logg)).
			Post("/stripe", webhookcontrollers.StripeWebhook(svcs.StripeWebhook, svcs.StripeClient, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Post("/logout", controllers.AuthLogout(svcs.Auth, logg))
			r.Post("/change-password", controllers.AuthChangePassword(svcs.Auth, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/users", func(r chi.Router) {
			r.With(middleware.RequireAgencyAdmin(logg)).Group(func(r chi.Router) {
				r.Post("/invite", controllers.UserInvite(svcs.Users, logg))
				r.Get("/", controllers.UserList(svcs.Users, logg))
				r.Post("/{userId}/deactivate", controllers.UserDeactivate(svcs.Users, logg))
			})
			r.Get("/{userId}", controllers.UserGet(svcs.Users, logg))
		})

		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", controllers.ShiftList(svcs.Shifts, logg))
			r.Get("/{shiftId}", controllers.ShiftGet(svcs.Shifts, logg))
			r.With(middleware.RequireAgencyAdmin(logg)).Group(func(r chi.Router) {
				r.Post("/", controllers.ShiftCreate(svcs.Shifts, logg))
				r.Patch("/{shiftId}", controllers.ShiftUpdate(svcs.Shifts, logg))
				r.Post("/{shiftId}/deactivate", controllers.ShiftDeactivate(svcs.Shifts, logg))
			})
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", controllers.AssignmentList(svcs.Assignments, logg))
			r.With(middleware.RequireAgencyAdmin(logg)).Group(func(r chi.Router) {
				r.Post("/", controllers.AssignmentCreate(svcs.Assignments, logg))
				r.Post("/{assignmentId}/cancel", controllers.AssignmentCancel(svcs.Assignments, logg))
				r.Post("/{assignmentId}/no-show", controllers.AssignmentMarkNoShow(svcs.Assignments, logg))
			})
			r.Post("/{assignmentId}/accept", controllers.AssignmentAccept(svcs.Assignments, logg))
			r.Post("/{assignmentId}/decline", controllers.AssignmentDecline(svcs.Assignments, logg))
			r.Post("/{assignmentId}/complete", controllers.AssignmentComplete(svcs.Completions, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationList(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.NotificationMarkRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.NotificationMarkAllRead(svcs.Notifications, logg))
		})

		r.Route("/address", func(r chi.Router) {
			r.Use(middleware.RequireAgencyAdmin(logg))
			r.Get("/lookup", controllers.AddressLookup(svcs.Address, logg))
			r.Get("/resolve/{placeId}", controllers.AddressResolve(svcs.Address, logg))
		})

		r.Route("/subscription", func(r chi.Router) {
			r.Use(middleware.RequireAgencyAdmin(logg))
			r.Get("/", controllers.SubscriptionFetch(svcs.Subscriptions, logg))
			r.Post("/cancel", controllers.SubscriptionCancel(svcs.Subscriptions, logg))
		})
	})

	return r
}
