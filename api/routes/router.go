package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onlycars/onlycars-backend/api/controllers"
	"github.com/onlycars/onlycars-backend/api/middleware"
	"github.com/onlycars/onlycars-backend/internal/dispatch"
	"github.com/onlycars/onlycars-backend/internal/notifications"
	"github.com/onlycars/onlycars-backend/internal/orders"
	"github.com/onlycars/onlycars-backend/internal/payments"
	"github.com/onlycars/onlycars-backend/internal/payouts"
	sadadwebhook "github.com/onlycars/onlycars-backend/internal/webhooks/sadad"
	"github.com/onlycars/onlycars-backend/pkg/config"
	"github.com/onlycars/onlycars-backend/pkg/db"
	"github.com/onlycars/onlycars-backend/pkg/enums"
	"github.com/onlycars/onlycars-backend/pkg/logger"
	"github.com/onlycars/onlycars-backend/pkg/metrics"
	"github.com/onlycars/onlycars-backend/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the domain services the HTTP layer exposes.
type Services struct {
	Orders        orders.Service
	Payments      payments.Service
	Webhooks      sadadwebhook.Service
	Dispatch      dispatch.Service
	Payouts       payouts.Service
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	httpMetrics *metrics.HTTPMetrics,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(),
	)

	var redisPinger pinger
	if redisClient != nil {
		redisPinger = redisClient
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	webhookPolicy := middleware.NewWebhookRateLimitPolicy(
		"sadad",
		cfg.RateLimit.WebhookWindow,
		cfg.RateLimit.WebhookIPLimit,
	)
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		sadadHandler := controllers.SadadWebhook(svcs.Webhooks, logg)
		if redisClient != nil {
			r.With(middleware.WebhookRateLimit(webhookPolicy, redisClient, logg)).Post("/sadad", sadadHandler)
			return
		}
		r.Post("/sadad", sadadHandler)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.RoleConsumer)).
				Post("/", controllers.PlaceOrder(svcs.Orders, logg))
			r.With(middleware.RequireRole(logg, enums.RoleConsumer)).
				Get("/", controllers.ListOrders(svcs.Orders, logg))

			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", controllers.OrderDetail(svcs.Orders, logg))
				r.Patch("/status", controllers.TransitionOrder(svcs.Orders, logg))

				r.With(middleware.RequireRole(logg, enums.RoleConsumer)).
					Post("/payment", controllers.CreatePaymentIntent(svcs.Payments, logg))
				r.Get("/payment", controllers.OrderPayment(svcs.Payments, logg))

				r.With(middleware.RequireRole(logg, enums.RoleShop, enums.RoleAdmin)).
					Post("/assign-driver", controllers.AssignDriver(svcs.Dispatch, logg))
				r.With(middleware.RequireRole(logg, enums.RoleAdmin)).
					Post("/release-escrow", controllers.ReleaseEscrow(svcs.Payouts, logg))
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
			r.Post("/devices", controllers.RegisterDevice(svcs.Notifications, logg))
		})
	})

	return r
}
