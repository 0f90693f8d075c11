package main

import (
	"context"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/onlycars/onlycars-backend/api/routes"
	"github.com/onlycars/onlycars-backend/internal/dispatch"
	"github.com/onlycars/onlycars-backend/internal/inventory"
	"github.com/onlycars/onlycars-backend/internal/notifications"
	"github.com/onlycars/onlycars-backend/internal/orders"
	"github.com/onlycars/onlycars-backend/internal/payments"
	"github.com/onlycars/onlycars-backend/internal/payouts"
	sadadwebhook "github.com/onlycars/onlycars-backend/internal/webhooks/sadad"
	"github.com/onlycars/onlycars-backend/pkg/config"
	"github.com/onlycars/onlycars-backend/pkg/db"
	"github.com/onlycars/onlycars-backend/pkg/logger"
	"github.com/onlycars/onlycars-backend/pkg/metrics"
	"github.com/onlycars/onlycars-backend/pkg/migrate"
	"github.com/onlycars/onlycars-backend/pkg/outbox"
	"github.com/onlycars/onlycars-backend/pkg/redis"
	"github.com/onlycars/onlycars-backend/pkg/sadad"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sadadClient, err := sadad.NewClient(context.Background(), cfg.Sadad, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create sadad client", err)
		os.Exit(1)
	}

	money, err := orders.MoneyFromConfig(cfg.Orders)
	if err != nil {
		logg.Error(context.Background(), "invalid orders money config", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	stockService := inventory.NewService()

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService := orders.NewService(ordersRepo, dbClient, stockService, outboxService, money, logg)
	paymentsService := payments.NewService(payments.NewRepository(dbClient.DB()), sadadClient, logg)
	webhookService := sadadwebhook.NewService(ordersRepo, dbClient, outboxService, logg)
	dispatchService := dispatch.NewService(dispatch.NewRepository(dbClient.DB()), dbClient, outboxService, logg)
	payoutsService := payouts.NewService(payouts.NewRepository(dbClient.DB()), dbClient, outboxService, money.CommissionRate, logg)

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, httpMetrics, routes.Services{
			Orders:        ordersService,
			Payments:      paymentsService,
			Webhooks:      webhookService,
			Dispatch:      dispatchService,
			Payouts:       payoutsService,
			Notifications: notificationsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
