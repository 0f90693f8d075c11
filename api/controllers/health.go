package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/onlycars/onlycars-backend/api/responses"
	"github.com/onlycars/onlycars-backend/pkg/config"
	"github.com/onlycars/onlycars-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-OnlyCars-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when every attached dependency answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-OnlyCars-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		checks["db"] = checkDependency(ctx, logg, "db", dbP, &healthy)
		checks["redis"] = checkDependency(ctx, logg, "redis", redisP, &healthy)

		if !healthy {
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, map[string]any{
				"status": "degraded",
				"checks": checks,
			})
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"status": "ready",
			"checks": checks,
		})
	}
}

func checkDependency(ctx context.Context, logg *logger.Logger, name string, p pinger, healthy *bool) string {
	if p == nil {
		return "skipped"
	}
	if err := p.Ping(ctx); err != nil {
		*healthy = false
		if logg != nil {
			logg.Error(logg.WithField(ctx, "dependency", name), "health check failed", err)
		}
		return "down"
	}
	return "ok"
}
