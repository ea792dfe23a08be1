package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/garageworks/garage-backend/api/responses"
	"github.com/garageworks/garage-backend/pkg/config"
	"github.com/garageworks/garage-backend/pkg/db"
	pkgerrors "github.com/garageworks/garage-backend/pkg/errors"
	"github.com/garageworks/garage-backend/pkg/logger"
	"github.com/garageworks/garage-backend/pkg/redis"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Garage-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and redis; either failing reports 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Garage-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{"database": "ok", "redis": "ok"}
		var failed error
		if dbP == nil {
			checks["database"] = "unconfigured"
		} else if err := dbP.Ping(ctx); err != nil {
			checks["database"] = "down"
			failed = err
		}
		if redisP == nil {
			checks["redis"] = "unconfigured"
		} else if err := redisP.Ping(ctx); err != nil {
			checks["redis"] = "down"
			failed = err
		}

		if failed != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, failed, "dependencies unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
