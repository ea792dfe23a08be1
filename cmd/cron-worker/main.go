package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/garageworks/garage-backend/internal/cron"
	"github.com/garageworks/garage-backend/internal/inventory"
	"github.com/garageworks/garage-backend/internal/invoices"
	"github.com/garageworks/garage-backend/internal/parts"
	"github.com/garageworks/garage-backend/pkg/config"
	"github.com/garageworks/garage-backend/pkg/db"
	"github.com/garageworks/garage-backend/pkg/logger"
	"github.com/garageworks/garage-backend/pkg/metrics"
	"github.com/garageworks/garage-backend/pkg/migrate"
	"github.com/garageworks/garage-backend/pkg/redis"
)

const lockName = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg, *once); err != nil {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger, once bool) (err error) {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	registry := prometheus.NewRegistry()
	cronMetrics := metrics.NewCronJobMetrics(registry)

	conn := dbClient.DB()
	ledger, err := inventory.NewService(inventory.ServiceParams{
		Repo:   inventory.NewRepository(conn),
		DB:     dbClient,
		Logger: logg,
	})
	if err != nil {
		return err
	}
	partService, err := parts.NewService(parts.NewRepository(conn), dbClient, ledger)
	if err != nil {
		return err
	}
	invoiceService, err := invoices.NewService(invoices.ServiceParams{
		Repo:   invoices.NewRepository(conn),
		DB:     dbClient,
		Config: cfg.Invoice,
		Logger: logg,
	})
	if err != nil {
		return err
	}

	jobs := cron.NewRegistry()
	lowStock, err := cron.NewLowStockJob(cron.LowStockJobParams{
		Logger:  logg,
		Parts:   partService,
		Metrics: cronMetrics,
	})
	if err != nil {
		return err
	}
	if err := jobs.Register(lowStock); err != nil {
		return err
	}
	aging, err := cron.NewUnpaidAgingJob(cron.UnpaidAgingJobParams{
		Logger:   logg,
		Invoices: invoiceService,
		Metrics:  cronMetrics,
		Days:     cfg.Cron.UnpaidAgingDays,
	})
	if err != nil {
		return err
	}
	if err := jobs.Register(aging); err != nil {
		return err
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName), cfg.Cron.LockTTL)
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   jobs,
		Lock:       lock,
		Metrics:    cronMetrics,
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.LockTTL - cfg.Cron.LockTTL/10,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Cron.Interval.String(),
	})

	if once {
		err := service.RunOnce(ctx)
		if errors.Is(err, cron.ErrLockHeld) {
			logg.Warn(ctx, "another worker holds the cron lock")
			return nil
		}
		return err
	}

	metricsServer := &http.Server{
		Addr:              cfg.Cron.MetricsAddr,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if cfg.Cron.MetricsAddr != "" {
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logg.Error(ctx, "metrics server stopped", err)
			}
		}()
	}

	logg.Info(ctx, "starting cron worker")
	runErr := service.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cfg.Cron.MetricsAddr != "" {
		runErr = multierr.Append(runErr, metricsServer.Shutdown(shutdownCtx))
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
	return runErr
}
