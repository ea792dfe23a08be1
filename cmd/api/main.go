package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/garageworks/garage-backend/api/responses"
	"github.com/garageworks/garage-backend/api/routes"
	"github.com/garageworks/garage-backend/internal/auth"
	"github.com/garageworks/garage-backend/internal/authz"
	"github.com/garageworks/garage-backend/internal/clients"
	"github.com/garageworks/garage-backend/internal/inventory"
	"github.com/garageworks/garage-backend/internal/invoices"
	"github.com/garageworks/garage-backend/internal/organizations"
	"github.com/garageworks/garage-backend/internal/parts"
	"github.com/garageworks/garage-backend/internal/services"
	"github.com/garageworks/garage-backend/internal/users"
	"github.com/garageworks/garage-backend/internal/vehicles"
	"github.com/garageworks/garage-backend/pkg/auth/session"
	"github.com/garageworks/garage-backend/pkg/config"
	"github.com/garageworks/garage-backend/pkg/db"
	"github.com/garageworks/garage-backend/pkg/logger"
	"github.com/garageworks/garage-backend/pkg/metrics"
	"github.com/garageworks/garage-backend/pkg/migrate"
	"github.com/garageworks/garage-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	responses.ExposeErrorChain(cfg.App.IsDev())

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	business := metrics.NewBusinessMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	enforcer, err := authz.NewDefaultEnforcer()
	if err != nil {
		return err
	}

	svc, err := buildServices(cfg, logg, dbClient, sessionManager, business)
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, enforcer, httpMetrics, registry, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessionManager *session.Manager, business *metrics.BusinessMetrics) (routes.Services, error) {
	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Services{}, err
	}
	signupService, err := auth.NewSignupService(auth.SignupServiceParams{
		UserRepo:       userRepo,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Services{}, err
	}
	refreshService, err := auth.NewRefreshService(auth.RefreshServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return routes.Services{}, err
	}

	vehicleService, err := vehicles.NewService(vehicles.NewRepository(conn), dbClient)
	if err != nil {
		return routes.Services{}, err
	}
	clientService, err := clients.NewService(clients.NewRepository(conn), dbClient, vehicleService)
	if err != nil {
		return routes.Services{}, err
	}
	organizationService, err := organizations.NewService(organizations.NewRepository(conn), dbClient)
	if err != nil {
		return routes.Services{}, err
	}

	ledger, err := inventory.NewService(inventory.ServiceParams{
		Repo:    inventory.NewRepository(conn),
		DB:      dbClient,
		Logger:  logg,
		Metrics: business,
	})
	if err != nil {
		return routes.Services{}, err
	}
	partService, err := parts.NewService(parts.NewRepository(conn), dbClient, ledger)
	if err != nil {
		return routes.Services{}, err
	}
	serviceRecords, err := services.NewService(services.ServiceParams{
		Repo:      services.NewRepository(conn),
		DB:        dbClient,
		Vehicles:  vehicleService,
		Inventory: ledger,
		Logger:    logg,
		Metrics:   business,
	})
	if err != nil {
		return routes.Services{}, err
	}
	invoiceService, err := invoices.NewService(invoices.ServiceParams{
		Repo:    invoices.NewRepository(conn),
		DB:      dbClient,
		Config:  cfg.Invoice,
		Logger:  logg,
		Metrics: business,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:          authService,
		Signup:        signupService,
		Refresh:       refreshService,
		Clients:       clientService,
		Organizations: organizationService,
		Vehicles:      vehicleService,
		Parts:         partService,
		Inventory:     ledger,
		Services:      serviceRecords,
		Invoices:      invoiceService,
	}, nil
}
