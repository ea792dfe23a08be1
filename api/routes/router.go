package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garageworks/garage-backend/api/controllers"
	authcontrollers "github.com/garageworks/garage-backend/api/controllers/auth"
	invoicecontrollers "github.com/garageworks/garage-backend/api/controllers/invoices"
	servicecontrollers "github.com/garageworks/garage-backend/api/controllers/services"
	"github.com/garageworks/garage-backend/api/middleware"
	"github.com/garageworks/garage-backend/internal/auth"
	"github.com/garageworks/garage-backend/internal/clients"
	"github.com/garageworks/garage-backend/internal/inventory"
	"github.com/garageworks/garage-backend/internal/invoices"
	"github.com/garageworks/garage-backend/internal/organizations"
	"github.com/garageworks/garage-backend/internal/parts"
	"github.com/garageworks/garage-backend/internal/services"
	"github.com/garageworks/garage-backend/internal/vehicles"
	"github.com/garageworks/garage-backend/pkg/auth/session"
	"github.com/garageworks/garage-backend/pkg/config"
	"github.com/garageworks/garage-backend/pkg/db"
	"github.com/garageworks/garage-backend/pkg/logger"
	"github.com/garageworks/garage-backend/pkg/redis"
)

// Cache is the redis surface the HTTP layer needs.
type Cache interface {
	redis.Pinger
	redis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// HTTPObserver records per-route request metrics.
type HTTPObserver interface {
	Observe(method, route string, status int, elapsed time.Duration)
}

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Auth          auth.Service
	Signup        auth.SignupService
	Refresh       auth.RefreshService
	Clients       clients.Service
	Organizations organizations.Service
	Vehicles      vehicles.Service
	Parts         parts.Service
	Inventory     inventory.Service
	Services      services.Service
	Invoices      invoices.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	cache Cache,
	sessions session.AccessSessionChecker,
	policy middleware.PolicyChecker,
	httpMetrics HTTPObserver,
	gatherer prometheus.Gatherer,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)
	if httpMetrics != nil {
		r.Use(middleware.Metrics(httpMetrics))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	signupPolicy := middleware.NewAuthRateLimitPolicy(
		"signup",
		cfg.AuthRateLimit.SignupWindow,
		cfg.AuthRateLimit.SignupIPLimit,
		cfg.AuthRateLimit.SignupEmailLimit,
	)

	var limiter interface {
		IncrWithTTL(context.Context, string, time.Duration) (int64, error)
		RateLimitKey(string) string
	}
	var idempotencyStore redis.IdempotencyStore
	var redisP redis.Pinger
	if cache != nil {
		limiter, idempotencyStore, redisP = cache, cache, cache
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	requireAuth := middleware.Auth(cfg.JWT, sessions, logg)

	r.Route("/api/auth", func(r chi.Router) {
		r.With(
			middleware.AuthRateLimit(signupPolicy, limiter, logg),
			middleware.OptionalAuth(cfg.JWT, sessions, logg),
		).Post("/signup", authcontrollers.Signup(svc.Signup, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).Post("/login", authcontrollers.Login(svc.Auth, logg))
		r.Post("/refresh", authcontrollers.Refresh(svc.Refresh, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/logout", authcontrollers.Logout(svc.Auth, logg))
			r.Get("/me", authcontrollers.Me(svc.Auth, logg))
			r.Put("/password", authcontrollers.ChangePassword(svc.Auth, logg))
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.Authorize(policy, logg))
		r.Use(middleware.Idempotency(idempotencyStore, cfg.Idempotency.TTL, logg))

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", controllers.ListClients(svc.Clients, logg))
			r.Post("/", controllers.CreateClient(svc.Clients, logg))
			r.Post("/with-vehicles", controllers.CreateClientWithVehicles(svc.Clients, logg))
			r.Get("/{id}", controllers.GetClient(svc.Clients, logg))
			r.Put("/{id}", controllers.UpdateClient(svc.Clients, logg))
			r.Delete("/{id}", controllers.DeleteClient(svc.Clients, logg))
			r.Get("/{id}/vehicles", controllers.ClientVehicles(svc.Clients, svc.Vehicles, logg))
			r.Get("/{id}/services", controllers.ClientServices(svc.Clients, svc.Services, logg))
		})

		r.Route("/organizations", func(r chi.Router) {
			r.Get("/", controllers.ListOrganizations(svc.Organizations, logg))
			r.Post("/", controllers.CreateOrganization(svc.Organizations, logg))
			r.Get("/{id}", controllers.GetOrganization(svc.Organizations, logg))
			r.Put("/{id}", controllers.UpdateOrganization(svc.Organizations, logg))
			r.Delete("/{id}", controllers.DeleteOrganization(svc.Organizations, logg))
			r.Get("/{id}/vehicles", controllers.OrganizationVehicles(svc.Organizations, svc.Vehicles, logg))
			r.Get("/{id}/services", controllers.OrganizationServices(svc.Organizations, svc.Services, logg))
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", controllers.ListVehicles(svc.Vehicles, logg))
			r.Post("/", controllers.CreateVehicle(svc.Vehicles, logg))
			r.Get("/{id}", controllers.GetVehicle(svc.Vehicles, logg))
			r.Put("/{id}", controllers.UpdateVehicle(svc.Vehicles, logg))
			r.Delete("/{id}", controllers.DeleteVehicle(svc.Vehicles, logg))
			r.Get("/{id}/services", controllers.VehicleServices(svc.Vehicles, svc.Services, logg))
		})

		r.Route("/parts", func(r chi.Router) {
			r.Get("/", controllers.ListParts(svc.Parts, logg))
			r.Post("/", controllers.CreatePart(svc.Parts, logg))
			r.Get("/low-stock", controllers.LowStockParts(svc.Parts, logg))
			r.Get("/{id}", controllers.GetPart(svc.Parts, logg))
			r.Put("/{id}", controllers.UpdatePart(svc.Parts, logg))
			r.Delete("/{id}", controllers.DeletePart(svc.Parts, logg))
			r.Patch("/{id}/stock", controllers.AdjustPartStock(svc.Parts, logg))
			r.Get("/{id}/movements", controllers.PartMovements(svc.Parts, svc.Inventory, logg))
		})

		r.Route("/services", func(r chi.Router) {
			r.Get("/", servicecontrollers.List(svc.Services, logg))
			r.Post("/", servicecontrollers.Create(svc.Services, logg))
			r.Get("/{id}", servicecontrollers.Detail(svc.Services, logg))
			r.Put("/{id}", servicecontrollers.Update(svc.Services, logg))
			r.Delete("/{id}", servicecontrollers.Delete(svc.Services, logg))
			r.Post("/{id}/parts", servicecontrollers.AddPart(svc.Services, logg))
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", invoicecontrollers.List(svc.Invoices, logg))
			r.Post("/", invoicecontrollers.Create(svc.Invoices, logg))
			r.Get("/stats/revenue", invoicecontrollers.RevenueStats(svc.Invoices, logg))
			r.Get("/{id}", invoicecontrollers.Detail(svc.Invoices, logg))
			r.Put("/{id}", invoicecontrollers.Update(svc.Invoices, logg))
			r.Delete("/{id}", invoicecontrollers.Delete(svc.Invoices, logg))
			r.Patch("/{id}/pay", invoicecontrollers.MarkPaid(svc.Invoices, logg))
			r.Get("/{id}/pdf", invoicecontrollers.PDF(svc.Invoices, logg))
		})
	})

	return r
}
