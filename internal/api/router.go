// Package api assembles the HTTP router.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/auth"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/fleet"
	"github.com/ukydev/fleetflow/internal/handlers"
	"github.com/ukydev/fleetflow/internal/middleware"
	"github.com/ukydev/fleetflow/internal/models"
	"github.com/ukydev/fleetflow/internal/monitoring"
)

// Options tune the router.
type Options struct {
	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	DeadStockWindow   time.Duration
	// TrustProxy takes the client address from X-Forwarded-For or
	// X-Real-IP. Enable it only behind a proxy that sets those headers.
	TrustProxy bool
}

// Deps are the services the routes call into. Metrics and Limiter may be nil.
type Deps struct {
	Store   db.Store
	Engine  *fleet.Engine
	Auth    *auth.Service
	Metrics *monitoring.Metrics
	Limiter *middleware.RateLimitMiddleware
}

// NewRouter builds the chi router with every route.
func NewRouter(deps Deps, opts Options) http.Handler {
	r := chi.NewRouter()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(chimw.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(log.WithField("component", "http")))
	r.Use(chimw.Recoverer)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Instrument)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Request-Id"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Store)
	fleetHandler := handlers.NewFleetHandler(deps.Engine)
	reportHandler := handlers.NewReportHandler(deps.Store, opts.DeadStockWindow)
	authMW := middleware.NewAuthMiddleware(deps.Auth)
	can := authMW.RequirePermission

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", reportHandler.Health)

		r.Group(func(r chi.Router) {
			if deps.Limiter != nil {
				r.Use(deps.Limiter.RateLimit(opts.RateLimitRequests, opts.RateLimitWindow))
			}
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(authMW.Authenticate)

				r.Get("/auth/me", authHandler.GetProfile)
				r.Put("/auth/profile", authHandler.UpdateProfile)
				r.Post("/auth/password", authHandler.ChangePassword)

				r.Route("/vehicles", func(r chi.Router) {
					r.With(can(models.ActionViewFleet)).Get("/", fleetHandler.ListVehicles)
					r.With(can(models.ActionViewFleet)).Get("/{id}", fleetHandler.GetVehicle)
					r.Group(func(r chi.Router) {
						r.Use(can(models.ActionManageVehicles))
						r.Post("/", fleetHandler.CreateVehicle)
						r.Put("/{id}", fleetHandler.UpdateVehicle)
						r.Patch("/{id}/status", fleetHandler.SetVehicleStatus)
						r.Delete("/{id}", fleetHandler.DeleteVehicle)
					})
				})

				r.Route("/drivers", func(r chi.Router) {
					r.With(can(models.ActionViewFleet)).Get("/", fleetHandler.ListDrivers)
					r.With(can(models.ActionViewFleet)).Get("/{id}", fleetHandler.GetDriver)
					r.Group(func(r chi.Router) {
						r.Use(can(models.ActionManageDrivers))
						r.Post("/", fleetHandler.CreateDriver)
						r.Put("/{id}", fleetHandler.UpdateDriver)
						r.Patch("/{id}/status", fleetHandler.SetDriverStatus)
						r.Delete("/{id}", fleetHandler.DeleteDriver)
					})
				})

				r.Route("/trips", func(r chi.Router) {
					r.With(can(models.ActionViewFleet)).Get("/", fleetHandler.ListTrips)
					r.With(can(models.ActionViewFleet)).Get("/{id}", fleetHandler.GetTrip)
					r.Group(func(r chi.Router) {
						r.Use(can(models.ActionManageTrips))
						r.Post("/", fleetHandler.CreateTrip)
						r.Patch("/{id}/dispatch", fleetHandler.DispatchTrip)
						r.Patch("/{id}/complete", fleetHandler.CompleteTrip)
						r.Patch("/{id}/cancel", fleetHandler.CancelTrip)
						r.Delete("/{id}", fleetHandler.DeleteTrip)
					})
				})

				r.Route("/maintenance", func(r chi.Router) {
					r.With(can(models.ActionViewFleet)).Get("/", fleetHandler.ListMaintenance)
					r.With(can(models.ActionViewFleet)).Get("/{id}", fleetHandler.GetMaintenance)
					r.Group(func(r chi.Router) {
						r.Use(can(models.ActionManageMaintenance))
						r.Post("/", fleetHandler.CreateMaintenance)
						r.Patch("/{id}", fleetHandler.UpdateMaintenance)
						r.Delete("/{id}", fleetHandler.DeleteMaintenance)
					})
				})

				r.Route("/fuel", func(r chi.Router) {
					r.With(can(models.ActionViewFleet)).Get("/", fleetHandler.ListFuelLogs)
					r.Group(func(r chi.Router) {
						r.Use(can(models.ActionManageFinance))
						r.Post("/", fleetHandler.CreateFuelLog)
						r.Put("/{id}", fleetHandler.UpdateFuelLog)
						r.Delete("/{id}", fleetHandler.DeleteFuelLog)
					})
				})

				r.Route("/expenses", func(r chi.Router) {
					r.With(can(models.ActionViewFleet)).Get("/", fleetHandler.ListExpenses)
					r.Group(func(r chi.Router) {
						r.Use(can(models.ActionManageFinance))
						r.Post("/", fleetHandler.CreateExpense)
						r.Put("/{id}", fleetHandler.UpdateExpense)
						r.Delete("/{id}", fleetHandler.DeleteExpense)
					})
				})

				r.With(can(models.ActionViewFleet)).Get("/kpis", reportHandler.KPIs)
				r.With(can(models.ActionViewAnalytics)).Get("/analytics", reportHandler.Analytics)
				r.With(can(models.ActionViewAnalytics)).Get("/analytics/alerts", reportHandler.Alerts)
				r.With(can(models.ActionSeedData)).Post("/seed", reportHandler.Seed)
			})
		})
	})

	return r
}
