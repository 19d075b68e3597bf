package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/tour-registration/internal/auth"
	"github.com/Shivanand-hulikatti/tour-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/tour-registration/internal/service"
)

// RouterConfig carries everything the router needs.
type RouterConfig struct {
	Tours         *service.TourService
	Registrations *service.RegistrationService
	Admin         *service.AdminService
	Auth          *auth.Service
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	CORSOrigin    string
	Log           *zap.Logger
}

// NewRouter builds the full HTTP API.
func NewRouter(cfg RouterConfig) chi.Router {
	tours := NewTourHandler(cfg.Tours, cfg.Log)
	regs := NewRegistrationHandler(cfg.Registrations, cfg.Log)
	admin := NewAdminHandler(cfg.Admin, cfg.Auth, cfg.Log)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(cfg.Log, cfg.Metrics))
	r.Use(CORS(cfg.CORSOrigin))

	r.Get("/health", HealthCheck)
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// Public API
	r.Route("/tours", func(r chi.Router) {
		r.Get("/", tours.ListTours)
		r.Get("/{id}", tours.GetTour)
	})
	r.Post("/registrations", regs.Create)

	// Admin API
	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", admin.Login)

		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth.RequireAdmin(cfg.Log))

			r.Route("/registrations", func(r chi.Router) {
				r.Get("/", regs.List)
				r.Get("/{id}", regs.Get)
				r.Post("/{id}/approve", regs.Approve)
				r.Post("/{id}/reject", regs.Reject)
				r.Post("/{id}/cancel", regs.Cancel)
				r.Post("/{id}/assign-date", regs.AssignDate)
			})
			r.Route("/tours", func(r chi.Router) {
				r.Get("/", tours.ListAllTours)
				r.Post("/", tours.CreateTour)
				r.Patch("/{id}", tours.UpdateTour)
			})
			r.Get("/stats", tours.Stats)
			r.Route("/emails", func(r chi.Router) {
				r.Get("/", admin.ListEmails)
				r.Post("/", admin.AddEmail)
				r.Delete("/{id}", admin.RemoveEmail)
			})
			r.Post("/daily-summary", admin.DailySummary)
		})
	})

	return r
}
