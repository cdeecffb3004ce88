package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"ranchops/internal/config"
	"ranchops/internal/ledger"
	"ranchops/internal/metrics"
	"ranchops/internal/services"
)

// Server wires the HTTP transport to the application services.
type Server struct {
	cfg      *config.Config
	db       *gorm.DB
	health   *services.HealthService
	auth     *services.AuthService
	enquiry  *services.EnquiryService
	recorder *ledger.Recorder
}

// New creates a server with all its dependencies injected.
func New(cfg *config.Config, db *gorm.DB, health *services.HealthService, auth *services.AuthService, enquiry *services.EnquiryService, recorder *ledger.Recorder) *Server {
	return &Server{
		cfg:      cfg,
		db:       db,
		health:   health,
		auth:     auth,
		enquiry:  enquiry,
		recorder: recorder,
	}
}

// Handler builds the route tree with the full middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(s.securityHeaders)
	r.Use(s.cors)
	r.Use(requestLogging)
	r.Use(metrics.HTTPMiddleware)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/enquiries", s.handleCreateEnquiry)

		// The recorder applies its own authorization policy, so the route
		// only resolves the actor and lets unauthenticated requests through
		// to be rejected there.
		r.With(s.resolveActor).Post("/enquiries/{id}/transactions", s.handleRecordTransaction)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/auth/me", s.handleMe)
			r.With(s.requireAdmin).Post("/auth/users", s.handleCreateUser)

			r.Group(func(r chi.Router) {
				r.Use(s.requireStaff)

				r.Get("/enquiries", s.handleListEnquiries)
				r.Get("/enquiries/{id}", s.handleGetEnquiry)
				r.Patch("/enquiries/{id}/status", s.handleUpdateEnquiryStatus)
				r.Get("/enquiries/{id}/transactions", s.handleListTransactions)
				r.Get("/enquiries/{id}/audit-logs", s.handleListAuditLogs)
			})
		})
	})

	return r
}
