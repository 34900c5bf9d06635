package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/api/handler"
	mw "github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/api/middleware"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/core"
)

type Server struct {
	router         chi.Router
	logger         zerolog.Logger
	services       *core.Services
	pool           *pgxpool.Pool
	temporalClient temporalclient.Client
}

func NewServer(logger zerolog.Logger, pool *pgxpool.Pool, temporalClient temporalclient.Client, services *core.Services) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		logger:         logger,
		services:       services,
		pool:           pool,
		temporalClient: temporalClient,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth(s.pool))

		// Domains
		domain := handler.NewDomain(s.services.Domain)
		r.Get("/domains", domain.List)
		r.Post("/domains", domain.Create)
		r.Get("/domains/{id}", domain.Get)
		r.Delete("/domains/{id}", domain.Delete)
		r.Post("/domains/{id}/sync", domain.Sync)

		// Jobs
		job := handler.NewJob(s.services.Job)
		r.Get("/jobs", job.List)
		r.Post("/jobs", job.Create)
		r.Get("/jobs/{id}", job.Get)

		// Webhook subscriptions
		webhook := handler.NewWebhook(s.services.Webhook)
		r.Get("/webhooks", webhook.List)
		r.Post("/webhooks", webhook.Create)
		r.Get("/webhooks/{id}", webhook.Get)
		r.Patch("/webhooks/{id}", webhook.Update)
		r.Delete("/webhooks/{id}", webhook.Delete)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.pool.Ping(ctx); err != nil {
		checks["db"] = err.Error()
		healthy = false
	} else {
		checks["db"] = "ok"
	}

	if _, err := s.temporalClient.CheckHealth(ctx, &temporalclient.CheckHealthRequest{}); err != nil {
		checks["temporal"] = err.Error()
		healthy = false
	} else {
		checks["temporal"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
