package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scriptflow/scriptflow/internal/api/alerts"
	"github.com/scriptflow/scriptflow/internal/api/auth"
	"github.com/scriptflow/scriptflow/internal/api/logs"
	"github.com/scriptflow/scriptflow/internal/api/middleware"
	"github.com/scriptflow/scriptflow/internal/api/notifications"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Create JWT service (tokens are issued by the main ScriptFlow app;
	// this service only validates them)
	jwtService := auth.NewJWTService(s.config.JWTSecret, s.config.AccessTokenTTL)

	// Create rate limiter
	ipLimiter := middleware.NewRateLimiter(s.config.RateLimitPerIP)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.Recoverer)

	// API v1 routes (protected)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ipLimiter))
		r.Use(middleware.JWTAuth(jwtService))

		r.Route("/logs", func(r chi.Router) {
			var waker logs.Waker
			if s.scheduler != nil {
				waker = s.scheduler
			}
			logsHandler := logs.NewHandler(
				s.logStorage.Logs(),
				waker,
				s.config.QueryTimeout,
				s.config.MaxQueryLength,
			)

			r.Get("/", logsHandler.Search)
			r.Post("/", logsHandler.Ingest)
			r.Get("/help", logsHandler.Help)
		})

		r.Route("/alerts", func(r chi.Router) {
			alertsHandler := alerts.NewHandler(s.storage)

			r.Get("/", alertsHandler.List)
			r.Post("/", alertsHandler.Create)
			r.Get("/history", alertsHandler.GlobalHistory)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", alertsHandler.GetByID)
				r.Put("/", alertsHandler.Update)
				r.Delete("/", alertsHandler.Delete)
				r.Post("/pause", alertsHandler.Pause)
				r.Post("/resume", alertsHandler.Resume)
				r.Get("/history", alertsHandler.History)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			notifHandler := notifications.NewHandler(s.storage.Notifications())

			r.Get("/", notifHandler.List)
			r.Post("/read-all", notifHandler.MarkAllRead)
			r.Post("/{id}/read", notifHandler.MarkRead)
		})
	})

	// Health check (public, no rate limit)
	r.Get("/health", s.handleHealth)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.logStorage.Ping(ctx); err != nil {
		JSONError(w, &Error{
			Code:    "SERVICE_UNAVAILABLE",
			Message: "log storage unavailable",
			Status:  http.StatusServiceUnavailable,
		})
		return
	}
	OK(w, map[string]string{"status": "ok"})
}
