package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/privashield/leakwatch/internal/analytics"
	"github.com/privashield/leakwatch/internal/auth"
	"github.com/privashield/leakwatch/internal/config"
	"github.com/privashield/leakwatch/internal/detection"
	"github.com/privashield/leakwatch/internal/models"
	"github.com/privashield/leakwatch/internal/reports"
	"github.com/privashield/leakwatch/internal/scheduler"
)

// Pinger reports whether the event store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the HTTP surface delegates to.
type Deps struct {
	Store      Pinger
	Detector   *detection.Service
	Aggregator *analytics.Aggregator
	Verifier   auth.Verifier
	Scheduler  *scheduler.Scheduler
	Gatherer   prometheus.Gatherer
}

type Server struct {
	cfg    *config.Config
	router *chi.Mux
	http   *http.Server
	logger *slog.Logger

	store      Pinger
	detector   *detection.Service
	aggregator *analytics.Aggregator
	verifier   auth.Verifier
	scheduler  *scheduler.Scheduler
	gatherer   prometheus.Gatherer

	reportGenerator *reports.Generator
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewServer(cfg *config.Config, deps Deps, opts ...ServerOption) (*Server, error) {
	if deps.Store == nil || deps.Detector == nil || deps.Aggregator == nil || deps.Verifier == nil {
		return nil, errors.New("api: store, detector, aggregator and verifier are required")
	}

	s := &Server{
		cfg:        cfg,
		router:     chi.NewRouter(),
		logger:     slog.Default(),
		store:      deps.Store,
		detector:   deps.Detector,
		aggregator: deps.Aggregator,
		verifier:   deps.Verifier,
		scheduler:  deps.Scheduler,
		gatherer:   deps.Gatherer,
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}

	for _, opt := range opts {
		opt(s)
	}

	s.reportGenerator = reports.NewGenerator(s.aggregator, nil)

	s.setupMiddleware()
	s.setupRoutes()

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	timeout := s.cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(timeout))
	s.router.Use(s.corsMiddleware())
}

func (s *Server) corsMiddleware() func(http.Handler) http.Handler {
	allowOrigin := s.cfg.Server.CORSAllowOrigin
	if allowOrigin == "*" && !s.cfg.Server.IsDevelopment() {
		s.logger.Warn("CORS Allow-Origin set to '*' - configure server.cors_allow_origin in production")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.healthCheck)
	s.router.Get("/ready", s.readyCheck)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	onAuthError := auth.ErrorFunc(respondAuthError)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(s.verifier, auth.WithErrorFunc(onAuthError)))

		r.Post("/pii/detect", s.detectPII)

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/summary", s.getSummary)
			r.Get("/current-leaks", s.getCurrentLeaks)
			r.Get("/previous-leaks", s.getPreviousLeaks)
			r.Get("/monthly-risk", s.getMonthlyRisk)
			r.Get("/monthly-data", s.getMonthlyData)
			r.Get("/sensitive-info", s.getSensitiveInfo)

			r.With(auth.RequireRole(onAuthError, models.RoleAdmin)).Get("/all-users-leaks", s.getAllUsersLeaks)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(onAuthError, models.RoleAdmin))

			r.Get("/reports/leaks", s.exportLeakReport)

			r.Route("/jobs", func(r chi.Router) {
				r.Post("/{jobID}/run", s.runJobNow)
				r.Get("/{jobID}/executions", s.getJobExecutions)
			})
		})
	})
}

func (s *Server) Run(ctx context.Context) error {
	if s.scheduler != nil {
		s.scheduler.Start()
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "addr", s.http.Addr, "environment", s.cfg.Server.Environment)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if s.scheduler != nil {
			<-s.scheduler.Stop().Done()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	})
}

func respondAuthError(w http.ResponseWriter, status int, err error) {
	switch {
	case status == http.StatusForbidden:
		respondError(w, status, "forbidden", "Insufficient permissions")
	case errors.Is(err, auth.ErrTokenExpired):
		respondError(w, status, "token_expired", "Token has expired")
	default:
		respondError(w, status, "unauthorized", "Authentication required")
	}
}

// respondInternal logs err and answers 500. The error text is only exposed
// in development.
func (s *Server) respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)

	message := "Internal server error"
	if s.cfg.Server.IsDevelopment() {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	respondError(w, http.StatusInternalServerError, "internal_error", message)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) readyCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		respondError(w, http.StatusServiceUnavailable, "db_unavailable", "Database not available")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
