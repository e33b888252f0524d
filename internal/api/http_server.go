package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"jobtracker/internal/config"
	"jobtracker/internal/domain"
	"jobtracker/internal/models"
	"jobtracker/internal/service"
	"jobtracker/internal/session"

	"github.com/rs/zerolog"
)

// JobService is the part of service.JobService used by the HTTP layer.
type JobService interface {
	CreateJob(ctx context.Context, in service.CreateJobInput) (*models.Job, error)
	ListJobs(ctx context.Context) ([]*models.Job, error)
	DeleteJob(ctx context.Context, id string) error
	AddEquipment(ctx context.Context, jobID string, in service.AddEquipmentInput) (*models.Equipment, error)
	ListEquipment(ctx context.Context, jobID string) ([]*models.Equipment, error)
}

// SessionManager is the part of session.Manager used by the HTTP layer.
type SessionManager interface {
	Get(ctx context.Context, id string) (*session.Session, error)
	SignIn(ctx context.Context, id, token string) (*session.Session, error)
	SignOut(ctx context.Context, id string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// HTTPServer exposes the job tracker JSON API.
type HTTPServer struct {
	cfg      config.APIConfig
	jobs     JobService
	sessions SessionManager
	db       Pinger
	logger   *zerolog.Logger
	limiter  *rateLimiter
	sync     domain.SyncWorker
	server   *http.Server
	now      func() time.Time
}

func NewHTTPServer(cfg config.APIConfig, jobs JobService, sessions SessionManager, db Pinger, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.Auth.SessionHeader == "" {
		cfg.Auth.SessionHeader = "X-Session-ID"
	}

	srv := &HTTPServer{
		cfg:      cfg,
		jobs:     jobs,
		sessions: sessions,
		db:       db,
		logger:   logger,
		limiter:  newRateLimiter(cfg.RateLimit),
		now:      time.Now,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

// Handler returns the routed handler with middleware applied.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /jobs", s.handleListJobs)
	mux.HandleFunc("POST /jobs", s.gated(s.handleCreateJob))
	mux.HandleFunc("GET /jobs/export.xlsx", s.handleExportJobs)
	mux.HandleFunc("DELETE /jobs/{id}", s.gated(s.handleDeleteJob))
	mux.HandleFunc("GET /jobs/{id}/equipment", s.handleListEquipment)
	mux.HandleFunc("POST /jobs/{id}/equipment", s.gated(s.handleAddEquipment))

	mux.HandleFunc("POST /auth/session", s.handleSignIn)
	mux.HandleFunc("GET /auth/session", s.handleGetSession)
	mux.HandleFunc("DELETE /auth/session", s.handleSignOut)

	mux.HandleFunc("GET /sheets/{spreadsheetId}/values/{range}", s.handleGetRange)
	mux.HandleFunc("PUT /sheets/{spreadsheetId}/values/{range}", s.handleUpdateRange)

	mux.HandleFunc("POST /sync/jobs", s.gated(s.handleSyncJobs))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	return requestIDMiddleware(s.loggingMiddleware(s.limiter.Wrap(s.limiterKey, mux)))
}

// WithSync включает ручной запуск выгрузки в таблицу.
func (s *HTTPServer) WithSync(w domain.SyncWorker) *HTTPServer {
	s.sync = w
	return s
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("readiness check failed")
		writeError(w, http.StatusServiceUnavailable, "unavailable", "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
