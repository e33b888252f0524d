package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"jobtracker/internal/api"
	"jobtracker/internal/config"
	"jobtracker/internal/database"
	"jobtracker/internal/domain"
	"jobtracker/internal/events"
	"jobtracker/internal/google"
	"jobtracker/internal/logging"
	"jobtracker/internal/metrics"
	"jobtracker/internal/repository"
	"jobtracker/internal/service"
	"jobtracker/internal/session"
	"jobtracker/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := database.NewDB(cfg.Database.Path, logging.Component(&logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}

	eventBus := events.NewEventBus()
	eventBus.Subscribe(func(e *events.Event) error {
		metrics.IncJobEvent(e.Type)
		return nil
	}, events.EventJobCreated, events.EventJobDeleted, events.EventEquipmentAdded)

	jobService := service.NewJobService(db, eventBus, logging.Component(&logger, "jobs"))
	if err := seedJobs(ctx, jobService, &logger); err != nil {
		return err
	}

	sessions := initSessions(ctx, cfg, redisClient, &logger)

	httpServer := api.NewHTTPServer(cfg.API, jobService, sessions, db, &logger)

	if sheetsWorker := initSheetsWorker(ctx, cfg, db, jobService, redisClient, &logger); sheetsWorker != nil {
		sheetsWorker.Subscribe(eventBus)
		httpServer.WithSync(sheetsWorker)
		go sheetsWorker.Start(ctx)
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, logging.Component(&logger, "backup"))
		go backupService.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	return serve(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// seedJobs заполняет пустую базу из SEED_PATH, если файл задан.
func seedJobs(ctx context.Context, jobs *service.JobService, logger *zerolog.Logger) error {
	seedPath := os.Getenv("SEED_PATH")
	if seedPath == "" {
		return nil
	}
	f, err := os.Open(seedPath)
	if err != nil {
		logger.Error().Err(err).Str("seed_path", seedPath).Msg("open seed file")
		return err
	}
	defer f.Close()

	n, err := jobs.Seed(ctx, f)
	if err != nil {
		logger.Error().Err(err).Str("seed_path", seedPath).Msg("seed jobs")
		return err
	}
	logger.Info().Int("jobs", n).Str("seed_path", seedPath).Msg("seed applied")
	return nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = repository.Close(redisClient)
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initSessions(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) *session.Manager {
	sessionLogger := logging.Component(logger, "session")

	var repo domain.SessionRepository = repository.NewMemorySessionRepository(cfg.Session.TTL)
	if redisClient != nil {
		primary := repository.NewRedisSessionRepository(redisClient, cfg.Session.TTL, cfg.Session.KeyPrefix)
		repo = repository.NewFailoverSessionRepository(primary, repo, sessionLogger)
	}

	verifier := newVerifier(ctx, cfg, logger)

	opts := google.Options{Endpoint: cfg.Google.Endpoint, Timeout: cfg.Google.RequestTimeout}
	newClient := func(ctx context.Context) (domain.SpreadsheetClient, error) {
		return google.NewClient(ctx, opts)
	}

	return session.NewManager(repo, verifier, newClient, sessionLogger)
}

// newVerifier возвращает nil, если вход невозможен: тогда вход отвечает auth_not_configured,
// а сервер продолжает работу.
func newVerifier(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) session.TokenVerifier {
	if strings.TrimSpace(cfg.Google.OAuthClientID) == "" {
		logger.Error().Err(domain.ErrAuthNotConfigured).Msg("google auth initialization failed, sign-in disabled")
		return nil
	}
	if !cfg.API.Auth.VerifyTokens {
		return session.NoopVerifier{}
	}

	v, err := session.NewGoogleVerifier(ctx, cfg.Google.OAuthClientID, cfg.Google.RequestTimeout)
	if err != nil {
		logger.Error().Err(err).Msg("google auth initialization failed, sign-in disabled")
		return nil
	}
	return v
}

func initSheetsWorker(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	jobs *service.JobService,
	redisClient *redis.Client,
	logger *zerolog.Logger,
) *worker.SheetsWorker {
	if !cfg.Sync.Enabled {
		return nil
	}
	if cfg.Google.CredentialsFile == "" {
		logger.Warn().Msg("sync enabled but google.credentials_file is empty, sync disabled")
		return nil
	}

	creds, err := os.ReadFile(cfg.Google.CredentialsFile)
	if err != nil {
		logger.Warn().Err(err).Msg("read google credentials, sync disabled")
		return nil
	}

	client, err := google.NewServiceAccountClient(ctx, creds, google.Options{
		Endpoint: cfg.Google.Endpoint,
		Timeout:  cfg.Google.RequestTimeout,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, sync disabled")
		return nil
	}

	sheet := google.NewJobsSheet(client, cfg.Google.SpreadsheetID, cfg.Google.JobsSheet)
	logger.Info().Str("spreadsheet_id", cfg.Google.SpreadsheetID).Msg("google sheets sync enabled")
	return worker.NewSheetsWorker(db, jobs, sheet, redisClient, cfg.Sync, logging.Component(logger, "sheets_worker"))
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	metrics.Register()
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
