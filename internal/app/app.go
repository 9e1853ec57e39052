// Package app provides application-level wiring and dependency injection
// for the tabula server following hexagonal architecture.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"tabula/internal/api"
	"tabula/internal/config"
	"tabula/internal/db/repository"
	"tabula/internal/domain"
	"tabula/internal/engine"
	"tabula/internal/middleware"
	"tabula/internal/service/dashboard"
	"tabula/internal/service/ingestion"
	"tabula/internal/service/query"
	"tabula/internal/storage"
)

// Deps holds the external dependencies that main() must provide: config,
// the migrated SQLite pools and the root logger.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// Services groups the services the API handler needs.
type Services struct {
	Query     *query.QueryService
	Ingestion *ingestion.IngestionService
	Dashboard *dashboard.Service
}

// App holds the fully-wired application and the background workers whose
// lifecycle main() drives.
type App struct {
	Services  Services
	Handler   http.Handler
	Recorder  *query.Recorder
	Scheduler *dashboard.Scheduler
	Watcher   *ingestion.Watcher // nil when WATCH_DIR is unset
	Archive   domain.ObjectArchive

	logger *slog.Logger
	wg     sync.WaitGroup
}

// New wires repositories, services, background workers and the HTTP router.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// === Repositories ===
	datasetRepo := repository.NewDatasetRepo(deps.WriteDB, deps.ReadDB)
	historyRepo := repository.NewQueryHistoryRepo(deps.WriteDB)
	dashboardRepo := repository.NewDashboardRepo(deps.WriteDB)
	panelRepo := repository.NewPanelRepo(deps.WriteDB)

	// === Engine & archive ===
	executor := engine.NewExecutor(deps.ReadDB, logger)
	archive, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("upload archive: %w", err)
	}

	// === Services ===
	recorder := query.NewRecorder(historyRepo, cfg.HistoryBuffer, logger)
	querySvc := query.NewQueryService(executor, historyRepo, recorder, logger)
	querySvc.SetDatasetRepository(datasetRepo)

	ingestSvc := ingestion.NewIngestionService(datasetRepo, archive, logger)

	runner := dashboard.NewRunner(executor, cfg.PanelConcurrency, logger)
	dashSvc := dashboard.NewService(dashboardRepo, panelRepo, runner, logger)
	scheduler := dashboard.NewScheduler(dashSvc, dashboardRepo, logger)
	dashSvc.SetScheduleReloader(scheduler)

	var watcher *ingestion.Watcher
	if cfg.WatchDir != "" {
		watcher = ingestion.NewWatcher(ingestSvc, cfg.WatchDir, cfg.WatchOwner, logger)
	}

	// === HTTP ===
	validator, err := NewValidator(ctx, cfg.Auth)
	if err != nil {
		return nil, err
	}
	handler := api.NewHandler(ingestSvc, querySvc, dashSvc, cfg.MaxUploadBytes, logger)
	router := api.NewRouter(handler, api.RouterConfig{
		Validator:      validator,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		Logger: logger,
	})

	return &App{
		Services: Services{
			Query:     querySvc,
			Ingestion: ingestSvc,
			Dashboard: dashSvc,
		},
		Handler:   router,
		Recorder:  recorder,
		Scheduler: scheduler,
		Watcher:   watcher,
		Archive:   archive,
		logger:    logger.With("component", "app"),
	}, nil
}

// NewValidator builds the bearer-token validator from the auth config. When
// both an identity provider and a shared secret are configured, tokens from
// either are accepted.
func NewValidator(ctx context.Context, auth config.AuthConfig) (middleware.JWTValidator, error) {
	var chain middleware.ChainValidator

	switch {
	case auth.JWKSURL != "":
		v, err := middleware.NewOIDCValidatorFromJWKS(ctx, auth.JWKSURL, auth.IssuerURL, auth.Audience, auth.AllowedIssuers)
		if err != nil {
			return nil, fmt.Errorf("jwks validator: %w", err)
		}
		chain = append(chain, v)
	case auth.IssuerURL != "":
		v, err := middleware.NewOIDCValidator(ctx, auth.IssuerURL, auth.Audience, auth.AllowedIssuers)
		if err != nil {
			return nil, fmt.Errorf("oidc validator: %w", err)
		}
		chain = append(chain, v)
	}
	if auth.JWTSecret != "" {
		chain = append(chain, middleware.NewSharedSecretValidator(auth.JWTSecret))
	}

	switch len(chain) {
	case 0:
		return nil, errors.New("no authentication configured: set JWT_SECRET or AUTH_ISSUER_URL/AUTH_JWKS_URL")
	case 1:
		return chain[0], nil
	default:
		return chain, nil
	}
}

// Start launches the refresh scheduler and, when configured, the watch
// folder. Background workers stop when ctx is canceled.
func (a *App) Start(ctx context.Context) error {
	if err := a.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if a.Watcher != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.Watcher.Run(ctx); err != nil {
				a.logger.Error("watch folder stopped", "error", err)
			}
		}()
	}
	return nil
}

// Shutdown stops the scheduler, waits for the watcher and drains the
// history recorder. The caller cancels the Start context first.
func (a *App) Shutdown(ctx context.Context) error {
	a.Scheduler.Stop()
	a.wg.Wait()

	var errs []error
	if err := a.Recorder.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain query history: %w", err))
	}
	if c, ok := a.Archive.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close archive: %w", err))
		}
	}
	return errors.Join(errs...)
}
