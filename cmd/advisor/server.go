package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/artpar/sfadvisor/internal/core/catalog"
	"github.com/artpar/sfadvisor/internal/shell/api"
	"github.com/artpar/sfadvisor/internal/shell/cache"
	"github.com/artpar/sfadvisor/internal/shell/salesforce"
	"github.com/artpar/sfadvisor/internal/shell/store"
	"github.com/artpar/sfadvisor/internal/shell/workers"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitCacheError      = 3
	ExitHTTPServerError = 4
	ExitCatalogError    = 5
)

// =============================================================================
// Server
// =============================================================================

// Server represents the advisor application server.
type Server struct {
	config     *Config
	httpServer *http.Server
	store      store.Store
	cache      cache.Cache
	runner     *workers.Runner
	logger     *slog.Logger
}

// NewServer opens the store, seeds the catalog on first start and wires the
// HTTP handler and deployment runner.
func NewServer(ctx context.Context, cfg *Config, logger *slog.Logger) (*Server, error) {
	s, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	seeded, err := s.SeedCatalog(ctx, catalog.Default())
	if err != nil {
		s.Close()
		return nil, &ServerError{Op: "SeedCatalog", Err: err, ExitCode: ExitDatabaseError}
	}
	if seeded {
		logger.Info("seeded default catalog")
	}

	c, err := openCache(ctx, cfg, logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	mockCfg := salesforce.MockConfig{
		ConnectDelay: cfg.Salesforce.ConnectDelay,
		TestDelay:    cfg.Salesforce.TestDelay,
		DeployDelay:  cfg.Salesforce.DeployDelay,
		APIVersion:   cfg.Salesforce.APIVersion,
	}

	runner := workers.NewRunner(s, salesforce.NewMockDeployer(mockCfg), workers.RunnerConfig{
		StepInterval:  cfg.Deploy.StepInterval,
		MaxConcurrent: cfg.Deploy.MaxConcurrent,
		CycleTimeout:  cfg.Deploy.CycleTimeout,
	}, logger)

	if !cfg.Auth.AdminEnabled() {
		logger.Warn("admin API disabled: auth.jwt_secret and auth.admin_password_hash are required")
	}

	handler := api.NewHandler(api.Config{
		Store:             s,
		Connector:         salesforce.NewMockConnector(mockCfg),
		Cache:             c,
		Logger:            logger,
		JWTSecret:         []byte(cfg.Auth.JWTSecret),
		AdminPasswordHash: cfg.Auth.AdminPasswordHash,
		TokenTTL:          cfg.Auth.TokenTTL,
		APIVersion:        cfg.Salesforce.APIVersion,
		CacheTTL:          cfg.Cache.TTL,
		Version:           Version,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		store:      s,
		cache:      c,
		runner:     runner,
		logger:     logger,
	}, nil
}

// openStore opens the SQLite store, creating the database directory if needed.
func openStore(cfg *Config) (*store.SQLiteStore, error) {
	if dir := filepath.Dir(cfg.Database.DSN); cfg.Database.DSN != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &ServerError{Op: "openStore", Err: err, ExitCode: ExitDatabaseError}
		}
	}
	s, err := store.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		return nil, &ServerError{Op: "openStore", Err: err, ExitCode: ExitDatabaseError}
	}
	return s, nil
}

// openCache connects to Redis when configured, otherwise keeps bundles in process.
func openCache(ctx context.Context, cfg *Config, logger *slog.Logger) (cache.Cache, error) {
	if cfg.Cache.RedisAddr == "" {
		logger.Info("using in-memory bundle cache", "max_entries", cfg.Cache.MaxEntries, "ttl", cfg.Cache.TTL)
		return cache.NewMemoryCache(cfg.Cache.MaxEntries, cfg.Cache.TTL), nil
	}
	c, err := cache.NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	if err != nil {
		return nil, &ServerError{Op: "openCache", Err: err, ExitCode: ExitCacheError}
	}
	logger.Info("using redis bundle cache", "addr", cfg.Cache.RedisAddr, "db", cfg.Cache.RedisDB)
	return c, nil
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	s.runner.Start()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		s.Shutdown(context.Background())
		return &ServerError{Op: "Start", Err: err, ExitCode: ExitHTTPServerError}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server. Deployments interrupted by the
// runner stopping stay in progress and resume on the next start.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.runner.Stop()

	if err := s.cache.Close(); err != nil {
		s.logger.Error("cache close error", "error", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	}

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
