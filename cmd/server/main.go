package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/biomarker-recon-server/internal/api"
	"github.com/biomarker-recon-server/internal/catalog"
	"github.com/biomarker-recon-server/internal/config"
	"github.com/biomarker-recon-server/internal/database"
	"github.com/biomarker-recon-server/internal/domain"
	"github.com/biomarker-recon-server/internal/registry"
	"github.com/biomarker-recon-server/internal/repository"
	"github.com/biomarker-recon-server/internal/service"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Benchmark catalog: built-in defaults merged with sqlite overrides.
	overrides, err := catalog.NewOverrideStore(cfg.Catalog.OverridesPath)
	if err != nil {
		logger.Fatalf("Failed to open benchmark override store: %v", err)
	}
	defer overrides.Close()

	loader := catalog.NewLoader(overrides)
	snap, err := loader.Load(ctx)
	if err != nil {
		logger.Fatalf("Failed to load benchmark catalog: %v", err)
	}
	holder := catalog.NewHolder(snap)
	logger.WithField("benchmarks", snap.Len()).Info("Benchmark catalog loaded")

	// Client registry backend.
	var clientRegistry domain.ClientRegistry
	switch cfg.Registry.Backend {
	case "sqlite":
		sqliteRegistry, err := registry.NewSQLiteRegistry(cfg.Registry.SQLitePath, logger, cfg.Matching.MaxCandidates)
		if err != nil {
			logger.Fatalf("Failed to open sqlite registry: %v", err)
		}
		defer sqliteRegistry.Close()
		clientRegistry = sqliteRegistry
	default:
		db, err := registry.OpenPostgres(cfg.Database.ConnectionString())
		if err != nil {
			logger.Fatalf("Failed to open postgres registry: %v", err)
		}
		defer db.Close()
		clientRegistry = registry.NewPostgresRegistry(db, logger, cfg.Matching.MaxCandidates)
	}

	// Analysis persistence, only when postgres is configured.
	var analyses domain.AnalysisStore
	if cfg.Registry.Backend == "postgres" {
		runner, err := database.NewMigrationRunner(cfg.Database, logger)
		if err != nil {
			logger.Fatalf("Failed to create migration runner: %v", err)
		}
		if err := runner.Up(); err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
		runner.Close()

		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		analyses = repository.NewAnalysisRepository(db.Pool, logger)
	} else {
		logger.Warn("Analysis persistence disabled without a postgres backend")
	}

	reconciler := service.NewReconcilerService(logger, holder, clientRegistry, service.ReconcilerOptions{
		FuzzyThreshold: cfg.Matching.FuzzyThreshold,
		ParseCacheSize: cfg.Catalog.ParseCacheSize,
	})

	var cache *api.ResultCache
	if cfg.Cache.Enabled {
		cache, err = api.NewResultCache(cfg.Cache, logger)
		if err != nil {
			logger.WithError(err).Warn("Result cache unavailable, continuing without it")
		} else {
			defer cache.Close()
		}
	}

	server := api.NewServer(cfg, logger, api.Dependencies{
		Reconciler: reconciler,
		Analyses:   analyses,
		Overrides:  overrides,
		Loader:     loader,
		Holder:     holder,
		Cache:      cache,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting biomarker reconciliation server")

	if err := server.Start(ctx); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
	logger.Info("Server stopped")
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}
	return logger
}
