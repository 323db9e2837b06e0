package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/lyprox-dashboard-server/internal/api"
	"github.com/lyprox-dashboard-server/internal/config"
	"github.com/lyprox-dashboard-server/internal/database"
	"github.com/lyprox-dashboard-server/internal/domain"
	"github.com/lyprox-dashboard-server/internal/repository"
	"github.com/lyprox-dashboard-server/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, cleanup, err := newStore(ctx, configManager, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize patient store")
	}
	defer cleanup()

	queryService := service.NewQueryService(store, logger)

	server, err := api.NewServer(cfg, queryService, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create server")
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host":   cfg.Server.Host,
		"port":   cfg.Server.Port,
		"driver": cfg.Database.Driver,
	}).Info("Starting dashboard server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// newLogger builds the application logger from the logging configuration.
func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// newStore opens the configured patient store. For postgres it also runs the
// pending schema migrations before handing the store out.
func newStore(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) (domain.PatientStore, func(), error) {
	dbCfg := configManager.GetDatabaseConfig()

	switch dbCfg.Driver {
	case "sqlite":
		store, err := repository.NewSQLiteStore(dbCfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil

	default:
		runner, err := database.NewMigrationRunner(configManager.GetDatabaseURL(), dbCfg.MigrationsPath, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := runner.Up(); err != nil {
			runner.Close()
			return nil, nil, err
		}
		runner.Close()

		db, err := database.NewConnection(ctx, *dbCfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresStore(db.Pool, logger), db.Close, nil
	}
}
