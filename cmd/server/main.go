package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "fleet-erp-backend/internal/api/http"
	"fleet-erp-backend/internal/app"
	"fleet-erp-backend/internal/config"
	"fleet-erp-backend/internal/dispatch"
	"fleet-erp-backend/internal/logger"
	"fleet-erp-backend/internal/repository/postgres"
	"fleet-erp-backend/internal/security"
	"fleet-erp-backend/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	drain := flag.Duration("drain", 0, "How long /readyz reports not ready before shutdown")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Fleet ERP Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "public_base_url", cfg.Server.PublicBaseURL)
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	logger.Info("Notification configuration", "provider", cfg.Notification.Provider, "workers", cfg.Notification.Workers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Schema
	if cfg.Migrations.AutoApply {
		logger.Info("Applying database migrations")
		if err := postgres.MigrateUp(cfg.GetDatabaseConnectionString()); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	}

	// Initialize Database
	db, err := postgres.Open(ctx, cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize Storage
	docs, err := storage.New(cfg.Storage, logger.Get())
	if err != nil {
		logger.Error("Failed to initialize document storage", "error", err)
		log.Fatalf("Failed to initialize document storage: %v", err)
	}
	logger.Info("Document storage ready", "backend", docs.Name())

	// Side-effect queue
	queue := dispatch.NewQueue(cfg.Notification.Workers, cfg.Notification.QueueSize, cfg.Notification.MaxRetries)
	queue.Start(ctx)

	// Initialize Services
	services, err := app.NewServices(cfg, db, queue, docs)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize HTTP handlers
	maxPDF := cfg.MaxPDFSizeBytes()
	handlers := httpapi.Handlers{
		Staff:  httpapi.NewStaffHandler(services.Shares, services.Lifecycle, services.Documents, maxPDF),
		Public: httpapi.NewPublicHandler(services.QuoteViews, services.Contracts, services.Documents, maxPDF),
		Auth:   httpapi.NewAuthMiddleware(security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer)),
	}
	if mock, ok := docs.(*storage.MockStorageService); ok {
		logger.Info("Serving mock storage files", "upload_dir", cfg.Storage.UploadDir)
		handlers.Files = httpapi.NewFilesHandler(mock)
	}

	server := httpapi.NewServer(&httpapi.ServerConfig{
		ListenAddr:               cfg.GetServerAddress(),
		Log:                      logger.Get(),
		ReadTimeout:              time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:             time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		GracefulShutdownDuration: time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second,
		DrainDuration:            *drain,
	}, handlers)
	server.RunInBackground()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down...")
	server.Shutdown()
	queue.Stop()
	logger.Info("Server stopped. Goodbye!")
}
