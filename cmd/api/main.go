package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/course-token-wallet/internal/api"
	"github.com/course-token-wallet/internal/config"
	"github.com/course-token-wallet/internal/data/postgres"
	"github.com/course-token-wallet/internal/logger"
	"github.com/course-token-wallet/internal/platform/persistence"
	"github.com/course-token-wallet/internal/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize database with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	purchaseRepo := postgres.NewPurchaseRepository(log, postgresDB)
	itemRepo := postgres.NewItemRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	reportingRepo := postgres.NewReportingRepository(log, postgresDB)

	// Initialize services
	walletService := service.NewWalletService(log, postgresDB, accountRepo, ledgerRepo, outboxRepo)
	catalogService := service.NewCatalogService(log, itemRepo, accountRepo)
	purchaseService := service.NewPurchaseOrchestrator(log, postgresDB, accountRepo, ledgerRepo, purchaseRepo, itemRepo, outboxRepo)
	integrityGuard := service.NewIntegrityGuard(log, postgresDB, accountRepo, ledgerRepo, purchaseRepo, itemRepo)
	aggregator := service.NewBalanceAggregator(log, reportingRepo)

	// Initialize REST server
	server := api.NewServer(log, cfg, walletService, catalogService, purchaseService, integrityGuard, aggregator)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server before closing the pool it depends on
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	postgresDB.Close()

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
