package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/meridian-ledger/internal/api"
	apiservice "github.com/meridian-ledger/internal/api/service"
	"github.com/meridian-ledger/internal/config"
	"github.com/meridian-ledger/internal/data/mongo"
	"github.com/meridian-ledger/internal/data/postgres"
	"github.com/meridian-ledger/internal/engine/components"
	"github.com/meridian-ledger/internal/engine/eventbus"
	"github.com/meridian-ledger/internal/engine/service"
	"github.com/meridian-ledger/internal/engine/sweeper"
	"github.com/meridian-ledger/internal/locking"
	"github.com/meridian-ledger/internal/logger"
	"github.com/meridian-ledger/internal/platform/messaging/producers"
	"github.com/meridian-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("ledger_service")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Ledger Service",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	eventArchive := mongo.NewEventArchiveRepository(log, mongoDB.Database())

	// Initialize the event bus and its handlers
	bus := eventbus.NewBus(cfg.EventBus.BufferSize, log.With("component", "event_bus"))
	handlers := []eventbus.Handler{eventbus.NewArchiveHandler(eventArchive)}

	// The Kafka relay is optional; eventProducer is nil when brokers are unconfigured
	eventProducer, err := producers.NewEventMessageProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize Kafka event producer", "error", err)
		os.Exit(1)
	}
	var dlqProducer *producers.DLQProducer
	if eventProducer != nil {
		dlqProducer, err = producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
		if err != nil {
			log.Error("Failed to initialize DLQ Kafka producer", "error", err)
			os.Exit(1)
		}
		// dlqProducer is nil if DLQTopic is not configured. The relay treats a
		// missing DLQ as "surface the publish error to the worker".
		var relayDLQ eventbus.DeadLetterPublisher
		if dlqProducer != nil {
			relayDLQ = dlqProducer
		}
		handlers = append(handlers, eventbus.NewRelayHandler(eventProducer, relayDLQ))
	}

	busWorker := eventbus.NewWorker(bus, log.With("component", "event_worker"), handlers...)

	// Initialize the transaction engine with its lock manager
	locks := locking.NewManager()
	txnEngine := components.CreateTransactionEngine(
		postgresDB,
		accountRepo,
		transactionRepo,
		locks,
		bus,
		log,
		cfg,
	)

	// Initialize the pending-transaction sweeper
	eventPublisher := components.NewEventPublisher(bus, log.With("component", "sweeper"))
	pendingSweeper := sweeper.NewSweeper(
		&cfg.Sweeper,
		transactionRepo,
		eventPublisher,
		log.With("component", "sweeper"),
	)

	// Initialize REST services and server
	accountService := apiservice.NewAccountService(accountRepo)
	transactionService := apiservice.NewTransactionService(log, transactionRepo, txnEngine)
	server := api.NewServer(log, cfg, accountService, transactionService)
	log.Info("REST server initialized")

	// Create error channel for service errors
	errChan := make(chan error, 1)

	// Create wait group for graceful shutdown of background tasks
	var wg sync.WaitGroup

	// Start the event bus worker in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		busWorker.Run(appCtx)
	}()

	// Start the sweeper in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		pendingSweeper.Start(appCtx)
	}()

	// Start HTTP server in a goroutine
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
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool if it's a WorkerPoolEngine
	if wpEngine, ok := txnEngine.(*service.WorkerPoolEngine); ok {
		log.Info("Shutting down worker pool", "running_workers", wpEngine.Running())
		wpEngine.Shutdown()
	}

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so no new requests arrive
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Wait for background tasks to finish
	log.Info("Waiting for background tasks to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All background tasks stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if undrained := bus.Len(); undrained > 0 {
		log.Warn("Event bus had undrained events at shutdown", "count", undrained, "dropped", bus.Dropped())
	}

	// Close Kafka producers
	if eventProducer != nil {
		if err = eventProducer.Close(); err != nil {
			log.Error("Error closing Kafka event producer", "error", err)
		}
	}
	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Ledger Service shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Ledger Service shutdown completed with errors")
	} else {
		log.Info("Ledger Service shutdown completed successfully")
	}
}
