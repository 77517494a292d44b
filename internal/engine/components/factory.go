package components

import (
	"log/slog"

	"github.com/meridian-ledger/internal/config"
	"github.com/meridian-ledger/internal/domain/account"
	"github.com/meridian-ledger/internal/domain/transaction"
	"github.com/meridian-ledger/internal/engine/eventbus"
	"github.com/meridian-ledger/internal/engine/service"
	"github.com/meridian-ledger/internal/locking"
	"github.com/meridian-ledger/internal/platform/persistence"
)

// CreateTransactionEngine creates a new TransactionEngine with all its dependencies.
func CreateTransactionEngine(
	pgDB *persistence.PostgresDB,
	accountRepo account.Repository,
	txnRepo transaction.Repository,
	locks *locking.Manager,
	bus *eventbus.Bus,
	logger *slog.Logger,
	cfg *config.Config,
) service.TransactionEngine {
	validator := NewRequestValidator(logger)
	resolver := NewAccountResolver(accountRepo, logger)
	applier := NewOperationApplier(accountRepo, txnRepo, logger)
	failureRecorder := NewFailureRecorder(txnRepo, logger)
	publisher := NewEventPublisher(bus, logger)

	baseEngine := service.NewProcessingService(
		pgDB,
		validator,
		resolver,
		applier,
		failureRecorder,
		publisher,
		txnRepo,
		locks,
		logger,
	)

	workerPoolEngine, err := service.NewWorkerPoolEngine(
		baseEngine,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool engine, falling back to base engine", "error", err)
		return baseEngine
	}

	logger.Info("Created worker pool transaction engine", "pool_size", cfg.WorkerPool.Size)
	return workerPoolEngine
}
