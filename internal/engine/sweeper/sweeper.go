// Package sweeper reconciles transactions stranded in PENDING by a crash
// between the pending-insert commit and the locked commit. Stale records are
// marked FAILED so their references resolve to a terminal outcome.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridian-ledger/internal/config"
	"github.com/meridian-ledger/internal/domain/account"
	"github.com/meridian-ledger/internal/domain/shared"
	"github.com/meridian-ledger/internal/domain/transaction"
)

// Publisher emits the failed outcome of a swept transaction
type Publisher interface {
	PublishProcessed(txn *transaction.Transaction, acc *account.Account)
}

// Sweeper periodically fails stale pending transactions
type Sweeper struct {
	txnRepo       transaction.Repository
	publisher     Publisher
	logger        *slog.Logger
	sweepInterval time.Duration
	maxPendingAge time.Duration
	batchSize     int
}

func NewSweeper(
	cfg *config.SweeperConfig,
	txnRepo transaction.Repository,
	publisher Publisher,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		txnRepo:       txnRepo,
		publisher:     publisher,
		logger:        logger,
		sweepInterval: cfg.Interval,
		maxPendingAge: cfg.MaxPendingAge,
		batchSize:     cfg.BatchSize,
	}
}

// Start begins sweeping until context is canceled
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting pending transaction sweeper",
		"sweep_interval", s.sweepInterval.String(),
		"max_pending_age", s.maxPendingAge.String(),
		"batch_size", s.batchSize,
	)
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Pending transaction sweeper stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := s.sweepOnce(ctx); err != nil {
				s.logger.Error("Error during pending transaction sweep", "error", err)
			}
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-s.maxPendingAge)

	stale, err := s.txnRepo.GetStalePending(ctx, cutoff, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get stale pending transactions: %w", err)
	}

	if len(stale) == 0 {
		s.logger.Debug("No stale pending transactions found.")
		return nil
	}

	s.logger.Info("Fetched stale pending transactions", "count", len(stale))

	for _, txn := range stale {
		logger := s.logger
		if txn.CorrelationID != "" {
			logger = s.logger.With("correlation_id", txn.CorrelationID)
		}

		if err := txn.MarkFailed(string(shared.FailureReasonStalePending)); err != nil {
			logger.Error("Failed to mark stale transaction as failed",
				"transaction_id", txn.ID.String(), "error", err,
			)
			continue
		}

		if err := s.txnRepo.Update(ctx, txn); err != nil {
			logger.Error("Failed to persist swept transaction",
				"transaction_id", txn.ID.String(), "error", err,
			)
			continue
		}

		s.publisher.PublishProcessed(txn, nil)
		logger.Info("Swept stale pending transaction",
			"transaction_id", txn.ID.String(),
			"reference_id", txn.ReferenceID,
			"pending_since", txn.CreatedAt,
		)
	}
	return nil
}
