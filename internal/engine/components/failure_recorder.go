package components

import (
	"context"
	"log/slog"

	"github.com/meridian-ledger/internal/domain/transaction"
	"github.com/meridian-ledger/internal/engine/service"
)

type FailureRecorderImpl struct {
	txnRepo transaction.Repository
	logger  *slog.Logger
}

func NewFailureRecorder(txnRepo transaction.Repository, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		txnRepo: txnRepo,
		logger:  logger,
	}
}

// RecordFailure marks the transaction FAILED with the given reason and
// persists it. This runs outside the rolled-back storage transaction: the
// reference must stay resolvable to its outcome.
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, txn *transaction.Transaction, reason string) error {
	logger := r.logger
	if txn.CorrelationID != "" {
		logger = r.logger.With("correlation_id", txn.CorrelationID)
	}

	logger.Info("Recording failed transaction",
		"transaction_id", txn.ID.String(),
		"reference_id", txn.ReferenceID,
		"reason", reason,
	)

	if err := txn.MarkFailed(reason); err != nil {
		logger.Error("Failed to mark transaction as failed", "transaction_id", txn.ID.String(), "error", err)
		return err
	}

	if err := r.txnRepo.Update(ctx, txn); err != nil {
		logger.Error("Failed to persist failed transaction", "transaction_id", txn.ID.String(), "error", err)
		return err
	}

	return nil
}
