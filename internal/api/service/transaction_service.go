package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/meridian-ledger/internal/domain/shared"
	"github.com/meridian-ledger/internal/domain/transaction"
	engine "github.com/meridian-ledger/internal/engine/service"
)

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	txnRepo transaction.Repository
	engine  engine.TransactionEngine
	logger  *slog.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(logger *slog.Logger, txnRepo transaction.Repository, txnEngine engine.TransactionEngine) TransactionService {
	return &TransactionServiceImpl{
		txnRepo: txnRepo,
		engine:  txnEngine,
		logger:  logger,
	}
}

// ProcessTransaction drives a money-movement request through the engine
func (s *TransactionServiceImpl) ProcessTransaction(ctx context.Context, request *shared.ProcessRequest) (*engine.Result, error) {
	result, err := s.engine.ProcessTransaction(ctx, request)
	if err != nil {
		s.logger.Warn("Transaction processing rejected",
			"reference_id", request.ReferenceID,
			"operation", request.Operation,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Transaction processed",
		"transaction_id", result.Transaction.ID.String(),
		"reference_id", request.ReferenceID,
		"status", string(result.Transaction.Status),
		"replayed", result.Replayed,
	)
	return result, nil
}

// GetTransactionByID retrieves a transaction by its ID. Returns nil if not found
func (s *TransactionServiceImpl) GetTransactionByID(ctx context.Context, transactionID uuid.UUID) (*transaction.Transaction, error) {
	res, err := s.txnRepo.GetByID(ctx, transactionID)
	if err != nil {
		var errNotFound transaction.ErrTransactionNotFound
		if errors.As(err, &errNotFound) {
			s.logger.Info("Transaction not found", "transaction_id", transactionID.String())
			return nil, nil
		}
		s.logger.Error("Failed to get transaction by ID", "transaction_id", transactionID.String(), "error", err)
		return nil, err
	}
	return res, nil
}

// GetTransactionsByAccountID retrieves paginated list of transactions for an account
// Returns entries, total count, and any error
func (s *TransactionServiceImpl) GetTransactionsByAccountID(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*transaction.Transaction, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.txnRepo.GetByAccountID(ctx, accountID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.txnRepo.CountByAccountID(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
