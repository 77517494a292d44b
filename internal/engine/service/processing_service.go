package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meridian-ledger/internal/domain/account"
	"github.com/meridian-ledger/internal/domain/shared"
	"github.com/meridian-ledger/internal/domain/transaction"
	"github.com/meridian-ledger/internal/locking"
)

type ProcessingServiceImpl struct {
	pgDB            TxRunner
	validator       RequestValidator
	resolver        AccountResolver
	applier         OperationApplier
	failureRecorder FailureRecorder
	publisher       EventPublisher
	txnRepo         transaction.Repository
	locks           *locking.Manager
	logger          *slog.Logger
}

func NewProcessingService(
	pgDB TxRunner,
	validator RequestValidator,
	resolver AccountResolver,
	applier OperationApplier,
	failureRecorder FailureRecorder,
	publisher EventPublisher,
	txnRepo transaction.Repository,
	locks *locking.Manager,
	logger *slog.Logger,
) TransactionEngine {
	return &ProcessingServiceImpl{
		pgDB:            pgDB,
		validator:       validator,
		resolver:        resolver,
		applier:         applier,
		failureRecorder: failureRecorder,
		publisher:       publisher,
		txnRepo:         txnRepo,
		locks:           locks,
		logger:          logger,
	}
}

// ProcessTransaction drives one request through validate, idempotency check,
// pending insert, ordered locking, the storage transaction, and event
// emission. Exactly one transaction record ever exists per reference id.
func (s *ProcessingServiceImpl) ProcessTransaction(ctx context.Context, request *shared.ProcessRequest) (*Result, error) {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Processing transaction",
		"reference_id", request.ReferenceID,
		"operation", request.Operation,
		"account_id", request.AccountID,
	)

	// 1. Validate the request shape
	op, err := s.validator.Validate(request)
	if err != nil {
		logger.Warn("Transaction request validation failed", "reference_id", request.ReferenceID, "error", err)
		return nil, err
	}

	// 2. Resolve the primary account (auto-provisioned for an unseen external identity)
	acct, err := s.resolver.ResolveOrCreate(ctx, request.AccountID, request.Currency)
	if err != nil {
		logger.Warn("Failed to resolve account", "account_id", request.AccountID, "error", err)
		return nil, err
	}

	// 3. Idempotency: a known reference returns the prior outcome untouched
	if existing, err := s.txnRepo.GetByReferenceID(ctx, request.ReferenceID); err != nil {
		return nil, fmt.Errorf("idempotency check failed for reference %s: %w", request.ReferenceID, err)
	} else if existing != nil {
		logger.Info("Reference already processed, returning prior outcome",
			"reference_id", request.ReferenceID,
			"transaction_id", existing.ID.String(),
			"status", string(existing.Status),
		)
		return &Result{Transaction: existing, Account: acct, Replayed: true}, nil
	}

	// 4. Resolve the transfer target
	var targetID *uuid.UUID
	var target *account.Account
	if op == shared.OperationTransfer {
		target, err = s.resolver.Resolve(ctx, request.TargetAccountID)
		if err != nil {
			return nil, err
		}
		if target == nil {
			logger.Warn("Transfer target not found", "target_account_id", request.TargetAccountID)
			return nil, ErrTargetAccountNotFound
		}
		targetID = &target.ID
	}

	// 5. Resolve the reversal linkage; the original's status is re-verified under lock
	var originalID *uuid.UUID
	var original *transaction.Transaction
	if op == shared.OperationReversal {
		parsed, parseErr := uuid.Parse(request.OriginalTransactionID)
		if parseErr != nil {
			return nil, ErrInvalidOriginalTransactionID
		}
		original, err = s.txnRepo.GetByID(ctx, parsed)
		if err != nil {
			logger.Warn("Original transaction not found for reversal", "original_transaction_id", request.OriginalTransactionID, "error", err)
			return nil, err
		}
		originalID = &original.ID
	}

	// 6. Build and persist the pending record. This standalone commit fixes
	// the reference globally even if every later step fails.
	txn, err := transaction.New(request.ReferenceID, op, request.Amount, request.Currency, acct.ID, targetID, originalID, request.Metadata)
	if err != nil {
		return nil, err
	}
	txn.CorrelationID = request.CorrelationID

	if err := s.txnRepo.Create(ctx, txn); err != nil {
		if errors.Is(err, transaction.ErrDuplicateReference{}) {
			// Lost the insert race: re-read the winner and return its outcome.
			winner, readErr := s.txnRepo.GetByReferenceID(ctx, request.ReferenceID)
			if readErr != nil || winner == nil {
				return nil, fmt.Errorf("failed to re-read winning transaction for reference %s: %w", request.ReferenceID, readErr)
			}
			logger.Info("Duplicate reference race lost, returning winner",
				"reference_id", request.ReferenceID,
				"transaction_id", winner.ID.String(),
			)
			return &Result{Transaction: winner, Account: acct, Replayed: true}, nil
		}
		return nil, err
	}

	// 7. Apply the operation under the ordered lock set, atomically
	lockIDs := lockSet(txn, original)
	var resultAcct *account.Account
	err = s.locks.WithLock(ctx, lockIDs, func() error {
		return s.pgDB.ExecuteTx(ctx, func(tx pgx.Tx) error {
			applied, applyErr := s.applier.Apply(ctx, tx, txn)
			if applyErr != nil {
				return applyErr
			}
			if markErr := txn.MarkCompleted(); markErr != nil {
				return markErr
			}
			if updateErr := s.txnRepo.WithTx(tx).Update(ctx, txn); updateErr != nil {
				return updateErr
			}
			resultAcct = applied
			return nil
		})
	})
	if err != nil {
		reason, isBusinessRule := ClassifyFailure(err)
		if !isBusinessRule {
			// Concurrency conflicts and infrastructure faults propagate; the
			// pending record remains for the reconciliation sweeper.
			logger.Error("Transaction processing aborted",
				"transaction_id", txn.ID.String(),
				"reference_id", request.ReferenceID,
				"error", err,
			)
			return nil, err
		}

		logger.Info("Transaction failed business rules",
			"transaction_id", txn.ID.String(),
			"reference_id", request.ReferenceID,
			"reason", string(reason),
		)
		if recordErr := s.failureRecorder.RecordFailure(ctx, txn, string(reason)); recordErr != nil {
			logger.Error("Failed to record transaction failure", "transaction_id", txn.ID.String(), "error", recordErr)
			return nil, recordErr
		}

		s.publisher.PublishProcessed(txn, acct)
		return &Result{Transaction: txn, Account: acct}, nil
	}

	logger.Info("Transaction completed",
		"transaction_id", txn.ID.String(),
		"reference_id", request.ReferenceID,
		"balance", resultAcct.Balance,
		"reserved_balance", resultAcct.ReservedBalance,
	)

	s.publisher.PublishProcessed(txn, resultAcct)
	return &Result{Transaction: txn, Account: resultAcct}, nil
}

// lockSet computes the accounts a transaction mutates. A reversal locks every
// account of the original operation; the lock manager canonically orders the
// set before acquisition.
func lockSet(txn *transaction.Transaction, original *transaction.Transaction) []uuid.UUID {
	ids := []uuid.UUID{txn.AccountID}
	if txn.TargetAccountID != nil {
		ids = append(ids, *txn.TargetAccountID)
	}
	if original != nil {
		ids = append(ids, original.AccountID)
		if original.TargetAccountID != nil {
			ids = append(ids, *original.TargetAccountID)
		}
	}
	return ids
}
