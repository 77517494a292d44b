package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/meridian-ledger/internal/domain/shared"
	"github.com/meridian-ledger/internal/domain/transaction"
	"github.com/meridian-ledger/internal/platform/persistence"
)

const transactionColumns = `id, reference_id, operation, amount, currency, account_id, target_account_id, original_transaction_id, metadata, correlation_id, status, failure_reason, created_at, processed_at`

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new transaction record. The unique index on reference_id
// decides the winner when two requests race with the same reference; the
// loser receives ErrDuplicateReference.
func (r *TransactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (id, reference_id, operation, amount, currency, account_id, target_account_id, original_transaction_id, metadata, correlation_id, status, failure_reason, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.querier.Exec(ctx, query,
		txn.ID,
		txn.ReferenceID,
		txn.Operation,
		txn.Amount,
		txn.Currency,
		txn.AccountID,
		txn.TargetAccountID,
		txn.OriginalTransactionID,
		txn.Metadata,
		txn.CorrelationID,
		txn.Status,
		txn.FailureReason,
		txn.CreatedAt,
		txn.ProcessedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return transaction.ErrDuplicateReference{ReferenceID: txn.ReferenceID}
		}
		r.logger.Error("Failed to create transaction",
			"transaction_id", txn.ID.String(),
			"reference_id", txn.ReferenceID,
			"error", err,
		)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1
	`

	txn, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// GetByReferenceID retrieves a transaction by its client reference.
// Returns nil, nil when the reference has never been seen.
func (r *TransactionRepository) GetByReferenceID(ctx context.Context, referenceID string) (*transaction.Transaction, error) {
	if referenceID == "" {
		return nil, errors.New("reference id cannot be empty")
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE reference_id = $1
	`

	txn, err := r.scanOne(r.querier.QueryRow(ctx, query, referenceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction by reference", "reference_id", referenceID, "error", err)
		return nil, fmt.Errorf("failed to get transaction by reference: %w", err)
	}

	return txn, nil
}

// GetByAccountID retrieves paginated transactions touching an account as
// source or transfer target, newest first.
func (r *TransactionRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1 OR target_account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get transactions", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// CountByAccountID counts the transactions touching an account
func (r *TransactionRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM transactions
		WHERE account_id = $1 OR target_account_id = $1
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		r.logger.Error("Failed to count transactions", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return count, nil
}

// Update persists the transaction's status, failure reason and processed time
func (r *TransactionRepository) Update(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET status = $1, failure_reason = $2, processed_at = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query,
		txn.Status,
		txn.FailureReason,
		txn.ProcessedAt,
		txn.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update transaction", "id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{TransactionID: txn.ID}
	}

	return nil
}

// GetStalePending lists PENDING transactions created before the cutoff,
// oldest first, for the reconciliation sweeper.
func (r *TransactionRepository) GetStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := r.querier.Query(ctx, query, shared.TransactionStatusPending, olderThan, limit)
	if err != nil {
		r.logger.Error("Failed to get stale pending transactions", "error", err)
		return nil, fmt.Errorf("failed to get stale pending transactions: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func (r *TransactionRepository) scanOne(row pgx.Row) (*transaction.Transaction, error) {
	var txn transaction.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.ReferenceID,
		&txn.Operation,
		&txn.Amount,
		&txn.Currency,
		&txn.AccountID,
		&txn.TargetAccountID,
		&txn.OriginalTransactionID,
		&txn.Metadata,
		&txn.CorrelationID,
		&txn.Status,
		&txn.FailureReason,
		&txn.CreatedAt,
		&txn.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *TransactionRepository) scanAll(rows pgx.Rows) ([]*transaction.Transaction, error) {
	var txns []*transaction.Transaction
	for rows.Next() {
		txn, err := r.scanOne(rows)
		if err != nil {
			r.logger.Error("Failed to scan transaction", "error", err)
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over transactions", "error", err)
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}

	return txns, nil
}
