// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the ledger service.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/meridian-ledger/internal/domain/account"
	"github.com/meridian-ledger/internal/platform/persistence"
)

const uniqueViolationCode = "23505"

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new account. A duplicate external id surfaces as
// ErrDuplicateExternalID via the unique constraint.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, external_id, balance, reserved_balance, credit_limit, currency, status, version, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.ExternalID,
		acc.Balance,
		acc.ReservedBalance,
		acc.CreditLimit,
		acc.Currency,
		acc.Status,
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return account.ErrDuplicateExternalID{ExternalID: acc.ExternalID}
		}
		r.logger.Error("Failed to create account", "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT id, COALESCE(external_id, ''), balance, reserved_balance, credit_limit, currency, status, version, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	var acc account.Account
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&acc.ID,
		&acc.ExternalID,
		&acc.Balance,
		&acc.ReservedBalance,
		&acc.CreditLimit,
		&acc.Currency,
		&acc.Status,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &acc, nil
}

// GetByExternalID retrieves an account by its external identity.
// Returns nil, nil when no account carries the given external id.
func (r *AccountRepository) GetByExternalID(ctx context.Context, externalID string) (*account.Account, error) {
	query := `
		SELECT id, COALESCE(external_id, ''), balance, reserved_balance, credit_limit, currency, status, version, created_at, updated_at
		FROM accounts
		WHERE external_id = $1
	`

	var acc account.Account
	err := r.querier.QueryRow(ctx, query, externalID).Scan(
		&acc.ID,
		&acc.ExternalID,
		&acc.Balance,
		&acc.ReservedBalance,
		&acc.CreditLimit,
		&acc.Currency,
		&acc.Status,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get account by external ID", "external_id", externalID, "error", err)
		return nil, fmt.Errorf("failed to get account by external ID: %w", err)
	}

	return &acc, nil
}

// Update persists the account using optimistic locking. The aggregate has
// already advanced Version in memory; the WHERE clause checks the previous
// version and a zero row count signals a concurrent modification.
func (r *AccountRepository) Update(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE accounts
		SET balance = $1, reserved_balance = $2, credit_limit = $3, status = $4, version = $5, updated_at = $6
		WHERE id = $7 AND version = $8
	`

	result, err := r.querier.Exec(ctx, query,
		acc.Balance,
		acc.ReservedBalance,
		acc.CreditLimit,
		acc.Status,
		acc.Version,
		acc.UpdatedAt,
		acc.ID,
		acc.Version-1,
	)
	if err != nil {
		r.logger.Error("Failed to update account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to update account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrConcurrentModification{AccountID: acc.ID}
	}

	return nil
}

// UpdateStatus changes the account lifecycle status
func (r *AccountRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status account.Status) error {
	query := `
		UPDATE accounts
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update account status", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update account status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound{AccountID: id}
	}

	return nil
}
