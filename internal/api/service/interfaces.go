package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/meridian-ledger/internal/domain/account"
	"github.com/meridian-ledger/internal/domain/shared"
	"github.com/meridian-ledger/internal/domain/transaction"
	engine "github.com/meridian-ledger/internal/engine/service"
)

// AccountService defines the interface for account operations
type AccountService interface {
	// CreateAccount creates a new account with the given details
	// Returns ErrDuplicateExternalID if an account with the same external ID exists
	CreateAccount(ctx context.Context, externalID string, initialBalance, creditLimit int64, currency string) (*account.Account, error)

	// GetAccountByID retrieves an account by its ID
	// Returns ErrAccountNotFound if the account doesn't exist
	GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error)

	// UpdateAccountStatus changes the account lifecycle status
	UpdateAccountStatus(ctx context.Context, id uuid.UUID, status account.Status) (*account.Account, error)
}

// TransactionService defines the interface for transaction operations
type TransactionService interface {
	// ProcessTransaction drives a money-movement request through the engine.
	// The result distinguishes a fresh outcome from an idempotent replay.
	ProcessTransaction(ctx context.Context, request *shared.ProcessRequest) (*engine.Result, error)

	// GetTransactionByID retrieves a transaction by its ID
	// Returns nil if the transaction is not found
	GetTransactionByID(ctx context.Context, transactionID uuid.UUID) (*transaction.Transaction, error)

	// GetTransactionsByAccountID retrieves paginated list of transactions for an account
	// Returns entries, total count of all transactions, and any error
	GetTransactionsByAccountID(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*transaction.Transaction, int64, error)
}
