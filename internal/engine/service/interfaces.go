package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-ledger/internal/domain/account"
	"github.com/meridian-ledger/internal/domain/shared"
	"github.com/meridian-ledger/internal/domain/transaction"
)

// Result carries the engine's outcome for one request: the transaction record
// (terminal, or the prior record on an idempotent replay) and the current
// state of the primary account.
type Result struct {
	Transaction *transaction.Transaction
	Account     *account.Account
	Replayed    bool
}

// TransactionEngine processes money-movement requests to a terminal outcome.
// A business-rule failure is not an error: the returned transaction carries
// status FAILED and the error is nil. Errors are reserved for validation,
// missing accounts, and infrastructure faults.
type TransactionEngine interface {
	ProcessTransaction(ctx context.Context, request *shared.ProcessRequest) (*Result, error)
}

// TxRunner runs a function inside one storage transaction, committing on nil
// and rolling back on error or panic. *persistence.PostgresDB satisfies it.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// RequestValidator checks a request against the operation vocabulary and the
// per-operation linkage rules before any persistence happens
type RequestValidator interface {
	Validate(request *shared.ProcessRequest) (shared.OperationType, error)
}

// AccountResolver turns raw client account identifiers into accounts.
// ResolveOrCreate auto-provisions an account for an unseen external identity;
// Resolve never creates and returns nil, nil for an unseen external identity.
type AccountResolver interface {
	ResolveOrCreate(ctx context.Context, identifier, currency string) (*account.Account, error)
	Resolve(ctx context.Context, identifier string) (*account.Account, error)
}

// OperationApplier applies the per-operation balance effect inside the locked
// storage transaction and returns the primary account's post-operation state
type OperationApplier interface {
	Apply(ctx context.Context, tx pgx.Tx, txn *transaction.Transaction) (*account.Account, error)
}

// FailureRecorder persists a FAILED outcome outside the rolled-back storage
// transaction so the reference stays resolvable
type FailureRecorder interface {
	RecordFailure(ctx context.Context, txn *transaction.Transaction, reason string) error
}

// EventPublisher emits the terminal outcome onto the event bus without
// blocking the request path
type EventPublisher interface {
	PublishProcessed(txn *transaction.Transaction, acc *account.Account)
}
