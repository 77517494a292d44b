package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages transaction record persistence. ReferenceID carries a
// unique index in the store; Create surfaces a duplicate as
// ErrDuplicateReference so the engine can re-read the winning record.
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByReferenceID(ctx context.Context, referenceID string) (*Transaction, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Transaction, error)
	CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error)

	// Update persists status, failure reason and processed time
	Update(ctx context.Context, txn *Transaction) error

	// GetStalePending lists PENDING transactions created before the cutoff,
	// oldest first. Used by the reconciliation sweeper.
	GetStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*Transaction, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates missing transaction record
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID.String()
}

// Is implements the errors.Is interface for ErrTransactionNotFound
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}

// ErrDuplicateReference indicates reference id uniqueness violation
type ErrDuplicateReference struct {
	ReferenceID string
}

func (e ErrDuplicateReference) Error() string {
	return "duplicate transaction reference: " + e.ReferenceID
}

// Is implements the errors.Is interface for ErrDuplicateReference
func (e ErrDuplicateReference) Is(target error) bool {
	t, ok := target.(ErrDuplicateReference)
	if !ok {
		return false
	}
	if t.ReferenceID == "" {
		return true
	}
	return e.ReferenceID == t.ReferenceID
}
