package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Archive persists every drained domain event as an audit trail. Writes are
// at-least-once; a replayed event overwrites nothing and is stored again.
type Archive interface {
	Store(ctx context.Context, ev *TransactionProcessed) error
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]*TransactionProcessed, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*TransactionProcessed, error)
	GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*TransactionProcessed, error)
}
