package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/meridian-ledger/internal/domain/account"
	"github.com/meridian-ledger/internal/domain/shared"
	"github.com/meridian-ledger/internal/domain/transaction"
)

// Name identifies the event type on the wire
const TransactionProcessedName = "transaction.processed"

// TransactionProcessed is emitted after the engine reaches a terminal outcome
// for a request, success or failure. Balances are the post-operation state of
// the primary account, in minor units.
type TransactionProcessed struct {
	ID               uuid.UUID                `json:"id" bson:"event_id"`
	Name             string                   `json:"name" bson:"name"`
	TransactionID    uuid.UUID                `json:"transaction_id" bson:"transaction_id"`
	ReferenceID      string                   `json:"reference_id" bson:"reference_id"`
	Operation        shared.OperationType     `json:"operation" bson:"operation"`
	Amount           int64                    `json:"amount" bson:"amount"`
	Currency         string                   `json:"currency" bson:"currency"`
	AccountID        uuid.UUID                `json:"account_id" bson:"account_id"`
	Status           shared.TransactionStatus `json:"status" bson:"status"`
	FailureReason    string                   `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	Balance          int64                    `json:"balance" bson:"balance"`
	ReservedBalance  int64                    `json:"reserved_balance" bson:"reserved_balance"`
	AvailableBalance int64                    `json:"available_balance" bson:"available_balance"`
	CorrelationID    string                   `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	OccurredAt       time.Time                `json:"occurred_at" bson:"occurred_at"`
}

// NewTransactionProcessed builds the event for a terminal transaction. The
// account may be nil when the failure happened before balances were resolved.
func NewTransactionProcessed(txn *transaction.Transaction, acc *account.Account) TransactionProcessed {
	ev := TransactionProcessed{
		ID:            uuid.New(),
		Name:          TransactionProcessedName,
		TransactionID: txn.ID,
		ReferenceID:   txn.ReferenceID,
		Operation:     txn.Operation,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		AccountID:     txn.AccountID,
		Status:        txn.Status,
		FailureReason: txn.FailureReason,
		CorrelationID: txn.CorrelationID,
		OccurredAt:    time.Now(),
	}

	if acc != nil {
		ev.Balance = acc.Balance
		ev.ReservedBalance = acc.ReservedBalance
		ev.AvailableBalance = acc.AvailableBalance()
	}

	return ev
}
