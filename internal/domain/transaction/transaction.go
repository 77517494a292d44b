package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-ledger/internal/domain/shared"
)

// Common errors
var (
	ErrEmptyReferenceID           = errors.New("reference id cannot be empty")
	ErrInvalidAmount              = errors.New("amount must be positive")
	ErrMissingTargetAccount       = errors.New("transfer requires a target account")
	ErrMissingOriginalTransaction = errors.New("reversal requires an original transaction")
	ErrNotReversible              = errors.New("transaction is not reversible")
	ErrAlreadyReversed            = errors.New("transaction has already been reversed")
)

// ErrInvalidTransition indicates an illegal status transition
type ErrInvalidTransition struct {
	From shared.TransactionStatus
	To   shared.TransactionStatus
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid transaction transition from %s to %s", e.From, e.To)
}

// Transaction records one money-movement request and its outcome. The record
// is immutable once terminal, except that a COMPLETED transaction becomes
// REVERSED when a reversal targeting it completes. Amount is in minor units.
type Transaction struct {
	ID                    uuid.UUID                `json:"id"`
	ReferenceID           string                   `json:"reference_id"` // Globally unique, client-chosen
	Operation             shared.OperationType     `json:"operation"`
	Amount                int64                    `json:"amount"`
	Currency              string                   `json:"currency"`
	AccountID             uuid.UUID                `json:"account_id"`
	TargetAccountID       *uuid.UUID               `json:"target_account_id,omitempty"`
	OriginalTransactionID *uuid.UUID               `json:"original_transaction_id,omitempty"`
	Metadata              string                   `json:"metadata,omitempty"`
	CorrelationID         string                   `json:"correlation_id,omitempty"`
	Status                shared.TransactionStatus `json:"status"`
	FailureReason         string                   `json:"failure_reason,omitempty"`
	CreatedAt             time.Time                `json:"created_at"`
	ProcessedAt           *time.Time               `json:"processed_at,omitempty"`
}

// New creates a pending transaction, validating the operation's required
// linkage: transfers need a target account, reversals an original transaction.
func New(
	referenceID string,
	operation shared.OperationType,
	amount int64,
	currency string,
	accountID uuid.UUID,
	targetAccountID *uuid.UUID,
	originalTransactionID *uuid.UUID,
	metadata string,
) (*Transaction, error) {
	if referenceID == "" {
		return nil, ErrEmptyReferenceID
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if operation == shared.OperationTransfer && targetAccountID == nil {
		return nil, ErrMissingTargetAccount
	}
	if operation == shared.OperationReversal && originalTransactionID == nil {
		return nil, ErrMissingOriginalTransaction
	}

	return &Transaction{
		ID:                    uuid.New(),
		ReferenceID:           referenceID,
		Operation:             operation,
		Amount:                amount,
		Currency:              currency,
		AccountID:             accountID,
		TargetAccountID:       targetAccountID,
		OriginalTransactionID: originalTransactionID,
		Metadata:              metadata,
		Status:                shared.TransactionStatusPending,
		CreatedAt:             time.Now(),
	}, nil
}

// MarkCompleted transitions a pending transaction to COMPLETED
func (t *Transaction) MarkCompleted() error {
	if t.Status != shared.TransactionStatusPending {
		return ErrInvalidTransition{From: t.Status, To: shared.TransactionStatusCompleted}
	}
	t.Status = shared.TransactionStatusCompleted
	now := time.Now()
	t.ProcessedAt = &now
	return nil
}

// MarkFailed transitions a pending transaction to FAILED with the given reason
func (t *Transaction) MarkFailed(reason string) error {
	if t.Status != shared.TransactionStatusPending {
		return ErrInvalidTransition{From: t.Status, To: shared.TransactionStatusFailed}
	}
	t.Status = shared.TransactionStatusFailed
	t.FailureReason = reason
	now := time.Now()
	t.ProcessedAt = &now
	return nil
}

// MarkReversed transitions a completed transaction to REVERSED
func (t *Transaction) MarkReversed() error {
	switch t.Status {
	case shared.TransactionStatusCompleted:
		t.Status = shared.TransactionStatusReversed
		return nil
	case shared.TransactionStatusReversed:
		return ErrAlreadyReversed
	default:
		return ErrInvalidTransition{From: t.Status, To: shared.TransactionStatusReversed}
	}
}
