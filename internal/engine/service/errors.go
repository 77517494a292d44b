package service

import (
	"errors"

	"github.com/meridian-ledger/internal/domain/account"
	"github.com/meridian-ledger/internal/domain/shared"
	"github.com/meridian-ledger/internal/domain/transaction"
)

// Engine-level errors
var (
	ErrTargetAccountNotFound         = errors.New("target account not found")
	ErrInvalidOriginalTransactionID  = errors.New("original transaction id is not a valid identifier")
	ErrOriginalTransactionNotVisible = errors.New("original transaction does not belong to the requested account")
)

// ClassifyFailure maps a domain error raised inside the locked storage
// transaction to a recordable failure reason. Errors outside this set are
// infrastructure or concurrency faults and must propagate instead of
// producing a FAILED transaction.
func ClassifyFailure(err error) (shared.FailureReason, bool) {
	switch {
	case errors.Is(err, account.ErrInsufficientFunds):
		return shared.FailureReasonInsufficientFunds, true
	case errors.Is(err, account.ErrInsufficientAvailable):
		return shared.FailureReasonInsufficientAvailable, true
	case errors.Is(err, account.ErrInsufficientReserved):
		return shared.FailureReasonInsufficientReserved, true
	case errors.Is(err, account.ErrInvalidReservation):
		return shared.FailureReasonInvalidReservation, true
	case errors.Is(err, account.ErrAccountNotActive):
		return shared.FailureReasonAccountNotActive, true
	case errors.Is(err, account.ErrInvalidAmount):
		return shared.FailureReasonInvalidAmount, true
	case errors.Is(err, transaction.ErrAlreadyReversed):
		return shared.FailureReasonAlreadyReversed, true
	case errors.Is(err, transaction.ErrNotReversible):
		return shared.FailureReasonNonReversible, true
	case errors.Is(err, shared.ErrInvalidCurrency):
		return shared.FailureReasonCurrencyMismatch, true
	default:
		return "", false
	}
}
