package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meridian-ledger/internal/domain/account"
	"github.com/meridian-ledger/internal/domain/shared"
	"github.com/meridian-ledger/internal/domain/transaction"
	"github.com/meridian-ledger/internal/engine/service"
)

type OperationApplierImpl struct {
	accountRepo account.Repository
	txnRepo     transaction.Repository
	logger      *slog.Logger
}

func NewOperationApplier(accountRepo account.Repository, txnRepo transaction.Repository, logger *slog.Logger) service.OperationApplier {
	return &OperationApplierImpl{
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		logger:      logger,
	}
}

// Apply executes the transaction's balance effect inside the given storage
// transaction. Accounts are reloaded here so their concurrency tokens are
// fresh under the lock, mutated through the aggregate, and persisted with
// the token check. The returned account is the request's primary account in
// its post-operation state.
func (a *OperationApplierImpl) Apply(ctx context.Context, tx pgx.Tx, txn *transaction.Transaction) (*account.Account, error) {
	accountRepoTx := a.accountRepo.WithTx(tx)

	if txn.Operation == shared.OperationReversal {
		return a.applyReversal(ctx, tx, txn)
	}

	acc, err := accountRepoTx.GetByID(ctx, txn.AccountID)
	if err != nil {
		return nil, err
	}

	if acc.Currency != txn.Currency {
		a.logger.Warn("Currency mismatch",
			"transaction_id", txn.ID.String(),
			"request_currency", txn.Currency,
			"account_currency", acc.Currency,
		)
		return nil, shared.ErrInvalidCurrency
	}

	switch txn.Operation {
	case shared.OperationCredit:
		err = acc.AddCredit(txn.Amount)
	case shared.OperationDebit:
		err = acc.Debit(txn.Amount)
	case shared.OperationReserve:
		err = acc.Reserve(txn.Amount)
	case shared.OperationCapture:
		err = acc.Capture(txn.Amount)
	case shared.OperationTransfer:
		return a.applyTransfer(ctx, accountRepoTx, txn, acc)
	default:
		return nil, shared.ErrInvalidOperation
	}
	if err != nil {
		return nil, err
	}

	if err := accountRepoTx.Update(ctx, acc); err != nil {
		return nil, err
	}

	return acc, nil
}

func (a *OperationApplierImpl) applyTransfer(ctx context.Context, accountRepoTx account.Repository, txn *transaction.Transaction, source *account.Account) (*account.Account, error) {
	target, err := accountRepoTx.GetByID(ctx, *txn.TargetAccountID)
	if err != nil {
		return nil, err
	}

	if err := source.Debit(txn.Amount); err != nil {
		return nil, err
	}
	if err := target.AddCredit(txn.Amount); err != nil {
		return nil, err
	}

	if err := accountRepoTx.Update(ctx, source); err != nil {
		return nil, err
	}
	if err := accountRepoTx.Update(ctx, target); err != nil {
		return nil, err
	}

	return source, nil
}

// applyReversal inverts a completed transaction's effect on its original
// accounts, using the original's amount, then marks the original REVERSED.
func (a *OperationApplierImpl) applyReversal(ctx context.Context, tx pgx.Tx, txn *transaction.Transaction) (*account.Account, error) {
	accountRepoTx := a.accountRepo.WithTx(tx)
	txnRepoTx := a.txnRepo.WithTx(tx)

	original, err := txnRepoTx.GetByID(ctx, *txn.OriginalTransactionID)
	if err != nil {
		return nil, err
	}

	switch original.Status {
	case shared.TransactionStatusCompleted:
	case shared.TransactionStatusReversed:
		return nil, transaction.ErrAlreadyReversed
	default:
		return nil, transaction.ErrNotReversible
	}
	if original.Operation == shared.OperationReversal {
		return nil, transaction.ErrNotReversible
	}

	touched, err := a.invertOriginal(ctx, accountRepoTx, original)
	if err != nil {
		return nil, err
	}

	for _, acc := range touched {
		if err := accountRepoTx.Update(ctx, acc); err != nil {
			return nil, err
		}
	}

	if err := original.MarkReversed(); err != nil {
		return nil, err
	}
	if err := txnRepoTx.Update(ctx, original); err != nil {
		return nil, err
	}

	a.logger.Info("Reversed transaction",
		"transaction_id", txn.ID.String(),
		"original_transaction_id", original.ID.String(),
		"operation", string(original.Operation),
	)

	return a.primaryAccount(ctx, accountRepoTx, txn.AccountID, touched)
}

// invertOriginal applies the inverse of the original operation and returns
// every mutated account
func (a *OperationApplierImpl) invertOriginal(ctx context.Context, accountRepoTx account.Repository, original *transaction.Transaction) ([]*account.Account, error) {
	acc, err := accountRepoTx.GetByID(ctx, original.AccountID)
	if err != nil {
		return nil, err
	}

	amount := original.Amount
	switch original.Operation {
	case shared.OperationCredit:
		if err := acc.Debit(amount); err != nil {
			return nil, err
		}
	case shared.OperationDebit:
		if err := acc.AddCredit(amount); err != nil {
			return nil, err
		}
	case shared.OperationReserve:
		if err := acc.ReleaseReservation(amount); err != nil {
			return nil, err
		}
	case shared.OperationCapture:
		// Restores both balance and the prior hold. If the hold's funds have
		// since been spent, the re-reserve fails the reversal.
		if err := acc.AddCredit(amount); err != nil {
			return nil, err
		}
		if err := acc.Reserve(amount); err != nil {
			return nil, err
		}
	case shared.OperationTransfer:
		target, err := accountRepoTx.GetByID(ctx, *original.TargetAccountID)
		if err != nil {
			return nil, err
		}
		if err := target.Debit(amount); err != nil {
			return nil, err
		}
		if err := acc.AddCredit(amount); err != nil {
			return nil, err
		}
		return []*account.Account{acc, target}, nil
	default:
		return nil, fmt.Errorf("cannot invert operation %s: %w", original.Operation, transaction.ErrNotReversible)
	}

	return []*account.Account{acc}, nil
}

// primaryAccount picks the request's account out of the touched set, or
// reloads it when the reversal did not mutate it
func (a *OperationApplierImpl) primaryAccount(ctx context.Context, accountRepoTx account.Repository, accountID uuid.UUID, touched []*account.Account) (*account.Account, error) {
	for _, acc := range touched {
		if acc.ID == accountID {
			return acc, nil
		}
	}
	return accountRepoTx.GetByID(ctx, accountID)
}
