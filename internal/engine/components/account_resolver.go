package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/meridian-ledger/internal/domain/account"
	"github.com/meridian-ledger/internal/engine/service"
)

type AccountResolverImpl struct {
	accountRepo account.Repository
	logger      *slog.Logger
}

func NewAccountResolver(accountRepo account.Repository, logger *slog.Logger) service.AccountResolver {
	return &AccountResolverImpl{
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// ResolveOrCreate loads an account by opaque id or external identity. An
// unseen external identity provisions a fresh active account with zero
// balance and zero credit limit; an opaque-id miss is a hard failure.
func (r *AccountResolverImpl) ResolveOrCreate(ctx context.Context, identifier, currency string) (*account.Account, error) {
	if id, err := uuid.Parse(identifier); err == nil {
		return r.accountRepo.GetByID(ctx, id)
	}

	acc, err := r.accountRepo.GetByExternalID(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if acc != nil {
		return acc, nil
	}

	created, err := account.NewAccount(identifier, 0, 0, currency)
	if err != nil {
		return nil, err
	}

	if err := r.accountRepo.Create(ctx, created); err != nil {
		if errors.Is(err, account.ErrDuplicateExternalID{ExternalID: identifier}) {
			// Lost a provisioning race: the winner's account is authoritative.
			winner, readErr := r.accountRepo.GetByExternalID(ctx, identifier)
			if readErr != nil || winner == nil {
				return nil, fmt.Errorf("failed to re-read account for external id %s: %w", identifier, readErr)
			}
			return winner, nil
		}
		return nil, err
	}

	r.logger.Info("Provisioned account for external identity",
		"account_id", created.ID.String(),
		"external_id", identifier,
	)
	return created, nil
}

// Resolve loads an account by opaque id or external identity without
// provisioning. Returns nil, nil for an unseen external identity.
func (r *AccountResolverImpl) Resolve(ctx context.Context, identifier string) (*account.Account, error) {
	if id, err := uuid.Parse(identifier); err == nil {
		acc, getErr := r.accountRepo.GetByID(ctx, id)
		if getErr != nil {
			if errors.Is(getErr, account.ErrAccountNotFound{AccountID: id}) {
				return nil, nil
			}
			return nil, getErr
		}
		return acc, nil
	}

	return r.accountRepo.GetByExternalID(ctx, identifier)
}
