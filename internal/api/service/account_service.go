package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/meridian-ledger/internal/domain/account"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	accountRepo account.Repository
}

// NewAccountService creates a new account service
func NewAccountService(accountRepo account.Repository) AccountService {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
	}
}

// CreateAccount creates a new account with the given details, checking for
// duplicate external identities
func (s *AccountServiceImpl) CreateAccount(ctx context.Context, externalID string, initialBalance, creditLimit int64, currency string) (*account.Account, error) {
	if externalID != "" {
		existingAccount, err := s.accountRepo.GetByExternalID(ctx, externalID)
		if err != nil {
			return nil, err
		}
		if existingAccount != nil {
			return nil, account.ErrDuplicateExternalID{ExternalID: externalID}
		}
	}

	acc, err := account.NewAccount(externalID, initialBalance, creditLimit, currency)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.Create(ctx, acc); err != nil {
		return nil, err
	}

	return acc, nil
}

// GetAccountByID retrieves an account by its ID, returns ErrAccountNotFound if not found
func (s *AccountServiceImpl) GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.accountRepo.GetByID(ctx, id)
}

// UpdateAccountStatus changes the account status and returns the fresh state
func (s *AccountServiceImpl) UpdateAccountStatus(ctx context.Context, id uuid.UUID, status account.Status) (*account.Account, error) {
	if err := s.accountRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.accountRepo.GetByID(ctx, id)
}
