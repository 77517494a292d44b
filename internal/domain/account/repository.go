package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByExternalID(ctx context.Context, externalID string) (*Account, error)

	// Update persists the account using optimistic locking on Version.
	// Returns ErrConcurrentModification if the stored row moved on.
	Update(ctx context.Context, account *Account) error

	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	AccountID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for account: " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrConcurrentModification
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrAccountNotFound
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}

// ErrDuplicateExternalID indicates external identity uniqueness violation
type ErrDuplicateExternalID struct {
	ExternalID string
}

func (e ErrDuplicateExternalID) Error() string {
	return "account with external ID already exists: " + e.ExternalID
}
