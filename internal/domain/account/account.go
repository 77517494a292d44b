package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInsufficientFunds     = errors.New("insufficient funds: debit exceeds available balance plus credit limit")
	ErrInsufficientAvailable = errors.New("insufficient available balance for reservation")
	ErrInsufficientReserved  = errors.New("insufficient reserved balance for capture")
	ErrInvalidReservation    = errors.New("release exceeds reserved balance")
	ErrAccountNotActive      = errors.New("account is not active")
	ErrNegativeCreditLimit   = errors.New("credit limit cannot be negative")
	ErrNegativeBalance       = errors.New("opening balance cannot be negative")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
)

// Status defines account lifecycle states
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusClosed    Status = "CLOSED"
)

// Account is the balance aggregate. All money fields are integer minor units.
// ReservedBalance is a hold against future capture; it reduces the available
// balance without reducing Balance. Balance may go negative within CreditLimit.
type Account struct {
	ID              uuid.UUID `json:"id"`
	ExternalID      string    `json:"external_id,omitempty"` // Unique where present
	Balance         int64     `json:"balance"`
	ReservedBalance int64     `json:"reserved_balance"`
	CreditLimit     int64     `json:"credit_limit"`
	Currency        string    `json:"currency"`
	Status          Status    `json:"status"`
	Version         int       `json:"version"` // For optimistic locking
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewAccount creates a new active account with the given parameters
func NewAccount(externalID string, openingBalance, creditLimit int64, currency string) (*Account, error) {
	if len(currency) != 3 {
		return nil, ErrInvalidCurrencyFormat
	}
	if openingBalance < 0 {
		return nil, ErrNegativeBalance
	}
	if creditLimit < 0 {
		return nil, ErrNegativeCreditLimit
	}

	return &Account{
		ID:          uuid.New(),
		ExternalID:  externalID,
		Balance:     openingBalance,
		CreditLimit: creditLimit,
		Currency:    currency,
		Status:      StatusActive,
		Version:     1,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}, nil
}

// AvailableBalance is the amount freely spendable without touching credit
func (a *Account) AvailableBalance() int64 {
	return a.Balance - a.ReservedBalance
}

// AddCredit adds the specified amount to the account balance
func (a *Account) AddCredit(amount int64) error {
	if err := a.checkMutable(amount); err != nil {
		return err
	}

	a.Balance += amount
	a.touch()
	return nil
}

// Debit subtracts the specified amount from the account balance. A debit may
// drive the balance negative; it succeeds while the amount fits within the
// available balance (balance minus reserved) plus the credit limit.
func (a *Account) Debit(amount int64) error {
	if err := a.checkMutable(amount); err != nil {
		return err
	}

	if amount > a.AvailableBalance()+a.CreditLimit {
		return ErrInsufficientFunds
	}

	a.Balance -= amount
	a.touch()
	return nil
}

// Reserve places a hold of the specified amount against future capture
func (a *Account) Reserve(amount int64) error {
	if err := a.checkMutable(amount); err != nil {
		return err
	}

	if amount > a.AvailableBalance() {
		return ErrInsufficientAvailable
	}

	a.ReservedBalance += amount
	a.touch()
	return nil
}

// Capture converts a previously reserved amount into a debit
func (a *Account) Capture(amount int64) error {
	if err := a.checkMutable(amount); err != nil {
		return err
	}

	if amount > a.ReservedBalance {
		return ErrInsufficientReserved
	}

	a.ReservedBalance -= amount
	a.Balance -= amount
	a.touch()
	return nil
}

// ReleaseReservation returns a held amount to the available balance
func (a *Account) ReleaseReservation(amount int64) error {
	if err := a.checkMutable(amount); err != nil {
		return err
	}

	if amount > a.ReservedBalance {
		return ErrInvalidReservation
	}

	a.ReservedBalance -= amount
	a.touch()
	return nil
}

func (a *Account) checkMutable(amount int64) error {
	if a.Status != StatusActive {
		return ErrAccountNotActive
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (a *Account) touch() {
	a.UpdatedAt = time.Now()
	a.Version++
}
