package wallet

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrNegativeInitialTokens = errors.New("initial token balance cannot be negative")
)

// Account holds a user's spendable token balance.
// Balance is stored in the smallest token unit and is only ever changed by the
// ledger commit path; callers never write it directly.
type Account struct {
	ID        uuid.UUID `json:"id"`
	Balance   int64     `json:"balance"` // Smallest token unit
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAccount creates a new token account, optionally seeded with a signup grant
func NewAccount(initialBalance int64) (*Account, error) {
	if initialBalance < 0 {
		return nil, ErrNegativeInitialTokens
	}

	now := time.Now()
	return &Account{
		ID:        uuid.New(),
		Balance:   initialBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanSpend reports whether the account holds at least amount tokens
func (a *Account) CanSpend(amount int64) bool {
	return a.Balance >= amount
}
