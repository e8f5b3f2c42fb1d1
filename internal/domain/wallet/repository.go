package wallet

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines token account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// ApplyDelta atomically adds delta to the stored balance and returns the
	// new value. The balance guard and the write are a single statement, so
	// two concurrent debits can never both pass the check.
	// Returns ErrInsufficientFunds if a debit would take the balance negative.
	// Must be invoked in the same transaction as the paired ledger append.
	ApplyDelta(ctx context.Context, id uuid.UUID, delta int64) (int64, error)

	// Delete removes an account row. Callers go through the integrity guard
	// first; the repository itself only enforces existence.
	Delete(ctx context.Context, id uuid.UUID) error

	WithTx(tx pgx.Tx) Repository
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

// ErrInsufficientFunds indicates a debit larger than the current balance.
// This is an expected business outcome, not a system fault.
type ErrInsufficientFunds struct {
	AccountID uuid.UUID
	Balance   int64
	Requested int64
}

func (e ErrInsufficientFunds) Error() string {
	return "insufficient funds on account " + e.AccountID.String() +
		": balance " + strconv.FormatInt(e.Balance, 10) +
		", requested " + strconv.FormatInt(e.Requested, 10)
}

// Is implements the errors.Is interface for ErrInsufficientFunds
func (e ErrInsufficientFunds) Is(target error) bool {
	t, ok := target.(ErrInsufficientFunds)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}
