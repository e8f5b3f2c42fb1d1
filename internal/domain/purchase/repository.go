package purchase

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines purchase record persistence operations
type Repository interface {
	Create(ctx context.Context, record *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)

	// LockByID acquires a row lock on the record for refund processing.
	// Must be called within a transaction.
	LockByID(ctx context.Context, id uuid.UUID) (*Record, error)

	// GetCompletedByAccountAndItem returns the COMPLETED record for the pair,
	// or nil when the account does not own the item.
	GetCompletedByAccountAndItem(ctx context.Context, accountID, itemID uuid.UUID) (*Record, error)

	// GetByIdempotencyKey returns the record a prior attempt created under the
	// same key, in any status, or nil when none exists.
	GetByIdempotencyKey(ctx context.Context, accountID, itemID uuid.UUID, key string) (*Record, error)

	// MarkCompleted finalizes a PENDING record left behind by a crashed attempt
	MarkCompleted(ctx context.Context, id uuid.UUID) error

	MarkRefunded(ctx context.Context, id uuid.UUID) error

	CountForAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
	CountCompletedForItem(ctx context.Context, itemID uuid.UUID) (int64, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrRecordNotFound indicates a missing or non-refundable purchase record
type ErrRecordNotFound struct {
	PurchaseID uuid.UUID
}

func (e ErrRecordNotFound) Error() string {
	return "purchase not found: " + e.PurchaseID.String()
}

// Is implements the errors.Is interface for ErrRecordNotFound
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	if t.PurchaseID == uuid.Nil {
		return true
	}
	return e.PurchaseID == t.PurchaseID
}

// ErrAlreadyRefunded indicates the purchase was refunded before
type ErrAlreadyRefunded struct {
	PurchaseID uuid.UUID
}

func (e ErrAlreadyRefunded) Error() string {
	return "purchase already refunded: " + e.PurchaseID.String()
}

// Is implements the errors.Is interface for ErrAlreadyRefunded
func (e ErrAlreadyRefunded) Is(target error) bool {
	t, ok := target.(ErrAlreadyRefunded)
	if !ok {
		return false
	}
	if t.PurchaseID == uuid.Nil {
		return true
	}
	return e.PurchaseID == t.PurchaseID
}

// ErrDuplicateRecord indicates a uniqueness violation on the completed-per-item
// or idempotency-key constraint. The losing writer re-reads instead of retrying
// the insert.
type ErrDuplicateRecord struct {
	AccountID uuid.UUID
	ItemID    uuid.UUID
}

func (e ErrDuplicateRecord) Error() string {
	return "duplicate purchase record for account " + e.AccountID.String() + " and item " + e.ItemID.String()
}

// Is implements the errors.Is interface for ErrDuplicateRecord
func (e ErrDuplicateRecord) Is(target error) bool {
	t, ok := target.(ErrDuplicateRecord)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID && e.ItemID == t.ItemID
}
