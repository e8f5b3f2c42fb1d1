package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages the append-only ledger. There are no update or delete
// operations: the ledger is the immutable source of truth for every balance.
type Repository interface {
	// Append writes one immutable entry. It is only called from within an
	// active transaction owned by a higher-level orchestrator; the repository
	// does not manage its own transaction boundary on the write path.
	// Duplicate idempotency keys and duplicate refunds are rejected by
	// uniqueness constraints, never by pre-checking.
	Append(ctx context.Context, entry *Entry) error

	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// SumForAccount totals every entry for an account. Used for
	// reconciliation and audit, not on the hot path.
	SumForAccount(ctx context.Context, accountID uuid.UUID) (int64, error)

	// EntriesFor returns entries ordered by created_at ascending. A nil since
	// returns the full history. Pure read, restartable.
	EntriesFor(ctx context.Context, accountID uuid.UUID, since *time.Time, limit, offset int) ([]*Entry, error)

	CountForAccount(ctx context.Context, accountID uuid.UUID) (int64, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrDuplicateEntry indicates an idempotency or refund uniqueness violation.
// The caller must retry the lookup, not the write.
type ErrDuplicateEntry struct {
	AccountID      uuid.UUID
	IdempotencyKey string
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate ledger entry for account " + e.AccountID.String() + " (key " + e.IdempotencyKey + ")"
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}
