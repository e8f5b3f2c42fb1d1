package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a balance-changing event
type Kind string

const (
	KindPurchase Kind = "PURCHASE"
	KindUsage    Kind = "USAGE"
	KindReward   Kind = "REWARD"
	KindRefund   Kind = "REFUND"
)

// Entry is one immutable balance-changing event. Entries are never updated or
// deleted; corrections append a compensating entry (a REFUND reversing a
// PURCHASE). CreatedAt is non-decreasing per account.
type Entry struct {
	ID                uuid.UUID  `json:"id"`
	AccountID         uuid.UUID  `json:"account_id"`
	Amount            int64      `json:"amount"` // Signed, smallest token unit; positive = credit
	Kind              Kind       `json:"kind"`
	Description       string     `json:"description,omitempty"`
	RelatedPurchaseID *uuid.UUID `json:"related_purchase_id,omitempty"`
	IdempotencyKey    string     `json:"idempotency_key,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// NewEntry builds an unsaved ledger entry. CreatedAt stays zero until the
// repository appends the entry and scans back the database-assigned timestamp.
func NewEntry(accountID uuid.UUID, amount int64, kind Kind, description string) *Entry {
	return &Entry{
		ID:          uuid.New(),
		AccountID:   accountID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
	}
}
