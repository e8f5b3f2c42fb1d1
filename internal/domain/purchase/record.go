package purchase

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks the payment lifecycle of a purchase
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
)

// Record is one successful acquisition of a paid item. PricePaid snapshots the
// item price at purchase time and never changes, even if the item is repriced
// later. At most one COMPLETED record exists per (account, item) pair.
type Record struct {
	ID             uuid.UUID  `json:"id"`
	AccountID      uuid.UUID  `json:"account_id"`
	ItemID         uuid.UUID  `json:"item_id"`
	PricePaid      int64      `json:"price_paid"` // Snapshot, smallest token unit
	Status         Status     `json:"status"`
	IdempotencyKey string     `json:"idempotency_key"`
	PurchasedAt    time.Time  `json:"purchased_at"`
	RefundedAt     *time.Time `json:"refunded_at,omitempty"`
}

// NewRecord builds an unsaved purchase record in the given status
func NewRecord(accountID, itemID uuid.UUID, pricePaid int64, idempotencyKey string, status Status) *Record {
	return &Record{
		ID:             uuid.New(),
		AccountID:      accountID,
		ItemID:         itemID,
		PricePaid:      pricePaid,
		Status:         status,
		IdempotencyKey: idempotencyKey,
		PurchasedAt:    time.Now().UTC(),
	}
}

// Refundable reports whether the record can still be refunded
func (r *Record) Refundable() bool {
	return r.Status == StatusCompleted
}
