package outbox

import (
	"encoding/json"
	"time"

	"github.com/course-token-wallet/internal/domain/ledger"
	"github.com/google/uuid"
)

// Status defines message publishing states
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusPublished       Status = "PUBLISHED"
	StatusFailedToPublish Status = "FAILED_TO_PUBLISH"
)

// Message stores a committed wallet event for reliable publishing. It is
// written in the same transaction as the ledger entry it carries, so the
// downstream stream never sees an event that was rolled back.
type Message struct {
	ID            int64           `json:"id"`
	EntryID       uuid.UUID       `json:"entry_id"`
	AccountID     uuid.UUID       `json:"account_id"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps a ledger entry into a pending outbox message
func NewMessage(entry *ledger.Entry) (*Message, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	return &Message{
		EntryID:   entry.ID,
		AccountID: entry.AccountID,
		Payload:   payload,
		Status:    StatusPending,
		Attempts:  0,
		CreatedAt: time.Now(),
	}, nil
}

// GetLedgerEntry extracts the ledger entry from the payload
func (m *Message) GetLedgerEntry() (*ledger.Entry, error) {
	var entry ledger.Entry
	if err := json.Unmarshal(m.Payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
