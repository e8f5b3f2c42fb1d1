package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrEmptyTitle   = errors.New("item title cannot be empty")
	ErrInvalidPrice = errors.New("item price cannot be negative")
)

// Item is a paid video in the catalog. The wallet core reads Price at purchase
// time and OwnerAccountID for revenue aggregation; everything else about the
// item lifecycle belongs to the surrounding marketplace.
type Item struct {
	ID             uuid.UUID `json:"id"`
	OwnerAccountID uuid.UUID `json:"owner_account_id"`
	Title          string    `json:"title"`
	Price          int64     `json:"price"` // Current price, smallest token unit
	CreatedAt      time.Time `json:"created_at"`
}

// NewItem creates a new catalog item owned by the given teacher account
func NewItem(ownerAccountID uuid.UUID, title string, price int64) (*Item, error) {
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if price < 0 {
		return nil, ErrInvalidPrice
	}

	return &Item{
		ID:             uuid.New(),
		OwnerAccountID: ownerAccountID,
		Title:          title,
		Price:          price,
		CreatedAt:      time.Now(),
	}, nil
}
