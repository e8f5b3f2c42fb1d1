package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/course-token-wallet/internal/domain/catalog"
	"github.com/course-token-wallet/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ItemRepository implements the catalog.Repository interface for PostgreSQL
type ItemRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewItemRepository creates a new PostgreSQL item repository
func NewItemRepository(logger *slog.Logger, db *persistence.PostgresDB) catalog.Repository {
	return &ItemRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *ItemRepository) WithTx(tx pgx.Tx) catalog.Repository {
	return &ItemRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new catalog item
func (r *ItemRepository) Create(ctx context.Context, item *catalog.Item) error {
	query := `
		INSERT INTO items (id, owner_account_id, title, price, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.querier.Exec(ctx, query,
		item.ID,
		item.OwnerAccountID,
		item.Title,
		item.Price,
		item.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create item", "error", err)
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

// GetByID retrieves an item by its ID
func (r *ItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*catalog.Item, error) {
	query := `
		SELECT id, owner_account_id, title, price, created_at
		FROM items
		WHERE id = $1
	`

	var item catalog.Item
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&item.ID,
		&item.OwnerAccountID,
		&item.Title,
		&item.Price,
		&item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrItemNotFound{ItemID: id}
		}
		r.logger.Error("Failed to get item", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return &item, nil
}

// UpdatePrice changes the current price of an item. Existing purchase records
// keep the snapshot they were taken at.
func (r *ItemRepository) UpdatePrice(ctx context.Context, id uuid.UUID, price int64) error {
	result, err := r.querier.Exec(ctx, `UPDATE items SET price = $1 WHERE id = $2`, price, id)
	if err != nil {
		r.logger.Error("Failed to update item price", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update item price: %w", err)
	}

	if result.RowsAffected() == 0 {
		return catalog.ErrItemNotFound{ItemID: id}
	}

	return nil
}

// Delete removes an item row. Integrity checks run in the caller's transaction
// before this is reached.
func (r *ItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.querier.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete item", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return catalog.ErrItemNotFound{ItemID: id}
	}

	return nil
}
