package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/course-token-wallet/internal/domain/purchase"
	"github.com/course-token-wallet/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const purchaseColumns = "id, account_id, item_id, price_paid, status, idempotency_key, purchased_at, refunded_at"

// PurchaseRepository implements the purchase.Repository interface for PostgreSQL
type PurchaseRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPurchaseRepository creates a new PostgreSQL purchase repository
func NewPurchaseRepository(logger *slog.Logger, db *persistence.PostgresDB) purchase.Repository {
	return &PurchaseRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *PurchaseRepository) WithTx(tx pgx.Tx) purchase.Repository {
	return &PurchaseRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new purchase record. Uniqueness of the completed record per
// (account, item) and of the idempotency key is enforced by indexes; a losing
// concurrent writer gets ErrDuplicateRecord and re-reads the winner's row.
func (r *PurchaseRepository) Create(ctx context.Context, rec *purchase.Record) error {
	query := `
		INSERT INTO purchases (id, account_id, item_id, price_paid, status, idempotency_key, purchased_at, refunded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		rec.ID,
		rec.AccountID,
		rec.ItemID,
		rec.PricePaid,
		rec.Status,
		rec.IdempotencyKey,
		rec.PurchasedAt,
		rec.RefundedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return purchase.ErrDuplicateRecord{AccountID: rec.AccountID, ItemID: rec.ItemID}
		}
		r.logger.Error("Failed to create purchase record", "account_id", rec.AccountID.String(), "item_id", rec.ItemID.String(), "error", err)
		return fmt.Errorf("failed to create purchase record: %w", err)
	}

	return nil
}

// GetByID retrieves a purchase record by its ID
func (r *PurchaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*purchase.Record, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1`

	rec, err := r.scanRecord(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, purchase.ErrRecordNotFound{PurchaseID: id}
		}
		r.logger.Error("Failed to get purchase record", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get purchase record: %w", err)
	}

	return rec, nil
}

// LockByID obtains a row lock on the purchase record for refund processing.
// Must run inside a transaction.
func (r *PurchaseRepository) LockByID(ctx context.Context, id uuid.UUID) (*purchase.Record, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1 FOR UPDATE`

	rec, err := r.scanRecord(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, purchase.ErrRecordNotFound{PurchaseID: id}
		}
		r.logger.Error("Failed to lock purchase record", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock purchase record: %w", err)
	}

	return rec, nil
}

// GetCompletedByAccountAndItem returns the COMPLETED record for the pair, or
// nil when the account does not currently own the item.
func (r *PurchaseRepository) GetCompletedByAccountAndItem(ctx context.Context, accountID, itemID uuid.UUID) (*purchase.Record, error) {
	query := `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE account_id = $1 AND item_id = $2 AND status = $3
	`

	rec, err := r.scanRecord(r.querier.QueryRow(ctx, query, accountID, itemID, purchase.StatusCompleted))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get completed purchase", "account_id", accountID.String(), "item_id", itemID.String(), "error", err)
		return nil, fmt.Errorf("failed to get completed purchase: %w", err)
	}

	return rec, nil
}

// GetByIdempotencyKey returns the record a prior attempt created under the
// same key, in any status, or nil when none exists.
func (r *PurchaseRepository) GetByIdempotencyKey(ctx context.Context, accountID, itemID uuid.UUID, key string) (*purchase.Record, error) {
	query := `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE account_id = $1 AND item_id = $2 AND idempotency_key = $3
	`

	rec, err := r.scanRecord(r.querier.QueryRow(ctx, query, accountID, itemID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get purchase by idempotency key", "account_id", accountID.String(), "key", key, "error", err)
		return nil, fmt.Errorf("failed to get purchase by idempotency key: %w", err)
	}

	return rec, nil
}

// MarkCompleted finalizes a PENDING record left behind by a crashed attempt
func (r *PurchaseRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE purchases
		SET status = $1
		WHERE id = $2 AND status = $3
	`

	result, err := r.querier.Exec(ctx, query, purchase.StatusCompleted, id, purchase.StatusPending)
	if err != nil {
		r.logger.Error("Failed to mark purchase completed", "id", id.String(), "error", err)
		return fmt.Errorf("failed to mark purchase completed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return purchase.ErrRecordNotFound{PurchaseID: id}
	}

	return nil
}

// MarkRefunded flips a COMPLETED record to REFUNDED. The status guard in the
// WHERE clause makes a second refund a no-op that surfaces as
// ErrAlreadyRefunded.
func (r *PurchaseRepository) MarkRefunded(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE purchases
		SET status = $1, refunded_at = NOW()
		WHERE id = $2 AND status = $3
	`

	result, err := r.querier.Exec(ctx, query, purchase.StatusRefunded, id, purchase.StatusCompleted)
	if err != nil {
		r.logger.Error("Failed to mark purchase refunded", "id", id.String(), "error", err)
		return fmt.Errorf("failed to mark purchase refunded: %w", err)
	}

	if result.RowsAffected() == 0 {
		return purchase.ErrAlreadyRefunded{PurchaseID: id}
	}

	return nil
}

// CountForAccount returns the number of purchase records for an account in any
// status. Used by the integrity guard before account deletion.
func (r *PurchaseRepository) CountForAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM purchases WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count purchases for account", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count purchases for account: %w", err)
	}

	return count, nil
}

// CountCompletedForItem returns the number of completed purchases of an item.
// Used by the integrity guard before item deletion.
func (r *PurchaseRepository) CountCompletedForItem(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var count int64
	err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM purchases WHERE item_id = $1 AND status = $2`, itemID, purchase.StatusCompleted).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count purchases for item", "item_id", itemID.String(), "error", err)
		return 0, fmt.Errorf("failed to count purchases for item: %w", err)
	}

	return count, nil
}

func (r *PurchaseRepository) scanRecord(row pgx.Row) (*purchase.Record, error) {
	var rec purchase.Record
	err := row.Scan(
		&rec.ID,
		&rec.AccountID,
		&rec.ItemID,
		&rec.PricePaid,
		&rec.Status,
		&rec.IdempotencyKey,
		&rec.PurchasedAt,
		&rec.RefundedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
