package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/course-token-wallet/internal/domain/purchase"
	"github.com/course-token-wallet/internal/domain/wallet"
	"github.com/course-token-wallet/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ReportingRepository answers read-side aggregation queries from the ledger
// and purchase tables. It never reads the cached account balance for revenue
// figures, so reporting stays reconciled with the immutable ledger. Every
// query runs in a repeatable-read snapshot so concurrent purchases never
// produce a torn aggregate.
type ReportingRepository struct {
	db     *persistence.PostgresDB
	logger *slog.Logger
}

// NewReportingRepository creates a new PostgreSQL reporting repository
func NewReportingRepository(logger *slog.Logger, db *persistence.PostgresDB) *ReportingRepository {
	return &ReportingRepository{
		db:     db,
		logger: logger,
	}
}

// RevenueForOwner sums price_paid over completed purchases of the owner's
// items within the optional date range.
func (r *ReportingRepository) RevenueForOwner(ctx context.Context, ownerID uuid.UUID, from, to *time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(p.price_paid), 0)
		FROM purchases p
		JOIN items i ON i.id = p.item_id
		WHERE i.owner_account_id = $1
		  AND p.status = $2
		  AND ($3::timestamptz IS NULL OR p.purchased_at >= $3)
		  AND ($4::timestamptz IS NULL OR p.purchased_at < $4)
	`

	var revenue int64
	err := r.db.ExecuteSnapshotTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query, ownerID, purchase.StatusCompleted, from, to).Scan(&revenue)
	})
	if err != nil {
		r.logger.Error("Failed to compute owner revenue", "owner_id", ownerID.String(), "error", err)
		return 0, fmt.Errorf("failed to compute owner revenue: %w", err)
	}

	return revenue, nil
}

// DistinctBuyersForOwner counts distinct accounts with a completed purchase of
// any of the owner's items.
func (r *ReportingRepository) DistinctBuyersForOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(DISTINCT p.account_id)
		FROM purchases p
		JOIN items i ON i.id = p.item_id
		WHERE i.owner_account_id = $1 AND p.status = $2
	`

	var buyers int64
	err := r.db.ExecuteSnapshotTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query, ownerID, purchase.StatusCompleted).Scan(&buyers)
	})
	if err != nil {
		r.logger.Error("Failed to count distinct buyers", "owner_id", ownerID.String(), "error", err)
		return 0, fmt.Errorf("failed to count distinct buyers: %w", err)
	}

	return buyers, nil
}

// PlatformTotals returns platform-wide revenue and purchase counts within the
// optional date range.
func (r *ReportingRepository) PlatformTotals(ctx context.Context, from, to *time.Time) (revenue, purchases, refunds int64, err error) {
	query := `
		SELECT
			COALESCE(SUM(price_paid) FILTER (WHERE status = $1), 0),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2)
		FROM purchases
		WHERE ($3::timestamptz IS NULL OR purchased_at >= $3)
		  AND ($4::timestamptz IS NULL OR purchased_at < $4)
	`

	err = r.db.ExecuteSnapshotTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query, purchase.StatusCompleted, purchase.StatusRefunded, from, to).
			Scan(&revenue, &purchases, &refunds)
	})
	if err != nil {
		r.logger.Error("Failed to compute platform totals", "error", err)
		return 0, 0, 0, fmt.Errorf("failed to compute platform totals: %w", err)
	}

	return revenue, purchases, refunds, nil
}

// LedgerSumAndBalance reads the ledger sum and the cached balance for one
// account inside a single snapshot, so the two figures are comparable even
// under concurrent writes.
func (r *ReportingRepository) LedgerSumAndBalance(ctx context.Context, accountID uuid.UUID) (ledgerSum, balance int64, err error) {
	err = r.db.ExecuteSnapshotTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return wallet.ErrAccountNotFound{AccountID: accountID}
			}
			return err
		}
		return tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE account_id = $1`, accountID).Scan(&ledgerSum)
	})
	if err != nil {
		if errors.Is(err, wallet.ErrAccountNotFound{}) {
			return 0, 0, err
		}
		r.logger.Error("Failed to read reconciliation snapshot", "account_id", accountID.String(), "error", err)
		return 0, 0, fmt.Errorf("failed to read reconciliation snapshot: %w", err)
	}

	return ledgerSum, balance, nil
}
