package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/course-token-wallet/internal/domain/ledger"
	"github.com/course-token-wallet/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations
const pgUniqueViolation = "23505"

// LedgerRepository implements the ledger.Repository interface for PostgreSQL.
// The ledger table is append-only; this type deliberately has no update or
// delete methods.
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so the append commits
// atomically with the paired balance update.
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Append writes one immutable ledger entry. Duplicate idempotency keys and
// duplicate refunds surface as ErrDuplicateEntry via the table's unique
// indexes; there is no read-before-write race window. The database assigns
// created_at, so per-account ordering holds even when appends come from API
// instances with skewed clocks.
func (r *LedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (id, account_id, amount, kind, description, related_purchase_id, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := r.querier.QueryRow(ctx, query,
		entry.ID,
		entry.AccountID,
		entry.Amount,
		entry.Kind,
		entry.Description,
		entry.RelatedPurchaseID,
		entry.IdempotencyKey,
	).Scan(&entry.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ledger.ErrDuplicateEntry{AccountID: entry.AccountID, IdempotencyKey: entry.IdempotencyKey}
		}
		r.logger.Error("Failed to append ledger entry", "account_id", entry.AccountID.String(), "error", err)
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

// GetByID retrieves a single ledger entry
func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `
		SELECT id, account_id, amount, kind, description, related_purchase_id, idempotency_key, created_at
		FROM ledger_entries
		WHERE id = $1
	`

	entry, err := r.scanEntry(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get ledger entry", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return entry, nil
}

// SumForAccount totals all entries for an account. An account with no entries
// sums to zero.
func (r *LedgerRepository) SumForAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE account_id = $1
	`

	var sum int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		r.logger.Error("Failed to sum ledger entries", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to sum ledger entries: %w", err)
	}

	return sum, nil
}

// EntriesFor returns entries ordered by created_at ascending, optionally
// restricted to entries at or after since.
func (r *LedgerRepository) EntriesFor(ctx context.Context, accountID uuid.UUID, since *time.Time, limit, offset int) ([]*ledger.Entry, error) {
	query := `
		SELECT id, account_id, amount, kind, description, related_purchase_id, idempotency_key, created_at
		FROM ledger_entries
		WHERE account_id = $1 AND ($2::timestamptz IS NULL OR created_at >= $2)
		ORDER BY created_at ASC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.querier.Query(ctx, query, accountID, since, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := r.scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, nil
}

// CountForAccount returns the number of entries for an account
func (r *LedgerRepository) CountForAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count ledger entries", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}

func (r *LedgerRepository) scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var entry ledger.Entry
	err := row.Scan(
		&entry.ID,
		&entry.AccountID,
		&entry.Amount,
		&entry.Kind,
		&entry.Description,
		&entry.RelatedPurchaseID,
		&entry.IdempotencyKey,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
