// Package postgres provides PostgreSQL implementations of the domain
// repositories. Balance changes, ledger appends, and purchase records share
// one database so a single transaction can cover all three.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/course-token-wallet/internal/domain/wallet"
	"github.com/course-token-wallet/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the wallet.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing atomic operations
// across multiple repository calls.
func (r *AccountRepository) WithTx(tx pgx.Tx) wallet.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new token account
func (r *AccountRepository) Create(ctx context.Context, acc *wallet.Account) error {
	query := `
		INSERT INTO accounts (id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.Balance,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create account", "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*wallet.Account, error) {
	query := `
		SELECT id, balance, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	var acc wallet.Account
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&acc.ID,
		&acc.Balance,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &acc, nil
}

// ApplyDelta atomically adds delta to the balance and returns the new value.
// The WHERE clause guards the balance in the same statement as the write, so
// concurrent debits serialize on the row instead of both reading the old
// balance. A zero-row result is disambiguated with a follow-up read: missing
// row means the account does not exist, otherwise the debit exceeded the
// balance.
func (r *AccountRepository) ApplyDelta(ctx context.Context, id uuid.UUID, delta int64) (int64, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING balance
	`

	var newBalance int64
	err := r.querier.QueryRow(ctx, query, delta, id).Scan(&newBalance)
	if err == nil {
		return newBalance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to apply balance delta", "id", id.String(), "delta", delta, "error", err)
		return 0, fmt.Errorf("failed to apply balance delta: %w", err)
	}

	var balance int64
	err = r.querier.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, wallet.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to read balance after rejected delta", "id", id.String(), "error", err)
		return 0, fmt.Errorf("failed to read balance after rejected delta: %w", err)
	}

	return 0, wallet.ErrInsufficientFunds{AccountID: id, Balance: balance, Requested: -delta}
}

// Delete removes an account row. Integrity checks run in the caller's
// transaction before this is reached.
func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.querier.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete account", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrAccountNotFound{AccountID: id}
	}

	return nil
}
