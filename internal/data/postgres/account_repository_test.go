package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/course-token-wallet/internal/domain/wallet"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}

	acc := &wallet.Account{
		ID:        uuid.New(),
		Balance:   100,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	query := `
		INSERT INTO accounts \(id, balance, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.Balance, acc.CreatedAt, acc.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, acc)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.Balance, acc.CreatedAt, acc.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, acc)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create account")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	accID := uuid.New()
	now := time.Now()

	query := `
		SELECT id, balance, created_at, updated_at
		FROM accounts
		WHERE id = \$1
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "balance", "created_at", "updated_at"}).
			AddRow(accID, int64(250), now, now)
		mock.ExpectQuery(query).WithArgs(accID).WillReturnRows(rows)

		acc, err := repo.GetByID(ctx, accID)
		assert.NoError(t, err)
		assert.Equal(t, accID, acc.ID)
		assert.Equal(t, int64(250), acc.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.GetByID(ctx, accID)
		assert.Error(t, err)
		assert.Nil(t, acc)
		var notFoundErr wallet.ErrAccountNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, accID, notFoundErr.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_ApplyDelta(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	accID := uuid.New()

	updateQuery := `
		UPDATE accounts
		SET balance = balance \+ \$1, updated_at = NOW\(\)
		WHERE id = \$2 AND balance \+ \$1 >= 0
		RETURNING balance
	`
	balanceQuery := `SELECT balance FROM accounts WHERE id = \$1`

	t.Run("debit succeeds", func(t *testing.T) {
		mock.ExpectQuery(updateQuery).
			WithArgs(int64(-100), accID).
			WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(0)))

		newBalance, err := repo.ApplyDelta(ctx, accID, -100)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), newBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("credit succeeds", func(t *testing.T) {
		mock.ExpectQuery(updateQuery).
			WithArgs(int64(50), accID).
			WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(150)))

		newBalance, err := repo.ApplyDelta(ctx, accID, 50)
		assert.NoError(t, err)
		assert.Equal(t, int64(150), newBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient funds", func(t *testing.T) {
		mock.ExpectQuery(updateQuery).
			WithArgs(int64(-100), accID).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(balanceQuery).
			WithArgs(accID).
			WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(40)))

		_, err := repo.ApplyDelta(ctx, accID, -100)
		var insufficientErr wallet.ErrInsufficientFunds
		assert.ErrorAs(t, err, &insufficientErr)
		assert.Equal(t, accID, insufficientErr.AccountID)
		assert.Equal(t, int64(40), insufficientErr.Balance)
		assert.Equal(t, int64(100), insufficientErr.Requested)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("account not found", func(t *testing.T) {
		mock.ExpectQuery(updateQuery).
			WithArgs(int64(-100), accID).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(balanceQuery).
			WithArgs(accID).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.ApplyDelta(ctx, accID, -100)
		var notFoundErr wallet.ErrAccountNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, accID, notFoundErr.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_Delete(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	accID := uuid.New()

	query := `DELETE FROM accounts WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(accID).WillReturnResult(pgxmock.NewResult("DELETE", 1))

		err := repo.Delete(ctx, accID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(accID).WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := repo.Delete(ctx, accID)
		var notFoundErr wallet.ErrAccountNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
