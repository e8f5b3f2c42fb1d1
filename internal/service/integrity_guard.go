package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/course-token-wallet/internal/domain/catalog"
	"github.com/course-token-wallet/internal/domain/ledger"
	"github.com/course-token-wallet/internal/domain/purchase"
	"github.com/course-token-wallet/internal/domain/wallet"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgForeignKeyViolation is the PostgreSQL error code for foreign key violations
const pgForeignKeyViolation = "23503"

// ErrHasActivePurchases blocks a deletion that would orphan purchase history
type ErrHasActivePurchases struct {
	EntityID  uuid.UUID
	Purchases int64
}

func (e ErrHasActivePurchases) Error() string {
	return "cannot delete " + e.EntityID.String() + ": " + strconv.FormatInt(e.Purchases, 10) + " purchase(s) reference it"
}

// Is implements the errors.Is interface for ErrHasActivePurchases
func (e ErrHasActivePurchases) Is(target error) bool {
	t, ok := target.(ErrHasActivePurchases)
	if !ok {
		return false
	}
	if t.EntityID == uuid.Nil {
		return true
	}
	return e.EntityID == t.EntityID
}

// ErrHasLedgerHistory blocks an account deletion that would destroy audit trail
type ErrHasLedgerHistory struct {
	AccountID uuid.UUID
	Entries   int64
}

func (e ErrHasLedgerHistory) Error() string {
	return "cannot delete account " + e.AccountID.String() + ": " + strconv.FormatInt(e.Entries, 10) + " ledger entries reference it"
}

// Is implements the errors.Is interface for ErrHasLedgerHistory
func (e ErrHasLedgerHistory) Is(target error) bool {
	t, ok := target.(ErrHasLedgerHistory)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}

// IntegrityGuardImpl implements the IntegrityGuard interface. The referential
// checks run inside the same transaction as the delete; a reference that
// commits after the counts but before the delete still cannot slip through,
// because the foreign keys catch it and are mapped to the same domain errors.
type IntegrityGuardImpl struct {
	txRunner     TxRunner
	accountRepo  wallet.Repository
	ledgerRepo   ledger.Repository
	purchaseRepo purchase.Repository
	itemRepo     catalog.Repository
	logger       *slog.Logger
}

// NewIntegrityGuard creates a new integrity guard
func NewIntegrityGuard(
	logger *slog.Logger,
	txRunner TxRunner,
	accountRepo wallet.Repository,
	ledgerRepo ledger.Repository,
	purchaseRepo purchase.Repository,
	itemRepo catalog.Repository,
) IntegrityGuard {
	return &IntegrityGuardImpl{
		txRunner:     txRunner,
		accountRepo:  accountRepo,
		ledgerRepo:   ledgerRepo,
		purchaseRepo: purchaseRepo,
		itemRepo:     itemRepo,
		logger:       logger,
	}
}

// DeleteAccount removes an account only when nothing references it. Financial
// history is never cascade-deleted: an account with purchases or ledger
// entries stays, preserving the audit trail.
func (g *IntegrityGuardImpl) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	err := g.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accountRepo := g.accountRepo.WithTx(tx)
		ledgerRepo := g.ledgerRepo.WithTx(tx)
		purchaseRepo := g.purchaseRepo.WithTx(tx)

		purchases, err := purchaseRepo.CountForAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if purchases > 0 {
			return ErrHasActivePurchases{EntityID: accountID, Purchases: purchases}
		}

		entries, err := ledgerRepo.CountForAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if entries > 0 {
			return ErrHasLedgerHistory{AccountID: accountID, Entries: entries}
		}

		if err := accountRepo.Delete(ctx, accountID); err != nil {
			// Under read committed a movement can commit between the counts and
			// the delete; the foreign key then fires where the counts saw
			// nothing. Name the reason instead of surfacing a constraint error.
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
				if pgErr.TableName == "purchases" {
					return ErrHasActivePurchases{EntityID: accountID, Purchases: 1}
				}
				return ErrHasLedgerHistory{AccountID: accountID, Entries: 1}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	g.logger.Info("Account deleted", "account_id", accountID.String())
	return nil
}

// DeleteItem removes a catalog item only when no completed purchase references
// it.
func (g *IntegrityGuardImpl) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	err := g.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		itemRepo := g.itemRepo.WithTx(tx)
		purchaseRepo := g.purchaseRepo.WithTx(tx)

		purchases, err := purchaseRepo.CountCompletedForItem(ctx, itemID)
		if err != nil {
			return err
		}
		if purchases > 0 {
			return ErrHasActivePurchases{EntityID: itemID, Purchases: purchases}
		}

		if err := itemRepo.Delete(ctx, itemID); err != nil {
			// A purchase committing between the count and the delete fires the
			// foreign key instead. Only purchases reference items.
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
				return ErrHasActivePurchases{EntityID: itemID, Purchases: 1}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	g.logger.Info("Item deleted", "item_id", itemID.String())
	return nil
}
