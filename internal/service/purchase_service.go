package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/course-token-wallet/internal/domain/catalog"
	"github.com/course-token-wallet/internal/domain/ledger"
	"github.com/course-token-wallet/internal/domain/outbox"
	"github.com/course-token-wallet/internal/domain/purchase"
	"github.com/course-token-wallet/internal/domain/wallet"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PurchaseOrchestrator implements the PurchaseService interface. It composes
// the wallet, ledger, and purchase stores inside one transaction per logical
// purchase: the debit, the ledger entry, the purchase record, and the outbox
// message all commit or all roll back.
type PurchaseOrchestrator struct {
	txRunner     TxRunner
	accountRepo  wallet.Repository
	ledgerRepo   ledger.Repository
	purchaseRepo purchase.Repository
	itemRepo     catalog.Repository
	outboxRepo   outbox.Repository
	logger       *slog.Logger
}

// NewPurchaseOrchestrator creates a new purchase orchestrator
func NewPurchaseOrchestrator(
	logger *slog.Logger,
	txRunner TxRunner,
	accountRepo wallet.Repository,
	ledgerRepo ledger.Repository,
	purchaseRepo purchase.Repository,
	itemRepo catalog.Repository,
	outboxRepo outbox.Repository,
) PurchaseService {
	return &PurchaseOrchestrator{
		txRunner:     txRunner,
		accountRepo:  accountRepo,
		ledgerRepo:   ledgerRepo,
		purchaseRepo: purchaseRepo,
		itemRepo:     itemRepo,
		outboxRepo:   outboxRepo,
		logger:       logger,
	}
}

// Purchase executes the spend-tokens-for-a-video use case exactly once per
// idempotency key. Re-purchasing an owned item returns the existing record
// without charging; a lost insert race is resolved by re-reading the winner's
// row rather than retrying the write.
func (s *PurchaseOrchestrator) Purchase(ctx context.Context, accountID, itemID uuid.UUID, idempotencyKey string) (*PurchaseResult, error) {
	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}

	// Already-owned items are an idempotent success, never a second charge.
	owned, err := s.purchaseRepo.GetCompletedByAccountAndItem(ctx, accountID, itemID)
	if err != nil {
		return nil, err
	}
	if owned != nil {
		s.logger.Info("Purchase already completed, returning existing record",
			"account_id", accountID.String(),
			"item_id", itemID.String(),
			"purchase_id", owned.ID.String(),
		)
		return &PurchaseResult{Record: owned, AlreadyOwned: true}, nil
	}

	// A prior attempt under the same key may have left a record behind.
	prior, err := s.purchaseRepo.GetByIdempotencyKey(ctx, accountID, itemID, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if prior != nil && prior.Status == purchase.StatusRefunded {
		// The key belongs to an operation that already ran its full course.
		return &PurchaseResult{Record: prior, AlreadyOwned: true}, nil
	}

	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	var (
		rec        *purchase.Record
		entry      *ledger.Entry
		newBalance int64
	)

	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accountRepo := s.accountRepo.WithTx(tx)
		ledgerRepo := s.ledgerRepo.WithTx(tx)
		purchaseRepo := s.purchaseRepo.WithTx(tx)
		outboxRepo := s.outboxRepo.WithTx(tx)

		resume := prior != nil
		price := item.Price
		if resume {
			// Finalize the crashed attempt at its original price snapshot.
			price = prior.PricePaid
			rec = prior
		} else {
			rec = purchase.NewRecord(accountID, itemID, price, idempotencyKey, purchase.StatusCompleted)
		}

		balance, err := accountRepo.ApplyDelta(ctx, accountID, -price)
		if err != nil {
			return err
		}
		newBalance = balance

		entry = ledger.NewEntry(accountID, -price, ledger.KindPurchase, "purchase: "+item.Title)
		entry.RelatedPurchaseID = &rec.ID
		entry.IdempotencyKey = idempotencyKey
		if err := ledgerRepo.Append(ctx, entry); err != nil {
			return err
		}

		if resume {
			if err := purchaseRepo.MarkCompleted(ctx, rec.ID); err != nil {
				return err
			}
			rec.Status = purchase.StatusCompleted
		} else {
			if err := purchaseRepo.Create(ctx, rec); err != nil {
				return err
			}
		}

		msg, err := outbox.NewMessage(entry)
		if err != nil {
			return fmt.Errorf("failed to build outbox message: %w", err)
		}
		return outboxRepo.Create(ctx, msg)
	})

	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateEntry{}) ||
			errors.Is(err, purchase.ErrDuplicateRecord{}) ||
			errors.Is(err, wallet.ErrInsufficientFunds{}) {
			// Lost the race against a concurrent retry. A duplicate key is the
			// obvious sign; a failed debit can be one too, when the winner
			// drained the balance after our pre-check. Either way the logical
			// purchase committed, so return the winner's record instead of
			// reporting a failure for a charge that happened.
			winner, lookupErr := s.purchaseRepo.GetCompletedByAccountAndItem(ctx, accountID, itemID)
			if lookupErr == nil && winner != nil {
				s.logger.Info("Purchase raced with concurrent retry, returning committed record",
					"account_id", accountID.String(),
					"item_id", itemID.String(),
					"purchase_id", winner.ID.String(),
				)
				return &PurchaseResult{Record: winner, AlreadyOwned: true}, nil
			}
		}
		if errors.Is(err, wallet.ErrInsufficientFunds{}) {
			s.logger.Info("Purchase rejected, insufficient funds",
				"account_id", accountID.String(),
				"item_id", itemID.String(),
				"price", item.Price,
			)
		}
		return nil, err
	}

	s.logger.Info("Purchase completed",
		"account_id", accountID.String(),
		"item_id", itemID.String(),
		"purchase_id", rec.ID.String(),
		"price_paid", rec.PricePaid,
		"new_balance", newBalance,
	)

	return &PurchaseResult{Record: rec, Entry: entry, NewBalance: newBalance}, nil
}

// Refund reverses a completed purchase. The credit always equals the original
// PricePaid snapshot, regardless of what the item costs today. The record is
// row-locked for the duration of the transaction so a concurrent refund of the
// same purchase serializes behind it and fails the status check.
func (s *PurchaseOrchestrator) Refund(ctx context.Context, purchaseID uuid.UUID) (*ledger.Entry, error) {
	var entry *ledger.Entry

	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accountRepo := s.accountRepo.WithTx(tx)
		ledgerRepo := s.ledgerRepo.WithTx(tx)
		purchaseRepo := s.purchaseRepo.WithTx(tx)
		outboxRepo := s.outboxRepo.WithTx(tx)

		rec, err := purchaseRepo.LockByID(ctx, purchaseID)
		if err != nil {
			return err
		}
		if rec.Status == purchase.StatusRefunded {
			return purchase.ErrAlreadyRefunded{PurchaseID: purchaseID}
		}
		if !rec.Refundable() {
			return purchase.ErrRecordNotFound{PurchaseID: purchaseID}
		}

		if _, err := accountRepo.ApplyDelta(ctx, rec.AccountID, rec.PricePaid); err != nil {
			return err
		}

		entry = ledger.NewEntry(rec.AccountID, rec.PricePaid, ledger.KindRefund, "refund of purchase "+rec.ID.String())
		entry.RelatedPurchaseID = &rec.ID
		if err := ledgerRepo.Append(ctx, entry); err != nil {
			return err
		}

		if err := purchaseRepo.MarkRefunded(ctx, rec.ID); err != nil {
			return err
		}

		msg, err := outbox.NewMessage(entry)
		if err != nil {
			return fmt.Errorf("failed to build outbox message: %w", err)
		}
		return outboxRepo.Create(ctx, msg)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Purchase refunded",
		"purchase_id", purchaseID.String(),
		"entry_id", entry.ID.String(),
		"amount", entry.Amount,
	)

	return entry, nil
}

// GetPurchase retrieves a purchase record by its ID
func (s *PurchaseOrchestrator) GetPurchase(ctx context.Context, purchaseID uuid.UUID) (*purchase.Record, error) {
	return s.purchaseRepo.GetByID(ctx, purchaseID)
}
