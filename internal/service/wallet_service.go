package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/course-token-wallet/internal/domain/ledger"
	"github.com/course-token-wallet/internal/domain/outbox"
	"github.com/course-token-wallet/internal/domain/wallet"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletServiceImpl implements the WalletService interface
type WalletServiceImpl struct {
	txRunner    TxRunner
	accountRepo wallet.Repository
	ledgerRepo  ledger.Repository
	outboxRepo  outbox.Repository
	logger      *slog.Logger
}

// NewWalletService creates a new wallet service
func NewWalletService(
	logger *slog.Logger,
	txRunner TxRunner,
	accountRepo wallet.Repository,
	ledgerRepo ledger.Repository,
	outboxRepo outbox.Repository,
) WalletService {
	return &WalletServiceImpl{
		txRunner:    txRunner,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		outboxRepo:  outboxRepo,
		logger:      logger,
	}
}

// CreateAccount opens a token account. A non-zero initial balance is recorded
// as a signup reward entry so the ledger sums to the balance from day one.
func (s *WalletServiceImpl) CreateAccount(ctx context.Context, initialBalance int64) (*wallet.Account, error) {
	acc, err := wallet.NewAccount(0)
	if err != nil {
		return nil, err
	}

	if initialBalance == 0 {
		if err := s.accountRepo.Create(ctx, acc); err != nil {
			return nil, err
		}
		return acc, nil
	}
	if initialBalance < 0 {
		return nil, wallet.ErrNegativeInitialTokens
	}

	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accountRepo := s.accountRepo.WithTx(tx)
		ledgerRepo := s.ledgerRepo.WithTx(tx)
		outboxRepo := s.outboxRepo.WithTx(tx)

		if err := accountRepo.Create(ctx, acc); err != nil {
			return err
		}

		balance, err := accountRepo.ApplyDelta(ctx, acc.ID, initialBalance)
		if err != nil {
			return err
		}
		acc.Balance = balance

		entry := ledger.NewEntry(acc.ID, initialBalance, ledger.KindReward, "signup grant")
		if err := ledgerRepo.Append(ctx, entry); err != nil {
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

	s.logger.Info("Account created", "account_id", acc.ID.String(), "balance", acc.Balance)
	return acc, nil
}

// GetBalance returns the cached balance for an account
func (s *WalletServiceImpl) GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	acc, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// History returns a paginated ledger view, oldest first, with the total count
func (s *WalletServiceImpl) History(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.ledgerRepo.EntriesFor(ctx, accountID, nil, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.ledgerRepo.CountForAccount(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// Reward credits tokens to an account
func (s *WalletServiceImpl) Reward(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*ledger.Entry, int64, error) {
	if amount <= 0 {
		return nil, 0, wallet.ErrInvalidAmount
	}
	return s.applyMovement(ctx, accountID, amount, ledger.KindReward, description)
}

// Spend debits tokens for consumption outside the catalog
func (s *WalletServiceImpl) Spend(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*ledger.Entry, int64, error) {
	if amount <= 0 {
		return nil, 0, wallet.ErrInvalidAmount
	}
	return s.applyMovement(ctx, accountID, -amount, ledger.KindUsage, description)
}

// applyMovement runs the single atomic apply-delta-and-append-entry unit used
// by every non-purchase balance change.
func (s *WalletServiceImpl) applyMovement(ctx context.Context, accountID uuid.UUID, delta int64, kind ledger.Kind, description string) (*ledger.Entry, int64, error) {
	var (
		entry      *ledger.Entry
		newBalance int64
	)

	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accountRepo := s.accountRepo.WithTx(tx)
		ledgerRepo := s.ledgerRepo.WithTx(tx)
		outboxRepo := s.outboxRepo.WithTx(tx)

		balance, err := accountRepo.ApplyDelta(ctx, accountID, delta)
		if err != nil {
			return err
		}
		newBalance = balance

		entry = ledger.NewEntry(accountID, delta, kind, description)
		if err := ledgerRepo.Append(ctx, entry); err != nil {
			return err
		}

		msg, err := outbox.NewMessage(entry)
		if err != nil {
			return fmt.Errorf("failed to build outbox message: %w", err)
		}
		return outboxRepo.Create(ctx, msg)
	})
	if err != nil {
		return nil, 0, err
	}

	s.logger.Info("Balance movement applied",
		"account_id", accountID.String(),
		"kind", string(kind),
		"delta", delta,
		"new_balance", newBalance,
	)

	return entry, newBalance, nil
}
