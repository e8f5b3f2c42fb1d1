package service

import (
	"context"
	"time"

	"github.com/course-token-wallet/internal/domain/catalog"
	"github.com/course-token-wallet/internal/domain/ledger"
	"github.com/course-token-wallet/internal/domain/purchase"
	"github.com/course-token-wallet/internal/domain/wallet"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TxRunner owns the atomic unit every multi-store write runs in. Implemented
// by persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// PurchaseResult is the outcome of a purchase request
type PurchaseResult struct {
	Record     *purchase.Record
	Entry      *ledger.Entry
	NewBalance int64
	// AlreadyOwned is set when the account had already completed this
	// purchase; the existing record is returned and nothing is charged.
	AlreadyOwned bool
}

// PurchaseService executes the spend-tokens-for-a-video use case
type PurchaseService interface {
	// Purchase debits the item's current price, appends the ledger entry, and
	// records the purchase atomically. Retries with the same idempotency key
	// never double-charge. Returns wallet.ErrInsufficientFunds as an expected
	// business outcome; nothing is written in that case.
	Purchase(ctx context.Context, accountID, itemID uuid.UUID, idempotencyKey string) (*PurchaseResult, error)

	// Refund reverses a completed purchase by appending a compensating credit
	// of the original price paid. Returns purchase.ErrAlreadyRefunded or
	// purchase.ErrRecordNotFound when the record cannot be refunded.
	Refund(ctx context.Context, purchaseID uuid.UUID) (*ledger.Entry, error)

	// GetPurchase retrieves a purchase record by its ID
	GetPurchase(ctx context.Context, purchaseID uuid.UUID) (*purchase.Record, error)
}

// WalletService covers account lifecycle and non-purchase balance movements
type WalletService interface {
	CreateAccount(ctx context.Context, initialBalance int64) (*wallet.Account, error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error)

	// History returns a paginated ledger view, oldest first, with total count
	History(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error)

	// Reward credits tokens (platform grant, referral bonus)
	Reward(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*ledger.Entry, int64, error)

	// Spend debits tokens for consumption outside the catalog
	Spend(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*ledger.Entry, int64, error)
}

// CatalogService covers the minimal item lifecycle the wallet core needs
type CatalogService interface {
	CreateItem(ctx context.Context, ownerAccountID uuid.UUID, title string, price int64) (*catalog.Item, error)
	GetItem(ctx context.Context, itemID uuid.UUID) (*catalog.Item, error)
	UpdateItemPrice(ctx context.Context, itemID uuid.UUID, price int64) error
}

// IntegrityGuard gates destructive operations on referential checks that run
// inside the same transaction as the delete.
type IntegrityGuard interface {
	// DeleteAccount removes an account only when no purchase record and no
	// ledger entry references it. Returns ErrHasActivePurchases or
	// ErrHasLedgerHistory otherwise.
	DeleteAccount(ctx context.Context, accountID uuid.UUID) error

	// DeleteItem removes an item only when no completed purchase references it
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
}

// ReconciliationReport compares the cached balance against the ledger sum
type ReconciliationReport struct {
	AccountID     uuid.UUID `json:"account_id"`
	CachedBalance int64     `json:"cached_balance"`
	LedgerSum     int64     `json:"ledger_sum"`
	Consistent    bool      `json:"consistent"`
}

// PlatformReport aggregates platform-wide figures from purchase records
type PlatformReport struct {
	Revenue   int64 `json:"revenue"`
	Purchases int64 `json:"purchases"`
	Refunds   int64 `json:"refunds"`
}

// ReportingStore is the read-side query surface the aggregator is built on.
// Implemented by the postgres reporting repository; every method reads a
// consistent snapshot and never the cached balance for revenue figures.
type ReportingStore interface {
	RevenueForOwner(ctx context.Context, ownerID uuid.UUID, from, to *time.Time) (int64, error)
	DistinctBuyersForOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
	PlatformTotals(ctx context.Context, from, to *time.Time) (revenue, purchases, refunds int64, err error)
	LedgerSumAndBalance(ctx context.Context, accountID uuid.UUID) (ledgerSum, balance int64, err error)
}

// BalanceAggregator answers reporting queries from the ledger and purchase
// records only.
type BalanceAggregator interface {
	RevenueForOwner(ctx context.Context, ownerID uuid.UUID, from, to *time.Time) (int64, error)
	DistinctBuyersForOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
	PlatformTotals(ctx context.Context, from, to *time.Time) (*PlatformReport, error)

	// Reconcile verifies the wallet invariant: cached balance equals the sum
	// of all ledger entries.
	Reconcile(ctx context.Context, accountID uuid.UUID) (*ReconciliationReport, error)
}
