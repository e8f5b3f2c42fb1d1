package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// BalanceAggregatorImpl implements the BalanceAggregator interface on top of
// the reporting store. Dashboards and admin panels call this and never read
// the cached wallet balance for financial totals, so a balance-cache bug can
// never leak into reporting.
type BalanceAggregatorImpl struct {
	store  ReportingStore
	logger *slog.Logger
}

// NewBalanceAggregator creates a new balance aggregator
func NewBalanceAggregator(logger *slog.Logger, store ReportingStore) BalanceAggregator {
	return &BalanceAggregatorImpl{
		store:  store,
		logger: logger,
	}
}

// RevenueForOwner sums price paid over completed purchases of the owner's
// items within the optional date range.
func (a *BalanceAggregatorImpl) RevenueForOwner(ctx context.Context, ownerID uuid.UUID, from, to *time.Time) (int64, error) {
	return a.store.RevenueForOwner(ctx, ownerID, from, to)
}

// DistinctBuyersForOwner counts distinct accounts that completed a purchase of
// any of the owner's items.
func (a *BalanceAggregatorImpl) DistinctBuyersForOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return a.store.DistinctBuyersForOwner(ctx, ownerID)
}

// PlatformTotals aggregates platform-wide revenue and purchase counts
func (a *BalanceAggregatorImpl) PlatformTotals(ctx context.Context, from, to *time.Time) (*PlatformReport, error) {
	revenue, purchases, refunds, err := a.store.PlatformTotals(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return &PlatformReport{
		Revenue:   revenue,
		Purchases: purchases,
		Refunds:   refunds,
	}, nil
}

// Reconcile verifies that the cached balance equals the ledger sum for an
// account. A divergence means the balance cache drifted from the source of
// truth and is logged at error level.
func (a *BalanceAggregatorImpl) Reconcile(ctx context.Context, accountID uuid.UUID) (*ReconciliationReport, error) {
	ledgerSum, balance, err := a.store.LedgerSumAndBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}

	report := &ReconciliationReport{
		AccountID:     accountID,
		CachedBalance: balance,
		LedgerSum:     ledgerSum,
		Consistent:    balance == ledgerSum,
	}

	if !report.Consistent {
		a.logger.Error("Balance cache diverged from ledger",
			"account_id", accountID.String(),
			"cached_balance", balance,
			"ledger_sum", ledgerSum,
		)
	}

	return report, nil
}
