package handler

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/course-token-wallet/internal/domain/catalog"
	"github.com/course-token-wallet/internal/domain/ledger"
	"github.com/course-token-wallet/internal/domain/purchase"
	"github.com/course-token-wallet/internal/domain/wallet"
	"github.com/course-token-wallet/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) CreateAccount(ctx context.Context, initialBalance int64) (*wallet.Account, error) {
	args := m.Called(ctx, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Account), args.Error(1)
}

func (m *MockWalletService) GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWalletService) History(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, accountID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

func (m *MockWalletService) Reward(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*ledger.Entry, int64, error) {
	args := m.Called(ctx, accountID, amount, description)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).(*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

func (m *MockWalletService) Spend(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*ledger.Entry, int64, error) {
	args := m.Called(ctx, accountID, amount, description)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).(*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

type MockPurchaseService struct {
	mock.Mock
}

func (m *MockPurchaseService) Purchase(ctx context.Context, accountID, itemID uuid.UUID, idempotencyKey string) (*service.PurchaseResult, error) {
	args := m.Called(ctx, accountID, itemID, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PurchaseResult), args.Error(1)
}

func (m *MockPurchaseService) Refund(ctx context.Context, purchaseID uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, purchaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockPurchaseService) GetPurchase(ctx context.Context, purchaseID uuid.UUID) (*purchase.Record, error) {
	args := m.Called(ctx, purchaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchase.Record), args.Error(1)
}

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) CreateItem(ctx context.Context, ownerAccountID uuid.UUID, title string, price int64) (*catalog.Item, error) {
	args := m.Called(ctx, ownerAccountID, title, price)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Item), args.Error(1)
}

func (m *MockCatalogService) GetItem(ctx context.Context, itemID uuid.UUID) (*catalog.Item, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Item), args.Error(1)
}

func (m *MockCatalogService) UpdateItemPrice(ctx context.Context, itemID uuid.UUID, price int64) error {
	args := m.Called(ctx, itemID, price)
	return args.Error(0)
}

type MockIntegrityGuard struct {
	mock.Mock
}

func (m *MockIntegrityGuard) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockIntegrityGuard) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	args := m.Called(ctx, itemID)
	return args.Error(0)
}

type MockBalanceAggregator struct {
	mock.Mock
}

func (m *MockBalanceAggregator) RevenueForOwner(ctx context.Context, ownerID uuid.UUID, from, to *time.Time) (int64, error) {
	args := m.Called(ctx, ownerID, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBalanceAggregator) DistinctBuyersForOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBalanceAggregator) PlatformTotals(ctx context.Context, from, to *time.Time) (*service.PlatformReport, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PlatformReport), args.Error(1)
}

func (m *MockBalanceAggregator) Reconcile(ctx context.Context, accountID uuid.UUID) (*service.ReconciliationReport, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReconciliationReport), args.Error(1)
}
