package service

import (
	"context"
	"log/slog"

	"github.com/course-token-wallet/internal/domain/catalog"
	"github.com/course-token-wallet/internal/domain/wallet"
	"github.com/google/uuid"
)

// CatalogServiceImpl implements the CatalogService interface
type CatalogServiceImpl struct {
	itemRepo    catalog.Repository
	accountRepo wallet.Repository
	logger      *slog.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(logger *slog.Logger, itemRepo catalog.Repository, accountRepo wallet.Repository) CatalogService {
	return &CatalogServiceImpl{
		itemRepo:    itemRepo,
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// CreateItem lists a new paid video owned by the given teacher account
func (s *CatalogServiceImpl) CreateItem(ctx context.Context, ownerAccountID uuid.UUID, title string, price int64) (*catalog.Item, error) {
	// The owner must hold a token account to receive revenue attribution.
	if _, err := s.accountRepo.GetByID(ctx, ownerAccountID); err != nil {
		return nil, err
	}

	item, err := catalog.NewItem(ownerAccountID, title, price)
	if err != nil {
		return nil, err
	}

	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info("Item created", "item_id", item.ID.String(), "owner_id", ownerAccountID.String(), "price", price)
	return item, nil
}

// GetItem retrieves a catalog item by its ID
func (s *CatalogServiceImpl) GetItem(ctx context.Context, itemID uuid.UUID) (*catalog.Item, error) {
	return s.itemRepo.GetByID(ctx, itemID)
}

// UpdateItemPrice changes the current price of an item. Completed purchases
// keep the price snapshot they were taken at; refunds credit that snapshot,
// not the new price.
func (s *CatalogServiceImpl) UpdateItemPrice(ctx context.Context, itemID uuid.UUID, price int64) error {
	if price < 0 {
		return catalog.ErrInvalidPrice
	}
	return s.itemRepo.UpdatePrice(ctx, itemID, price)
}
