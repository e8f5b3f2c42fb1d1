package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/course-token-wallet/internal/domain/catalog"
	"github.com/course-token-wallet/internal/domain/wallet"
	"github.com/course-token-wallet/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ItemHandler handles HTTP requests for catalog item operations
type ItemHandler struct {
	catalogService service.CatalogService
	integrityGuard service.IntegrityGuard
	logger         *slog.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(logger *slog.Logger, catalogService service.CatalogService, integrityGuard service.IntegrityGuard) *ItemHandler {
	return &ItemHandler{
		catalogService: catalogService,
		integrityGuard: integrityGuard,
		logger:         logger,
	}
}

// Create handles listing a new catalog item
func (h *ItemHandler) Create(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ownerID, err := uuid.Parse(req.OwnerAccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid owner account ID")
		return
	}

	item, err := h.catalogService.CreateItem(c.Request.Context(), ownerID, req.Title, req.Price)
	if err != nil {
		var notFound wallet.ErrAccountNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Owner account not found")
			return
		}
		if errors.Is(err, catalog.ErrEmptyTitle) || errors.Is(err, catalog.ErrInvalidPrice) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to create item", "owner_id", req.OwnerAccountID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapItemToResponse(item))
}

// GetByID retrieves a catalog item by its ID
func (h *ItemHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	item, err := h.catalogService.GetItem(c.Request.Context(), id)
	if err != nil {
		var notFound catalog.ErrItemNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Item not found")
			return
		}
		h.logger.Error("Failed to get item", "item_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapItemToResponse(item))
}

// UpdatePrice changes the current price of an item. Already completed
// purchases keep their price snapshot.
func (h *ItemHandler) UpdatePrice(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	var req UpdateItemPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	err := h.catalogService.UpdateItemPrice(c.Request.Context(), id, req.Price)
	if err != nil {
		var notFound catalog.ErrItemNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Item not found")
			return
		}
		if errors.Is(err, catalog.ErrInvalidPrice) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to update item price", "item_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondNoContent(c)
}

// Delete removes an item when no completed purchase references it
func (h *ItemHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	err := h.integrityGuard.DeleteItem(c.Request.Context(), id)
	if err != nil {
		var notFound catalog.ErrItemNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Item not found")
			return
		}
		var hasPurchases service.ErrHasActivePurchases
		if errors.As(err, &hasPurchases) {
			RespondConflict(c, "Item has completed purchases and cannot be deleted")
			return
		}
		h.logger.Error("Failed to delete item", "item_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondNoContent(c)
}

// mapItemToResponse maps a catalog item to its response DTO
func mapItemToResponse(item *catalog.Item) ItemResponse {
	return ItemResponse{
		ID:             item.ID.String(),
		OwnerAccountID: item.OwnerAccountID.String(),
		Title:          item.Title,
		Price:          item.Price,
		CreatedAt:      item.CreatedAt.Format(time.RFC3339),
	}
}
