package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/course-token-wallet/internal/domain/catalog"
	"github.com/course-token-wallet/internal/domain/purchase"
	"github.com/course-token-wallet/internal/domain/wallet"
	"github.com/course-token-wallet/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PurchaseHandler handles HTTP requests for purchase operations
type PurchaseHandler struct {
	purchaseService service.PurchaseService
	logger          *slog.Logger
}

// NewPurchaseHandler creates a new purchase handler
func NewPurchaseHandler(logger *slog.Logger, purchaseService service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
		logger:          logger,
	}
}

// Create handles buying a catalog item. A purchase the account already
// completed returns 200 with the existing record instead of charging again;
// a fresh purchase returns 201.
func (h *PurchaseHandler) Create(c *gin.Context) {
	var req CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		RespondBadRequest(c, "Invalid item ID")
		return
	}

	result, err := h.purchaseService.Purchase(c.Request.Context(), accountID, itemID, req.IdempotencyKey)
	if err != nil {
		var insufficient wallet.ErrInsufficientFunds
		if errors.As(err, &insufficient) {
			RespondUnprocessable(c, "INSUFFICIENT_FUNDS", "Account balance cannot cover the item price")
			return
		}
		var accNotFound wallet.ErrAccountNotFound
		if errors.As(err, &accNotFound) {
			RespondNotFound(c, "Account not found")
			return
		}
		var itemNotFound catalog.ErrItemNotFound
		if errors.As(err, &itemNotFound) {
			RespondNotFound(c, "Item not found")
			return
		}
		h.logger.Error("Failed to complete purchase",
			"account_id", req.AccountID,
			"item_id", req.ItemID,
			"error", err,
		)
		RespondInternalError(c)
		return
	}

	response := mapPurchaseToResponse(result)
	if result.AlreadyOwned {
		RespondOK(c, response)
		return
	}
	RespondCreated(c, response)
}

// GetByID retrieves a purchase record by its ID
func (h *PurchaseHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	rec, err := h.purchaseService.GetPurchase(c.Request.Context(), id)
	if err != nil {
		var notFound purchase.ErrRecordNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Purchase not found")
			return
		}
		h.logger.Error("Failed to get purchase", "purchase_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapRecordToResponse(rec, false, nil))
}

// Refund reverses a completed purchase, crediting the original price paid
func (h *PurchaseHandler) Refund(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	entry, err := h.purchaseService.Refund(c.Request.Context(), id)
	if err != nil {
		var alreadyRefunded purchase.ErrAlreadyRefunded
		if errors.As(err, &alreadyRefunded) {
			RespondConflict(c, "Purchase has already been refunded")
			return
		}
		var notFound purchase.ErrRecordNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Purchase not found or not refundable")
			return
		}
		h.logger.Error("Failed to refund purchase", "purchase_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, RefundResponse{Entry: mapEntryToResponse(entry)})
}

// mapPurchaseToResponse maps a purchase result to its response DTO
func mapPurchaseToResponse(result *service.PurchaseResult) PurchaseResponse {
	var newBalance *int64
	if !result.AlreadyOwned {
		newBalance = &result.NewBalance
	}
	return mapRecordToResponse(result.Record, result.AlreadyOwned, newBalance)
}

// mapRecordToResponse maps a purchase record to its response DTO
func mapRecordToResponse(rec *purchase.Record, alreadyOwned bool, newBalance *int64) PurchaseResponse {
	resp := PurchaseResponse{
		ID:             rec.ID.String(),
		AccountID:      rec.AccountID.String(),
		ItemID:         rec.ItemID.String(),
		PricePaid:      rec.PricePaid,
		Status:         string(rec.Status),
		IdempotencyKey: rec.IdempotencyKey,
		PurchasedAt:    rec.PurchasedAt.Format(time.RFC3339),
		AlreadyOwned:   alreadyOwned,
		NewBalance:     newBalance,
	}
	if rec.RefundedAt != nil {
		resp.RefundedAt = rec.RefundedAt.Format(time.RFC3339)
	}
	return resp
}
