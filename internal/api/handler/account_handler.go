package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/course-token-wallet/internal/domain/ledger"
	"github.com/course-token-wallet/internal/domain/wallet"
	"github.com/course-token-wallet/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	walletService  service.WalletService
	integrityGuard service.IntegrityGuard
	aggregator     service.BalanceAggregator
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(
	logger *slog.Logger,
	walletService service.WalletService,
	integrityGuard service.IntegrityGuard,
	aggregator service.BalanceAggregator,
) *AccountHandler {
	return &AccountHandler{
		walletService:  walletService,
		integrityGuard: integrityGuard,
		aggregator:     aggregator,
		logger:         logger,
	}
}

// Create handles opening a new token account, optionally seeded with a signup
// grant
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.walletService.CreateAccount(c.Request.Context(), req.InitialBalance)
	if err != nil {
		h.logger.Error("Failed to create account", "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// GetBalance returns the cached balance of an account, 404 if not found
func (h *AccountHandler) GetBalance(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	balance, err := h.walletService.GetBalance(c.Request.Context(), id)
	if err != nil {
		var notFound wallet.ErrAccountNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to get balance", "account_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, BalanceResponse{AccountID: id.String(), Balance: balance})
}

// History returns the paginated ledger history of an account, oldest first
func (h *AccountHandler) History(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	entries, total, err := h.walletService.History(c.Request.Context(), id, params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to get ledger history", "account_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]LedgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, 200, responses, params.Page, params.PerPage, int(total))
}

// Reward credits tokens to an account
func (h *AccountHandler) Reward(c *gin.Context) {
	h.applyMovement(c, h.walletService.Reward)
}

// Spend debits tokens from an account outside the catalog purchase flow
func (h *AccountHandler) Spend(c *gin.Context) {
	h.applyMovement(c, h.walletService.Spend)
}

// applyMovement handles the shared request plumbing of Reward and Spend
func (h *AccountHandler) applyMovement(c *gin.Context, movement func(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*ledger.Entry, int64, error)) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	var req MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entry, newBalance, err := movement(c.Request.Context(), id, req.Amount, req.Description)
	if err != nil {
		var notFound wallet.ErrAccountNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Account not found")
			return
		}
		var insufficient wallet.ErrInsufficientFunds
		if errors.As(err, &insufficient) {
			RespondUnprocessable(c, "INSUFFICIENT_FUNDS", "Account balance cannot cover this amount")
			return
		}
		if errors.Is(err, wallet.ErrInvalidAmount) {
			RespondBadRequest(c, "Amount must be positive")
			return
		}
		h.logger.Error("Failed to apply balance movement", "account_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, MovementResponse{
		Entry:      mapEntryToResponse(entry),
		NewBalance: newBalance,
	})
}

// Delete removes an account when no financial history references it
func (h *AccountHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	err := h.integrityGuard.DeleteAccount(c.Request.Context(), id)
	if err != nil {
		var notFound wallet.ErrAccountNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Account not found")
			return
		}
		var hasPurchases service.ErrHasActivePurchases
		if errors.As(err, &hasPurchases) {
			RespondConflict(c, "Account has purchase history and cannot be deleted")
			return
		}
		var hasHistory service.ErrHasLedgerHistory
		if errors.As(err, &hasHistory) {
			RespondConflict(c, "Account has ledger history and cannot be deleted")
			return
		}
		h.logger.Error("Failed to delete account", "account_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondNoContent(c)
}

// Reconcile verifies the cached balance against the ledger sum
func (h *AccountHandler) Reconcile(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	report, err := h.aggregator.Reconcile(c.Request.Context(), id)
	if err != nil {
		var notFound wallet.ErrAccountNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to reconcile account", "account_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, ReconciliationResponse{
		AccountID:     report.AccountID.String(),
		CachedBalance: report.CachedBalance,
		LedgerSum:     report.LedgerSum,
		Consistent:    report.Consistent,
	})
}

// parseIDParam parses the :id path parameter as a UUID
func parseIDParam(c *gin.Context, logger *slog.Logger) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		logger.Error("Invalid ID parameter", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid ID")
		return uuid.Nil, false
	}
	return id, true
}

// mapAccountToResponse maps an account entity to an account response DTO
func mapAccountToResponse(acc *wallet.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID.String(),
		Balance:   acc.Balance,
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}
}

// mapEntryToResponse maps a ledger entry to its response DTO
func mapEntryToResponse(entry *ledger.Entry) LedgerEntryResponse {
	resp := LedgerEntryResponse{
		ID:          entry.ID.String(),
		AccountID:   entry.AccountID.String(),
		Amount:      entry.Amount,
		Kind:        string(entry.Kind),
		Description: entry.Description,
		CreatedAt:   entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.RelatedPurchaseID != nil {
		resp.RelatedPurchaseID = entry.RelatedPurchaseID.String()
	}
	return resp
}
