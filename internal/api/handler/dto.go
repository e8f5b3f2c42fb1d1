package handler

// CreateAccountRequest represents a request to open a new token account
type CreateAccountRequest struct {
	InitialBalance int64 `json:"initial_balance" binding:"min=0"`
}

// AccountResponse represents a token account in API responses
type AccountResponse struct {
	ID        string `json:"id"`
	Balance   int64  `json:"balance"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// BalanceResponse represents the cached balance of an account
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
}

// MovementRequest represents a reward or spend request against an account
type MovementRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description" binding:"required"`
}

// MovementResponse represents the outcome of a reward or spend
type MovementResponse struct {
	Entry      LedgerEntryResponse `json:"entry"`
	NewBalance int64               `json:"new_balance"`
}

// LedgerEntryResponse represents a ledger entry in API responses
type LedgerEntryResponse struct {
	ID                string `json:"id"`
	AccountID         string `json:"account_id"`
	Amount            int64  `json:"amount"`
	Kind              string `json:"kind"`
	Description       string `json:"description,omitempty"`
	RelatedPurchaseID string `json:"related_purchase_id,omitempty"`
	CreatedAt         string `json:"created_at"`
}

// CreateItemRequest represents a request to list a new catalog item
type CreateItemRequest struct {
	OwnerAccountID string `json:"owner_account_id" binding:"required,uuid"`
	Title          string `json:"title" binding:"required"`
	Price          int64  `json:"price" binding:"min=0"`
}

// UpdateItemPriceRequest represents a request to change an item's price
type UpdateItemPriceRequest struct {
	Price int64 `json:"price" binding:"min=0"`
}

// ItemResponse represents a catalog item in API responses
type ItemResponse struct {
	ID             string `json:"id"`
	OwnerAccountID string `json:"owner_account_id"`
	Title          string `json:"title"`
	Price          int64  `json:"price"`
	CreatedAt      string `json:"created_at"`
}

// CreatePurchaseRequest represents a request to buy a catalog item
type CreatePurchaseRequest struct {
	AccountID      string `json:"account_id" binding:"required,uuid"`
	ItemID         string `json:"item_id" binding:"required,uuid"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// PurchaseResponse represents a purchase record in API responses
type PurchaseResponse struct {
	ID             string `json:"id"`
	AccountID      string `json:"account_id"`
	ItemID         string `json:"item_id"`
	PricePaid      int64  `json:"price_paid"`
	Status         string `json:"status"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	PurchasedAt    string `json:"purchased_at"`
	RefundedAt     string `json:"refunded_at,omitempty"`
	AlreadyOwned   bool   `json:"already_owned"`
	NewBalance     *int64 `json:"new_balance,omitempty"`
}

// RefundResponse represents the outcome of a refund
type RefundResponse struct {
	Entry LedgerEntryResponse `json:"entry"`
}

// ReconciliationResponse compares the cached balance against the ledger sum
type ReconciliationResponse struct {
	AccountID     string `json:"account_id"`
	CachedBalance int64  `json:"cached_balance"`
	LedgerSum     int64  `json:"ledger_sum"`
	Consistent    bool   `json:"consistent"`
}

// OwnerRevenueResponse represents an item owner's aggregated revenue
type OwnerRevenueResponse struct {
	OwnerID string `json:"owner_id"`
	Revenue int64  `json:"revenue"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
}

// OwnerBuyersResponse represents an item owner's distinct buyer count
type OwnerBuyersResponse struct {
	OwnerID        string `json:"owner_id"`
	DistinctBuyers int64  `json:"distinct_buyers"`
}

// PlatformReportResponse represents platform-wide totals
type PlatformReportResponse struct {
	Revenue   int64 `json:"revenue"`
	Purchases int64 `json:"purchases"`
	Refunds   int64 `json:"refunds"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
