package handler

import (
	"log/slog"
	"time"

	"github.com/course-token-wallet/internal/service"
	"github.com/gin-gonic/gin"
)

// ReportHandler handles HTTP requests for aggregated reporting
type ReportHandler struct {
	aggregator service.BalanceAggregator
	logger     *slog.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(logger *slog.Logger, aggregator service.BalanceAggregator) *ReportHandler {
	return &ReportHandler{
		aggregator: aggregator,
		logger:     logger,
	}
}

// OwnerRevenue returns the total revenue earned by an item owner, optionally
// restricted to a date range
func (h *ReportHandler) OwnerRevenue(c *gin.Context) {
	ownerID, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}

	revenue, err := h.aggregator.RevenueForOwner(c.Request.Context(), ownerID, from, to)
	if err != nil {
		h.logger.Error("Failed to aggregate owner revenue", "owner_id", ownerID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	resp := OwnerRevenueResponse{OwnerID: ownerID.String(), Revenue: revenue}
	if from != nil {
		resp.From = from.Format(time.RFC3339)
	}
	if to != nil {
		resp.To = to.Format(time.RFC3339)
	}
	RespondOK(c, resp)
}

// OwnerBuyers returns the count of distinct accounts that bought any of an
// owner's items
func (h *ReportHandler) OwnerBuyers(c *gin.Context) {
	ownerID, ok := parseIDParam(c, h.logger)
	if !ok {
		return
	}

	buyers, err := h.aggregator.DistinctBuyersForOwner(c.Request.Context(), ownerID)
	if err != nil {
		h.logger.Error("Failed to count distinct buyers", "owner_id", ownerID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, OwnerBuyersResponse{OwnerID: ownerID.String(), DistinctBuyers: buyers})
}

// Platform returns platform-wide revenue, purchase, and refund totals
func (h *ReportHandler) Platform(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}

	report, err := h.aggregator.PlatformTotals(c.Request.Context(), from, to)
	if err != nil {
		h.logger.Error("Failed to aggregate platform totals", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, PlatformReportResponse{
		Revenue:   report.Revenue,
		Purchases: report.Purchases,
		Refunds:   report.Refunds,
	})
}

// parseDateRange parses optional RFC3339 "from" and "to" query parameters
func parseDateRange(c *gin.Context) (from, to *time.Time, ok bool) {
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondBadRequest(c, "Invalid 'from' timestamp, expected RFC3339")
			return nil, nil, false
		}
		from = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondBadRequest(c, "Invalid 'to' timestamp, expected RFC3339")
			return nil, nil, false
		}
		to = &t
	}
	return from, to, true
}
