package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/course-token-wallet/internal/api/handler"
	"github.com/course-token-wallet/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	accountHandler *handler.AccountHandler,
	itemHandler *handler.ItemHandler,
	purchaseHandler *handler.PurchaseHandler,
	reportHandler *handler.ReportHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Wallet account operations
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.Create)
			accounts.GET("/:id", accountHandler.GetBalance)
			accounts.GET("/:id/ledger", accountHandler.History)
			accounts.GET("/:id/reconciliation", accountHandler.Reconcile)
			accounts.POST("/:id/rewards", accountHandler.Reward)
			accounts.POST("/:id/spends", accountHandler.Spend)
			accounts.DELETE("/:id", accountHandler.Delete)
		}

		// Catalog item operations
		items := v1.Group("/items")
		{
			items.POST("", itemHandler.Create)
			items.GET("/:id", itemHandler.GetByID)
			items.PATCH("/:id/price", itemHandler.UpdatePrice)
			items.DELETE("/:id", itemHandler.Delete)
		}

		// Purchase operations
		purchases := v1.Group("/purchases")
		{
			purchases.POST("", purchaseHandler.Create)
			purchases.GET("/:id", purchaseHandler.GetByID)
			purchases.POST("/:id/refund", purchaseHandler.Refund)
		}

		// Aggregated reporting
		reports := v1.Group("/reports")
		{
			reports.GET("/owners/:id/revenue", reportHandler.OwnerRevenue)
			reports.GET("/owners/:id/buyers", reportHandler.OwnerBuyers)
			reports.GET("/platform", reportHandler.Platform)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
