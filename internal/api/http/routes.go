package http

import (
	"github.com/gin-gonic/gin"

	"github.com/jaspervborcena/tovrika-sub001/pkg/middleware"
)

// RegisterRoutes registers all back-office routes. Every route requires
// the identity headers; writes fail fast without them.
func RegisterRoutes(router *gin.Engine, handlers *Handlers) {
	// Inventory batch routes
	productAPI := router.Group("/api/v1/products", middleware.IdentityContext(true))
	{
		productAPI.POST("/:productId/batches", handlers.AddBatch())
		productAPI.GET("/:productId/batches", handlers.ListBatches())
		productAPI.GET("/:productId/batches/latest", handlers.GetLatestBatch())
		productAPI.PUT("/:productId/batches/:batchId", handlers.UpdateBatch())
		productAPI.DELETE("/:productId/batches/:batchId", handlers.RemoveBatch())
		productAPI.POST("/:productId/deductions", handlers.DeductStock())

		// Summary reconciliation routes
		productAPI.POST("/:productId/summary/recompute", handlers.RecomputeSummary())
		productAPI.GET("/:productId/summary/validate", handlers.ValidateSummary())
		productAPI.POST("/:productId/summary/repair", handlers.RepairSummary())
	}

	companyAPI := router.Group("/api/v1/companies", middleware.IdentityContext(true))
	{
		companyAPI.POST("/:companyId/summary/sweep", handlers.SweepCompany())
	}

	// Accounting ledger routes
	ledgerAPI := router.Group("/api/v1/ledger", middleware.IdentityContext(true))
	{
		ledgerAPI.POST("/events", handlers.RecordLedgerEvent())
		ledgerAPI.GET("/days/:day", handlers.GetDayBalances())
		ledgerAPI.GET("/range", handlers.GetRangeBalances())
		ledgerAPI.POST("/days/:day/repair", handlers.RepairLedgerDay())
	}

	// Offline document gateway routes
	documentAPI := router.Group("/api/v1/documents", middleware.IdentityContext(true))
	{
		documentAPI.POST("/:collection", handlers.CreateDocument())
		documentAPI.PATCH("/:collection/:id", handlers.UpdateDocument())
		documentAPI.DELETE("/:collection/:id", handlers.DeleteDocument())
	}

	// Pending queue and sync routes
	syncAPI := router.Group("/api/v1", middleware.IdentityContext(true))
	{
		syncAPI.GET("/pending/:collection", handlers.GetPendingDocuments())
		syncAPI.POST("/sync", handlers.TriggerSync())
	}
}
