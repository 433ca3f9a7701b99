package http

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jaspervborcena/tovrika-sub001/internal/application"
	"github.com/jaspervborcena/tovrika-sub001/internal/domain"
	"github.com/jaspervborcena/tovrika-sub001/pkg/identity"
	"github.com/jaspervborcena/tovrika-sub001/pkg/logging"
	"github.com/jaspervborcena/tovrika-sub001/pkg/middleware"
)

// Handlers contains the HTTP handlers for the back-office endpoints.
type Handlers struct {
	inventory  *application.InventoryService
	reconciler *application.SummaryReconciler
	ledger     *application.LedgerService
	gateway    *application.DocumentGateway
	sync       *application.SyncService
	logger     *logging.Logger
}

// NewHandlers creates new HTTP handlers.
func NewHandlers(
	inventory *application.InventoryService,
	reconciler *application.SummaryReconciler,
	ledger *application.LedgerService,
	gateway *application.DocumentGateway,
	sync *application.SyncService,
	logger *logging.Logger,
) *Handlers {
	return &Handlers{
		inventory:  inventory,
		reconciler: reconciler,
		ledger:     ledger,
		gateway:    gateway,
		sync:       sync,
		logger:     logger,
	}
}

type addBatchRequest struct {
	Quantity      float64    `json:"quantity" binding:"required,gt=0"`
	UnitPrice     float64    `json:"unitPrice" binding:"gte=0"`
	CostPrice     float64    `json:"costPrice" binding:"gte=0"`
	SellingPrice  *float64   `json:"sellingPrice"`
	ReceivedAt    time.Time  `json:"receivedAt"`
	ExpiryDate    *time.Time `json:"expiryDate"`
	VATRate       float64    `json:"vatRate" binding:"gte=0"`
	HasDiscount   bool       `json:"hasDiscount"`
	DiscountType  string     `json:"discountType" binding:"omitempty,oneof=percentage fixed"`
	DiscountValue float64    `json:"discountValue" binding:"gte=0"`
}

// AddBatch handles POST /api/v1/products/:productId/batches
func (h *Handlers) AddBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger.Logger)

		var req addBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		batchID, err := h.inventory.AddBatch(c.Request.Context(), application.AddBatchCommand{
			ProductID:     c.Param("productId"),
			Quantity:      req.Quantity,
			UnitPrice:     req.UnitPrice,
			CostPrice:     req.CostPrice,
			SellingPrice:  req.SellingPrice,
			ReceivedAt:    req.ReceivedAt,
			ExpiryDate:    req.ExpiryDate,
			VATRate:       req.VATRate,
			HasDiscount:   req.HasDiscount,
			DiscountType:  domain.DiscountType(req.DiscountType),
			DiscountValue: req.DiscountValue,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"batchId": batchID})
	}
}

type updateBatchRequest struct {
	Quantity      *float64   `json:"quantity"`
	UnitPrice     *float64   `json:"unitPrice"`
	CostPrice     *float64   `json:"costPrice"`
	SellingPrice  *float64   `json:"sellingPrice"`
	ReceivedAt    *time.Time `json:"receivedAt"`
	ExpiryDate    *time.Time `json:"expiryDate"`
	Status        *string    `json:"status" binding:"omitempty,oneof=active removed"`
	VATRate       *float64   `json:"vatRate"`
	HasDiscount   *bool      `json:"hasDiscount"`
	DiscountType  *string    `json:"discountType" binding:"omitempty,oneof=percentage fixed"`
	DiscountValue *float64   `json:"discountValue"`
}

// UpdateBatch handles PUT /api/v1/products/:productId/batches/:batchId
func (h *Handlers) UpdateBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger.Logger)

		var req updateBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		updates := domain.BatchUpdate{
			Quantity:      req.Quantity,
			UnitPrice:     req.UnitPrice,
			CostPrice:     req.CostPrice,
			SellingPrice:  req.SellingPrice,
			ReceivedAt:    req.ReceivedAt,
			ExpiryDate:    req.ExpiryDate,
			VATRate:       req.VATRate,
			HasDiscount:   req.HasDiscount,
			DiscountValue: req.DiscountValue,
		}
		if req.Status != nil {
			status := domain.BatchStatus(*req.Status)
			updates.Status = &status
		}
		if req.DiscountType != nil {
			discountType := domain.DiscountType(*req.DiscountType)
			updates.DiscountType = &discountType
		}

		err := h.inventory.UpdateBatch(c.Request.Context(), application.UpdateBatchCommand{
			ProductID: c.Param("productId"),
			BatchID:   c.Param("batchId"),
			Updates:   updates,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"batchId": c.Param("batchId")})
	}
}

// RemoveBatch handles DELETE /api/v1/products/:productId/batches/:batchId
func (h *Handlers) RemoveBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger.Logger)

		err := h.inventory.RemoveBatch(c.Request.Context(), c.Param("productId"), c.Param("batchId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// ListBatches handles GET /api/v1/products/:productId/batches
func (h *Handlers) ListBatches() gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger.Logger)

		batches, err := h.inventory.ListBatches(c.Request.Context(), c.Param("productId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"productId": c.Param("productId"),
			"batches":   application.ToBatchDTOs(batches),
		})
	}
}

// GetLatestBatch handles GET /api/v1/products/:productId/batches/latest
func (h *Handlers) GetLatestBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger.Logger)

		batch, err := h.inventory.GetLatestBatch(c.Request.Context(), c.Param("productId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		if batch == nil {
			responder.RespondNotFound("batch")
			return
		}

		c.JSON(http.StatusOK, application.ToBatchDTO(batch))
	}
}

type deductStockRequest struct {
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
	Reference string  `json:"reference"`
}

// DeductStock handles POST /api/v1/products/:productId/deductions
func (h *Handlers) DeductStock() gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger.Logger)

		var req deductStockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		err := h.inventory.DeductStock(c.Request.Context(), application.DeductStockCommand{
			ProductID: c.Param("productId"),
			Quantity:  req.Quantity,
			Reference: req.Reference,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"productId": c.Param("productId"), "deducted": req.Quantity})
	}
}

// RecomputeSummary handles POST /api/v1/products/:productId/summary/recompute
func (h *Handlers) RecomputeSummary() gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger.Logger)

		summary, err := h.reconciler.Recompute(c.Request.Context(), c.Param("productId"), nil)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, application.ToSummaryDTO(summary))
	}
}

// ValidateSummary handles GET /api/v1/products/:productId/summary/validate
func (h *Handlers) ValidateSummary() gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger.Logger)

		report, err := h.reconciler.Validate(c.Request.Context(), c.Param("productId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, report)
	}
}

// RepairSummary handles POST /api/v1/products/:productId/summary/repair
func (h *Handlers) RepairSummary() gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger.Logger)

		report, err := h.reconciler.FixDiscrepancies(c.Request.Context(), c.Param("productId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, report)
	}
}

type sweepRequest struct {
	PageSize int  `json:"pageSize" binding:"omitempty,gt=0,lte=500"`
	Fix      bool `json:"fix"`
}

// SweepCompany handles POST /api/v1/companies/:companyId/summary/sweep
func (h *Handlers) SweepCompany() gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger.Logger)

		var req sweepRequest
		if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := h.reconciler.ValidateCompany(c.Request.Context(), application.ValidateCompanyCommand{
			CompanyID: c.Param("companyId"),
			PageSize:  req.PageSize,
			Fix:       req.Fix,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

type recordEventRequest struct {
	ReferenceID string  `json:"referenceId"`
	EventType   string  `json:"eventType" binding:"required"`
	Amount      float64 `json:"amount" binding:"gte=0"`
	Quantity    float64 `json:"quantity" binding:"gte=0"`
}

// RecordLedgerEvent handles POST /api/v1/ledger/events
func (h *Handlers) RecordLedgerEvent() gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger.Logger)

		ident, err := identity.FromContext(c.Request.Context())
		if err != nil {
			responder.RespondUnauthorized(err.Error())
			return
		}

		var req recordEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		entry, err := h.ledger.RecordEvent(c.Request.Context(), application.RecordEventCommand{
			CompanyID:   ident.CompanyID,
			StoreID:     ident.StoreID,
			ReferenceID: req.ReferenceID,
			EventType:   req.EventType,
			Amount:      req.Amount,
			Quantity:    req.Quantity,
			Actor:       ident.UserID,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, application.ToLedgerEntryDTO(entry))
	}
}

// GetDayBalances handles GET /api/v1/ledger/days/:day
func (h *Handlers) GetDayBalances() gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger.Logger)

		ident, err := identity.FromContext(c.Request.Context())
		if err != nil {
			responder.RespondUnauthorized(err.Error())
			return
		}

		date, err := time.Parse(domain.DayKeyLayout, c.Param("day"))
		if err != nil {
			responder.RespondBadRequest("day must be formatted as YYYY-MM-DD")
			return
		}

		balances, err := h.ledger.GetDayBalances(c.Request.Context(), ident.CompanyID, ident.StoreID, date, c.Query("eventType"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, balances)
	}
}

// GetRangeBalances handles GET /api/v1/ledger/range
func (h *Handlers) GetRangeBalances() gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger.Logger)

		ident, err := identity.FromContext(c.Request.Context())
		if err != nil {
			responder.RespondUnauthorized(err.Error())
			return
		}

		from, err := time.Parse(domain.DayKeyLayout, c.Query("from"))
		if err != nil {
			responder.RespondBadRequest("from must be formatted as YYYY-MM-DD")
			return
		}
		to, err := time.Parse(domain.DayKeyLayout, c.Query("to"))
		if err != nil {
			responder.RespondBadRequest("to must be formatted as YYYY-MM-DD")
			return
		}

		balances, err := h.ledger.GetRangeBalances(c.Request.Context(), ident.CompanyID, ident.StoreID, from, to, c.Query("eventType"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, balances)
	}
}

// RepairLedgerDay handles POST /api/v1/ledger/days/:day/repair
func (h *Handlers) RepairLedgerDay() gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger.Logger)

		ident, err := identity.FromContext(c.Request.Context())
		if err != nil {
			responder.RespondUnauthorized(err.Error())
			return
		}

		date, err := time.Parse(domain.DayKeyLayout, c.Param("day"))
		if err != nil {
			responder.RespondBadRequest("day must be formatted as YYYY-MM-DD")
			return
		}

		balances, err := h.ledger.RepairDay(c.Request.Context(), ident.CompanyID, ident.StoreID, date, ident.UserID)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, balances)
	}
}

// CreateDocument handles POST /api/v1/documents/:collection
func (h *Handlers) CreateDocument() gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger.Logger)

		var doc map[string]any
		if err := c.ShouldBindJSON(&doc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		id, err := h.gateway.Create(c.Request.Context(), c.Param("collection"), doc)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		status := http.StatusCreated
		if domain.IsTempID(id) {
			status = http.StatusAccepted
		}
		c.JSON(status, gin.H{"id": id, "pending": domain.IsTempID(id)})
	}
}

// UpdateDocument handles PATCH /api/v1/documents/:collection/:id
func (h *Handlers) UpdateDocument() gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger.Logger)

		var patch map[string]any
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := h.gateway.Update(c.Request.Context(), c.Param("collection"), c.Param("id"), patch); err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	}
}

// DeleteDocument handles DELETE /api/v1/documents/:collection/:id
func (h *Handlers) DeleteDocument() gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger.Logger)

		if err := h.gateway.Delete(c.Request.Context(), c.Param("collection"), c.Param("id")); err != nil {
			responder.RespondWithError(err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// GetPendingDocuments handles GET /api/v1/pending/:collection
func (h *Handlers) GetPendingDocuments() gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger.Logger)

		pending, err := h.gateway.GetPendingDocuments(c.Request.Context(), c.Param("collection"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"collection": c.Param("collection"),
			"pending":    application.ToPendingWriteDTOs(pending),
		})
	}
}

// TriggerSync handles POST /api/v1/sync
func (h *Handlers) TriggerSync() gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger.Logger)

		result, err := h.sync.Sync(c.Request.Context())
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
