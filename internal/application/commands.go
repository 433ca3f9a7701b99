package application

import (
	"time"

	"github.com/jaspervborcena/tovrika-sub001/internal/domain"
)

// AddBatchCommand creates a new inventory batch for a product.
type AddBatchCommand struct {
	ProductID     string
	Quantity      float64
	UnitPrice     float64
	CostPrice     float64
	SellingPrice  *float64
	ReceivedAt    time.Time
	ExpiryDate    *time.Time
	VATRate       float64
	HasDiscount   bool
	DiscountType  domain.DiscountType
	DiscountValue float64
}

// UpdateBatchCommand applies a partial update to an existing batch.
type UpdateBatchCommand struct {
	ProductID string
	BatchID   string
	Updates   domain.BatchUpdate
}

// DeductStockCommand removes quantity from a product's batches oldest
// first.
type DeductStockCommand struct {
	ProductID string
	Quantity  float64
	Reference string
}

// RecordEventCommand folds one accounting event into the day rollup.
type RecordEventCommand struct {
	CompanyID   string
	StoreID     string
	ReferenceID string
	EventType   string
	Amount      float64
	Quantity    float64
	Actor       string
}

// ValidateCompanyCommand sweeps a company's products for summary drift.
type ValidateCompanyCommand struct {
	CompanyID string
	PageSize  int
	Fix       bool
}
