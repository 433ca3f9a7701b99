package domain

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BatchStatus represents the lifecycle state of an inventory batch
type BatchStatus string

const (
	BatchStatusActive  BatchStatus = "active"
	BatchStatusRemoved BatchStatus = "removed"
)

// DiscountType represents how a batch discount is expressed
type DiscountType string

const (
	DiscountTypeNone       DiscountType = ""
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// InventoryBatch is a single receipt of stock for a product. Batches are
// soft-deleted: removed batches stay in the collection but are excluded
// from every stock and price calculation.
type InventoryBatch struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	BatchID         string             `bson:"batchId"`
	ProductID       string             `bson:"productId"`
	CompanyID       string             `bson:"companyId"`
	StoreID         string             `bson:"storeId"`
	Quantity        float64            `bson:"quantity"`
	UnitPrice       float64            `bson:"unitPrice"`
	CostPrice       float64            `bson:"costPrice"`
	SellingPrice    *float64           `bson:"sellingPrice,omitempty"`
	ReceivedAt      time.Time          `bson:"receivedAt"`
	ExpiryDate      *time.Time         `bson:"expiryDate,omitempty"`
	Status          BatchStatus        `bson:"status"`
	VATRate         float64            `bson:"vatRate"`
	HasDiscount     bool               `bson:"hasDiscount"`
	DiscountType    DiscountType       `bson:"discountType,omitempty"`
	DiscountValue   float64            `bson:"discountValue"`
	InitialQuantity float64            `bson:"initialQuantity"`
	TotalDeducted   float64            `bson:"totalDeducted"`
	CreatedAt       time.Time          `bson:"createdAt"`
	CreatedBy       string             `bson:"createdBy,omitempty"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
}

// NewBatchInput carries the caller-supplied fields for a new batch.
type NewBatchInput struct {
	Quantity      float64
	UnitPrice     float64
	CostPrice     float64
	SellingPrice  *float64
	ReceivedAt    time.Time
	ExpiryDate    *time.Time
	VATRate       float64
	HasDiscount   bool
	DiscountType  DiscountType
	DiscountValue float64
}

// NewInventoryBatch creates a validated batch. Quantity must be positive
// and the unit price non-negative; the batch id is pre-generated so the
// caller never waits on the store for identity.
func NewInventoryBatch(productID, companyID, storeID, createdBy string, in NewBatchInput) (*InventoryBatch, error) {
	if productID == "" {
		return nil, ErrMissingProductID
	}
	if companyID == "" || storeID == "" {
		return nil, ErrMissingScope
	}
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if in.UnitPrice < 0 {
		return nil, ErrInvalidUnitPrice
	}
	if in.HasDiscount && in.DiscountType != DiscountTypePercentage && in.DiscountType != DiscountTypeFixed {
		return nil, ErrInvalidDiscountType
	}

	receivedAt := in.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	now := time.Now().UTC()
	return &InventoryBatch{
		BatchID:         NewDocumentID(),
		ProductID:       productID,
		CompanyID:       companyID,
		StoreID:         storeID,
		Quantity:        in.Quantity,
		UnitPrice:       in.UnitPrice,
		CostPrice:       in.CostPrice,
		SellingPrice:    in.SellingPrice,
		ReceivedAt:      receivedAt,
		ExpiryDate:      in.ExpiryDate,
		Status:          BatchStatusActive,
		VATRate:         in.VATRate,
		HasDiscount:     in.HasDiscount,
		DiscountType:    in.DiscountType,
		DiscountValue:   in.DiscountValue,
		InitialQuantity: in.Quantity,
		TotalDeducted:   0,
		CreatedAt:       now,
		CreatedBy:       createdBy,
		UpdatedAt:       now,
	}, nil
}

// IsActive reports whether the batch participates in stock and price
// calculations.
func (b *InventoryBatch) IsActive() bool {
	return b.Status == BatchStatusActive && b.Quantity > 0
}

// EffectiveSellingPrice returns the batch selling price, falling back to
// the unit price when none was set.
func (b *InventoryBatch) EffectiveSellingPrice() float64 {
	if b.SellingPrice != nil {
		return *b.SellingPrice
	}
	return b.UnitPrice
}

// DeriveOriginalPrice returns the pre-VAT, pre-discount price. When the
// unit price is recorded it is authoritative; otherwise it is
// back-computed by inverting VAT and discount from the selling price.
func (b *InventoryBatch) DeriveOriginalPrice() float64 {
	if b.UnitPrice > 0 {
		return b.UnitPrice
	}

	selling := b.EffectiveSellingPrice()
	vatFactor := 1 + b.VATRate/100

	if b.HasDiscount {
		switch b.DiscountType {
		case DiscountTypePercentage:
			discountFactor := 1 - b.DiscountValue/100
			if discountFactor <= 0 {
				return selling / vatFactor
			}
			return selling / (vatFactor * discountFactor)
		case DiscountTypeFixed:
			return (selling + b.DiscountValue) / vatFactor
		}
	}

	return selling / vatFactor
}

// Deduct removes qty from the batch and tracks the cumulative deduction.
func (b *InventoryBatch) Deduct(qty float64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if qty > b.Quantity {
		return ErrInsufficientStock
	}

	b.Quantity -= qty
	b.TotalDeducted += qty
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// BatchUpdate carries a partial batch update. Nil fields are left
// untouched; the query-critical identifiers can never be changed here.
type BatchUpdate struct {
	Quantity      *float64
	UnitPrice     *float64
	CostPrice     *float64
	SellingPrice  *float64
	ReceivedAt    *time.Time
	ExpiryDate    *time.Time
	Status        *BatchStatus
	VATRate       *float64
	HasDiscount   *bool
	DiscountType  *DiscountType
	DiscountValue *float64
	TotalDeducted *float64
}

// Apply copies the non-nil update fields onto the batch. ProductID,
// CompanyID and StoreID are preserved regardless of the caller's input.
func (b *InventoryBatch) Apply(u BatchUpdate) error {
	if u.Quantity != nil {
		if *u.Quantity < 0 {
			return ErrInvalidQuantity
		}
		b.Quantity = *u.Quantity
	}
	if u.UnitPrice != nil {
		if *u.UnitPrice < 0 {
			return ErrInvalidUnitPrice
		}
		b.UnitPrice = *u.UnitPrice
	}
	if u.CostPrice != nil {
		b.CostPrice = *u.CostPrice
	}
	if u.SellingPrice != nil {
		b.SellingPrice = u.SellingPrice
	}
	if u.ReceivedAt != nil {
		b.ReceivedAt = *u.ReceivedAt
	}
	if u.ExpiryDate != nil {
		b.ExpiryDate = u.ExpiryDate
	}
	if u.Status != nil {
		b.Status = *u.Status
	}
	if u.VATRate != nil {
		b.VATRate = *u.VATRate
	}
	if u.HasDiscount != nil {
		b.HasDiscount = *u.HasDiscount
	}
	if u.DiscountType != nil {
		b.DiscountType = *u.DiscountType
	}
	if u.DiscountValue != nil {
		b.DiscountValue = *u.DiscountValue
	}
	if u.TotalDeducted != nil {
		b.TotalDeducted = *u.TotalDeducted
	}

	b.UpdatedAt = time.Now().UTC()
	return nil
}

// SortBatchesNewestFirst orders batches by receivedAt descending in place.
func SortBatchesNewestFirst(batches []*InventoryBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].ReceivedAt.After(batches[j].ReceivedAt)
	})
}

// SortBatchesOldestFirst orders batches by receivedAt ascending in place,
// the order used for FIFO stock deduction.
func SortBatchesOldestFirst(batches []*InventoryBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].ReceivedAt.Before(batches[j].ReceivedAt)
	})
}
