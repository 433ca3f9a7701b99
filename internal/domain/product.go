package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductSummary is the denormalized product view read by the selling
// surface. TotalStock and the price fields are derived from the active
// batches; the reconciler is the only writer of the derived fields for
// stock-tracked products.
type ProductSummary struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	ProductID      string             `bson:"productId"`
	CompanyID      string             `bson:"companyId"`
	StoreID        string             `bson:"storeId"`
	Name           string             `bson:"name,omitempty"`
	SKU            string             `bson:"sku,omitempty"`
	TotalStock     float64            `bson:"totalStock"`
	SellingPrice   float64            `bson:"sellingPrice"`
	OriginalPrice  float64            `bson:"originalPrice"`
	IsStockTracked bool               `bson:"isStockTracked"`
	HasDiscount    bool               `bson:"hasDiscount"`
	DiscountType   DiscountType       `bson:"discountType,omitempty"`
	DiscountValue  float64            `bson:"discountValue"`
	LastUpdated    time.Time          `bson:"lastUpdated"`
}

// DerivedSummary holds the batch-derived portion of a product summary.
type DerivedSummary struct {
	TotalStock    float64
	SellingPrice  float64
	OriginalPrice float64
	HasDiscount   bool
	DiscountType  DiscountType
	DiscountValue float64
}

// ComputeDerivedSummary folds the active batches into the derived summary
// fields: total stock is the sum of active quantities, pricing and
// discount metadata come from the most recently received active batch.
// The second return is false when there are no active batches, in which
// case the stored summary must be left untouched.
func ComputeDerivedSummary(batches []*InventoryBatch) (DerivedSummary, bool) {
	active := make([]*InventoryBatch, 0, len(batches))
	for _, b := range batches {
		if b.IsActive() {
			active = append(active, b)
		}
	}
	if len(active) == 0 {
		return DerivedSummary{}, false
	}

	SortBatchesNewestFirst(active)
	latest := active[0]

	var total float64
	for _, b := range active {
		total += b.Quantity
	}

	return DerivedSummary{
		TotalStock:    total,
		SellingPrice:  latest.EffectiveSellingPrice(),
		OriginalPrice: latest.DeriveOriginalPrice(),
		HasDiscount:   latest.HasDiscount,
		DiscountType:  latest.DiscountType,
		DiscountValue: latest.DiscountValue,
	}, true
}

// ApplyDerived writes the derived fields onto the summary.
func (p *ProductSummary) ApplyDerived(d DerivedSummary) {
	p.TotalStock = d.TotalStock
	p.SellingPrice = d.SellingPrice
	p.OriginalPrice = d.OriginalPrice
	p.HasDiscount = d.HasDiscount
	p.DiscountType = d.DiscountType
	p.DiscountValue = d.DiscountValue
	p.LastUpdated = time.Now().UTC()
}

// MatchesDerived reports whether the stored summary already equals the
// derived values. LastUpdated is excluded so a no-op recompute does not
// dirty the document.
func (p *ProductSummary) MatchesDerived(d DerivedSummary) bool {
	return p.TotalStock == d.TotalStock &&
		p.SellingPrice == d.SellingPrice &&
		p.OriginalPrice == d.OriginalPrice &&
		p.HasDiscount == d.HasDiscount &&
		p.DiscountType == d.DiscountType &&
		p.DiscountValue == d.DiscountValue
}
