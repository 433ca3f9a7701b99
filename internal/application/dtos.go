package application

import (
	"time"

	"github.com/jaspervborcena/tovrika-sub001/internal/domain"
)

// BatchDTO is the API representation of an inventory batch.
type BatchDTO struct {
	BatchID       string     `json:"batchId"`
	ProductID     string     `json:"productId"`
	CompanyID     string     `json:"companyId"`
	StoreID       string     `json:"storeId"`
	Quantity      float64    `json:"quantity"`
	UnitPrice     float64    `json:"unitPrice"`
	CostPrice     float64    `json:"costPrice"`
	SellingPrice  *float64   `json:"sellingPrice,omitempty"`
	ReceivedAt    time.Time  `json:"receivedAt"`
	ExpiryDate    *time.Time `json:"expiryDate,omitempty"`
	Status        string     `json:"status"`
	VATRate       float64    `json:"vatRate"`
	HasDiscount   bool       `json:"hasDiscount"`
	DiscountType  string     `json:"discountType,omitempty"`
	DiscountValue float64    `json:"discountValue"`
	TotalDeducted float64    `json:"totalDeducted"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// ToBatchDTO converts a domain batch to its API representation.
func ToBatchDTO(b *domain.InventoryBatch) *BatchDTO {
	if b == nil {
		return nil
	}
	return &BatchDTO{
		BatchID:       b.BatchID,
		ProductID:     b.ProductID,
		CompanyID:     b.CompanyID,
		StoreID:       b.StoreID,
		Quantity:      b.Quantity,
		UnitPrice:     b.UnitPrice,
		CostPrice:     b.CostPrice,
		SellingPrice:  b.SellingPrice,
		ReceivedAt:    b.ReceivedAt,
		ExpiryDate:    b.ExpiryDate,
		Status:        string(b.Status),
		VATRate:       b.VATRate,
		HasDiscount:   b.HasDiscount,
		DiscountType:  string(b.DiscountType),
		DiscountValue: b.DiscountValue,
		TotalDeducted: b.TotalDeducted,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

// ToBatchDTOs converts a slice of domain batches.
func ToBatchDTOs(batches []*domain.InventoryBatch) []*BatchDTO {
	dtos := make([]*BatchDTO, 0, len(batches))
	for _, b := range batches {
		dtos = append(dtos, ToBatchDTO(b))
	}
	return dtos
}

// SummaryDTO is the API representation of a product summary.
type SummaryDTO struct {
	ProductID      string    `json:"productId"`
	TotalStock     float64   `json:"totalStock"`
	SellingPrice   float64   `json:"sellingPrice"`
	OriginalPrice  float64   `json:"originalPrice"`
	IsStockTracked bool      `json:"isStockTracked"`
	HasDiscount    bool      `json:"hasDiscount"`
	DiscountType   string    `json:"discountType,omitempty"`
	DiscountValue  float64   `json:"discountValue"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// ToSummaryDTO converts a domain product summary.
func ToSummaryDTO(p *domain.ProductSummary) *SummaryDTO {
	if p == nil {
		return nil
	}
	return &SummaryDTO{
		ProductID:      p.ProductID,
		TotalStock:     p.TotalStock,
		SellingPrice:   p.SellingPrice,
		OriginalPrice:  p.OriginalPrice,
		IsStockTracked: p.IsStockTracked,
		HasDiscount:    p.HasDiscount,
		DiscountType:   string(p.DiscountType),
		DiscountValue:  p.DiscountValue,
		LastUpdated:    p.LastUpdated,
	}
}

// LedgerEntryDTO is the API representation of a day rollup entry.
type LedgerEntryDTO struct {
	ID                     string    `json:"id"`
	CompanyID              string    `json:"companyId"`
	StoreID                string    `json:"storeId"`
	EventType              string    `json:"eventType"`
	Day                    string    `json:"day"`
	RunningBalanceAmount   float64   `json:"runningBalanceAmount"`
	RunningBalanceQty      float64   `json:"runningBalanceQty"`
	RunningBalanceOrderQty int64     `json:"runningBalanceOrderQty"`
	LastReference          string    `json:"lastReference,omitempty"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// ToLedgerEntryDTO converts a domain ledger entry.
func ToLedgerEntryDTO(e *domain.LedgerEntry) *LedgerEntryDTO {
	if e == nil {
		return nil
	}
	return &LedgerEntryDTO{
		ID:                     e.ID,
		CompanyID:              e.CompanyID,
		StoreID:                e.StoreID,
		EventType:              string(e.EventType),
		Day:                    e.Day,
		RunningBalanceAmount:   e.RunningBalanceAmount,
		RunningBalanceQty:      e.RunningBalanceQty,
		RunningBalanceOrderQty: e.RunningBalanceOrderQty,
		LastReference:          e.LastReference,
		CreatedAt:              e.CreatedAt,
		UpdatedAt:              e.UpdatedAt,
	}
}

// PendingWriteDTO is the API representation of a queued write.
type PendingWriteDTO struct {
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	DocumentID string    `json:"documentId"`
	Operation  string    `json:"operation"`
	Synced     bool      `json:"synced"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"lastError,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ToPendingWriteDTO converts a queued write.
func ToPendingWriteDTO(w *domain.PendingWrite) *PendingWriteDTO {
	if w == nil {
		return nil
	}
	return &PendingWriteDTO{
		ID:         w.ID,
		Collection: w.Collection,
		DocumentID: w.DocumentID,
		Operation:  string(w.Operation),
		Synced:     w.Synced,
		Attempts:   w.Attempts,
		LastError:  w.LastError,
		CreatedAt:  w.CreatedAt,
	}
}

// ToPendingWriteDTOs converts a slice of queued writes.
func ToPendingWriteDTOs(writes []*domain.PendingWrite) []*PendingWriteDTO {
	dtos := make([]*PendingWriteDTO, 0, len(writes))
	for _, w := range writes {
		dtos = append(dtos, ToPendingWriteDTO(w))
	}
	return dtos
}
