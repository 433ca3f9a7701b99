package domain

import (
	"context"
	"time"
)

// BatchRepository persists inventory batches in the authoritative store.
type BatchRepository interface {
	// Create inserts the batch and, in the same atomic unit, applies the
	// incremental totalStock adjustment to the owning product.
	Create(ctx context.Context, batch *InventoryBatch) error

	// FindByID returns the batch or nil when it does not exist.
	FindByID(ctx context.Context, productID, batchID string) (*InventoryBatch, error)

	// Update replaces the mutable fields of an existing batch.
	Update(ctx context.Context, batch *InventoryBatch) error

	// FindActiveByProduct returns the active batches for a product,
	// newest received first. Implementations must fall back to an
	// unordered fetch with in-memory sort when the sorted query is
	// rejected for a missing index.
	FindActiveByProduct(ctx context.Context, productID string) ([]*InventoryBatch, error)
}

// ProductRepository persists product summaries.
type ProductRepository interface {
	// FindByID returns the product summary or nil when it does not exist.
	FindByID(ctx context.Context, productID string) (*ProductSummary, error)

	// UpdateDerived writes the batch-derived summary fields.
	UpdateDerived(ctx context.Context, productID string, derived DerivedSummary, updatedAt time.Time) error

	// UpdateDiscount writes only the discount metadata, used for
	// manually stocked products whose stock and prices are authoritative.
	UpdateDiscount(ctx context.Context, productID string, hasDiscount bool, discountType DiscountType, discountValue float64, updatedAt time.Time) error

	// ListByCompany pages product summaries for a company ordered by
	// product id, starting after the given id.
	ListByCompany(ctx context.Context, companyID, afterProductID string, limit int) ([]*ProductSummary, error)
}

// LedgerRepository persists the per-day accounting rollups.
type LedgerRepository interface {
	// UpsertDayEntry folds the event into the rollup entry for its
	// (companyId, storeId, eventType, day) key atomically, creating the
	// entry when absent, and returns the entry after the increment.
	UpsertDayEntry(ctx context.Context, event *LedgerEvent) (*LedgerEntry, error)

	// FindByDay returns the rollup entries for a day, optionally
	// narrowed to one event type (empty eventType matches all).
	FindByDay(ctx context.Context, companyID, storeID, day string, eventType EventType) ([]*LedgerEntry, error)

	// DeleteDay removes all rollup entries for a day, used by the
	// repair pass before re-deriving totals from order tracking.
	DeleteDay(ctx context.Context, companyID, storeID, day string) error
}

// OrderRepository reads the order tracking records the ledger repair
// pass re-derives totals from.
type OrderRepository interface {
	// SumStatusEventsByDay aggregates amount, quantity and order count
	// per event type for status changes inside the given day window.
	SumStatusEventsByDay(ctx context.Context, companyID, storeID string, dayStart, dayEnd time.Time) (map[EventType]EventTotals, error)
}

// PendingWriteQueue is the local durable log of deferred writes.
type PendingWriteQueue interface {
	Enqueue(ctx context.Context, write *PendingWrite) error

	// List returns all entries for a collection, including synced ones.
	List(ctx context.Context, collection string) ([]*PendingWrite, error)

	// ListUnsynced returns every entry not yet confirmed remotely,
	// across all collections, oldest first.
	ListUnsynced(ctx context.Context) ([]*PendingWrite, error)

	Update(ctx context.Context, write *PendingWrite) error
	Remove(ctx context.Context, collection, writeID string) error
	MarkSynced(ctx context.Context, collection, writeID string) error

	// Depth returns the number of unsynced entries.
	Depth(ctx context.Context) (int64, error)
}

// DocumentStore is the generic write surface of the authoritative store
// used by the offline gateway and the sync driver.
type DocumentStore interface {
	Insert(ctx context.Context, collection string, doc map[string]any) error
	Update(ctx context.Context, collection, documentID string, patch map[string]any) error
	Delete(ctx context.Context, collection, documentID string) error
	Ping(ctx context.Context) error
}
