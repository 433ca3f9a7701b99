package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestNewInventoryBatch(t *testing.T) {
	in := NewBatchInput{Quantity: 50, UnitPrice: 20}

	t.Run("creates active batch with generated id", func(t *testing.T) {
		batch, err := NewInventoryBatch("prod-1", "comp-1", "store-1", "user-1", in)
		require.NoError(t, err)

		assert.NotEmpty(t, batch.BatchID)
		assert.Equal(t, "prod-1", batch.ProductID)
		assert.Equal(t, BatchStatusActive, batch.Status)
		assert.Equal(t, 50.0, batch.InitialQuantity)
		assert.Equal(t, 0.0, batch.TotalDeducted)
		assert.False(t, batch.ReceivedAt.IsZero())
	})

	t.Run("rejects missing product id", func(t *testing.T) {
		_, err := NewInventoryBatch("", "comp-1", "store-1", "user-1", in)
		assert.ErrorIs(t, err, ErrMissingProductID)
	})

	t.Run("rejects missing scope", func(t *testing.T) {
		_, err := NewInventoryBatch("prod-1", "", "store-1", "user-1", in)
		assert.ErrorIs(t, err, ErrMissingScope)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewInventoryBatch("prod-1", "comp-1", "store-1", "user-1", NewBatchInput{Quantity: 0, UnitPrice: 20})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("rejects negative unit price", func(t *testing.T) {
		_, err := NewInventoryBatch("prod-1", "comp-1", "store-1", "user-1", NewBatchInput{Quantity: 5, UnitPrice: -1})
		assert.ErrorIs(t, err, ErrInvalidUnitPrice)
	})

	t.Run("rejects discount without a type", func(t *testing.T) {
		_, err := NewInventoryBatch("prod-1", "comp-1", "store-1", "user-1", NewBatchInput{Quantity: 5, UnitPrice: 20, HasDiscount: true})
		assert.ErrorIs(t, err, ErrInvalidDiscountType)
	})
}

func TestEffectiveSellingPrice(t *testing.T) {
	b := &InventoryBatch{UnitPrice: 20}
	assert.Equal(t, 20.0, b.EffectiveSellingPrice())

	b.SellingPrice = ptr(22.5)
	assert.Equal(t, 22.5, b.EffectiveSellingPrice())
}

func TestDeriveOriginalPrice(t *testing.T) {
	t.Run("unit price is authoritative when present", func(t *testing.T) {
		b := &InventoryBatch{UnitPrice: 100, SellingPrice: ptr(112.0), VATRate: 12}
		assert.Equal(t, 100.0, b.DeriveOriginalPrice())
	})

	t.Run("inverts vat with no discount", func(t *testing.T) {
		b := &InventoryBatch{SellingPrice: ptr(112.0), VATRate: 12}
		assert.InDelta(t, 100.0, b.DeriveOriginalPrice(), 1e-9)
	})

	t.Run("inverts vat and percentage discount", func(t *testing.T) {
		// original 100, 12% vat, 10% discount: 100 * 1.12 * 0.9 = 100.8
		b := &InventoryBatch{
			SellingPrice:  ptr(100.8),
			VATRate:       12,
			HasDiscount:   true,
			DiscountType:  DiscountTypePercentage,
			DiscountValue: 10,
		}
		assert.InDelta(t, 100.0, b.DeriveOriginalPrice(), 1e-9)
	})

	t.Run("inverts vat and fixed discount", func(t *testing.T) {
		// original 100, 12% vat, 12 off: 100*1.12 - 12 = 100
		b := &InventoryBatch{
			SellingPrice:  ptr(100.0),
			VATRate:       12,
			HasDiscount:   true,
			DiscountType:  DiscountTypeFixed,
			DiscountValue: 12,
		}
		assert.InDelta(t, 100.0, b.DeriveOriginalPrice(), 1e-9)
	})

	t.Run("full percentage discount falls back to vat-only inversion", func(t *testing.T) {
		b := &InventoryBatch{
			SellingPrice:  ptr(112.0),
			VATRate:       12,
			HasDiscount:   true,
			DiscountType:  DiscountTypePercentage,
			DiscountValue: 100,
		}
		assert.InDelta(t, 100.0, b.DeriveOriginalPrice(), 1e-9)
	})
}

func TestDeduct(t *testing.T) {
	b := &InventoryBatch{Quantity: 10, InitialQuantity: 10}

	require.NoError(t, b.Deduct(4))
	assert.Equal(t, 6.0, b.Quantity)
	assert.Equal(t, 4.0, b.TotalDeducted)

	assert.ErrorIs(t, b.Deduct(7), ErrInsufficientStock)
	assert.ErrorIs(t, b.Deduct(0), ErrInvalidQuantity)
	assert.Equal(t, 6.0, b.Quantity)
}

func TestApply(t *testing.T) {
	b := &InventoryBatch{
		BatchID:   "batch-1",
		ProductID: "prod-1",
		CompanyID: "comp-1",
		StoreID:   "store-1",
		Quantity:  10,
		UnitPrice: 20,
		Status:    BatchStatusActive,
	}

	removed := BatchStatusRemoved
	require.NoError(t, b.Apply(BatchUpdate{
		Quantity: ptr(7.0),
		Status:   &removed,
	}))

	assert.Equal(t, 7.0, b.Quantity)
	assert.Equal(t, BatchStatusRemoved, b.Status)
	assert.Equal(t, 20.0, b.UnitPrice)
	assert.Equal(t, "prod-1", b.ProductID)
	assert.Equal(t, "comp-1", b.CompanyID)
	assert.Equal(t, "store-1", b.StoreID)

	assert.ErrorIs(t, b.Apply(BatchUpdate{Quantity: ptr(-1.0)}), ErrInvalidQuantity)
	assert.ErrorIs(t, b.Apply(BatchUpdate{UnitPrice: ptr(-1.0)}), ErrInvalidUnitPrice)
}

func TestSortBatches(t *testing.T) {
	t1 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	t3 := t2.Add(24 * time.Hour)

	batches := []*InventoryBatch{
		{BatchID: "b", ReceivedAt: t2},
		{BatchID: "c", ReceivedAt: t3},
		{BatchID: "a", ReceivedAt: t1},
	}

	SortBatchesNewestFirst(batches)
	assert.Equal(t, []string{"c", "b", "a"}, []string{batches[0].BatchID, batches[1].BatchID, batches[2].BatchID})

	SortBatchesOldestFirst(batches)
	assert.Equal(t, []string{"a", "b", "c"}, []string{batches[0].BatchID, batches[1].BatchID, batches[2].BatchID})
}
