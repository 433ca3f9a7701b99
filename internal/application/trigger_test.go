package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaspervborcena/tovrika-sub001/internal/domain"
)

type countingRecomputer struct {
	mu    sync.Mutex
	calls []string
}

func (r *countingRecomputer) Recompute(ctx context.Context, productID string, overlay []*domain.InventoryBatch) (*domain.ProductSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, productID)
	return &domain.ProductSummary{ProductID: productID}, nil
}

func TestAsyncTriggerRunsRecompute(t *testing.T) {
	recomputer := &countingRecomputer{}
	trigger := NewAsyncRecomputeTrigger(recomputer, testLogger(), time.Second)

	trigger.TriggerRecompute("prod-1", nil)
	trigger.TriggerRecompute("prod-2", nil)
	trigger.Wait()

	recomputer.mu.Lock()
	defer recomputer.mu.Unlock()
	assert.Len(t, recomputer.calls, 2)
	assert.Contains(t, recomputer.calls, "prod-1")
	assert.Contains(t, recomputer.calls, "prod-2")
}

func TestAsyncTriggerSerializesPerProduct(t *testing.T) {
	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0

	recomputer := recomputerFunc(func(ctx context.Context, productID string, overlay []*domain.InventoryBatch) (*domain.ProductSummary, error) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil, nil
	})

	trigger := NewAsyncRecomputeTrigger(recomputer, testLogger(), time.Second)
	for i := 0; i < 5; i++ {
		trigger.TriggerRecompute("prod-1", nil)
	}
	trigger.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 0, inFlight)
	assert.Equal(t, 1, maxInFlight, "same product never recomputes concurrently")
}

func TestAsyncTriggerConvergesUnderRapidMutations(t *testing.T) {
	t1 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	committed := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	fresh := &domain.InventoryBatch{BatchID: "a", Quantity: 20, UnitPrice: 20, ReceivedAt: t1, Status: domain.BatchStatusActive, UpdatedAt: committed}
	stale := &domain.InventoryBatch{BatchID: "a", Quantity: 50, UnitPrice: 20, ReceivedAt: t1, Status: domain.BatchStatusActive, UpdatedAt: committed.Add(-time.Minute)}

	batches := &mockBatchRepo{
		findActiveFn: func(ctx context.Context, productID string) ([]*domain.InventoryBatch, error) {
			return []*domain.InventoryBatch{fresh}, nil
		},
	}
	products := &mockProductRepo{
		findByIDFn: func(ctx context.Context, productID string) (*domain.ProductSummary, error) {
			return trackedProduct(productID), nil
		},
	}
	trigger := NewAsyncRecomputeTrigger(newReconciler(batches, products), testLogger(), time.Second)

	// Both mutations already committed; their recomputes may acquire the
	// product lock in either order.
	trigger.TriggerRecompute("prod-1", []*domain.InventoryBatch{stale})
	trigger.TriggerRecompute("prod-1", []*domain.InventoryBatch{fresh})
	trigger.Wait()

	require.NotEmpty(t, products.derivedWrites)
	for _, derived := range products.derivedWrites {
		assert.Equal(t, 20.0, derived.TotalStock, "every recompute observes the newest committed write")
	}
}

type recomputerFunc func(context.Context, string, []*domain.InventoryBatch) (*domain.ProductSummary, error)

func (f recomputerFunc) Recompute(ctx context.Context, productID string, overlay []*domain.InventoryBatch) (*domain.ProductSummary, error) {
	return f(ctx, productID, overlay)
}

func TestSyncTriggerRunsInline(t *testing.T) {
	recomputer := &countingRecomputer{}
	trigger := &SyncRecomputeTrigger{Reconciler: recomputer}

	trigger.TriggerRecompute("prod-1", nil)

	assert.Equal(t, []string{"prod-1"}, recomputer.calls)
}
