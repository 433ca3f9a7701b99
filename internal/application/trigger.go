package application

import (
	"context"
	"sync"
	"time"

	"github.com/jaspervborcena/tovrika-sub001/internal/domain"
	"github.com/jaspervborcena/tovrika-sub001/pkg/logging"
)

// RecomputeTrigger schedules a product summary recompute after a batch
// mutation has committed. The trigger is injected at construction time so
// the batch write path never depends on the reconciler directly.
type RecomputeTrigger interface {
	// TriggerRecompute schedules a recompute for productID. The overlay
	// carries just-committed batches that may not be visible to a fresh
	// query yet.
	TriggerRecompute(productID string, overlay []*domain.InventoryBatch)
}

// Recomputer is the reconciler surface the async trigger drives.
type Recomputer interface {
	Recompute(ctx context.Context, productID string, overlay []*domain.InventoryBatch) (*domain.ProductSummary, error)
}

// AsyncRecomputeTrigger runs recomputes as short-lived background tasks.
// Recomputes for the same product are serialized so each one observes the
// write that triggered it; different products run concurrently.
type AsyncRecomputeTrigger struct {
	reconciler Recomputer
	logger     *logging.Logger
	timeout    time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	wg    sync.WaitGroup
}

// NewAsyncRecomputeTrigger creates a trigger backed by the reconciler.
func NewAsyncRecomputeTrigger(reconciler Recomputer, logger *logging.Logger, timeout time.Duration) *AsyncRecomputeTrigger {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AsyncRecomputeTrigger{
		reconciler: reconciler,
		logger:     logger.WithComponent("recompute-trigger"),
		timeout:    timeout,
		locks:      make(map[string]*sync.Mutex),
	}
}

// TriggerRecompute schedules a recompute for productID.
func (t *AsyncRecomputeTrigger) TriggerRecompute(productID string, overlay []*domain.InventoryBatch) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		lock := t.productLock(productID)
		lock.Lock()
		defer lock.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()

		if _, err := t.reconciler.Recompute(ctx, productID, overlay); err != nil {
			t.logger.WithError(err).Warn("Summary recompute failed, will be repaired by validation sweep",
				"productId", productID)
		}
	}()
}

// Wait blocks until all in-flight recomputes complete, used on shutdown.
func (t *AsyncRecomputeTrigger) Wait() {
	t.wg.Wait()
}

func (t *AsyncRecomputeTrigger) productLock(productID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	lock, ok := t.locks[productID]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[productID] = lock
	}
	return lock
}

// SyncRecomputeTrigger runs the recompute inline on the caller's
// goroutine. Used in tests and in tooling where ordering matters more
// than latency.
type SyncRecomputeTrigger struct {
	Reconciler Recomputer
}

// TriggerRecompute runs the recompute immediately.
func (t *SyncRecomputeTrigger) TriggerRecompute(productID string, overlay []*domain.InventoryBatch) {
	_, _ = t.Reconciler.Recompute(context.Background(), productID, overlay)
}
