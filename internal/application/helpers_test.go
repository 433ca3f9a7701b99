package application

import (
	"context"
	"sync"
	"time"

	"github.com/jaspervborcena/tovrika-sub001/internal/domain"
	"github.com/jaspervborcena/tovrika-sub001/pkg/identity"
	"github.com/jaspervborcena/tovrika-sub001/pkg/logging"
	"github.com/jaspervborcena/tovrika-sub001/pkg/metrics"
)

func ptr[T any](v T) *T { return &v }

func testLogger() *logging.Logger {
	cfg := logging.DefaultConfig("tovrika-test")
	cfg.Level = logging.LevelError
	return logging.New(cfg)
}

func testMetrics() *metrics.Metrics {
	return metrics.New(metrics.DefaultConfig("tovrika-test"))
}

func testContext() context.Context {
	return identity.ToContext(context.Background(), &identity.Context{
		CompanyID: "comp-1",
		StoreID:   "store-1",
		UserID:    "user-1",
	})
}

type mockBatchRepo struct {
	createFn     func(context.Context, *domain.InventoryBatch) error
	findByIDFn   func(context.Context, string, string) (*domain.InventoryBatch, error)
	updateFn     func(context.Context, *domain.InventoryBatch) error
	findActiveFn func(context.Context, string) ([]*domain.InventoryBatch, error)

	created []*domain.InventoryBatch
	updated []*domain.InventoryBatch
}

func (m *mockBatchRepo) Create(ctx context.Context, batch *domain.InventoryBatch) error {
	m.created = append(m.created, batch)
	if m.createFn != nil {
		return m.createFn(ctx, batch)
	}
	return nil
}

func (m *mockBatchRepo) FindByID(ctx context.Context, productID, batchID string) (*domain.InventoryBatch, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, productID, batchID)
	}
	return nil, nil
}

func (m *mockBatchRepo) Update(ctx context.Context, batch *domain.InventoryBatch) error {
	m.updated = append(m.updated, batch)
	if m.updateFn != nil {
		return m.updateFn(ctx, batch)
	}
	return nil
}

func (m *mockBatchRepo) FindActiveByProduct(ctx context.Context, productID string) ([]*domain.InventoryBatch, error) {
	if m.findActiveFn != nil {
		return m.findActiveFn(ctx, productID)
	}
	return nil, nil
}

type mockProductRepo struct {
	findByIDFn       func(context.Context, string) (*domain.ProductSummary, error)
	updateDerivedFn  func(context.Context, string, domain.DerivedSummary, time.Time) error
	updateDiscountFn func(context.Context, string, bool, domain.DiscountType, float64, time.Time) error
	listByCompanyFn  func(context.Context, string, string, int) ([]*domain.ProductSummary, error)

	derivedWrites  []domain.DerivedSummary
	discountWrites int
}

func (m *mockProductRepo) FindByID(ctx context.Context, productID string) (*domain.ProductSummary, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, productID)
	}
	return nil, nil
}

func (m *mockProductRepo) UpdateDerived(ctx context.Context, productID string, derived domain.DerivedSummary, updatedAt time.Time) error {
	m.derivedWrites = append(m.derivedWrites, derived)
	if m.updateDerivedFn != nil {
		return m.updateDerivedFn(ctx, productID, derived, updatedAt)
	}
	return nil
}

func (m *mockProductRepo) UpdateDiscount(ctx context.Context, productID string, hasDiscount bool, discountType domain.DiscountType, discountValue float64, updatedAt time.Time) error {
	m.discountWrites++
	if m.updateDiscountFn != nil {
		return m.updateDiscountFn(ctx, productID, hasDiscount, discountType, discountValue, updatedAt)
	}
	return nil
}

func (m *mockProductRepo) ListByCompany(ctx context.Context, companyID, afterProductID string, limit int) ([]*domain.ProductSummary, error) {
	if m.listByCompanyFn != nil {
		return m.listByCompanyFn(ctx, companyID, afterProductID, limit)
	}
	return nil, nil
}

// recordingTrigger captures recompute requests without running them.
type recordingTrigger struct {
	productIDs []string
	overlays   [][]*domain.InventoryBatch
}

func (t *recordingTrigger) TriggerRecompute(productID string, overlay []*domain.InventoryBatch) {
	t.productIDs = append(t.productIDs, productID)
	t.overlays = append(t.overlays, overlay)
}

// staticSignal is a fixed connectivity state.
type staticSignal bool

func (s staticSignal) Online() bool { return bool(s) }

// memoryQueue is an in-memory PendingWriteQueue for gateway and sync
// tests.
type memoryQueue struct {
	mu      sync.Mutex
	entries map[string]map[string]*domain.PendingWrite
}

func newMemoryQueue() *memoryQueue {
	return &memoryQueue{entries: make(map[string]map[string]*domain.PendingWrite)}
}

func (q *memoryQueue) Enqueue(ctx context.Context, write *domain.PendingWrite) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.entries[write.Collection] == nil {
		q.entries[write.Collection] = make(map[string]*domain.PendingWrite)
	}
	q.entries[write.Collection][write.ID] = write
	return nil
}

func (q *memoryQueue) List(ctx context.Context, collection string) ([]*domain.PendingWrite, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*domain.PendingWrite, 0, len(q.entries[collection]))
	for _, w := range q.entries[collection] {
		out = append(out, w)
	}
	domain.SortPendingWritesOldestFirst(out)
	return out, nil
}

func (q *memoryQueue) ListUnsynced(ctx context.Context) ([]*domain.PendingWrite, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*domain.PendingWrite
	for _, byID := range q.entries {
		for _, w := range byID {
			if !w.Synced {
				out = append(out, w)
			}
		}
	}
	domain.SortPendingWritesOldestFirst(out)
	return out, nil
}

func (q *memoryQueue) Update(ctx context.Context, write *domain.PendingWrite) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.entries[write.Collection] == nil {
		q.entries[write.Collection] = make(map[string]*domain.PendingWrite)
	}
	q.entries[write.Collection][write.ID] = write
	return nil
}

func (q *memoryQueue) Remove(ctx context.Context, collection, writeID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.entries[collection], writeID)
	return nil
}

func (q *memoryQueue) MarkSynced(ctx context.Context, collection, writeID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if w, ok := q.entries[collection][writeID]; ok {
		w.Synced = true
	}
	return nil
}

func (q *memoryQueue) Depth(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var depth int64
	for _, byID := range q.entries {
		for _, w := range byID {
			if !w.Synced {
				depth++
			}
		}
	}
	return depth, nil
}

// memoryStore is an in-memory DocumentStore for gateway and sync tests.
type memoryStore struct {
	mu          sync.Mutex
	docs        map[string]map[string]map[string]any
	failing     bool
	failingColl map[string]bool

	inserts int
	updates int
	deletes int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		docs:        make(map[string]map[string]map[string]any),
		failingColl: make(map[string]bool),
	}
}

func (s *memoryStore) Insert(ctx context.Context, collection string, doc map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing || s.failingColl[collection] {
		return domain.ErrStoreOffline
	}
	s.inserts++
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]map[string]any)
	}
	id, _ := doc["id"].(string)
	s.docs[collection][id] = doc
	return nil
}

func (s *memoryStore) Update(ctx context.Context, collection, documentID string, patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return domain.ErrStoreOffline
	}
	s.updates++
	doc, ok := s.docs[collection][documentID]
	if !ok {
		return domain.ErrProductNotFound
	}
	for k, v := range patch {
		doc[k] = v
	}
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, collection, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return domain.ErrStoreOffline
	}
	s.deletes++
	delete(s.docs[collection], documentID)
	return nil
}

func (s *memoryStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return domain.ErrStoreOffline
	}
	return nil
}

func (s *memoryStore) setFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

func (s *memoryStore) setCollectionFailing(collection string, failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failingColl[collection] = failing
}

func (s *memoryStore) onlyDoc(collection string) (string, map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.docs[collection]) != 1 {
		return "", nil, false
	}
	for id, doc := range s.docs[collection] {
		return id, doc, true
	}
	return "", nil, false
}

func (s *memoryStore) get(collection, id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[collection][id]
	return doc, ok
}
