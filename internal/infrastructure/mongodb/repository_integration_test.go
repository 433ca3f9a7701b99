package mongodb

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/jaspervborcena/tovrika-sub001/internal/domain"
	"github.com/jaspervborcena/tovrika-sub001/pkg/logging"
	sharedmongo "github.com/jaspervborcena/tovrika-sub001/pkg/mongodb"
)

type RepositoryIntegrationTestSuite struct {
	suite.Suite
	mongoContainer *mongodb.MongoDBContainer
	client         *sharedmongo.Client
	batchRepo      *BatchRepository
	productRepo    *ProductRepository
	ledgerRepo     *LedgerRepository
	orderRepo      *OrderRepository
	store          *DocumentStore
	ctx            context.Context
}

func (s *RepositoryIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	// Start MongoDB container with replica set enabled so the
	// batch-create transaction has a session to run in
	container, err := mongodb.Run(s.ctx, "mongo:6",
		mongodb.WithReplicaSet("rs"),
	)
	s.Require().NoError(err)
	s.mongoContainer = container

	connStr, err := container.ConnectionString(s.ctx)
	s.Require().NoError(err)
	if !strings.Contains(connStr, "directConnection") {
		if strings.Contains(connStr, "?") {
			connStr += "&directConnection=true"
		} else {
			connStr += "?directConnection=true"
		}
	}

	client, err := sharedmongo.NewClient(s.ctx, &sharedmongo.Config{
		URI:            connStr,
		Database:       "tovrika_test",
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    10,
		MinPoolSize:    1,
	})
	s.Require().NoError(err)
	s.client = client

	logConfig := logging.DefaultConfig("tovrika-test")
	logConfig.Level = logging.LevelError
	logger := logging.New(logConfig)

	s.batchRepo = NewBatchRepository(client, logger)
	s.productRepo = NewProductRepository(client, logger)
	s.ledgerRepo = NewLedgerRepository(client, logger)
	s.orderRepo = NewOrderRepository(client, logger)
	s.store = NewDocumentStore(client, logger)
}

func (s *RepositoryIntegrationTestSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close(s.ctx)
	}
	if s.mongoContainer != nil {
		s.Require().NoError(s.mongoContainer.Terminate(s.ctx))
	}
}

func (s *RepositoryIntegrationTestSuite) TearDownTest() {
	db := s.client.Database()
	db.Collection(batchCollection).DeleteMany(s.ctx, map[string]interface{}{})
	db.Collection(productCollection).DeleteMany(s.ctx, map[string]interface{}{})
	db.Collection(ledgerCollection).DeleteMany(s.ctx, map[string]interface{}{})
	db.Collection(orderCollection).DeleteMany(s.ctx, map[string]interface{}{})
	db.Collection("customers").DeleteMany(s.ctx, map[string]interface{}{})
}

func TestRepositoryIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	suite.Run(t, new(RepositoryIntegrationTestSuite))
}

// Helpers

func (s *RepositoryIntegrationTestSuite) seedProduct(productID string, totalStock float64) {
	_, err := s.client.Collection(productCollection).InsertOne(s.ctx, &domain.ProductSummary{
		ProductID:      productID,
		CompanyID:      "comp-1",
		StoreID:        "store-1",
		Name:           "Test Product",
		TotalStock:     totalStock,
		IsStockTracked: true,
		LastUpdated:    time.Now(),
	})
	s.Require().NoError(err)
}

func (s *RepositoryIntegrationTestSuite) newBatch(productID string, qty, unitPrice float64, receivedAt time.Time) *domain.InventoryBatch {
	batch, err := domain.NewInventoryBatch(productID, "comp-1", "store-1", "user-1", domain.NewBatchInput{
		Quantity:   qty,
		UnitPrice:  unitPrice,
		VATRate:    12,
		ReceivedAt: receivedAt,
	})
	s.Require().NoError(err)
	return batch
}

// BatchRepository

func (s *RepositoryIntegrationTestSuite) TestBatchCreate_IncrementsProductStock() {
	s.seedProduct("prod-1", 10)
	batch := s.newBatch("prod-1", 25, 50, time.Now())

	err := s.batchRepo.Create(s.ctx, batch)
	s.Require().NoError(err)

	found, err := s.batchRepo.FindByID(s.ctx, "prod-1", batch.BatchID)
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal(batch.BatchID, found.BatchID)
	s.Equal(25.0, found.Quantity)

	product, err := s.productRepo.FindByID(s.ctx, "prod-1")
	s.Require().NoError(err)
	s.Require().NotNil(product)
	s.Equal(35.0, product.TotalStock)
}

func (s *RepositoryIntegrationTestSuite) TestBatchFindByID_NotFound() {
	found, err := s.batchRepo.FindByID(s.ctx, "prod-1", "missing-batch")
	s.Require().NoError(err)
	s.Nil(found)
}

func (s *RepositoryIntegrationTestSuite) TestBatchUpdate() {
	s.seedProduct("prod-1", 0)
	batch := s.newBatch("prod-1", 40, 50, time.Now())
	s.Require().NoError(s.batchRepo.Create(s.ctx, batch))

	batch.Quantity = 30
	batch.Status = domain.BatchStatusRemoved
	err := s.batchRepo.Update(s.ctx, batch)
	s.Require().NoError(err)

	found, err := s.batchRepo.FindByID(s.ctx, "prod-1", batch.BatchID)
	s.Require().NoError(err)
	s.Equal(30.0, found.Quantity)
	s.Equal(domain.BatchStatusRemoved, found.Status)
}

func (s *RepositoryIntegrationTestSuite) TestBatchUpdate_NotFound() {
	batch := s.newBatch("prod-1", 10, 5, time.Now())
	err := s.batchRepo.Update(s.ctx, batch)
	s.ErrorIs(err, domain.ErrBatchNotFound)
}

func (s *RepositoryIntegrationTestSuite) TestFindActiveByProduct_NewestFirstAndExcludesRemoved() {
	s.seedProduct("prod-1", 0)
	base := time.Now().Truncate(time.Millisecond)

	old := s.newBatch("prod-1", 10, 40, base.Add(-48*time.Hour))
	mid := s.newBatch("prod-1", 20, 45, base.Add(-24*time.Hour))
	newest := s.newBatch("prod-1", 30, 50, base)
	removed := s.newBatch("prod-1", 5, 60, base.Add(time.Hour))
	removed.Status = domain.BatchStatusRemoved

	for _, b := range []*domain.InventoryBatch{old, mid, newest, removed} {
		s.Require().NoError(s.batchRepo.Create(s.ctx, b))
	}

	active, err := s.batchRepo.FindActiveByProduct(s.ctx, "prod-1")
	s.Require().NoError(err)
	s.Require().Len(active, 3)
	s.Equal(newest.BatchID, active[0].BatchID)
	s.Equal(mid.BatchID, active[1].BatchID)
	s.Equal(old.BatchID, active[2].BatchID)
}

// ProductRepository

func (s *RepositoryIntegrationTestSuite) TestUpdateDerived() {
	s.seedProduct("prod-1", 0)

	err := s.productRepo.UpdateDerived(s.ctx, "prod-1", domain.DerivedSummary{
		TotalStock:    125,
		SellingPrice:  22.5,
		OriginalPrice: 20.09,
	}, time.Now())
	s.Require().NoError(err)

	product, err := s.productRepo.FindByID(s.ctx, "prod-1")
	s.Require().NoError(err)
	s.Equal(125.0, product.TotalStock)
	s.Equal(22.5, product.SellingPrice)
	s.Equal(20.09, product.OriginalPrice)
}

func (s *RepositoryIntegrationTestSuite) TestUpdateDerived_ProductMissing() {
	err := s.productRepo.UpdateDerived(s.ctx, "no-such-product", domain.DerivedSummary{}, time.Now())
	s.ErrorIs(err, domain.ErrProductNotFound)
}

func (s *RepositoryIntegrationTestSuite) TestListByCompany_Pagination() {
	for _, id := range []string{"prod-a", "prod-b", "prod-c"} {
		s.seedProduct(id, 0)
	}

	page1, err := s.productRepo.ListByCompany(s.ctx, "comp-1", "", 2)
	s.Require().NoError(err)
	s.Require().Len(page1, 2)
	s.Equal("prod-a", page1[0].ProductID)
	s.Equal("prod-b", page1[1].ProductID)

	page2, err := s.productRepo.ListByCompany(s.ctx, "comp-1", page1[1].ProductID, 2)
	s.Require().NoError(err)
	s.Require().Len(page2, 1)
	s.Equal("prod-c", page2[0].ProductID)
}

// LedgerRepository

func (s *RepositoryIntegrationTestSuite) TestUpsertDayEntry_AccumulatesRunningBalances() {
	event := &domain.LedgerEvent{
		CompanyID:   "comp-1",
		StoreID:     "store-1",
		EventType:   domain.EventCompleted,
		ReferenceID: "order-1",
		Day:         "2026-08-31",
		Amount:      100,
		Quantity:    2,
		Orders:      1,
		Actor:       "user-1",
		OccurredAt:  time.Now(),
	}

	first, err := s.ledgerRepo.UpsertDayEntry(s.ctx, event)
	s.Require().NoError(err)
	s.Equal(100.0, first.RunningBalanceAmount)
	s.Equal(int64(1), first.RunningBalanceOrderQty)

	event.ReferenceID = "order-2"
	event.Amount = 50
	event.Quantity = 1
	second, err := s.ledgerRepo.UpsertDayEntry(s.ctx, event)
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID, "same day and event type should reuse the entry")
	s.Equal(150.0, second.RunningBalanceAmount)
	s.Equal(3.0, second.RunningBalanceQty)
	s.Equal(int64(2), second.RunningBalanceOrderQty)
	s.Equal("order-2", second.LastReference)

	entries, err := s.ledgerRepo.FindByDay(s.ctx, "comp-1", "store-1", "2026-08-31", "")
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *RepositoryIntegrationTestSuite) TestFindByDay_FiltersEventType() {
	for _, et := range []domain.EventType{domain.EventCompleted, domain.EventReturned} {
		_, err := s.ledgerRepo.UpsertDayEntry(s.ctx, &domain.LedgerEvent{
			CompanyID:   "comp-1",
			StoreID:     "store-1",
			EventType:   et,
			ReferenceID: "order-1",
			Day:         "2026-08-31",
			Amount:      10,
			Actor:       "user-1",
			OccurredAt:  time.Now(),
		})
		s.Require().NoError(err)
	}

	all, err := s.ledgerRepo.FindByDay(s.ctx, "comp-1", "store-1", "2026-08-31", "")
	s.Require().NoError(err)
	s.Len(all, 2)

	completed, err := s.ledgerRepo.FindByDay(s.ctx, "comp-1", "store-1", "2026-08-31", domain.EventCompleted)
	s.Require().NoError(err)
	s.Require().Len(completed, 1)
	s.Equal(domain.EventCompleted, completed[0].EventType)
}

func (s *RepositoryIntegrationTestSuite) TestDeleteDay() {
	_, err := s.ledgerRepo.UpsertDayEntry(s.ctx, &domain.LedgerEvent{
		CompanyID:   "comp-1",
		StoreID:     "store-1",
		EventType:   domain.EventCompleted,
		ReferenceID: "order-1",
		Day:         "2026-08-31",
		Amount:      10,
		Actor:       "user-1",
		OccurredAt:  time.Now(),
	})
	s.Require().NoError(err)

	s.Require().NoError(s.ledgerRepo.DeleteDay(s.ctx, "comp-1", "store-1", "2026-08-31"))

	entries, err := s.ledgerRepo.FindByDay(s.ctx, "comp-1", "store-1", "2026-08-31", "")
	s.Require().NoError(err)
	s.Empty(entries)
}

// OrderRepository

func (s *RepositoryIntegrationTestSuite) TestSumStatusEventsByDay() {
	dayStart := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	orders := []map[string]interface{}{
		{"companyId": "comp-1", "storeId": "store-1", "status": "completed", "totalAmount": 100.0, "itemCount": 2.0, "statusChangedAt": dayStart.Add(time.Hour)},
		{"companyId": "comp-1", "storeId": "store-1", "status": "completed", "totalAmount": 50.0, "itemCount": 1.0, "statusChangedAt": dayStart.Add(2 * time.Hour)},
		{"companyId": "comp-1", "storeId": "store-1", "status": "returned", "totalAmount": 30.0, "itemCount": 1.0, "statusChangedAt": dayStart.Add(3 * time.Hour)},
		// Outside the window
		{"companyId": "comp-1", "storeId": "store-1", "status": "completed", "totalAmount": 999.0, "itemCount": 9.0, "statusChangedAt": dayEnd.Add(time.Hour)},
		// Different store
		{"companyId": "comp-1", "storeId": "store-2", "status": "completed", "totalAmount": 500.0, "itemCount": 5.0, "statusChangedAt": dayStart.Add(time.Hour)},
	}
	for _, o := range orders {
		_, err := s.client.Collection(orderCollection).InsertOne(s.ctx, o)
		s.Require().NoError(err)
	}

	totals, err := s.orderRepo.SumStatusEventsByDay(s.ctx, "comp-1", "store-1", dayStart, dayEnd)
	s.Require().NoError(err)
	s.Require().Len(totals, 2)

	s.Equal(150.0, totals[domain.EventCompleted].Amount)
	s.Equal(3.0, totals[domain.EventCompleted].Quantity)
	s.Equal(int64(2), totals[domain.EventCompleted].Orders)

	s.Equal(30.0, totals[domain.EventReturned].Amount)
	s.Equal(int64(0), totals[domain.EventReturned].Orders, "only completed orders are counted")
}

// DocumentStore

func (s *RepositoryIntegrationTestSuite) TestDocumentStoreRoundTrip() {
	id := domain.NewDocumentID()
	err := s.store.Insert(s.ctx, "customers", map[string]any{
		"id":   id,
		"name": "Maria",
	})
	s.Require().NoError(err)

	err = s.store.Update(s.ctx, "customers", id, map[string]any{"name": "Maria Clara"})
	s.Require().NoError(err)

	var doc map[string]interface{}
	err = s.client.Collection("customers").FindOne(s.ctx, map[string]interface{}{"_id": id}).Decode(&doc)
	s.Require().NoError(err)
	s.Equal("Maria Clara", doc["name"])

	s.Require().NoError(s.store.Delete(s.ctx, "customers", id))

	// Deleting an already removed document is not an error
	s.Require().NoError(s.store.Delete(s.ctx, "customers", id))
}

func (s *RepositoryIntegrationTestSuite) TestDocumentStoreUpdate_Missing() {
	err := s.store.Update(s.ctx, "customers", "no-such-doc", map[string]any{"name": "x"})
	s.Error(err)
}

func (s *RepositoryIntegrationTestSuite) TestPing() {
	s.Require().NoError(s.store.Ping(s.ctx))
}
