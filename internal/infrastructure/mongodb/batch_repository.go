package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jaspervborcena/tovrika-sub001/internal/domain"
	"github.com/jaspervborcena/tovrika-sub001/pkg/logging"
	sharedmongo "github.com/jaspervborcena/tovrika-sub001/pkg/mongodb"
)

const (
	batchCollection   = "inventoryBatches"
	productCollection = "products"
)

// fallbackQueryTimeout bounds the unordered retry when the sorted query
// is rejected for a missing index.
const fallbackQueryTimeout = 5 * time.Second

// BatchRepository persists inventory batches. Batch creation commits the
// insert and the incremental product stock adjustment in one transaction.
type BatchRepository struct {
	client   *sharedmongo.Client
	batches  *mongo.Collection
	products *mongo.Collection
	logger   *logging.Logger
}

// NewBatchRepository creates the repository and ensures its indexes.
func NewBatchRepository(client *sharedmongo.Client, logger *logging.Logger) *BatchRepository {
	repo := &BatchRepository{
		client:   client,
		batches:  client.Collection(batchCollection),
		products: client.Collection(productCollection),
		logger:   logger.WithComponent("batch-repository"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *BatchRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "batchId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "productId", Value: 1}, {Key: "status", Value: 1}, {Key: "receivedAt", Value: -1}}},
		{Keys: bson.D{{Key: "companyId", Value: 1}, {Key: "storeId", Value: 1}}},
	}
	if _, err := r.batches.Indexes().CreateMany(ctx, indexes); err != nil {
		r.logger.WithError(err).Warn("Failed to ensure batch indexes, queries fall back to in-memory sort")
	}
}

// Create inserts the batch and applies totalStock += quantity to the
// product in the same transaction. The authoritative summary values are
// restored asynchronously by the recompute.
func (r *BatchRepository) Create(ctx context.Context, batch *domain.InventoryBatch) error {
	start := time.Now()
	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := r.batches.InsertOne(sessCtx, batch); err != nil {
			return fmt.Errorf("failed to insert batch %s: %w", batch.BatchID, err)
		}

		update := bson.M{
			"$inc": bson.M{"totalStock": batch.Quantity},
			"$set": bson.M{"lastUpdated": sharedmongo.Now()},
		}
		if _, err := r.products.UpdateOne(sessCtx, bson.M{"productId": batch.ProductID}, update); err != nil {
			return fmt.Errorf("failed to adjust product stock for %s: %w", batch.ProductID, err)
		}
		return nil
	})

	r.logger.DatabaseQuery(ctx, batchCollection, "insert", time.Since(start), err == nil, 1)
	return err
}

// FindByID returns the batch or nil when it does not exist.
func (r *BatchRepository) FindByID(ctx context.Context, productID, batchID string) (*domain.InventoryBatch, error) {
	var batch domain.InventoryBatch
	filter := bson.M{"productId": productID, "batchId": batchID}

	err := r.batches.FindOne(ctx, filter).Decode(&batch)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find batch %s: %w", batchID, err)
	}
	return &batch, nil
}

// Update replaces the mutable fields of an existing batch.
func (r *BatchRepository) Update(ctx context.Context, batch *domain.InventoryBatch) error {
	filter := bson.M{"productId": batch.ProductID, "batchId": batch.BatchID}
	update := sharedmongo.BuildUpdate(bson.M{
		"quantity":      batch.Quantity,
		"unitPrice":     batch.UnitPrice,
		"costPrice":     batch.CostPrice,
		"sellingPrice":  batch.SellingPrice,
		"receivedAt":    batch.ReceivedAt,
		"expiryDate":    batch.ExpiryDate,
		"status":        batch.Status,
		"vatRate":       batch.VATRate,
		"hasDiscount":   batch.HasDiscount,
		"discountType":  batch.DiscountType,
		"discountValue": batch.DiscountValue,
		"totalDeducted": batch.TotalDeducted,
		"updatedAt":     batch.UpdatedAt,
	})

	start := time.Now()
	result, err := r.batches.UpdateOne(ctx, filter, update)
	r.logger.DatabaseQuery(ctx, batchCollection, "update", time.Since(start), err == nil, 1)
	if err != nil {
		return fmt.Errorf("failed to update batch %s: %w", batch.BatchID, err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrBatchNotFound
	}
	return nil
}

// FindActiveByProduct returns the active batches for a product, newest
// received first. A failed sorted query falls back to an unordered fetch
// with an in-memory sort before giving up.
func (r *BatchRepository) FindActiveByProduct(ctx context.Context, productID string) ([]*domain.InventoryBatch, error) {
	filter := bson.M{
		"productId": productID,
		"status":    domain.BatchStatusActive,
		"quantity":  bson.M{"$gt": 0},
	}

	batches, err := r.findBatches(ctx, filter, options.Find().SetSort(sharedmongo.SortDescending("receivedAt")))
	if err == nil {
		return batches, nil
	}

	r.logger.WithError(err).Warn("Sorted batch query failed, retrying unordered",
		"productId", productID)

	fallbackCtx, cancel := context.WithTimeout(ctx, fallbackQueryTimeout)
	defer cancel()

	batches, err = r.findBatches(fallbackCtx, filter, options.Find())
	if err != nil {
		return nil, fmt.Errorf("failed to load active batches for %s: %w", productID, err)
	}

	domain.SortBatchesNewestFirst(batches)
	return batches, nil
}

func (r *BatchRepository) findBatches(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.InventoryBatch, error) {
	cursor, err := r.batches.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var batches []*domain.InventoryBatch
	if err := cursor.All(ctx, &batches); err != nil {
		return nil, err
	}
	return batches, nil
}
