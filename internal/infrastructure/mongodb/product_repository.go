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

// ProductRepository persists product summaries.
type ProductRepository struct {
	collection *mongo.Collection
	logger     *logging.Logger
}

// NewProductRepository creates the repository and ensures its indexes.
func NewProductRepository(client *sharedmongo.Client, logger *logging.Logger) *ProductRepository {
	repo := &ProductRepository{
		collection: client.Collection(productCollection),
		logger:     logger.WithComponent("product-repository"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *ProductRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "productId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "companyId", Value: 1}, {Key: "productId", Value: 1}}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		r.logger.WithError(err).Warn("Failed to ensure product indexes")
	}
}

// FindByID returns the product summary or nil when it does not exist.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (*domain.ProductSummary, error) {
	var product domain.ProductSummary

	err := r.collection.FindOne(ctx, bson.M{"productId": productID}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product %s: %w", productID, err)
	}
	return &product, nil
}

// UpdateDerived writes the batch-derived summary fields.
func (r *ProductRepository) UpdateDerived(ctx context.Context, productID string, derived domain.DerivedSummary, updatedAt time.Time) error {
	update := sharedmongo.BuildUpdate(bson.M{
		"totalStock":    derived.TotalStock,
		"sellingPrice":  derived.SellingPrice,
		"originalPrice": derived.OriginalPrice,
		"hasDiscount":   derived.HasDiscount,
		"discountType":  derived.DiscountType,
		"discountValue": derived.DiscountValue,
		"lastUpdated":   updatedAt,
	})

	start := time.Now()
	result, err := r.collection.UpdateOne(ctx, bson.M{"productId": productID}, update)
	r.logger.DatabaseQuery(ctx, productCollection, "update", time.Since(start), err == nil, 1)
	if err != nil {
		return fmt.Errorf("failed to write summary for %s: %w", productID, err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// UpdateDiscount writes only the discount metadata, leaving stock and
// prices untouched for manually stocked products.
func (r *ProductRepository) UpdateDiscount(ctx context.Context, productID string, hasDiscount bool, discountType domain.DiscountType, discountValue float64, updatedAt time.Time) error {
	update := sharedmongo.BuildUpdate(bson.M{
		"hasDiscount":   hasDiscount,
		"discountType":  discountType,
		"discountValue": discountValue,
		"lastUpdated":   updatedAt,
	})

	result, err := r.collection.UpdateOne(ctx, bson.M{"productId": productID}, update)
	if err != nil {
		return fmt.Errorf("failed to sync discount for %s: %w", productID, err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// ListByCompany pages product summaries for a company ordered by product
// id, starting after the given id.
func (r *ProductRepository) ListByCompany(ctx context.Context, companyID, afterProductID string, limit int) ([]*domain.ProductSummary, error) {
	filter := bson.M{"companyId": companyID}
	if afterProductID != "" {
		filter["productId"] = bson.M{"$gt": afterProductID}
	}

	opts := options.Find().
		SetSort(sharedmongo.SortAscending("productId")).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to page products for %s: %w", companyID, err)
	}
	defer cursor.Close(ctx)

	var products []*domain.ProductSummary
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode product page: %w", err)
	}
	return products, nil
}
