package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jaspervborcena/tovrika-sub001/internal/domain"
	"github.com/jaspervborcena/tovrika-sub001/pkg/logging"
	sharedmongo "github.com/jaspervborcena/tovrika-sub001/pkg/mongodb"
)

const ledgerCollection = "ledgerEntries"

// LedgerRepository persists the per-day accounting rollups. The upsert is
// a single atomic findAndModify keyed by (companyId, storeId, eventType,
// day), so concurrent events for the same key never lose an update.
type LedgerRepository struct {
	collection *mongo.Collection
	logger     *logging.Logger
}

// NewLedgerRepository creates the repository and ensures its indexes.
func NewLedgerRepository(client *sharedmongo.Client, logger *logging.Logger) *LedgerRepository {
	repo := &LedgerRepository{
		collection: client.Collection(ledgerCollection),
		logger:     logger.WithComponent("ledger-repository"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *LedgerRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "companyId", Value: 1},
				{Key: "storeId", Value: 1},
				{Key: "eventType", Value: 1},
				{Key: "day", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "companyId", Value: 1}, {Key: "storeId", Value: 1}, {Key: "day", Value: 1}}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		r.logger.WithError(err).Warn("Failed to ensure ledger indexes")
	}
}

// UpsertDayEntry folds the event into its day rollup atomically and
// returns the entry after the increment.
func (r *LedgerRepository) UpsertDayEntry(ctx context.Context, event *domain.LedgerEvent) (*domain.LedgerEntry, error) {
	filter := bson.M{
		"companyId": event.CompanyID,
		"storeId":   event.StoreID,
		"eventType": event.EventType,
		"day":       event.Day,
	}

	update := bson.M{
		"$inc": bson.M{
			"runningBalanceAmount":   event.Amount,
			"runningBalanceQty":      event.Quantity,
			"runningBalanceOrderQty": event.Orders,
		},
		"$set": bson.M{
			"amount":        event.Amount,
			"quantity":      event.Quantity,
			"lastReference": event.ReferenceID,
			"updatedAt":     event.OccurredAt,
			"updatedBy":     event.Actor,
		},
		"$setOnInsert": bson.M{
			"_id":       domain.NewDocumentID(),
			"createdAt": event.OccurredAt,
			"createdBy": event.Actor,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	start := time.Now()
	var entry domain.LedgerEntry
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&entry)
	r.logger.DatabaseQuery(ctx, ledgerCollection, "findAndModify", time.Since(start), err == nil, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert %s rollup for %s: %w", event.EventType, event.Day, err)
	}
	return &entry, nil
}

// FindByDay returns the rollup entries for a day, optionally narrowed to
// one event type.
func (r *LedgerRepository) FindByDay(ctx context.Context, companyID, storeID, day string, eventType domain.EventType) ([]*domain.LedgerEntry, error) {
	filter := bson.M{
		"companyId": companyID,
		"storeId":   storeID,
		"day":       day,
	}
	if eventType != "" {
		filter["eventType"] = eventType
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(sharedmongo.SortAscending("eventType")))
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger entries for %s: %w", day, err)
	}
	defer cursor.Close(ctx)

	var entries []*domain.LedgerEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}
	return entries, nil
}

// DeleteDay removes all rollup entries for a day before a repair pass
// re-derives them.
func (r *LedgerRepository) DeleteDay(ctx context.Context, companyID, storeID, day string) error {
	filter := bson.M{
		"companyId": companyID,
		"storeId":   storeID,
		"day":       day,
	}

	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to clear ledger day %s: %w", day, err)
	}
	r.logger.Debug("Ledger day cleared", "day", day, "removed", result.DeletedCount)
	return nil
}
