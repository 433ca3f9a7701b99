package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jaspervborcena/tovrika-sub001/internal/domain"
	"github.com/jaspervborcena/tovrika-sub001/pkg/logging"
	sharedmongo "github.com/jaspervborcena/tovrika-sub001/pkg/mongodb"
)

const orderCollection = "orderTracking"

// OrderRepository reads the order tracking records that are the source of
// truth for ledger repair.
type OrderRepository struct {
	collection *mongo.Collection
	logger     *logging.Logger
}

// NewOrderRepository creates the repository.
func NewOrderRepository(client *sharedmongo.Client, logger *logging.Logger) *OrderRepository {
	return &OrderRepository{
		collection: client.Collection(orderCollection),
		logger:     logger.WithComponent("order-repository"),
	}
}

// SumStatusEventsByDay aggregates amount, quantity and order count per
// status for status changes inside [dayStart, dayEnd). Statuses that do
// not map to a ledger event type are skipped.
func (r *OrderRepository) SumStatusEventsByDay(ctx context.Context, companyID, storeID string, dayStart, dayEnd time.Time) (map[domain.EventType]domain.EventTotals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"companyId":       companyID,
			"storeId":         storeID,
			"statusChangedAt": bson.M{"$gte": dayStart, "$lt": dayEnd},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":      "$status",
			"amount":   bson.M{"$sum": "$totalAmount"},
			"quantity": bson.M{"$sum": "$itemCount"},
			"orders":   bson.M{"$sum": 1},
		}}},
	}

	start := time.Now()
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	r.logger.DatabaseQuery(ctx, orderCollection, "aggregate", time.Since(start), err == nil, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate order events: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status   string  `bson:"_id"`
		Amount   float64 `bson:"amount"`
		Quantity float64 `bson:"quantity"`
		Orders   int64   `bson:"orders"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode order aggregation: %w", err)
	}

	totals := make(map[domain.EventType]domain.EventTotals, len(rows))
	for _, row := range rows {
		eventType, err := domain.ParseEventType(row.Status)
		if err != nil {
			continue
		}
		orders := row.Orders
		if !eventType.CountsOrders() {
			orders = 0
		}
		totals[eventType] = domain.EventTotals{
			Amount:   row.Amount,
			Quantity: row.Quantity,
			Orders:   orders,
		}
	}
	return totals, nil
}
