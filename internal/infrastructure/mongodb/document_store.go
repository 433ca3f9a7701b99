package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/jaspervborcena/tovrika-sub001/pkg/logging"
	sharedmongo "github.com/jaspervborcena/tovrika-sub001/pkg/mongodb"
)

// DocumentStore is the generic write surface the offline gateway and the
// sync driver replay against. Documents are addressed by their
// application-assigned id, stored as the Mongo _id.
type DocumentStore struct {
	client *sharedmongo.Client
	logger *logging.Logger
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(client *sharedmongo.Client, logger *logging.Logger) *DocumentStore {
	return &DocumentStore{
		client: client,
		logger: logger.WithComponent("document-store"),
	}
}

// Insert writes a document under its pre-assigned id.
func (s *DocumentStore) Insert(ctx context.Context, collection string, doc map[string]any) error {
	id, _ := doc["id"].(string)
	if id == "" {
		return fmt.Errorf("document for %s has no id", collection)
	}

	stored := make(bson.M, len(doc)+1)
	for k, v := range doc {
		stored[k] = v
	}
	stored["_id"] = id

	start := time.Now()
	_, err := s.client.Collection(collection).InsertOne(ctx, stored)
	s.logger.DatabaseQuery(ctx, collection, "insert", time.Since(start), err == nil, 1)
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return nil
}

// Update patches a document by id.
func (s *DocumentStore) Update(ctx context.Context, collection, documentID string, patch map[string]any) error {
	set := make(bson.M, len(patch))
	for k, v := range patch {
		if k == "id" || k == "_id" {
			continue
		}
		set[k] = v
	}

	start := time.Now()
	result, err := s.client.Collection(collection).UpdateOne(ctx, bson.M{"_id": documentID}, bson.M{"$set": set})
	s.logger.DatabaseQuery(ctx, collection, "update", time.Since(start), err == nil, 1)
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, documentID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("document %s/%s not found", collection, documentID)
	}
	return nil
}

// Delete removes a document by id. Deleting an absent document is not an
// error: the replay may run after the document was removed another way.
func (s *DocumentStore) Delete(ctx context.Context, collection, documentID string) error {
	start := time.Now()
	_, err := s.client.Collection(collection).DeleteOne(ctx, bson.M{"_id": documentID})
	s.logger.DatabaseQuery(ctx, collection, "delete", time.Since(start), err == nil, 1)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, documentID, err)
	}
	return nil
}

// Ping reports whether the store is reachable.
func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.client.HealthCheck(ctx)
}
