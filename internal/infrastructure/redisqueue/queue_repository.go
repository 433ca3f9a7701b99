package redisqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jaspervborcena/tovrika-sub001/internal/domain"
	"github.com/jaspervborcena/tovrika-sub001/pkg/logging"
)

const (
	keyPrefix      = "pending:"
	collectionsKey = "pending:collections"
)

// QueueRepository is the durable local pending-write log, backed by
// Redis. Each collection gets one hash keyed by write id; a companion set
// tracks which collections hold entries so a full drain never scans the
// keyspace.
type QueueRepository struct {
	client *redis.Client
	logger *logging.Logger
}

// NewQueueRepository creates a new QueueRepository.
func NewQueueRepository(client *redis.Client, logger *logging.Logger) *QueueRepository {
	return &QueueRepository{
		client: client,
		logger: logger.WithComponent("pending-queue"),
	}
}

func collectionKey(collection string) string {
	return keyPrefix + collection
}

// Enqueue appends a deferred write to the queue.
func (r *QueueRepository) Enqueue(ctx context.Context, write *domain.PendingWrite) error {
	data, err := json.Marshal(write)
	if err != nil {
		return fmt.Errorf("failed to encode pending write %s: %w", write.ID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, collectionKey(write.Collection), write.ID, data)
	pipe.SAdd(ctx, collectionsKey, write.Collection)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to queue write %s: %w", write.ID, err)
	}

	r.logger.Debug("Pending write queued",
		"collection", write.Collection,
		"documentId", write.DocumentID,
		"operation", string(write.Operation))
	return nil
}

// List returns all entries for a collection, including synced ones,
// oldest first.
func (r *QueueRepository) List(ctx context.Context, collection string) ([]*domain.PendingWrite, error) {
	raw, err := r.client.HGetAll(ctx, collectionKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read queue for %s: %w", collection, err)
	}

	writes := make([]*domain.PendingWrite, 0, len(raw))
	for id, data := range raw {
		var write domain.PendingWrite
		if err := json.Unmarshal([]byte(data), &write); err != nil {
			r.logger.WithError(err).Warn("Skipping undecodable queue entry",
				"collection", collection, "writeId", id)
			continue
		}
		writes = append(writes, &write)
	}

	domain.SortPendingWritesOldestFirst(writes)
	return writes, nil
}

// ListUnsynced returns every entry not yet confirmed remotely, across all
// collections, oldest first.
func (r *QueueRepository) ListUnsynced(ctx context.Context) ([]*domain.PendingWrite, error) {
	collections, err := r.client.SMembers(ctx, collectionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read queue collections: %w", err)
	}

	var unsynced []*domain.PendingWrite
	for _, collection := range collections {
		writes, err := r.List(ctx, collection)
		if err != nil {
			return nil, err
		}
		for _, write := range writes {
			if !write.Synced {
				unsynced = append(unsynced, write)
			}
		}
	}

	domain.SortPendingWritesOldestFirst(unsynced)
	return unsynced, nil
}

// Update rewrites a queued entry in place.
func (r *QueueRepository) Update(ctx context.Context, write *domain.PendingWrite) error {
	data, err := json.Marshal(write)
	if err != nil {
		return fmt.Errorf("failed to encode pending write %s: %w", write.ID, err)
	}
	if err := r.client.HSet(ctx, collectionKey(write.Collection), write.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to update queued write %s: %w", write.ID, err)
	}
	return nil
}

// Remove drops an entry from the queue.
func (r *QueueRepository) Remove(ctx context.Context, collection, writeID string) error {
	if err := r.client.HDel(ctx, collectionKey(collection), writeID).Err(); err != nil {
		return fmt.Errorf("failed to remove queued write %s: %w", writeID, err)
	}
	return nil
}

// MarkSynced flags an entry as confirmed by the authoritative store.
func (r *QueueRepository) MarkSynced(ctx context.Context, collection, writeID string) error {
	data, err := r.client.HGet(ctx, collectionKey(collection), writeID).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read queued write %s: %w", writeID, err)
	}

	var write domain.PendingWrite
	if err := json.Unmarshal([]byte(data), &write); err != nil {
		return fmt.Errorf("failed to decode queued write %s: %w", writeID, err)
	}

	write.Synced = true
	return r.Update(ctx, &write)
}

// Depth returns the number of unsynced entries across all collections.
func (r *QueueRepository) Depth(ctx context.Context) (int64, error) {
	writes, err := r.ListUnsynced(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(writes)), nil
}
