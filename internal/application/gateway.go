package application

import (
	"context"
	"fmt"

	"github.com/jaspervborcena/tovrika-sub001/internal/domain"
	"github.com/jaspervborcena/tovrika-sub001/pkg/errors"
	"github.com/jaspervborcena/tovrika-sub001/pkg/logging"
	"github.com/jaspervborcena/tovrika-sub001/pkg/metrics"
)

// DocumentGateway is the offline-capable write surface over the
// authoritative store. Identity is assigned locally before any network
// round trip, so callers never block on sync: online writes go straight
// to the store, offline writes land in the durable pending queue.
type DocumentGateway struct {
	store        domain.DocumentStore
	queue        domain.PendingWriteQueue
	connectivity ConnectivitySignal
	logger       *logging.Logger
	metrics      *metrics.Metrics
}

// NewDocumentGateway creates a new DocumentGateway.
func NewDocumentGateway(
	store domain.DocumentStore,
	queue domain.PendingWriteQueue,
	connectivity ConnectivitySignal,
	logger *logging.Logger,
	m *metrics.Metrics,
) *DocumentGateway {
	return &DocumentGateway{
		store:        store,
		queue:        queue,
		connectivity: connectivity,
		logger:       logger.WithComponent("document-gateway"),
		metrics:      m,
	}
}

// Create writes a document and returns its identifier immediately. While
// online the id is remote-compatible and the write is attempted
// synchronously; offline (or when the direct write fails) a temp_ id is
// assigned and the write is queued.
func (g *DocumentGateway) Create(ctx context.Context, collection string, doc map[string]any) (string, error) {
	if collection == "" {
		return "", errors.ErrValidation("collection is required")
	}
	if doc == nil {
		doc = map[string]any{}
	}

	id, _ := doc["id"].(string)
	online := g.connectivity.Online()

	if id == "" {
		if online {
			id = domain.NewDocumentID()
		} else {
			id = domain.NewTempID()
		}
		doc["id"] = id
	}

	if online && !domain.IsTempID(id) {
		if err := g.store.Insert(ctx, collection, doc); err == nil {
			return id, nil
		} else {
			g.logger.WithError(err).Warn("Direct write failed, deferring to queue",
				"collection", collection, "id", id)
		}
	}

	write := domain.NewPendingWrite(collection, domain.OpCreate, id, doc)
	if err := g.queue.Enqueue(ctx, write); err != nil {
		return "", fmt.Errorf("failed to queue create for %s: %w", collection, err)
	}
	g.trackDepth(ctx)

	return id, nil
}

// Update patches a document. Updates targeting a still-queued create are
// merged into the queued payload instead of being issued remotely.
func (g *DocumentGateway) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	if collection == "" || id == "" {
		return errors.ErrValidation("collection and document id are required")
	}

	merged, err := g.mergeIntoQueued(ctx, collection, id, patch)
	if err != nil {
		return err
	}
	if merged {
		return nil
	}

	if g.connectivity.Online() && !domain.IsTempID(id) {
		if err := g.store.Update(ctx, collection, id, patch); err == nil {
			return nil
		} else {
			g.logger.WithError(err).Warn("Direct update failed, deferring to queue",
				"collection", collection, "id", id)
		}
	}

	write := domain.NewPendingWrite(collection, domain.OpUpdate, id, patch)
	if err := g.queue.Enqueue(ctx, write); err != nil {
		return fmt.Errorf("failed to queue update for %s/%s: %w", collection, id, err)
	}
	g.trackDepth(ctx)
	return nil
}

// Delete removes a document. A delete targeting a still-queued create
// simply drops the queued entry and never reaches the remote store.
func (g *DocumentGateway) Delete(ctx context.Context, collection, id string) error {
	if collection == "" || id == "" {
		return errors.ErrValidation("collection and document id are required")
	}

	pending, err := g.queue.List(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to inspect queue for %s: %w", collection, err)
	}
	for _, write := range pending {
		if write.DocumentID == id && write.Operation == domain.OpCreate && !write.Synced {
			if err := g.queue.Remove(ctx, collection, write.ID); err != nil {
				return fmt.Errorf("failed to drop queued create %s: %w", write.ID, err)
			}
			g.trackDepth(ctx)
			return nil
		}
	}

	if g.connectivity.Online() && !domain.IsTempID(id) {
		if err := g.store.Delete(ctx, collection, id); err == nil {
			return nil
		} else {
			g.logger.WithError(err).Warn("Direct delete failed, deferring to queue",
				"collection", collection, "id", id)
		}
	}

	write := domain.NewPendingWrite(collection, domain.OpDelete, id, nil)
	if err := g.queue.Enqueue(ctx, write); err != nil {
		return fmt.Errorf("failed to queue delete for %s/%s: %w", collection, id, err)
	}
	g.trackDepth(ctx)
	return nil
}

// GetPendingDocuments returns the unsynced queue entries for a
// collection, oldest first.
func (g *DocumentGateway) GetPendingDocuments(ctx context.Context, collection string) ([]*domain.PendingWrite, error) {
	entries, err := g.queue.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue for %s: %w", collection, err)
	}

	pending := make([]*domain.PendingWrite, 0, len(entries))
	for _, write := range entries {
		if !write.Synced {
			pending = append(pending, write)
		}
	}
	domain.SortPendingWritesOldestFirst(pending)
	return pending, nil
}

func (g *DocumentGateway) mergeIntoQueued(ctx context.Context, collection, id string, patch map[string]any) (bool, error) {
	pending, err := g.queue.List(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("failed to inspect queue for %s: %w", collection, err)
	}

	for _, write := range pending {
		if write.DocumentID != id || write.Synced {
			continue
		}
		if write.Operation != domain.OpCreate && write.Operation != domain.OpUpdate {
			continue
		}

		if write.Payload == nil {
			write.Payload = map[string]any{}
		}
		for k, v := range patch {
			if k == "id" {
				continue
			}
			write.Payload[k] = v
		}
		if err := g.queue.Update(ctx, write); err != nil {
			return false, fmt.Errorf("failed to merge into queued write %s: %w", write.ID, err)
		}
		return true, nil
	}
	return false, nil
}

func (g *DocumentGateway) trackDepth(ctx context.Context) {
	depth, err := g.queue.Depth(ctx)
	if err != nil {
		return
	}
	g.metrics.SetPendingWrites(int(depth))
}
