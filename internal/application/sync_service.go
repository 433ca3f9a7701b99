package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/jaspervborcena/tovrika-sub001/internal/domain"
	"github.com/jaspervborcena/tovrika-sub001/pkg/logging"
	"github.com/jaspervborcena/tovrika-sub001/pkg/metrics"
)

// SyncResult reports the outcome of one queue drain.
type SyncResult struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// SyncService drains the pending write queue against the authoritative
// store. Each entry is replayed independently: one failing entry stays
// queued and counted without blocking the rest. Documents created offline
// under temp_ ids receive real ids during the run, and a run-scoped
// temp-to-real map rewrites references held by later entries.
type SyncService struct {
	queue   domain.PendingWriteQueue
	store   domain.DocumentStore
	logger  *logging.Logger
	metrics *metrics.Metrics

	mu sync.Mutex
}

// NewSyncService creates a new SyncService.
func NewSyncService(
	queue domain.PendingWriteQueue,
	store domain.DocumentStore,
	logger *logging.Logger,
	m *metrics.Metrics,
) *SyncService {
	return &SyncService{
		queue:   queue,
		store:   store,
		logger:  logger.WithComponent("sync-service"),
		metrics: m,
	}
}

// Sync replays all unsynced entries oldest first. Safe to invoke
// concurrently with new writes; runs themselves are serialized.
func (s *SyncService) Sync(ctx context.Context) (*SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.queue.ListUnsynced(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending writes: %w", err)
	}
	domain.SortPendingWritesOldestFirst(entries)

	result := &SyncResult{}
	idMap := make(map[string]string)

	for _, write := range entries {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if err := s.replay(ctx, write, idMap); err != nil {
			write.Attempts++
			write.LastError = err.Error()
			if updateErr := s.queue.Update(ctx, write); updateErr != nil {
				s.logger.WithError(updateErr).Error("Failed to record replay failure", "writeId", write.ID)
			}
			result.Failed++
			s.metrics.RecordSyncReplay("failed")
			s.logger.WithError(err).Warn("Pending write replay failed",
				"collection", write.Collection,
				"documentId", write.DocumentID,
				"operation", string(write.Operation),
				"attempts", write.Attempts)
			continue
		}

		if write.Operation == domain.OpDelete {
			if err := s.queue.Remove(ctx, write.Collection, write.ID); err != nil {
				s.logger.WithError(err).Error("Failed to drop replayed delete", "writeId", write.ID)
			}
		} else {
			if err := s.queue.MarkSynced(ctx, write.Collection, write.ID); err != nil {
				s.logger.WithError(err).Error("Failed to flag synced write", "writeId", write.ID)
			}
		}
		result.Synced++
		s.metrics.RecordSyncReplay("synced")
	}

	if depth, err := s.queue.Depth(ctx); err == nil {
		s.metrics.SetPendingWrites(int(depth))
	}

	s.logger.Info("Pending queue drained",
		"synced", result.Synced,
		"failed", result.Failed)
	return result, nil
}

func (s *SyncService) replay(ctx context.Context, write *domain.PendingWrite, idMap map[string]string) error {
	targetID := write.DocumentID
	if real, ok := idMap[targetID]; ok {
		targetID = real
	}

	switch write.Operation {
	case domain.OpCreate:
		// Work on a copy so a failed replay leaves the queued entry,
		// temp references included, exactly as it was for the next run.
		doc := make(map[string]any, len(write.Payload)+1)
		for k, v := range resolveTempRefs(write.Payload, idMap) {
			doc[k] = v
		}
		realID := targetID
		if domain.IsTempID(realID) {
			realID = domain.NewDocumentID()
		}
		doc["id"] = realID
		if ref, ok := findTempRef(doc); ok {
			return fmt.Errorf("unresolved reference %s: create has not synced", ref)
		}
		if err := s.store.Insert(ctx, write.Collection, doc); err != nil {
			return err
		}
		// The mapping is only safe to hand to later entries once the
		// document durably exists under its real id.
		if realID != write.DocumentID {
			idMap[write.DocumentID] = realID
		}
		write.Payload = doc
		write.DocumentID = realID
		return nil

	case domain.OpUpdate:
		patch := resolveTempRefs(write.Payload, idMap)
		if domain.IsTempID(targetID) {
			return fmt.Errorf("unresolved reference %s: create has not synced", targetID)
		}
		if ref, ok := findTempRef(patch); ok {
			return fmt.Errorf("unresolved reference %s: create has not synced", ref)
		}
		// Resolved references stay valid across runs (the creates behind
		// them already synced), so the entry keeps the resolved form.
		write.Payload = patch
		write.DocumentID = targetID
		return s.store.Update(ctx, write.Collection, targetID, patch)

	case domain.OpDelete:
		// Deletes of documents that never reached the store are dropped
		// by the gateway before sync; anything left targets a real doc.
		write.DocumentID = targetID
		return s.store.Delete(ctx, write.Collection, targetID)
	}

	return fmt.Errorf("unknown operation %q", write.Operation)
}

// findTempRef reports the first temp_ identifier left in a payload after
// resolution, meaning the create it points at has not synced yet.
func findTempRef(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		if domain.IsTempID(val) {
			return val, true
		}
	case map[string]any:
		for _, item := range val {
			if ref, ok := findTempRef(item); ok {
				return ref, true
			}
		}
	case []any:
		for _, item := range val {
			if ref, ok := findTempRef(item); ok {
				return ref, true
			}
		}
	}
	return "", false
}

// resolveTempRefs rewrites temp_ identifiers that earlier creates in the
// same run replaced with real ids, recursing through nested documents and
// arrays.
func resolveTempRefs(payload map[string]any, idMap map[string]string) map[string]any {
	if payload == nil {
		return map[string]any{}
	}
	if len(idMap) == 0 {
		return payload
	}

	resolved := make(map[string]any, len(payload))
	for k, v := range payload {
		resolved[k] = resolveValue(v, idMap)
	}
	return resolved
}

func resolveValue(v any, idMap map[string]string) any {
	switch val := v.(type) {
	case string:
		if real, ok := idMap[val]; ok {
			return real
		}
		return val
	case map[string]any:
		return resolveTempRefs(val, idMap)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = resolveValue(item, idMap)
		}
		return out
	default:
		return v
	}
}
