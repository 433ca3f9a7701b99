package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaspervborcena/tovrika-sub001/internal/domain"
)

func newGateway(store *memoryStore, queue *memoryQueue, online bool) *DocumentGateway {
	return NewDocumentGateway(store, queue, staticSignal(online), testLogger(), testMetrics())
}

func TestCreateOnlineWritesDirectly(t *testing.T) {
	store := newMemoryStore()
	queue := newMemoryQueue()
	gateway := newGateway(store, queue, true)

	id, err := gateway.Create(context.Background(), "orders", map[string]any{"total": 100.0})
	require.NoError(t, err)

	assert.NotEmpty(t, id)
	assert.False(t, domain.IsTempID(id))

	_, ok := store.get("orders", id)
	assert.True(t, ok)

	depth, _ := queue.Depth(context.Background())
	assert.Equal(t, int64(0), depth)
}

func TestCreateOfflineQueuesWithTempID(t *testing.T) {
	store := newMemoryStore()
	queue := newMemoryQueue()
	gateway := newGateway(store, queue, false)

	id, err := gateway.Create(context.Background(), "orders", map[string]any{"total": 100.0})
	require.NoError(t, err)

	assert.True(t, domain.IsTempID(id), "offline creates get temp ids immediately")
	assert.Equal(t, 0, store.inserts)

	pending, err := gateway.GetPendingDocuments(context.Background(), "orders")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].DocumentID)
	assert.Equal(t, domain.OpCreate, pending[0].Operation)
	assert.False(t, pending[0].Synced)
}

func TestCreateFailedDirectWriteFallsBackToQueue(t *testing.T) {
	store := newMemoryStore()
	store.setFailing(true)
	queue := newMemoryQueue()
	gateway := newGateway(store, queue, true)

	id, err := gateway.Create(context.Background(), "orders", map[string]any{"total": 100.0})
	require.NoError(t, err)

	// id was assigned while online, so it stays remote-compatible
	assert.False(t, domain.IsTempID(id))

	depth, _ := queue.Depth(context.Background())
	assert.Equal(t, int64(1), depth)
}

func TestUpdateMergesIntoQueuedCreate(t *testing.T) {
	store := newMemoryStore()
	queue := newMemoryQueue()
	gateway := newGateway(store, queue, false)

	id, err := gateway.Create(context.Background(), "orders", map[string]any{"total": 100.0, "status": "open"})
	require.NoError(t, err)

	require.NoError(t, gateway.Update(context.Background(), "orders", id, map[string]any{"status": "paid"}))

	pending, err := gateway.GetPendingDocuments(context.Background(), "orders")
	require.NoError(t, err)
	require.Len(t, pending, 1, "update merged instead of queued separately")
	assert.Equal(t, domain.OpCreate, pending[0].Operation)
	assert.Equal(t, "paid", pending[0].Payload["status"])
	assert.Equal(t, 100.0, pending[0].Payload["total"])
	assert.Equal(t, id, pending[0].Payload["id"], "merge never overwrites the id")
}

func TestUpdateOnlinePatchesDirectly(t *testing.T) {
	store := newMemoryStore()
	queue := newMemoryQueue()
	gateway := newGateway(store, queue, true)

	id, err := gateway.Create(context.Background(), "orders", map[string]any{"status": "open"})
	require.NoError(t, err)

	require.NoError(t, gateway.Update(context.Background(), "orders", id, map[string]any{"status": "paid"}))

	doc, ok := store.get("orders", id)
	require.True(t, ok)
	assert.Equal(t, "paid", doc["status"])
}

func TestDeleteOfQueuedCreateNeverReachesRemote(t *testing.T) {
	store := newMemoryStore()
	queue := newMemoryQueue()
	gateway := newGateway(store, queue, false)

	id, err := gateway.Create(context.Background(), "orders", map[string]any{"total": 100.0})
	require.NoError(t, err)

	require.NoError(t, gateway.Delete(context.Background(), "orders", id))

	pending, err := gateway.GetPendingDocuments(context.Background(), "orders")
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Equal(t, 0, store.deletes)
}

func TestDeleteOfflineQueuesForReplay(t *testing.T) {
	store := newMemoryStore()
	queue := newMemoryQueue()
	gateway := newGateway(store, queue, false)

	require.NoError(t, gateway.Delete(context.Background(), "orders", "real-id"))

	pending, err := gateway.GetPendingDocuments(context.Background(), "orders")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.OpDelete, pending[0].Operation)
}

func TestCreateValidatesInput(t *testing.T) {
	gateway := newGateway(newMemoryStore(), newMemoryQueue(), true)

	_, err := gateway.Create(context.Background(), "", nil)
	assert.Error(t, err)

	assert.Error(t, gateway.Update(context.Background(), "orders", "", nil))
	assert.Error(t, gateway.Delete(context.Background(), "", "id"))
}
