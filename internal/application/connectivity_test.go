package application

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConnectivityConfig() ConnectivityConfig {
	cfg := DefaultConnectivityConfig()
	cfg.OpenTimeout = 50 * time.Millisecond
	cfg.ProbeTimeout = time.Second
	return cfg
}

func TestMonitorStartsOnline(t *testing.T) {
	monitor := NewConnectivityMonitor(newMemoryStore(), testConnectivityConfig(), testLogger(), testMetrics())
	assert.True(t, monitor.Online())
}

func TestMonitorGoesOfflineAfterConsecutiveFailures(t *testing.T) {
	store := newMemoryStore()
	store.setFailing(true)
	monitor := NewConnectivityMonitor(store, testConnectivityConfig(), testLogger(), testMetrics())

	for i := 0; i < 3; i++ {
		assert.False(t, monitor.Check(context.Background()))
	}

	assert.False(t, monitor.Online())
}

func TestMonitorReconnectNotifiesObservers(t *testing.T) {
	store := newMemoryStore()
	store.setFailing(true)
	monitor := NewConnectivityMonitor(store, testConnectivityConfig(), testLogger(), testMetrics())

	var notified atomic.Int32
	monitor.Subscribe(func(ctx context.Context) {
		notified.Add(1)
	})

	for i := 0; i < 3; i++ {
		monitor.Check(context.Background())
	}
	require.False(t, monitor.Online())

	store.setFailing(false)
	// wait out the open window so the next probe half-opens the breaker
	time.Sleep(100 * time.Millisecond)
	require.True(t, monitor.Check(context.Background()))

	assert.Eventually(t, func() bool {
		return notified.Load() == 1
	}, time.Second, 10*time.Millisecond)
	assert.True(t, monitor.Online())
}
