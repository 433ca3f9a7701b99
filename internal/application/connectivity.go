package application

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jaspervborcena/tovrika-sub001/internal/domain"
	"github.com/jaspervborcena/tovrika-sub001/pkg/logging"
	"github.com/jaspervborcena/tovrika-sub001/pkg/metrics"
)

// ConnectivitySignal is the boolean online observable consulted by write
// paths to choose between a direct remote write and the pending queue.
type ConnectivitySignal interface {
	Online() bool
}

// ReconnectObserver is notified when connectivity to the authoritative
// store is restored after an outage.
type ReconnectObserver func(ctx context.Context)

// ConnectivityMonitor probes the authoritative store and tracks its
// reachability through a circuit breaker. While the breaker is open the
// store is treated as offline and writes are queued locally.
type ConnectivityMonitor struct {
	breaker *gobreaker.CircuitBreaker
	store   domain.DocumentStore
	logger  *logging.Logger
	metrics *metrics.Metrics

	probeInterval time.Duration
	probeTimeout  time.Duration

	mu        sync.Mutex
	observers []ReconnectObserver

	stopCh   chan struct{}
	stopOnce sync.Once
}

// ConnectivityConfig tunes the monitor's probe cadence and breaker.
type ConnectivityConfig struct {
	ProbeInterval       time.Duration
	ProbeTimeout        time.Duration
	OpenTimeout         time.Duration
	ConsecutiveFailures uint32
}

// DefaultConnectivityConfig returns conservative probe settings.
func DefaultConnectivityConfig() ConnectivityConfig {
	return ConnectivityConfig{
		ProbeInterval:       15 * time.Second,
		ProbeTimeout:        5 * time.Second,
		OpenTimeout:         30 * time.Second,
		ConsecutiveFailures: 3,
	}
}

// NewConnectivityMonitor creates a monitor probing the given store.
func NewConnectivityMonitor(store domain.DocumentStore, cfg ConnectivityConfig, logger *logging.Logger, m *metrics.Metrics) *ConnectivityMonitor {
	monitor := &ConnectivityMonitor{
		store:         store,
		logger:        logger.WithComponent("connectivity"),
		metrics:       m,
		probeInterval: cfg.ProbeInterval,
		probeTimeout:  cfg.ProbeTimeout,
		stopCh:        make(chan struct{}),
	}

	monitor.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "remote-store",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: monitor.onStateChange,
	})

	return monitor
}

// Online reports whether the authoritative store is considered reachable.
func (c *ConnectivityMonitor) Online() bool {
	return c.breaker.State() != gobreaker.StateOpen
}

// Check probes the store once through the breaker and returns the
// resulting reachability.
func (c *ConnectivityMonitor) Check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.store.Ping(probeCtx)
	})
	return err == nil
}

// Subscribe registers an observer invoked when the store becomes
// reachable again after an outage.
func (c *ConnectivityMonitor) Subscribe(observer ReconnectObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, observer)
}

// Start probes the store on a fixed interval until Stop is called or the
// context is cancelled.
func (c *ConnectivityMonitor) Start(ctx context.Context) {
	ticker := time.NewTicker(c.probeInterval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.Check(ctx)
			}
		}
	}()
}

// Stop halts the probe loop.
func (c *ConnectivityMonitor) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *ConnectivityMonitor) onStateChange(name string, from, to gobreaker.State) {
	c.logger.Info("Remote store connectivity changed",
		"breaker", name,
		"from", from.String(),
		"to", to.String())

	if c.metrics != nil {
		c.metrics.SetCircuitBreakerState(name, breakerStateValue(to))
	}

	// half-open -> closed means a probe succeeded after an outage
	if to == gobreaker.StateClosed && from != gobreaker.StateClosed {
		c.notifyReconnect()
	}
}

func (c *ConnectivityMonitor) notifyReconnect() {
	c.mu.Lock()
	observers := make([]ReconnectObserver, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	ctx := context.Background()
	for _, observer := range observers {
		go observer(ctx)
	}
}

func breakerStateValue(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
