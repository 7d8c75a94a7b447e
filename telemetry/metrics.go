package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the lazily-created counters this package emits alongside
// span events: cache.hit/cache.miss/cache.update (mirrored by the cache
// package's events of the same name) and model.invocations, one increment
// per Request that actually runs a model body (the owning call in
// reqctx's registry, not every memoized hit).
//
// Instruments are created on first use and cached, the same lazy
// get-or-create pattern the teacher's MetricInstruments uses.
type Metrics struct {
	meter metric.Meter

	mu       sync.Mutex
	counters map[string]metric.Int64Counter
}

// NewMetrics wraps meter for recording this package's counters.
func NewMetrics(meter metric.Meter) *Metrics {
	return &Metrics{meter: meter, counters: make(map[string]metric.Int64Counter)}
}

func (m *Metrics) counter(name string) (metric.Int64Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[name]; ok {
		return c, nil
	}
	c, err := m.meter.Int64Counter(name)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create counter %s: %w", name, err)
	}
	m.counters[name] = c
	return c, nil
}

func (m *Metrics) inc(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	c, err := m.counter(name)
	if err != nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// CacheHit increments cache.hit for strategy.
func (m *Metrics) CacheHit(ctx context.Context, strategy string) {
	m.inc(ctx, "cache.hit", attribute.String("strategy", strategy))
}

// CacheMiss increments cache.miss for strategy.
func (m *Metrics) CacheMiss(ctx context.Context, strategy string) {
	m.inc(ctx, "cache.miss", attribute.String("strategy", strategy))
}

// CacheUpdate increments cache.update for strategy (a backend write-back,
// either after a cache-first/stale-while-revalidate miss or from a
// stale-while-revalidate background revalidation).
func (m *Metrics) CacheUpdate(ctx context.Context, strategy string) {
	m.inc(ctx, "cache.update", attribute.String("strategy", strategy))
}

// ModelInvocation increments model.invocations for a model that actually
// ran its body (as opposed to a Request that found a memoized value).
func (m *Metrics) ModelInvocation(ctx context.Context, displayName string) {
	m.inc(ctx, "model.invocations", attribute.String("model", displayName))
}
