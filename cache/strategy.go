package cache

import "time"

// CacheOnly reads the backend and never falls through to the network; a
// miss resolves to (nil, nil), mirroring the source's "undefined" result
// rather than an error.
type CacheOnly struct{}

func (CacheOnly) StrategyName() string { return "cache-only" }

// NetworkOnly bypasses the backend entirely in both directions: it never
// reads and never writes, leaving the memoizing request engine as the only
// form of reuse.
type NetworkOnly struct{}

func (NetworkOnly) StrategyName() string { return "network-only" }

// CacheFirst reads the backend before falling through to the network, and
// writes the network result back on a miss. TTL is optional; a zero value
// defers to Config's per-strategy or Default entry.
type CacheFirst struct {
	TTL time.Duration
}

func (CacheFirst) StrategyName() string { return "cache-first" }

// StaleWhileRevalidate returns a cache hit immediately but schedules a
// background refresh of that entry, deduplicated per key so concurrent
// requests for the same model+props never trigger more than one refresh in
// flight. TTL is optional, same resolution rule as CacheFirst.
type StaleWhileRevalidate struct {
	TTL time.Duration
}

func (StaleWhileRevalidate) StrategyName() string { return "stale-while-revalidate" }
