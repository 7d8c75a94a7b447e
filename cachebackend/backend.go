// Package cachebackend implements the storage backends the cache package's
// strategies read and write through — spec.md §6.1's two-operation
// Backend contract, deliberately narrow so a backend implementation is
// almost free (an in-memory map, a Redis client, or a test fake).
package cachebackend

import (
	"context"
	"time"
)

// Backend is the storage contract the cache layer's strategies use. Get
// reports a miss both when the key was never set and when it expired;
// backends are not required to distinguish the two. Set always (re)writes
// with a fresh TTL — there is no separate "extend" operation.
type Backend interface {
	Get(ctx context.Context, key string) (value interface{}, found bool, err error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Named is implemented by backends that want to identify themselves in
// telemetry attributes (e.g. "memory", "redis") beyond the cache
// strategy's own name.
type Named interface {
	DisplayName() string
}
