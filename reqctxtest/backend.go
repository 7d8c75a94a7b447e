// Package reqctxtest provides in-memory test doubles for the interfaces
// this module's layers depend on, grounded on the teacher's MockDiscovery
// (core/mock_discovery.go): a mutex-guarded map standing in for a real
// backend, with a few inspection methods a test can use for assertions
// beyond the plain Backend/SpanFactory contracts.
package reqctxtest

import (
	"context"
	"sync"
	"time"
)

// FakeBackend is an in-memory cachebackend.Backend for tests, with
// instrumentation (hit/miss/set counts) that a real backend has no reason
// to expose.
type FakeBackend struct {
	mu    sync.Mutex
	items map[string]fakeEntry

	Gets int
	Sets int
	Hits int
	Miss int
}

type fakeEntry struct {
	value     interface{}
	expiresAt time.Time
}

// NewFakeBackend constructs an empty FakeBackend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{items: make(map[string]fakeEntry)}
}

// DisplayName implements cachebackend.Named so tests can assert on the
// "provider" attribute the cache layer derives from it.
func (b *FakeBackend) DisplayName() string { return "fake" }

func (b *FakeBackend) Get(ctx context.Context, key string) (interface{}, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Gets++

	entry, ok := b.items[key]
	if !ok || time.Now().After(entry.expiresAt) {
		b.Miss++
		return nil, false, nil
	}
	b.Hits++
	return entry.value, true, nil
}

func (b *FakeBackend) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Sets++
	b.items[key] = fakeEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Contains reports whether key is currently present and unexpired, for test
// assertions that don't want to go through Get (and so don't perturb the
// Hits/Miss counters).
func (b *FakeBackend) Contains(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.items[key]
	return ok && !time.Now().After(entry.expiresAt)
}

// Len reports how many entries (expired or not) FakeBackend currently
// holds.
func (b *FakeBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
