package cachebackend_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/itsneelabh/reqctx/cachebackend"
)

func newTestRedisBackend(t *testing.T) (*cachebackend.RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return cachebackend.NewRedisBackend(client, "reqctx-test"), mr
}

func TestRedisBackendSetThenGetRoundTripsJSON(t *testing.T) {
	b, _ := newTestRedisBackend(t)
	ctx := context.Background()

	value := map[string]interface{}{"name": "ada", "count": float64(3)}
	if err := b.Set(ctx, "k", value, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, found, err := b.Get(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatalf("expected a hit")
	}
	m, ok := got.(map[string]interface{})
	if !ok || m["name"] != "ada" || m["count"] != float64(3) {
		t.Fatalf("expected the round-tripped value to match, got %#v", got)
	}
}

func TestRedisBackendMissForUnknownKey(t *testing.T) {
	b, _ := newTestRedisBackend(t)
	_, found, err := b.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatalf("expected a miss for an unknown key")
	}
}

func TestRedisBackendNamespacesKeys(t *testing.T) {
	b, mr := newTestRedisBackend(t)
	if err := b.Set(context.Background(), "k", "v", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mr.Exists("reqctx-test:k") {
		t.Fatalf("expected the stored key to carry the configured namespace prefix")
	}
}

func TestRedisBackendRespectsTTL(t *testing.T) {
	b, mr := newTestRedisBackend(t)
	if err := b.Set(context.Background(), "k", "v", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	_, found, err := b.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatalf("expected the entry to have expired in redis")
	}
}
