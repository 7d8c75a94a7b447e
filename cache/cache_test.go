package cache_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/itsneelabh/reqctx/cache"
	"github.com/itsneelabh/reqctx/reqctx"
	"github.com/itsneelabh/reqctx/reqctxtest"
	"github.com/itsneelabh/reqctx/telemetry"
)

func newCachedContext(backend *reqctxtest.FakeBackend, cfg cache.Config, bg cache.BackgroundFactory) *reqctx.Context {
	return reqctx.Compose(
		reqctx.WithModels(reqctx.NewRegistry()),
		cache.WithCache(backend, cfg, bg),
	)(reqctx.NewContext("root"))
}

func TestCacheOnlyMissReturnsNilWithoutCallingBody(t *testing.T) {
	backend := reqctxtest.NewFakeBackend()
	ctx := newCachedContext(backend, cache.Config{}, nil)

	var calls int32
	model := reqctx.NewModel("m", reqctx.SyncFn(func(props reqctx.Props, ctx *reqctx.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "network-value", nil
	}), reqctx.WithCacheStrategy(cache.CacheOnly{}))

	value, err := ctx.Request(model, reqctx.Props{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != nil {
		t.Fatalf("expected a cache-only miss to resolve to nil, got %v", value)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected cache-only to never invoke the model body, called %d times", calls)
	}
}

func TestCacheOnlyHitReturnsBackendValueWithoutCallingBody(t *testing.T) {
	backend := reqctxtest.NewFakeBackend()
	backend.Set(nil, reqctx.Key("m", reqctx.Props{}), "from-cache", time.Minute)
	ctx := newCachedContext(backend, cache.Config{}, nil)

	var calls int32
	model := reqctx.NewModel("m", reqctx.SyncFn(func(props reqctx.Props, ctx *reqctx.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "network-value", nil
	}), reqctx.WithCacheStrategy(cache.CacheOnly{}))

	value, err := ctx.Request(model, reqctx.Props{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "from-cache" {
		t.Fatalf("expected the cached value, got %v", value)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected cache-only to never invoke the model body, called %d times", calls)
	}
}

func TestNetworkOnlyNeverTouchesBackend(t *testing.T) {
	backend := reqctxtest.NewFakeBackend()
	ctx := newCachedContext(backend, cache.Config{}, nil)

	model := reqctx.NewModel("m", reqctx.SyncFn(func(props reqctx.Props, ctx *reqctx.Context) (interface{}, error) {
		return "fresh", nil
	}), reqctx.WithCacheStrategy(cache.NetworkOnly{}))

	value, err := ctx.Request(model, reqctx.Props{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "fresh" {
		t.Fatalf("expected fresh, got %v", value)
	}
	if backend.Gets != 0 || backend.Sets != 0 {
		t.Fatalf("expected network-only to never read or write the backend, got gets=%d sets=%d", backend.Gets, backend.Sets)
	}
}

func TestCacheFirstMissWritesBackAfterNetworkFetch(t *testing.T) {
	backend := reqctxtest.NewFakeBackend()
	cfg := cache.Config{Default: cache.StrategyConfig{TTL: time.Minute}}
	ctx := newCachedContext(backend, cfg, nil)

	var calls int32
	model := reqctx.NewModel("m", reqctx.SyncFn(func(props reqctx.Props, ctx *reqctx.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "computed", nil
	}), reqctx.WithCacheStrategy(cache.CacheFirst{}))

	value, err := ctx.Request(model, reqctx.Props{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "computed" {
		t.Fatalf("expected computed, got %v", value)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly one network call on a miss, got %d", calls)
	}
	if !backend.Contains(reqctx.Key("m", reqctx.Props{})) {
		t.Fatalf("expected the computed value to be written back to the backend")
	}

	value2, err := ctx.Request(model, reqctx.Props{})
	if err != nil {
		t.Fatalf("unexpected error on second request: %v", err)
	}
	if value2 != "computed" {
		t.Fatalf("expected the backend's cached value on the second request, got %v", value2)
	}
}

func TestCacheFirstHitSkipsNetworkCall(t *testing.T) {
	backend := reqctxtest.NewFakeBackend()
	key := reqctx.Key("m", reqctx.Props{})
	backend.Set(nil, key, "from-cache", time.Minute)
	cfg := cache.Config{Default: cache.StrategyConfig{TTL: time.Minute}}
	ctx := newCachedContext(backend, cfg, nil)

	var calls int32
	model := reqctx.NewModel("m", reqctx.SyncFn(func(props reqctx.Props, ctx *reqctx.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "computed", nil
	}), reqctx.WithCacheStrategy(cache.CacheFirst{}))

	value, err := ctx.Request(model, reqctx.Props{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "from-cache" {
		t.Fatalf("expected from-cache, got %v", value)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected a cache-first hit to skip the network call entirely, called %d times", calls)
	}
}

func TestCacheFirstWithoutATTLFailsFast(t *testing.T) {
	backend := reqctxtest.NewFakeBackend()
	ctx := newCachedContext(backend, cache.Config{}, nil)

	model := reqctx.NewModel("m", reqctx.SyncFn(func(props reqctx.Props, ctx *reqctx.Context) (interface{}, error) {
		return "computed", nil
	}), reqctx.WithCacheStrategy(cache.CacheFirst{}))

	_, err := ctx.Request(model, reqctx.Props{})
	if !reqctx.IsConfigurationError(err) {
		t.Fatalf("expected a TTL configuration error when no TTL is configured anywhere, got %v", err)
	}
}

func TestCacheFirstDoesNotWriteBackOnNetworkError(t *testing.T) {
	backend := reqctxtest.NewFakeBackend()
	cfg := cache.Config{Default: cache.StrategyConfig{TTL: time.Minute}}
	ctx := newCachedContext(backend, cfg, nil)

	model := reqctx.NewModel("m", reqctx.SyncFn(func(props reqctx.Props, ctx *reqctx.Context) (interface{}, error) {
		return nil, reqctx.ErrInterrupted
	}), reqctx.WithCacheStrategy(cache.CacheFirst{}))

	_, err := ctx.Request(model, reqctx.Props{})
	if err == nil {
		t.Fatalf("expected the network error to propagate")
	}
	if backend.Sets != 0 {
		t.Fatalf("expected no write-back when the network call failed, got %d sets", backend.Sets)
	}
}

func TestDisablePropagatesToChildrenAndSkipsCaching(t *testing.T) {
	backend := reqctxtest.NewFakeBackend()
	cfg := cache.Config{Default: cache.StrategyConfig{TTL: time.Minute}}
	ctx := newCachedContext(backend, cfg, nil)

	cache.Disable(ctx)
	child := ctx.Create("child")

	if cache.ShouldCache(ctx) {
		t.Fatalf("expected ShouldCache to be false after Disable on the root")
	}
	if cache.ShouldCache(child) {
		t.Fatalf("expected Disable to propagate to children created afterward")
	}

	model := reqctx.NewModel("m", reqctx.SyncFn(func(props reqctx.Props, ctx *reqctx.Context) (interface{}, error) {
		return "computed", nil
	}), reqctx.WithCacheStrategy(cache.CacheFirst{}))

	if _, err := ctx.Request(model, reqctx.Props{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.Sets != 0 {
		t.Fatalf("expected Disable to suppress the write-back, got %d sets", backend.Sets)
	}
}

func TestShouldCacheDefaultsTrueWithoutCacheLayer(t *testing.T) {
	ctx := reqctx.NewContext("root")
	if !cache.ShouldCache(ctx) {
		t.Fatalf("expected ShouldCache to default to true when no cache layer is installed")
	}
}

func TestStaleWhileRevalidateSchedulesBackgroundUpdate(t *testing.T) {
	backend := reqctxtest.NewFakeBackend()
	key := reqctx.Key("m", reqctx.Props{})
	backend.Set(nil, key, "stale-value", time.Minute)
	cfg := cache.Config{Default: cache.StrategyConfig{TTL: time.Minute}}

	refreshed := make(chan struct{}, 1)
	bg := func() *reqctx.Context {
		bgCtx := reqctx.Compose(reqctx.WithModels(reqctx.NewRegistry()))(reqctx.NewContext("background"))
		return bgCtx
	}

	model := reqctx.NewModel("m", reqctx.SyncFn(func(props reqctx.Props, ctx *reqctx.Context) (interface{}, error) {
		select {
		case refreshed <- struct{}{}:
		default:
		}
		return "revalidated", nil
	}), reqctx.WithCacheStrategy(cache.StaleWhileRevalidate{}))

	ctx := newCachedContext(backend, cfg, bg)

	value, err := ctx.Request(model, reqctx.Props{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "stale-value" {
		t.Fatalf("expected the stale cached value to be returned immediately, got %v", value)
	}

	select {
	case <-refreshed:
	case <-time.After(time.Second):
		t.Fatalf("expected a background revalidation to run and call the model body")
	}
}

func TestCacheFirstEventsCarryProviderAndTTL(t *testing.T) {
	backend := reqctxtest.NewFakeBackend()
	factory := reqctxtest.NewFakeSpanFactory()
	cfg := cache.Config{Default: cache.StrategyConfig{TTL: time.Minute}}

	ctx := telemetry.WithTelemetry(factory, "root", nil, nil)(
		reqctx.Compose(
			reqctx.WithModels(reqctx.NewRegistry()),
			cache.WithCache(backend, cfg, nil),
		)(reqctx.NewContext("root")),
	)

	model := reqctx.NewModel("m", reqctx.SyncFn(func(props reqctx.Props, ctx *reqctx.Context) (interface{}, error) {
		return "network-value", nil
	}), reqctx.WithCacheStrategy(cache.CacheFirst{}))

	if _, err := ctx.Request(model, reqctx.Props{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx.End()

	var missAttrs, updateAttrs map[string]interface{}
	for _, s := range factory.Spans() {
		for _, ev := range s.Events {
			attrs := make(map[string]interface{}, len(ev.Attributes))
			for _, kv := range ev.Attributes {
				attrs[string(kv.Key)] = kv.Value.AsInterface()
			}
			switch ev.Name {
			case "cache.miss":
				missAttrs = attrs
			case "cache.update":
				updateAttrs = attrs
			}
		}
	}

	if missAttrs == nil || missAttrs["provider"] != "fake" {
		t.Fatalf("expected cache.miss to carry provider=fake, got %v", missAttrs)
	}
	if updateAttrs == nil || updateAttrs["provider"] != "fake" {
		t.Fatalf("expected cache.update to carry provider=fake, got %v", updateAttrs)
	}
	if updateAttrs["ttl"] != time.Minute.String() {
		t.Fatalf("expected cache.update to carry ttl=%s, got %v", time.Minute.String(), updateAttrs["ttl"])
	}
}
