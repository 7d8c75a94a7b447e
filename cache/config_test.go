package cache_test

import (
	"testing"
	"time"

	"github.com/itsneelabh/reqctx/cache"
	"github.com/itsneelabh/reqctx/reqctx"
	"github.com/itsneelabh/reqctx/reqctxtest"
)

func TestTTLResolutionPriorityOverrideBeatsStrategyBeatsDefault(t *testing.T) {
	backend := reqctxtest.NewFakeBackend()
	cfg := cache.Config{
		Default: cache.StrategyConfig{TTL: time.Hour},
		Strategies: map[string]cache.StrategyConfig{
			"cache-first": {TTL: 30 * time.Minute},
		},
	}
	ctx := reqctx.Compose(
		reqctx.WithModels(reqctx.NewRegistry()),
		cache.WithCache(backend, cfg, nil),
	)(reqctx.NewContext("root"))

	model := reqctx.NewModel("m", reqctx.SyncFn(func(props reqctx.Props, ctx *reqctx.Context) (interface{}, error) {
		return "v", nil
	}), reqctx.WithCacheStrategy(cache.CacheFirst{TTL: 5 * time.Minute}))

	var updateTTL interface{}
	ctx.WrapEvent(func(next reqctx.EventFunc) reqctx.EventFunc {
		return func(self *reqctx.Context, name string, attrs map[string]interface{}) {
			if name == "cache.update" {
				updateTTL = attrs["ttl"]
			}
			next(self, name, attrs)
		}
	})

	if _, err := ctx.Request(model, reqctx.Props{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.Sets != 1 {
		t.Fatalf("expected exactly one write-back, got %d", backend.Sets)
	}
	if updateTTL != (5 * time.Minute).String() {
		t.Fatalf("expected the per-model TTL override (5m) to win, got %v", updateTTL)
	}
}

func TestNegativeOverrideTTLFailsFast(t *testing.T) {
	backend := reqctxtest.NewFakeBackend()
	ctx := reqctx.Compose(
		reqctx.WithModels(reqctx.NewRegistry()),
		cache.WithCache(backend, cache.Config{Default: cache.StrategyConfig{TTL: time.Hour}}, nil),
	)(reqctx.NewContext("root"))

	model := reqctx.NewModel("m", reqctx.SyncFn(func(props reqctx.Props, ctx *reqctx.Context) (interface{}, error) {
		return "v", nil
	}), reqctx.WithCacheStrategy(cache.CacheFirst{TTL: -time.Second}))

	_, err := ctx.Request(model, reqctx.Props{})
	if !reqctx.IsConfigurationError(err) {
		t.Fatalf("expected a configuration error for a negative TTL override, got %v", err)
	}
}

func TestStrategyTTLUsedWhenNoOverride(t *testing.T) {
	backend := reqctxtest.NewFakeBackend()
	cfg := cache.Config{
		Strategies: map[string]cache.StrategyConfig{
			"cache-first": {TTL: 10 * time.Minute},
		},
	}
	ctx := reqctx.Compose(
		reqctx.WithModels(reqctx.NewRegistry()),
		cache.WithCache(backend, cfg, nil),
	)(reqctx.NewContext("root"))

	model := reqctx.NewModel("m", reqctx.SyncFn(func(props reqctx.Props, ctx *reqctx.Context) (interface{}, error) {
		return "v", nil
	}), reqctx.WithCacheStrategy(cache.CacheFirst{}))

	if _, err := ctx.Request(model, reqctx.Props{}); err != nil {
		t.Fatalf("unexpected error using the per-strategy TTL: %v", err)
	}
	if backend.Sets != 1 {
		t.Fatalf("expected exactly one write-back, got %d", backend.Sets)
	}
}
