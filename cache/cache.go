package cache

import (
	"context"
	"time"

	"github.com/itsneelabh/reqctx/reqctx"
	"github.com/itsneelabh/reqctx/reqctxlog"

	"github.com/itsneelabh/reqctx/cachebackend"
)

// BackgroundFactory builds a fresh root *reqctx.Context for a background
// revalidation update. If the factory also installs a cache layer on the
// context it returns, it must call Disable on that context itself to
// prevent the update from recursively scheduling further updates — WithCache
// calls Disable defensively on its own behalf too, but a factory that skips
// its own disable invites the same recursion through any OTHER cache layer
// it might install.
type BackgroundFactory func() *reqctx.Context

type runtime struct {
	backend  cachebackend.Backend
	config   Config
	inflight *inflightTable
	factory  BackgroundFactory
	logger   reqctxlog.Logger
}

// providerName returns backend's DisplayName if it implements
// cachebackend.Named, or "" otherwise, for the "provider" attribute on
// cache.* events per spec.md §6.5.
func providerName(backend cachebackend.Backend) string {
	if named, ok := backend.(cachebackend.Named); ok {
		return named.DisplayName()
	}
	return ""
}

// WithCache installs the cache layer on a context: Request dispatches per
// model.CacheStrategy to one of the four named strategies, reading and
// writing through backend according to config. Models with no CacheStrategy
// set pass straight through to the next Request layer, unaffected. logger,
// if given, receives a line whenever a backend write fails — a cache write
// error is swallowed from the caller's point of view (spec.md §4.6) but
// still worth surfacing somewhere besides a telemetry event.
func WithCache(backend cachebackend.Backend, config Config, factory BackgroundFactory, logger ...reqctxlog.Logger) func(*reqctx.Context) *reqctx.Context {
	rt := &runtime{backend: backend, config: config, inflight: newInflightTable(), factory: factory, logger: pickLogger(logger)}
	return func(ctx *reqctx.Context) *reqctx.Context {
		ctx.SetValue(disableKey{}, &disableState{})

		ctx.WrapCreate(func(next reqctx.CreateFunc) reqctx.CreateFunc {
			return func(self *reqctx.Context, name string) *reqctx.Context {
				child := next(self, name)
				if v, ok := self.Value(disableKey{}); ok {
					child.SetValue(disableKey{}, v)
				}
				return child
			}
		})

		ctx.WrapRequest(func(next reqctx.RequestFunc) reqctx.RequestFunc {
			return func(self *reqctx.Context, model *reqctx.Model, props reqctx.Props) (interface{}, error) {
				if model.CacheStrategy == nil || !ShouldCache(self) {
					return next(self, model, props)
				}
				return dispatch(rt, self, model, props, next)
			}
		})

		return ctx
	}
}

func dispatch(rt *runtime, self *reqctx.Context, model *reqctx.Model, props reqctx.Props, next reqctx.RequestFunc) (interface{}, error) {
	key := reqctx.Key(model.DisplayName, reqctx.CleanUndefined(props))

	switch strategy := model.CacheStrategy.(type) {
	case CacheOnly:
		return cacheOnly(rt, self, key)
	case NetworkOnly:
		return next(self, model, props)
	case CacheFirst:
		return cacheFirst(rt, self, model, props, key, strategy.TTL, next)
	case StaleWhileRevalidate:
		return staleWhileRevalidate(rt, self, model, props, key, strategy.TTL, next)
	default:
		return next(self, model, props)
	}
}

func cacheOnly(rt *runtime, self *reqctx.Context, key string) (interface{}, error) {
	value, found, err := rt.backend.Get(context.Background(), key)
	if err != nil {
		return nil, reqctx.NewModelError("cache", key, err)
	}
	if !found {
		return nil, nil
	}
	return value, nil
}

func cacheFirst(rt *runtime, self *reqctx.Context, model *reqctx.Model, props reqctx.Props, key string, override time.Duration, next reqctx.RequestFunc) (interface{}, error) {
	strategyName := model.CacheStrategy.StrategyName()
	ttl, err := rt.config.resolveTTL(strategyName, override)
	if err != nil {
		return nil, reqctx.NewModelError("cache", key, err)
	}

	if value, found, gerr := rt.backend.Get(context.Background(), key); gerr == nil && found {
		self.Event("cache.hit", map[string]interface{}{"strategy": strategyName, "provider": providerName(rt.backend), "key": key})
		return value, nil
	}
	self.Event("cache.miss", map[string]interface{}{"strategy": strategyName, "provider": providerName(rt.backend), "key": key})

	value, rerr := next(self, model, props)
	if rerr != nil {
		return value, rerr
	}
	if ShouldCache(self) {
		writeBack(rt, self, strategyName, key, value, ttl)
	}
	return value, nil
}

func staleWhileRevalidate(rt *runtime, self *reqctx.Context, model *reqctx.Model, props reqctx.Props, key string, override time.Duration, next reqctx.RequestFunc) (interface{}, error) {
	strategyName := model.CacheStrategy.StrategyName()
	ttl, err := rt.config.resolveTTL(strategyName, override)
	if err != nil {
		return nil, reqctx.NewModelError("cache", key, err)
	}

	if value, found, gerr := rt.backend.Get(context.Background(), key); gerr == nil && found {
		self.Event("cache.hit", map[string]interface{}{"strategy": strategyName, "provider": providerName(rt.backend), "key": key})
		if ShouldCache(self) {
			scheduleUpdate(rt, model, props, strategyName, key, ttl)
		}
		return value, nil
	}
	self.Event("cache.miss", map[string]interface{}{"strategy": strategyName, "provider": providerName(rt.backend), "key": key})

	value, rerr := next(self, model, props)
	if rerr != nil {
		return value, rerr
	}
	if ShouldCache(self) {
		writeBack(rt, self, strategyName, key, value, ttl)
	}
	return value, nil
}

func writeBack(rt *runtime, self *reqctx.Context, strategyName, key string, value interface{}, ttl time.Duration) {
	provider := providerName(rt.backend)
	if err := rt.backend.Set(context.Background(), key, value, ttl); err != nil {
		self.Event("cache.error", map[string]interface{}{"strategy": strategyName, "provider": provider, "key": key, "error": err.Error()})
		rt.logger.Error("cache write failed", "strategy", strategyName, "provider", provider, "key", key, "error", err.Error())
		return
	}
	self.Event("cache.update", map[string]interface{}{"strategy": strategyName, "provider": provider, "key": key, "ttl": ttl.String()})
}

// scheduleUpdate runs a background revalidation for key through rt.factory,
// deduplicated by inflight. It disables caching on the constructed context
// itself (see BackgroundFactory's doc) so the revalidation's own Request
// never recurses into another stale-while-revalidate cycle.
func scheduleUpdate(rt *runtime, model *reqctx.Model, props reqctx.Props, strategyName, key string, ttl time.Duration) {
	rt.inflight.runOnce(key, func() {
		bg := rt.factory()
		Disable(bg)
		value, err := bg.Request(model, props)
		if err != nil {
			return
		}
		provider := providerName(rt.backend)
		if err := rt.backend.Set(context.Background(), key, value, ttl); err != nil {
			bg.Event("cache.error", map[string]interface{}{"strategy": strategyName, "provider": provider, "key": key, "error": err.Error()})
			rt.logger.Error("cache write failed", "strategy", strategyName, "provider", provider, "key", key, "error", err.Error())
			return
		}
		bg.Event("cache.update", map[string]interface{}{"strategy": strategyName, "provider": provider, "key": key, "ttl": ttl.String()})
	})
}
