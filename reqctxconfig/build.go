package reqctxconfig

import (
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/itsneelabh/reqctx/cache"
	"github.com/itsneelabh/reqctx/cachebackend"
)

// ToCacheConfig translates the loaded CacheConfig into cache.Config, the
// shape the cache layer's strategies actually consume.
func (c CacheConfig) ToCacheConfig() cache.Config {
	strategies := make(map[string]cache.StrategyConfig, len(c.Strategies))
	for name, sc := range c.Strategies {
		strategies[name] = cache.StrategyConfig{TTL: sc.TTL}
	}
	return cache.Config{
		Default:    cache.StrategyConfig{TTL: c.Default.TTL},
		Strategies: strategies,
	}
}

// BuildBackend constructs the cachebackend.Backend named by c.Backend
// ("memory" or "redis"). Callers owning a *redis.Client already (e.g. to
// share a connection pool with other components) should call
// cachebackend.NewRedisBackend directly instead.
func (c CacheConfig) BuildBackend() (cachebackend.Backend, error) {
	switch c.Backend {
	case "", "memory":
		return cachebackend.NewMemoryBackend(c.CleanupInterval), nil
	case "redis":
		if c.RedisURL == "" {
			return nil, fmt.Errorf("reqctxconfig: cache.redis_url is required for the redis backend")
		}
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("reqctxconfig: parse redis_url: %w", err)
		}
		return cachebackend.NewRedisBackend(redis.NewClient(opts), c.Namespace), nil
	default:
		return nil, fmt.Errorf("reqctxconfig: unknown cache backend %q", c.Backend)
	}
}
