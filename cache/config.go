// Package cache implements the cache layer from spec.md §4.6: four named
// strategies (cache-only, network-only, cache-first, stale-while-revalidate)
// dispatched per model, a chain-wide disable switch, and background
// revalidation with in-flight deduplication. It composes onto a
// *reqctx.Context the same way the deadline and overrides layers do — one
// WrapRequest installed once, inherited by every descendant.
package cache

import (
	"time"

	"github.com/itsneelabh/reqctx/reqctx"
)

// StrategyConfig carries the TTL for one named strategy.
type StrategyConfig struct {
	TTL time.Duration
}

// Config is the cache layer's TTL table: a Default used when a strategy has
// no entry of its own, plus per-strategy overrides keyed by StrategyName().
type Config struct {
	Default    StrategyConfig
	Strategies map[string]StrategyConfig
}

// resolveTTL picks the TTL for strategyName: an explicit per-model override
// wins, then the strategy's own config entry, then Default. The result must
// be a finite positive duration or resolution fails — spec.md §4.6 requires
// this to fail the request with a descriptive error rather than cache
// forever or skip caching silently.
func (c Config) resolveTTL(strategyName string, override time.Duration) (time.Duration, error) {
	if override < 0 {
		return 0, reqctx.ErrTTLNotPositive
	}
	if override > 0 {
		return override, nil
	}
	if sc, ok := c.Strategies[strategyName]; ok {
		if sc.TTL < 0 {
			return 0, reqctx.ErrTTLNotPositive
		}
		if sc.TTL > 0 {
			return sc.TTL, nil
		}
	}
	if c.Default.TTL < 0 {
		return 0, reqctx.ErrTTLNotPositive
	}
	if c.Default.TTL > 0 {
		return c.Default.TTL, nil
	}
	return 0, reqctx.ErrTTLNotConfigured
}
