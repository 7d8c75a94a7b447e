// Package reqctxconfig loads the cache and telemetry layers' configuration
// with the same three-layer priority the teacher's core.Config uses: default
// values, then environment variables, then functional options, each
// overriding the last. Ported from core/config.go, narrowed to the two
// layers this module actually has (no HTTP/discovery/AI sections), and —
// where the teacher stubbed YAML out ("YAML config files not yet
// supported") — finished, using gopkg.in/yaml.v3.
package reqctxconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StrategyConfig is one named cache strategy's TTL, loaded from the
// "strategies" map or the "default" entry of a cache config block.
type StrategyConfig struct {
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// CacheConfig configures the cache layer's backend and per-strategy TTLs.
type CacheConfig struct {
	Backend         string                    `yaml:"backend" json:"backend"`
	RedisURL        string                    `yaml:"redis_url" json:"redis_url"`
	Namespace       string                    `yaml:"namespace" json:"namespace"`
	CleanupInterval time.Duration             `yaml:"cleanup_interval" json:"cleanup_interval"`
	Default         StrategyConfig            `yaml:"default" json:"default"`
	Strategies      map[string]StrategyConfig `yaml:"strategies" json:"strategies"`
}

// TelemetryConfig configures the telemetry layer's span/metric exporters.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	ServiceName string `yaml:"service_name" json:"service_name"`
	Exporter    string `yaml:"exporter" json:"exporter"`
	Endpoint    string `yaml:"endpoint" json:"endpoint"`
}

// Config is the root configuration object covering every optional layer
// this module composes: cache, telemetry, and the deadline a root context
// is given.
type Config struct {
	Deadline  time.Duration   `yaml:"deadline" json:"deadline"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// Option is a functional option applied after defaults and environment
// variables, the highest-priority layer.
type Option func(*Config) error

// DefaultConfig returns sane, fully-valid defaults: an in-memory cache
// backend with no configured strategies (callers must configure at least a
// default TTL to use any caching strategy), and telemetry disabled.
func DefaultConfig() *Config {
	return &Config{
		Deadline: 30 * time.Second,
		Cache: CacheConfig{
			Backend:         "memory",
			Namespace:       "reqctx",
			CleanupInterval: time.Minute,
			Strategies:      make(map[string]StrategyConfig),
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Exporter: "stdout",
		},
	}
}

// LoadFromEnv overlays environment variables onto c. Variable names follow
// the teacher's GOMIND_<SETTING> convention, renamed to this module's
// REQCTX_ prefix, plus the standard OTEL_* variables where applicable.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("REQCTX_DEADLINE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("reqctxconfig: REQCTX_DEADLINE: %w", err)
		}
		c.Deadline = d
	}

	if v := os.Getenv("REQCTX_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("REQCTX_CACHE_REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	}
	if v := os.Getenv("REQCTX_CACHE_NAMESPACE"); v != "" {
		c.Cache.Namespace = v
	}
	if v := os.Getenv("REQCTX_CACHE_CLEANUP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("reqctxconfig: REQCTX_CACHE_CLEANUP_INTERVAL: %w", err)
		}
		c.Cache.CleanupInterval = d
	}
	if v := os.Getenv("REQCTX_CACHE_DEFAULT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("reqctxconfig: REQCTX_CACHE_DEFAULT_TTL: %w", err)
		}
		c.Cache.Default.TTL = d
	}

	if v := os.Getenv("REQCTX_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
	if v := os.Getenv("REQCTX_TELEMETRY_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	} else if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	}
	if v := os.Getenv("REQCTX_TELEMETRY_EXPORTER"); v != "" {
		c.Telemetry.Exporter = v
	}
	if v := os.Getenv("REQCTX_TELEMETRY_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true
	} else if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true
	}

	return nil
}

// LoadFromFile loads a YAML or JSON configuration file onto c, merging over
// whatever is already set (a field the file doesn't mention keeps its
// current value, since yaml.Unmarshal only touches fields present in the
// document). Both formats are decoded with yaml.Unmarshal, JSON being a
// subset of YAML.
func (c *Config) LoadFromFile(path string) error {
	clean := filepath.Clean(path)
	ext := filepath.Ext(clean)
	if ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return fmt.Errorf("reqctxconfig: unsupported config file extension %s", ext)
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return fmt.Errorf("reqctxconfig: read %s: %w", clean, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("reqctxconfig: parse %s: %w", clean, err)
	}
	return nil
}

// Validate checks that Config is internally consistent: a redis cache
// backend needs a URL, enabled telemetry needs a service name, and no TTL
// anywhere may be negative.
func (c *Config) Validate() error {
	if c.Cache.Backend == "redis" && c.Cache.RedisURL == "" {
		return fmt.Errorf("reqctxconfig: cache.redis_url is required for the redis backend")
	}
	if c.Cache.Default.TTL < 0 {
		return fmt.Errorf("reqctxconfig: cache.default.ttl must not be negative")
	}
	for name, sc := range c.Cache.Strategies {
		if sc.TTL < 0 {
			return fmt.Errorf("reqctxconfig: cache.strategies.%s.ttl must not be negative", name)
		}
	}
	if c.Telemetry.Enabled && c.Telemetry.ServiceName == "" {
		return fmt.Errorf("reqctxconfig: telemetry.service_name is required when telemetry is enabled")
	}
	if c.Deadline < 0 {
		return fmt.Errorf("reqctxconfig: deadline must not be negative")
	}
	return nil
}

// NewConfig builds a Config from defaults, then environment variables, then
// opts, validating the result.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("reqctxconfig: apply option: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WithConfigFile loads path before later options are applied.
func WithConfigFile(path string) Option {
	return func(c *Config) error { return c.LoadFromFile(path) }
}

// WithDeadline sets the default root-context deadline.
func WithDeadline(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return fmt.Errorf("reqctxconfig: deadline must not be negative, got %s", d)
		}
		c.Deadline = d
		return nil
	}
}

// WithCacheBackend sets the cache backend ("memory" or "redis").
func WithCacheBackend(backend string) Option {
	return func(c *Config) error {
		c.Cache.Backend = backend
		return nil
	}
}

// WithRedisURL sets the Redis connection URL and switches the backend to
// "redis".
func WithRedisURL(url string) Option {
	return func(c *Config) error {
		c.Cache.Backend = "redis"
		c.Cache.RedisURL = url
		return nil
	}
}

// WithDefaultTTL sets the cache layer's fallback TTL, used by any strategy
// with no TTL of its own.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Config) error {
		if ttl < 0 {
			return fmt.Errorf("reqctxconfig: default ttl must not be negative, got %s", ttl)
		}
		c.Cache.Default.TTL = ttl
		return nil
	}
}

// WithStrategyTTL sets the TTL override for one named cache strategy (e.g.
// "cache-first", "stale-while-revalidate").
func WithStrategyTTL(strategyName string, ttl time.Duration) Option {
	return func(c *Config) error {
		if ttl < 0 {
			return fmt.Errorf("reqctxconfig: %s ttl must not be negative, got %s", strategyName, ttl)
		}
		if c.Cache.Strategies == nil {
			c.Cache.Strategies = make(map[string]StrategyConfig)
		}
		c.Cache.Strategies[strategyName] = StrategyConfig{TTL: ttl}
		return nil
	}
}

// WithTelemetry enables telemetry with the given service name and exporter
// ("stdout" or "otlp").
func WithTelemetry(serviceName, exporter, endpoint string) Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = true
		c.Telemetry.ServiceName = serviceName
		c.Telemetry.Exporter = exporter
		c.Telemetry.Endpoint = endpoint
		return nil
	}
}
