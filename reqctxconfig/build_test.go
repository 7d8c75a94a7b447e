package reqctxconfig_test

import (
	"testing"
	"time"

	"github.com/itsneelabh/reqctx/cachebackend"
	"github.com/itsneelabh/reqctx/reqctxconfig"
)

func TestToCacheConfigCarriesDefaultAndStrategyTTLs(t *testing.T) {
	cc := reqctxconfig.CacheConfig{
		Default: reqctxconfig.StrategyConfig{TTL: time.Hour},
		Strategies: map[string]reqctxconfig.StrategyConfig{
			"cache-first": {TTL: 10 * time.Minute},
		},
	}

	cfg := cc.ToCacheConfig()
	if cfg.Default.TTL != time.Hour {
		t.Fatalf("expected default ttl to carry over, got %v", cfg.Default.TTL)
	}
	if cfg.Strategies["cache-first"].TTL != 10*time.Minute {
		t.Fatalf("expected cache-first ttl to carry over, got %v", cfg.Strategies["cache-first"].TTL)
	}
}

func TestBuildBackendMemory(t *testing.T) {
	cc := reqctxconfig.CacheConfig{Backend: "memory"}
	backend, err := cc.BuildBackend()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := backend.(*cachebackend.MemoryBackend); !ok {
		t.Fatalf("expected a *cachebackend.MemoryBackend, got %T", backend)
	}
}

func TestBuildBackendRedisRequiresURL(t *testing.T) {
	cc := reqctxconfig.CacheConfig{Backend: "redis"}
	if _, err := cc.BuildBackend(); err == nil {
		t.Fatalf("expected an error when redis_url is missing")
	}
}

func TestBuildBackendUnknownBackend(t *testing.T) {
	cc := reqctxconfig.CacheConfig{Backend: "memcached"}
	if _, err := cc.BuildBackend(); err == nil {
		t.Fatalf("expected an error for an unrecognized backend")
	}
}
