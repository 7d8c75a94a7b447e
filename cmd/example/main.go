// Command example demonstrates composing the context core, cache, and
// telemetry layers into one root reqctx.Context: config loaded from the
// environment, a model that fetches a "quote of the day" with a
// cache-first strategy, and spans/metrics flowing to stdout.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/itsneelabh/reqctx/cache"
	"github.com/itsneelabh/reqctx/reqctx"
	"github.com/itsneelabh/reqctx/reqctxconfig"
	"github.com/itsneelabh/reqctx/reqctxlog"
	"github.com/itsneelabh/reqctx/telemetry"
)

func main() {
	cfg, err := reqctxconfig.NewConfig(
		reqctxconfig.WithDefaultTTL(time.Minute),
		reqctxconfig.WithTelemetry("reqctx-example", "stdout", ""),
	)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := reqctxlog.NewDefaultLogger()

	backend, err := cfg.Cache.BuildBackend()
	if err != nil {
		log.Fatalf("build cache backend: %v", err)
	}

	provider, err := telemetry.NewOTelProvider(cfg.Telemetry.ServiceName, telemetry.Exporter(cfg.Telemetry.Exporter), cfg.Telemetry.Endpoint)
	if err != nil {
		log.Fatalf("build telemetry provider: %v", err)
	}
	defer provider.Shutdown(context.Background())

	root := reqctx.Compose(
		reqctx.WithModels(reqctx.NewRegistry()),
		reqctx.WithDeadline(cfg.Deadline),
		cache.WithCache(backend, cfg.Cache.ToCacheConfig(), backgroundFactory(cfg, provider)),
		telemetry.WithTelemetry(provider.SpanFactory, "example-request", context.Background(), provider.Metrics),
	)(reqctx.NewContext("example-request"))
	defer root.End()

	quote := reqctx.NewModel("quoteOfTheDay", reqctx.SyncFn(fetchQuote),
		reqctx.WithCacheStrategy(cache.CacheFirst{}),
		reqctx.WithDisplayProps(reqctx.AllProps()),
		reqctx.WithDisplayResult(reqctx.AllProps()),
	)

	value, err := root.Request(quote, reqctx.Props{"category": "engineering"})
	if err != nil {
		logger.Error("request failed", "error", err.Error())
		return
	}
	logger.Info("fetched quote", "value", fmt.Sprintf("%v", value))
}

func fetchQuote(props reqctx.Props, ctx *reqctx.Context) (interface{}, error) {
	time.Sleep(50 * time.Millisecond)
	return map[string]interface{}{
		"category":  props["category"],
		"text":      "Premature optimization is the root of all evil.",
		"fetchedAt": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// backgroundFactory builds the root context a stale-while-revalidate
// refresh runs in: same deadline/telemetry layers as the foreground
// request, but with caching turned off so the refresh itself never
// schedules another refresh.
func backgroundFactory(cfg *reqctxconfig.Config, provider *telemetry.Provider) cache.BackgroundFactory {
	return func() *reqctx.Context {
		bg := reqctx.Compose(
			reqctx.WithModels(reqctx.NewRegistry()),
			reqctx.WithDeadline(cfg.Deadline),
			telemetry.WithTelemetry(provider.SpanFactory, "background-refresh", context.Background(), provider.Metrics),
		)(reqctx.NewContext("background-refresh"))
		return bg
	}
}
