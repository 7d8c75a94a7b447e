package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// Exporter selects which trace/metric exporter NewOTelProvider wires up.
// ExporterOTLP sends traces over OTLP/gRPC and metrics over OTLP/HTTP,
// both to the same collector endpoint; ExporterStdout writes
// human-readable spans and metrics to stdout, useful for local development
// and tests where running a collector is overkill.
type Exporter string

const (
	ExporterOTLP   Exporter = "otlp"
	ExporterStdout Exporter = "stdout"
)

// Provider owns the OpenTelemetry trace/metric pipeline for one service:
// a Tracer (wrapped as a SpanFactory for WithTelemetry), a Meter (wrapped
// as Metrics), and graceful Shutdown. Ported from the teacher's
// NewOTelProvider, generalized from an HTTP-only exporter to a
// configurable OTLP/stdout switch and narrowed to what this module's
// telemetry layer actually needs (no core.Telemetry/core.Span adapter —
// this module has no HTTP binding to adapt for).
type Provider struct {
	SpanFactory SpanFactory
	Metrics     *Metrics

	traceProvider  *sdktrace.TracerProvider
	metricProvider *sdkmetric.MeterProvider

	shutdownOnce sync.Once
}

// NewOTelProvider creates a Provider for serviceName, exporting via
// exporter. endpoint is the OTLP collector address (ignored for
// ExporterStdout).
func NewOTelProvider(serviceName string, exporter Exporter, endpoint string) (*Provider, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("telemetry: service name cannot be empty")
	}

	ctx := context.Background()
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)

	traceExporter, metricExporter, err := newExporters(ctx, exporter, endpoint)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	tracer := tp.Tracer(serviceName)
	meter := mp.Meter(serviceName)

	return &Provider{
		SpanFactory:    NewOTelSpanFactory(tracer),
		Metrics:        NewMetrics(meter),
		traceProvider:  tp,
		metricProvider: mp,
	}, nil
}

func newExporters(ctx context.Context, exporter Exporter, endpoint string) (sdktrace.SpanExporter, sdkmetric.Exporter, error) {
	switch exporter {
	case ExporterStdout, "":
		te, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, nil, fmt.Errorf("telemetry: create stdout trace exporter: %w", err)
		}
		me, err := stdoutMetricExporter()
		if err != nil {
			return nil, nil, err
		}
		return te, me, nil
	case ExporterOTLP:
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		te, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, nil, fmt.Errorf("telemetry: create otlp trace exporter for %s: %w", endpoint, err)
		}
		me, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(endpoint), otlpmetrichttp.WithInsecure())
		if err != nil {
			return nil, nil, fmt.Errorf("telemetry: create otlp metric exporter for %s: %w", endpoint, err)
		}
		return te, me, nil
	default:
		return nil, nil, fmt.Errorf("telemetry: unknown exporter %q", exporter)
	}
}

func stdoutMetricExporter() (sdkmetric.Exporter, error) {
	e, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("telemetry: create stdout metric exporter: %w", err)
	}
	return e, nil
}

// Shutdown flushes and stops the trace/metric pipelines. Safe to call
// more than once.
func (p *Provider) Shutdown(ctx context.Context) error {
	var err error
	p.shutdownOnce.Do(func() {
		var errs []error
		if p.metricProvider != nil {
			if e := p.metricProvider.Shutdown(ctx); e != nil {
				errs = append(errs, fmt.Errorf("metric provider shutdown: %w", e))
			}
		}
		if p.traceProvider != nil {
			if e := p.traceProvider.Shutdown(ctx); e != nil {
				errs = append(errs, fmt.Errorf("trace provider shutdown: %w", e))
			}
		}
		if len(errs) > 0 {
			err = fmt.Errorf("telemetry: shutdown errors: %v", errs)
		}
	})
	return err
}

// Tracer exposes the underlying trace.Tracer for callers that need to
// start spans outside the reqctx.Context layer (e.g. around the
// transport code that constructs the root context).
func (p *Provider) Tracer() trace.Tracer {
	if f, ok := p.SpanFactory.(*OTelSpanFactory); ok {
		return f.tracer
	}
	return otel.Tracer("reqctx")
}

// MeterProvider exposes the raw metric.MeterProvider for callers wiring
// additional instruments beyond Metrics.
func (p *Provider) MeterProvider() metric.MeterProvider {
	return p.metricProvider
}
