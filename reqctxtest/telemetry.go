package reqctxtest

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// FakeSpanFactory is a telemetry.SpanFactory backed by the OpenTelemetry
// SDK's own in-memory exporter (tracetest.InMemoryExporter) rather than a
// hand-rolled fake — every span it starts is a real sdktrace span, so
// assertions in tests read real span data (names, attributes, status,
// events) instead of a parallel fake shape.
type FakeSpanFactory struct {
	exporter *tracetest.InMemoryExporter
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewFakeSpanFactory constructs a FakeSpanFactory with its own isolated
// TracerProvider, so tests never interfere with whatever global provider
// (if any) the process has configured.
func NewFakeSpanFactory() *FakeSpanFactory {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	return &FakeSpanFactory{
		exporter: exporter,
		provider: provider,
		tracer:   provider.Tracer("reqctxtest"),
	}
}

func (f *FakeSpanFactory) Start(parent context.Context, name string) (context.Context, trace.Span) {
	return f.tracer.Start(parent, name)
}

// Spans returns every span ended so far, in end order.
func (f *FakeSpanFactory) Spans() tracetest.SpanStubs {
	return f.exporter.GetSpans()
}

// Reset clears the recorded spans.
func (f *FakeSpanFactory) Reset() {
	f.exporter.Reset()
}
