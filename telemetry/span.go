// Package telemetry implements the span-per-context layer from spec.md
// §6.2–§6.3: every reqctx.Context gets its own span, model-span attributes
// and events land on the model's own span rather than its parent's, and an
// inbound trace can be extracted to parent the whole request tree.
//
// Ambient span propagation is done by threading an ordinary
// context.Context explicitly through each node (stored via
// reqctx.Context.SetValue) rather than via goroutine-local storage —
// request/call dispatch in this module runs synchronously on one
// goroutine per in-flight suspension, so explicit threading is sufficient
// and keeps span lookups a plain map read instead of a TLS lookup.
package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/itsneelabh/reqctx/reqctx"
)

// SpanFactory starts a new span as a child of parent, returning the
// context.Context carrying it alongside the span itself. OTelSpanFactory
// is the production implementation; reqctxtest ships a fake for embedding
// applications' own tests.
type SpanFactory interface {
	Start(parent context.Context, name string) (context.Context, trace.Span)
}

// OTelSpanFactory starts spans on a real OpenTelemetry tracer.
type OTelSpanFactory struct {
	tracer trace.Tracer
}

// NewOTelSpanFactory wraps tracer as a SpanFactory.
func NewOTelSpanFactory(tracer trace.Tracer) *OTelSpanFactory {
	return &OTelSpanFactory{tracer: tracer}
}

func (f *OTelSpanFactory) Start(parent context.Context, name string) (context.Context, trace.Span) {
	return f.tracer.Start(parent, name)
}

type contextKey struct{ name string }

var spanKey = contextKey{"reqctx.telemetry.span"}

// nodeSpan is the per-Context-node telemetry state attached via
// reqctx.Context.SetValue/Value — the "internal symbol" spec.md §6.2
// describes, realized as an unexported key the way context.Context itself
// hides its own values.
type nodeSpan struct {
	span    trace.Span
	spanCtx context.Context
	endOnce sync.Once
}

// GetSpan returns the span attached to ctx, for tests that assert on span
// placement (spec.md §8's "telemetry span placement" scenario).
func GetSpan(ctx *reqctx.Context) (trace.Span, bool) {
	ns, ok := nodeSpanOf(ctx)
	if !ok {
		return nil, false
	}
	return ns.span, true
}

// GetSpanContext returns the ambient context.Context carrying ctx's span,
// for code that needs to call other OTel-instrumented APIs with the
// correct parent.
func GetSpanContext(ctx *reqctx.Context) (context.Context, bool) {
	ns, ok := nodeSpanOf(ctx)
	if !ok {
		return nil, false
	}
	return ns.spanCtx, true
}

func nodeSpanOf(ctx *reqctx.Context) (*nodeSpan, bool) {
	v, ok := ctx.Value(spanKey)
	if !ok {
		return nil, false
	}
	ns, ok := v.(*nodeSpan)
	return ns, ok
}

func attachSpan(ctx *reqctx.Context, spanCtx context.Context, span trace.Span) {
	ctx.SetValue(spanKey, &nodeSpan{span: span, spanCtx: spanCtx})
}

func endSpan(ctx *reqctx.Context, code codes.Code, description string) {
	ns, ok := nodeSpanOf(ctx)
	if !ok {
		return
	}
	ns.endOnce.Do(func() {
		if code != codes.Unset {
			ns.span.SetStatus(code, description)
		}
		ns.span.End()
	})
}

func toAttributes(attrs map[string]interface{}) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		out = append(out, toAttribute(k, v))
	}
	return out
}

func toAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case nil:
		return attribute.String(key, "")
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
