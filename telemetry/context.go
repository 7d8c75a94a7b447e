package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/itsneelabh/reqctx/reqctx"
)

// ExtractInbound extracts an upstream W3C trace context from carrier (an
// HTTP header map, a message envelope, whatever the caller has) onto
// parent, so the root span WithTelemetry starts is a child of the
// upstream span instead of a new trace — spec.md §6.3's inbound trace
// parenting.
func ExtractInbound(parent context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(parent, carrier)
}

// WithTelemetry installs the span-per-context layer on a root
// reqctx.Context:
//   - a span is started for the root itself, parented on inbound (pass
//     context.Background() for a fresh trace);
//   - every Create'd descendant gets its own span, parented on its
//     creator's — captured once, at Create time, never re-parented later;
//   - End/Fail close the node's span with the matching status;
//   - Event records a span event on the calling node's own span, never a
//     parent's;
//   - Request applies a model's DisplayProps/DisplayResult/DisplayTags
//     hints to the child span Call creates for it, scoped to that one
//     Request so concurrent Requests on the same node never cross-apply
//     each other's hints.
//
// metrics is optional (nil disables it): when set, recognized event names
// emitted via ctx.Event — "model.invocation", "cache.hit", "cache.miss",
// "cache.update" — are additionally counted on it, so the cache and model
// layers never need to import this package themselves; they only ever call
// the generic Event hook.
func WithTelemetry(factory SpanFactory, rootName string, inbound context.Context, metrics *Metrics) func(*reqctx.Context) *reqctx.Context {
	if inbound == nil {
		inbound = context.Background()
	}
	return func(ctx *reqctx.Context) *reqctx.Context {
		rootSpanCtx, rootSpan := factory.Start(inbound, rootName)
		attachSpan(ctx, rootSpanCtx, rootSpan)

		ctx.WrapCreate(func(next reqctx.CreateFunc) reqctx.CreateFunc {
			return func(self *reqctx.Context, name string) *reqctx.Context {
				child := next(self, name)
				parentSpanCtx := inbound
				if sc, ok := GetSpanContext(self); ok {
					parentSpanCtx = sc
				}
				spanCtx, span := factory.Start(parentSpanCtx, name)
				attachSpan(child, spanCtx, span)
				return child
			}
		})

		ctx.WrapEnd(func(next reqctx.EndFunc) reqctx.EndFunc {
			return func(self *reqctx.Context) {
				next(self)
				endSpan(self, codes.Ok, "")
			}
		})

		ctx.WrapFail(func(next reqctx.FailFunc) reqctx.FailFunc {
			return func(self *reqctx.Context, err error) {
				next(self, err)
				if ns, ok := nodeSpanOf(self); ok {
					ns.span.RecordError(err)
				}
				endSpan(self, codes.Error, err.Error())
			}
		})

		ctx.WrapEvent(func(next reqctx.EventFunc) reqctx.EventFunc {
			return func(self *reqctx.Context, name string, attrs map[string]interface{}) {
				if ns, ok := nodeSpanOf(self); ok {
					ns.span.AddEvent(name, trace.WithAttributes(toAttributes(attrs)...))
				}
				recordMetric(metrics, name, attrs)
				next(self, name, attrs)
			}
		})

		ctx.WrapRequest(func(next reqctx.RequestFunc) reqctx.RequestFunc {
			return func(self *reqctx.Context, model *reqctx.Model, props reqctx.Props) (interface{}, error) {
				scoped := self.ScopedCall(func(nextCall reqctx.CallFunc) reqctx.CallFunc {
					return func(s *reqctx.Context, name string, action func(*reqctx.Context) (interface{}, error)) (interface{}, error) {
						return nextCall(s, name, func(child *reqctx.Context) (interface{}, error) {
							// child was created from s and inherited this scoped Call;
							// restore the unscoped one so Requests made from inside the
							// model body do not pick up this model's hints.
							child.WrapCall(func(reqctx.CallFunc) reqctx.CallFunc { return nextCall })
							applyModelHints(child, model, props)
							value, err := action(child)
							if err == nil {
								applyResultHint(child, model, value)
							}
							return value, err
						})
					}
				})
				return next(scoped, model, props)
			}
		})

		return ctx
	}
}

func recordMetric(metrics *Metrics, name string, attrs map[string]interface{}) {
	if metrics == nil {
		return
	}
	strategy, _ := attrs["strategy"].(string)
	switch name {
	case "cache.hit":
		metrics.CacheHit(context.Background(), strategy)
	case "cache.miss":
		metrics.CacheMiss(context.Background(), strategy)
	case "cache.update":
		metrics.CacheUpdate(context.Background(), strategy)
	case "model.invocation":
		if model, ok := attrs["model"].(string); ok {
			metrics.ModelInvocation(context.Background(), model)
		}
	}
}
