package telemetry

import (
	"go.opentelemetry.io/otel/attribute"

	"github.com/itsneelabh/reqctx/reqctx"
)

// applyModelHints sets a model's DisplayTags (static, every invocation)
// and DisplayProps (a PropsFilter projection of props) as attributes on
// the span already attached to child — the span Create started for this
// model's own child scope.
func applyModelHints(child *reqctx.Context, model *reqctx.Model, props reqctx.Props) {
	ns, ok := nodeSpanOf(child)
	if !ok {
		return
	}
	if len(model.DisplayTags) > 0 {
		ns.span.SetAttributes(toAttributes(model.DisplayTags)...)
	}
	if attrs := filterProps(model.DisplayProps, props); len(attrs) > 0 {
		ns.span.SetAttributes(attrs...)
	}
}

// applyResultHint sets a model's DisplayResult projection of its resolved
// value as attributes on its own span.
func applyResultHint(child *reqctx.Context, model *reqctx.Model, result interface{}) {
	ns, ok := nodeSpanOf(child)
	if !ok {
		return
	}
	if attrs := filterResult(model.DisplayResult, result); len(attrs) > 0 {
		ns.span.SetAttributes(attrs...)
	}
}

// filterProps projects source through filter: the '*' filter copies every
// field; a per-field filter includes, renames (Alt), or computes each
// named attribute.
func filterProps(filter reqctx.PropsFilter, source reqctx.Props) []attribute.KeyValue {
	if filter.All {
		return toAttributes(source)
	}
	if len(filter.Fields) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(filter.Fields))
	for field, spec := range filter.Fields {
		switch {
		case spec.Compute != nil:
			out = append(out, toAttribute(field, spec.Compute(field, source[field])))
		case spec.Alt != "":
			out = append(out, toAttribute(field, source[spec.Alt]))
		case spec.Include:
			out = append(out, toAttribute(field, source[field]))
		}
	}
	return out
}

// filterResult projects a model's resolved value the same way, treating
// an object-shaped result as Props and any other value as a single
// "result" field addressable by Compute/Include (Alt has no meaning
// against a non-object result and is ignored).
func filterResult(filter reqctx.PropsFilter, result interface{}) []attribute.KeyValue {
	asProps, isProps := asPropsValue(result)

	if filter.All {
		if isProps {
			return toAttributes(asProps)
		}
		return []attribute.KeyValue{toAttribute("result", result)}
	}
	if len(filter.Fields) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(filter.Fields))
	for field, spec := range filter.Fields {
		switch {
		case spec.Compute != nil:
			out = append(out, toAttribute(field, spec.Compute(field, result)))
		case isProps && spec.Alt != "":
			out = append(out, toAttribute(field, asProps[spec.Alt]))
		case isProps && spec.Include:
			out = append(out, toAttribute(field, asProps[field]))
		case !isProps && spec.Include:
			out = append(out, toAttribute(field, result))
		}
	}
	return out
}

func asPropsValue(v interface{}) (reqctx.Props, bool) {
	switch t := v.(type) {
	case reqctx.Props:
		return t, true
	case map[string]interface{}:
		return reqctx.Props(t), true
	default:
		return nil, false
	}
}
