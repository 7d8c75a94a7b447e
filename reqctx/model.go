package reqctx

// SyncFn is a model body that runs to completion without suspending,
// returning a JSON-serializable value directly.
type SyncFn func(props Props, ctx *Context) (interface{}, error)

// AsyncFn is a model body that performs blocking work (I/O, a sub-request)
// on its own goroutine; the dispatcher wraps its execution in a Future and
// routes it through ctx.Resolve so deadline/telemetry layers observe the
// suspension point, mirroring a Promise-returning body in the source design.
type AsyncFn func(props Props, ctx *Context) (interface{}, error)

// GenFn is a generator-shaped model body: it receives a Yielder and calls
// Yielder.Yield/YieldGen at every suspension point, so liveness is
// rechecked between steps exactly as spec.md's generator driver requires.
// Nested generators are ordinary nested calls — Go's goroutine stack plays
// the role the source's explicit generator stack does.
type GenFn func(props Props, ctx *Context, y *Yielder) (interface{}, error)

// Actionable lets a model body be expressed as an object carrying an
// action, the "object with an action callable" shape from spec.md §3.
// Action must return a SyncFn, AsyncFn, or GenFn.
type Actionable interface {
	Action() interface{}
}

// CacheStrategy is the marker interface cache strategies implement. It is
// defined here (rather than in package cache) so Model — which must carry
// an optional CacheStrategy per spec.md §3 — has no import-cycle back onto
// the cache layer that interprets it.
type CacheStrategy interface {
	// StrategyName identifies the strategy for telemetry attribution
	// (the "strategy" attribute on cache.hit/cache.miss/cache.update).
	StrategyName() string
}

// FilterSpec describes how a single field is projected into a telemetry
// attribute: Include for "use as-is", Alt for "read this source field
// instead", or Compute for a derived value. Exactly one should be set.
type FilterSpec struct {
	Include bool
	Alt     string
	Compute func(key string, value interface{}) interface{}
}

// PropsFilter is the "PropsFilter" semantics from spec.md §4.7: either the
// literal '*' (All) meaning "every scalar-like field", or a per-field
// mapping. A zero-value PropsFilter records nothing.
type PropsFilter struct {
	All    bool
	Fields map[string]FilterSpec
}

// AllProps returns the '*' filter.
func AllProps() PropsFilter { return PropsFilter{All: true} }

// FieldProps returns a filter selecting exactly the given fields.
func FieldProps(fields map[string]FilterSpec) PropsFilter {
	return PropsFilter{Fields: fields}
}

// Model is a named, memoizable unit of work. DisplayName is required; the
// remaining attributes are optional hints consumed by the cache and
// telemetry layers.
type Model struct {
	DisplayName   string
	DisplayProps  PropsFilter
	DisplayResult PropsFilter
	DisplayTags   map[string]interface{}
	CacheStrategy CacheStrategy

	body interface{}
}

// ModelOption configures optional Model attributes at construction time.
type ModelOption func(*Model)

// WithCacheStrategy attaches a cache strategy hint to the model.
func WithCacheStrategy(s CacheStrategy) ModelOption {
	return func(m *Model) { m.CacheStrategy = s }
}

// WithDisplayProps attaches a telemetry props filter.
func WithDisplayProps(f PropsFilter) ModelOption {
	return func(m *Model) { m.DisplayProps = f }
}

// WithDisplayResult attaches a telemetry result filter.
func WithDisplayResult(f PropsFilter) ModelOption {
	return func(m *Model) { m.DisplayResult = f }
}

// WithDisplayTags attaches static telemetry attributes merged onto the
// model's span on every invocation.
func WithDisplayTags(tags map[string]interface{}) ModelOption {
	return func(m *Model) { m.DisplayTags = tags }
}

// NewModel builds a Model. body must be a SyncFn, AsyncFn, GenFn, or an
// Actionable wrapping one of those — anything else fails at Request time
// with ErrUnexpectedModelType rather than at construction, matching the
// source's runtime (not compile-time) contract check.
func NewModel(displayName string, body interface{}, opts ...ModelOption) *Model {
	m := &Model{DisplayName: displayName, body: body}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// resolveBody follows one Actionable indirection (the source does not
// nest action-objects) and returns the underlying callable shape.
func (m *Model) resolveBody() interface{} {
	body := m.body
	if a, ok := body.(Actionable); ok {
		return a.Action()
	}
	return body
}
