package reqctx

import "github.com/itsneelabh/reqctx/reqctxlog"

// maxOverrideChain bounds transitive override resolution. A chain this
// long almost certainly means two overrides point at each other; past it
// we give up and run whatever model we last resolved to rather than
// recursing forever.
const maxOverrideChain = 32

// WithOverrides installs transitive model substitution on a context
// chain: any Request for a model whose DisplayName appears in overrides
// runs the override's body instead, and the substitution is followed
// transitively (an override that itself names an overridden model keeps
// resolving) up to maxOverrideChain hops, per spec.md §4.5. logger, if
// given, receives a warning when resolution is cut off by
// maxOverrideChain — the one case where this layer silently gives up on
// finding a terminal model instead of resolving one.
func WithOverrides(overrides map[string]*Model, logger ...reqctxlog.Logger) func(*Context) *Context {
	log := pickLogger(logger)
	return func(ctx *Context) *Context {
		ctx.WrapRequest(func(next RequestFunc) RequestFunc {
			return func(self *Context, model *Model, props Props) (interface{}, error) {
				return next(self, resolveOverride(model, overrides, log), props)
			}
		})
		return ctx
	}
}

func resolveOverride(model *Model, overrides map[string]*Model, log reqctxlog.Logger) *Model {
	current := model
	for i := 0; i < maxOverrideChain; i++ {
		replacement, ok := overrides[current.DisplayName]
		if !ok || replacement == current {
			return current
		}
		current = replacement
	}
	log.Warn("override chain exceeded max hops, using last resolved model", "model", model.DisplayName, "maxHops", maxOverrideChain)
	return current
}
