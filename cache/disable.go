package cache

import (
	"sync"

	"github.com/itsneelabh/reqctx/reqctx"
)

// disableKey is the value-store slot WithCache installs the shared
// *disableState pointer under. It is propagated from parent to child on
// every Create (see WithCache's WrapCreate), the same pointer reused
// everywhere in the chain, so Disable called from anywhere in the tree is
// visible to every sibling and descendant — spec.md §4.6's "disableCache()
// on the root of the context chain" translated to a shared, chain-wide flag
// rather than a Context method, since *reqctx.Context exposes no surface
// for a sibling package to add methods to it.
type disableKey struct{}

type disableState struct {
	mu       sync.Mutex
	disabled bool
}

// Disable turns off caching for the rest of ctx's chain: every strategy
// dispatch from this point on (on ctx, its siblings sharing the same root,
// and its descendants) skips backend reads and writes, falling through to
// plain Request. It is idempotent and safe to call from inside a model
// body. Calling it on a context with no cache layer installed is a no-op.
func Disable(ctx *reqctx.Context) {
	if v, ok := ctx.Value(disableKey{}); ok {
		state := v.(*disableState)
		state.mu.Lock()
		state.disabled = true
		state.mu.Unlock()
	}
}

// ShouldCache reports whether the cache layer installed on ctx's chain is
// still enabled. It returns true when no cache layer is installed at all,
// so callers outside a WithCache chain never see caching wrongly reported
// as disabled.
func ShouldCache(ctx *reqctx.Context) bool {
	v, ok := ctx.Value(disableKey{})
	if !ok {
		return true
	}
	state := v.(*disableState)
	state.mu.Lock()
	defer state.mu.Unlock()
	return !state.disabled
}
