package reqctx

import "sync"

// Registry is the per-request memoization table mapping Key(displayName,
// props) to a resolved-or-pending outcome. One Registry backs exactly one
// context chain; sharing a Registry across unrelated chains would leak
// memoized values across requests.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	done  chan struct{}
	value interface{}
	err   error
}

// NewRegistry constructs an empty registry for one request.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// getOrCreate returns the entry for key, creating and installing a pending
// one if absent. owner is true exactly for the caller that created it —
// that caller is responsible for computing the value and closing done.
func (r *Registry) getOrCreate(key string) (entry *registryEntry, owner bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		return e, false
	}
	e := &registryEntry{done: make(chan struct{})}
	r.entries[key] = e
	return e, true
}

// remove drops key from the registry, unconditionally. Used to evict a
// failed entry so the next Request with the same key re-executes the body
// instead of replaying the cached error, per spec.md §3/§7.
func (r *Registry) remove(key string) {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
}

// set pre-seeds key with value, failing with ErrAlreadyInRegistry if the
// key is already present (pending or resolved) — Set never overwrites.
func (r *Registry) set(key string, value interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; exists {
		return ErrAlreadyInRegistry
	}
	e := &registryEntry{done: make(chan struct{}), value: value}
	close(e.done)
	r.entries[key] = e
	return nil
}

// liveness is the shared kill flag for one context chain. WithModels
// creates exactly one per root; every context Create'd afterward shares it
// through the copied requestFn/killFn/isAliveFn closures, so Kill called on
// any descendant reaches the whole tree, per spec.md §4.3.
type liveness struct {
	mu    sync.Mutex
	alive bool
}

func newLiveness() *liveness { return &liveness{alive: true} }

func (l *liveness) kill() {
	l.mu.Lock()
	l.alive = false
	l.mu.Unlock()
}

func (l *liveness) isAlive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.alive
}

// WithModels installs the model-execution engine on a context: memoized
// Request, conflict-checked Set, and cooperative Kill/IsAlive backed by a
// liveness flag shared by the whole chain rooted at ctx.
func WithModels(registry *Registry) func(*Context) *Context {
	live := newLiveness()
	return func(ctx *Context) *Context {
		ctx.WrapIsAlive(func(next IsAliveFunc) IsAliveFunc {
			return func(self *Context) bool {
				return live.isAlive() && next(self)
			}
		})
		ctx.WrapKill(func(next KillFunc) KillFunc {
			return func(self *Context) {
				live.kill()
				next(self)
			}
		})
		ctx.WrapSet(func(next SetFunc) SetFunc {
			return func(self *Context, model *Model, value interface{}, props Props) error {
				if model.DisplayName == "" {
					return newModelError("set", "", ErrMissingDisplayName)
				}
				key := Key(model.DisplayName, CleanUndefined(props))
				if err := registry.set(key, value); err != nil {
					return newModelError("set", key, err)
				}
				return next(self, model, value, props)
			}
		})
		ctx.WrapRequest(func(next RequestFunc) RequestFunc {
			return func(self *Context, model *Model, props Props) (interface{}, error) {
				return requestModel(self, model, props, registry, live)
			}
		})
		return ctx
	}
}

func requestModel(self *Context, model *Model, props Props, registry *Registry, live *liveness) (interface{}, error) {
	if model.DisplayName == "" {
		return nil, newModelError("request", "", ErrMissingDisplayName)
	}
	if !live.isAlive() {
		return nil, ErrInterrupted
	}

	cleaned := CleanUndefined(props)
	key := Key(model.DisplayName, cleaned)

	entry, owner := registry.getOrCreate(key)
	if owner {
		self.Event("model.invocation", map[string]interface{}{"model": model.DisplayName})
		value, err := self.Call(model.DisplayName, func(child *Context) (interface{}, error) {
			return dispatchBody(model, cleaned, child)
		})
		if err == nil && value == nil {
			err = newModelError("request", key, ErrUnexpectedModelResult)
		}
		entry.value, entry.err = value, err
		close(entry.done)
		if err != nil {
			registry.remove(key)
		}
		if !live.isAlive() {
			return nil, ErrInterrupted
		}
		return value, err
	}

	fut := make(chan Result, 1)
	go func() {
		<-entry.done
		fut <- Result{Value: entry.value, Err: entry.err}
	}()
	value, err := self.Resolve(fut)
	if !live.isAlive() {
		return nil, ErrInterrupted
	}
	return value, err
}

// dispatchBody invokes a model's body according to its runtime shape —
// a plain synchronous function, a blocking function run on its own
// goroutine and raced through Resolve, or a generator driven by a Yielder.
func dispatchBody(model *Model, props Props, ctx *Context) (interface{}, error) {
	switch fn := model.resolveBody().(type) {
	case SyncFn:
		return fn(props, ctx)
	case AsyncFn:
		return ctx.Resolve(Go(func() (interface{}, error) {
			return fn(props, ctx)
		}))
	case GenFn:
		return fn(props, ctx, &Yielder{ctx: ctx})
	default:
		return nil, ErrUnexpectedModelType
	}
}
