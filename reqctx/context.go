// Package reqctx implements the per-request execution context core: a
// minimal base context, a memoizing model-execution engine, cooperative
// cancellation, and the deadline and overrides layers. The cache and
// telemetry layers live in sibling packages (cache, telemetry) and compose
// onto the same *Context via its Wrap* hooks, the same way an HTTP
// middleware chain wraps a handler one layer at a time — `func(Handler)
// Handler`, applied once at the root and in effect for the whole tree.
//
// The source this is translated from represents a "layer" as code that
// mutates methods on a single shared object; every context in a request
// tree is really the same kind of object with the same currently-installed
// behavior. *Context reproduces that directly: Create snapshots whichever
// operations are currently installed onto the new child, so a layer only
// ever needs to be applied once, at the root, to take effect everywhere in
// that root's tree.
package reqctx

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Result is the outcome of an asynchronous unit of work fed into Resolve —
// the Go analogue of an awaited promise.
type Result struct {
	Value interface{}
	Err   error
}

// Future is a channel that yields exactly one Result.
type Future = <-chan Result

// Go runs fn on its own goroutine and returns a Future receiving its
// outcome — the standard way to turn blocking work into something Resolve
// can race against a deadline or bracket with a telemetry span.
func Go(fn func() (interface{}, error)) Future {
	ch := make(chan Result, 1)
	go func() {
		v, err := fn()
		ch <- Result{Value: v, Err: err}
	}()
	return ch
}

// Operation function types. Every one takes the Context it is operating on
// as an explicit first argument ("self") rather than relying on a method
// receiver, because a wrapper installed by one layer must be able to hand
// a *different*, scoped *Context down to the layers below it (telemetry's
// per-request hint scoping does exactly this — see telemetry.WithTelemetry).
type (
	CreateFunc  func(self *Context, name string) *Context
	EndFunc     func(self *Context)
	FailFunc    func(self *Context, err error)
	CallFunc    func(self *Context, name string, action func(*Context) (interface{}, error)) (interface{}, error)
	EventFunc   func(self *Context, name string, attrs map[string]interface{})
	SetFunc     func(self *Context, model *Model, value interface{}, props Props) error
	RequestFunc func(self *Context, model *Model, props Props) (interface{}, error)
	ResolveFunc func(self *Context, f Future) (interface{}, error)
	KillFunc    func(self *Context)
	IsAliveFunc func(self *Context) bool
)

// ctxState is the mutable lifecycle state of one logical context node,
// held by pointer so every *Context value that refers to the same node
// (including scoped clones used internally by layers) observes the same
// End/Fail transitions.
type ctxState struct {
	name      string
	id        string
	parent    *Context
	startTime time.Time

	mu      sync.Mutex
	ended   bool
	endTime time.Time
	err     error
}

// valueStore is the per-node key/value bag layers use to attach private
// data (the telemetry layer's span, for instance) without reaching into
// each other's internals — the same role an unexported context key plays
// against the standard library's context.Context.
type valueStore struct {
	mu sync.Mutex
	m  map[interface{}]interface{}
}

func newValueStore() *valueStore { return &valueStore{m: make(map[interface{}]interface{})} }

func (v *valueStore) set(key, value interface{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.m[key] = value
}

func (v *valueStore) get(key interface{}) (interface{}, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	val, ok := v.m[key]
	return val, ok
}

// Context is the capability surface model bodies and handlers operate on.
// A freshly constructed context (NewContext) already satisfies every
// method; Request/Set/Kill/IsAlive simply behave as inert stand-ins until
// WithModels (and optionally WithDeadline, WithOverrides, cache.WithCache,
// telemetry.WithTelemetry) install real behavior — see Compose.
type Context struct {
	state  *ctxState
	values *valueStore

	createFn  CreateFunc
	endFn     EndFunc
	failFn    FailFunc
	callFn    CallFunc
	eventFn   EventFunc
	setFn     SetFunc
	requestFn RequestFunc
	resolveFn ResolveFunc
	killFn    KillFunc
	isAliveFn IsAliveFunc
}

// NewContext constructs a root context named name with base-layer
// behavior only. Callers apply capability layers via Compose before
// handing it to request handlers.
func NewContext(name string) *Context {
	return &Context{
		state: &ctxState{
			name:      name,
			id:        uuid.NewString(),
			startTime: time.Now(),
		},
		values:    newValueStore(),
		createFn:  baseCreate,
		endFn:     baseEnd,
		failFn:    baseFail,
		callFn:    baseCall,
		eventFn:   baseEvent,
		setFn:     baseSet,
		requestFn: baseRequest,
		resolveFn: baseResolve,
		killFn:    baseKill,
		isAliveFn: baseIsAlive,
	}
}

func (c *Context) Name() string   { return c.state.name }
func (c *Context) ID() string     { return c.state.id }
func (c *Context) Parent() *Context { return c.state.parent }
func (c *Context) StartTime() time.Time { return c.state.startTime }

func (c *Context) EndTime() (time.Time, bool) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	return c.state.endTime, c.state.ended
}

func (c *Context) Error() error {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	return c.state.err
}

func (c *Context) LiveTime() time.Duration {
	c.state.mu.Lock()
	ended, endTime := c.state.ended, c.state.endTime
	c.state.mu.Unlock()
	if ended {
		return endTime.Sub(c.state.startTime)
	}
	return time.Since(c.state.startTime)
}

func (c *Context) Create(name string) *Context        { return c.createFn(c, name) }
func (c *Context) End()                                { c.endFn(c) }
func (c *Context) Fail(err error)                      { c.failFn(c, err) }
func (c *Context) Event(name string, attrs map[string]interface{}) { c.eventFn(c, name, attrs) }
func (c *Context) Kill()                               { c.killFn(c) }
func (c *Context) IsAlive() bool                        { return c.isAliveFn(c) }

func (c *Context) Call(name string, action func(*Context) (interface{}, error)) (interface{}, error) {
	return c.callFn(c, name, action)
}

func (c *Context) Set(model *Model, value interface{}, props Props) error {
	return c.setFn(c, model, value, props)
}

func (c *Context) Request(model *Model, props Props) (interface{}, error) {
	return c.requestFn(c, model, props)
}

func (c *Context) Resolve(f Future) (interface{}, error) {
	return c.resolveFn(c, f)
}

// SetValue attaches layer-private data to this node.
func (c *Context) SetValue(key, value interface{}) { c.values.set(key, value) }

// Value retrieves layer-private data attached to this node.
func (c *Context) Value(key interface{}) (interface{}, bool) { return c.values.get(key) }

// clone returns a shallow copy of c: same node identity (state, values)
// but an independent set of operation fields, so a layer can temporarily
// override e.g. callFn for one Request's duration without racing
// concurrent Requests against the same node.
func (c *Context) clone() *Context {
	cp := *c
	return &cp
}

// ScopedCall returns a shallow copy of c whose Call behavior is wrapped by
// mw, leaving c itself untouched. Layers use this to thread per-Request
// data (a telemetry hint, for instance) down to the Call that creates the
// model's child scope, without racing concurrent Requests against the
// same node the way mutating c's CallFunc directly would.
func (c *Context) ScopedCall(mw func(next CallFunc) CallFunc) *Context {
	cp := c.clone()
	cp.callFn = mw(cp.callFn)
	return cp
}

// --- Wrap* hooks: how sibling packages (cache, telemetry) and the
// deadline/overrides layers in this package install behavior. Each takes
// the currently-installed operation and returns a replacement that decides
// when (and whether) to call it — the same shape as `func(http.Handler)
// http.Handler` middleware.

func (c *Context) WrapCreate(mw func(next CreateFunc) CreateFunc)   { c.createFn = mw(c.createFn) }
func (c *Context) WrapEnd(mw func(next EndFunc) EndFunc)            { c.endFn = mw(c.endFn) }
func (c *Context) WrapFail(mw func(next FailFunc) FailFunc)         { c.failFn = mw(c.failFn) }
func (c *Context) WrapCall(mw func(next CallFunc) CallFunc)         { c.callFn = mw(c.callFn) }
func (c *Context) WrapEvent(mw func(next EventFunc) EventFunc)      { c.eventFn = mw(c.eventFn) }
func (c *Context) WrapSet(mw func(next SetFunc) SetFunc)            { c.setFn = mw(c.setFn) }
func (c *Context) WrapRequest(mw func(next RequestFunc) RequestFunc) { c.requestFn = mw(c.requestFn) }
func (c *Context) WrapResolve(mw func(next ResolveFunc) ResolveFunc) { c.resolveFn = mw(c.resolveFn) }
func (c *Context) WrapKill(mw func(next KillFunc) KillFunc)         { c.killFn = mw(c.killFn) }
func (c *Context) WrapIsAlive(mw func(next IsAliveFunc) IsAliveFunc) { c.isAliveFn = mw(c.isAliveFn) }

// Compose applies a sequence of capability layers to a base context,
// left to right, and returns the fully composed result — type-preserving
// composition over *Context, per spec.md §4's "Composition utility".
//
// Typical use:
//
//	ctx := reqctx.Compose(
//	    reqctx.WithModels(reqctx.NewRegistry()),
//	    reqctx.WithDeadline(5*time.Second),
//	    telemetry.WithTelemetry(spanFactory, "request", nil, nil),
//	)(reqctx.NewContext("request"))
func Compose(layers ...func(*Context) *Context) func(*Context) *Context {
	return func(ctx *Context) *Context {
		for _, layer := range layers {
			ctx = layer(ctx)
		}
		return ctx
	}
}

// --- base layer operations ---

func baseCreate(self *Context, name string) *Context {
	return &Context{
		state: &ctxState{
			name:      name,
			id:        uuid.NewString(),
			parent:    self,
			startTime: time.Now(),
		},
		values:    newValueStore(),
		createFn:  self.createFn,
		endFn:     self.endFn,
		failFn:    self.failFn,
		callFn:    self.callFn,
		eventFn:   self.eventFn,
		setFn:     self.setFn,
		requestFn: self.requestFn,
		resolveFn: self.resolveFn,
		killFn:    self.killFn,
		isAliveFn: self.isAliveFn,
	}
}

func baseEnd(self *Context) {
	self.state.mu.Lock()
	defer self.state.mu.Unlock()
	if self.state.ended {
		return
	}
	self.state.ended = true
	self.state.endTime = time.Now()
}

func baseFail(self *Context, err error) {
	self.state.mu.Lock()
	defer self.state.mu.Unlock()
	if self.state.ended {
		return
	}
	self.state.ended = true
	self.state.endTime = time.Now()
	self.state.err = err
}

func baseCall(self *Context, name string, action func(*Context) (interface{}, error)) (interface{}, error) {
	child := self.Create(name)
	value, err := action(child)
	if err != nil {
		child.Fail(err)
		return nil, err
	}
	child.End()
	return value, nil
}

func baseEvent(self *Context, name string, attrs map[string]interface{}) {}

func baseSet(self *Context, model *Model, value interface{}, props Props) error { return nil }

func baseRequest(self *Context, model *Model, props Props) (interface{}, error) {
	return nil, newModelError("request", "", ErrUnexpectedModelType)
}

func baseResolve(self *Context, f Future) (interface{}, error) {
	r := <-f
	return r.Value, r.Err
}

func baseKill(self *Context) {}

func baseIsAlive(self *Context) bool { return true }
