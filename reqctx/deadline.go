package reqctx

import (
	"time"

	"github.com/itsneelabh/reqctx/reqctxlog"
)

// deadlineState is the single shared timer for one context chain. It is
// created once, at the root WithDeadline call, not per Resolve — every
// suspension anywhere in the tree races against the same fired channel.
type deadlineState struct {
	timer *time.Timer
	fired chan struct{}
}

// WithDeadline installs a wall-clock deadline on a context chain: every
// Resolve anywhere in the tree races its inner future against the
// deadline, and the chain is Killed the instant the deadline fires so
// in-flight model requests observe ErrInterrupted at their next
// suspension point, per spec.md §4.4. A zero or negative d is a no-op.
// logger, if given, receives a line when the deadline actually fires —
// the one case where a whole chain gets killed out from under its
// callers without an error ever reaching them directly.
func WithDeadline(d time.Duration, logger ...reqctxlog.Logger) func(*Context) *Context {
	if d <= 0 {
		return func(ctx *Context) *Context { return ctx }
	}
	log := pickLogger(logger)
	return func(ctx *Context) *Context {
		state := &deadlineState{fired: make(chan struct{})}
		state.timer = time.AfterFunc(d, func() {
			close(state.fired)
			ctx.Kill()
			log.Warn("deadline fired, killing context chain", "context", ctx.Name(), "deadline", d.String())
		})

		ctx.WrapResolve(func(next ResolveFunc) ResolveFunc {
			return func(self *Context, f Future) (interface{}, error) {
				select {
				case <-state.fired:
					return nil, ErrInterrupted
				default:
				}

				type outcome struct {
					value interface{}
					err   error
				}
				done := make(chan outcome, 1)
				go func() {
					v, err := next(self, f)
					done <- outcome{v, err}
				}()

				select {
				case <-state.fired:
					return nil, ErrInterrupted
				case o := <-done:
					return o.value, o.err
				}
			}
		})

		ctx.WrapKill(func(next KillFunc) KillFunc {
			return func(self *Context) {
				state.timer.Stop()
				next(self)
			}
		})

		return ctx
	}
}
