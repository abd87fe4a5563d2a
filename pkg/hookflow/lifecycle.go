package hookflow

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/randalmurphal/hookflow/pkg/hookflow/observability"
)

// ClosePath identifies which trigger closed an engine.
type ClosePath int32

const (
	notClosed ClosePath = iota
	// CloseExplicit is a direct call to Engine.Close.
	CloseExplicit
	// CloseScopeExit is the end of a With scope.
	CloseScopeExit
	// CloseCollected is the garbage-collection cleanup of an abandoned engine.
	CloseCollected
	// CloseProcessExit is the shutdown registry hook.
	CloseProcessExit
)

// String returns the path name used in logs and metrics.
func (p ClosePath) String() string {
	switch p {
	case notClosed:
		return "open"
	case CloseExplicit:
		return "explicit"
	case CloseScopeExit:
		return "scope_exit"
	case CloseCollected:
		return "collected"
	case CloseProcessExit:
		return "process_exit"
	default:
		return "unknown"
	}
}

// tolerant reports whether hook failures on this path are swallowed.
// Neither path has a caller to return an error to.
func (p ClosePath) tolerant() bool {
	return p == CloseCollected || p == CloseProcessExit
}

// Close closes the engine: Close runs on every callback in registration
// order, then PostClose runs on every callback. The first hook error stops
// the remaining hooks and is returned; the engine is closed regardless.
//
// Only the first close from any path does anything. Later calls return nil.
func (e *Engine) Close() error {
	defer runtime.KeepAlive(e)
	return e.core.close(CloseExplicit)
}

// IsClosed reports whether the engine has closed.
func (e *Engine) IsClosed() bool {
	_, closed := e.core.closedBy()
	return closed
}

// ClosedBy returns the path that closed the engine.
func (e *Engine) ClosedBy() (ClosePath, bool) {
	return e.core.closedBy()
}

// With creates an engine for state, passes it to fn, and closes it when fn
// returns or panics. Errors from fn and from closing are joined.
//
// Example:
//
//	err := hookflow.With(state, func(e *hookflow.Engine) error {
//	    _, err := e.RunEvent(ctx, hookflow.Init)
//	    return err
//	})
func With(state State, fn func(*Engine) error, opts ...Option) (err error) {
	e, err := New(state, opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, e.core.close(CloseScopeExit))
	}()
	return fn(e)
}

func (c *core) closedBy() (ClosePath, bool) {
	p := ClosePath(c.status.Load())
	return p, p != notClosed
}

// claim moves the engine from open to closed. Exactly one caller wins.
func (c *core) claim(path ClosePath) bool {
	return c.status.CompareAndSwap(int32(notClosed), int32(path))
}

func (c *core) closeAtExit() {
	_ = c.close(CloseProcessExit)
}

func (c *core) close(path ClosePath) error {
	if !c.claim(path) {
		return nil
	}
	if path != CloseProcessExit && c.cfg.exitRegistry != nil {
		c.cfg.exitRegistry.Unregister(c.id)
	}

	if path.tolerant() {
		c.closeTolerant(path)
		return nil
	}

	ctx, span := c.cfg.spans.StartCloseSpan(context.Background(), c.id, path.String())
	callbacks := c.state.Callbacks()
	observability.LogCloseStart(c.log, path.String(), len(callbacks))

	err := c.runCloseHooks(callbacks)

	c.cfg.spans.EndSpanWithError(span, err)
	c.cfg.metrics.RecordClose(ctx, path.String())
	observability.LogCloseComplete(c.log, path.String(), err)
	return err
}

func (c *core) runCloseHooks(callbacks []Callback) error {
	for _, cb := range callbacks {
		if err := cb.Close(c.state, c.logger); err != nil {
			return err
		}
	}
	for _, cb := range callbacks {
		if err := cb.PostClose(c.state, c.logger); err != nil {
			return err
		}
	}
	return nil
}

// closeTolerant runs every hook even if earlier ones fail or panic. Errors
// are logged and counted, never raised: the runtime may be tearing down.
func (c *core) closeTolerant(path ClosePath) {
	var callbacks []Callback
	c.guard(func() { callbacks = c.state.Callbacks() })

	c.guard(func() { observability.LogCloseStart(c.log, path.String(), len(callbacks)) })
	for _, cb := range callbacks {
		c.runTolerant(path, "close", cb, func() error { return cb.Close(c.state, c.logger) })
	}
	for _, cb := range callbacks {
		c.runTolerant(path, "post_close", cb, func() error { return cb.PostClose(c.state, c.logger) })
	}
	c.guard(func() {
		c.cfg.metrics.RecordClose(context.Background(), path.String())
		observability.LogCloseComplete(c.log, path.String(), nil)
	})
}

func (c *core) runTolerant(path ClosePath, hook string, cb Callback, fn func() error) {
	var err error
	func() {
		defer func() {
			if v := recover(); v != nil {
				err = fmt.Errorf("panic: %v", v)
			}
		}()
		err = fn()
	}()
	if err == nil {
		return
	}
	c.guard(func() {
		observability.LogCloseHookError(c.log, path.String(), hook, ParticipantName(cb), err)
		c.cfg.metrics.RecordSuppressedHookError(context.Background(), path.String(), hook)
	})
}

// guard runs fn and discards any panic.
func (c *core) guard(fn func()) {
	defer func() { _ = recover() }()
	fn()
}
