package hookflow

import (
	"fmt"
	"log/slog"
)

// Algorithm is a participant that conditionally acts at lifecycle events.
//
// Match is called for every dispatch; Apply only when Match returned true.
// The value returned by Apply is recorded in the Trace.
type Algorithm interface {
	Match(event Event, state State) bool
	Apply(event Event, state State, logger *slog.Logger) (any, error)
}

// Named is implemented by participants that report their own identity.
// The name keys the participant's entry in a Trace.
type Named interface {
	Name() string
}

// Prioritized is implemented by algorithms that must run ahead of (negative)
// or behind (positive) the default priority of zero. See PriorityPass.
type Prioritized interface {
	Priority() int
}

// Callback observes lifecycle events unconditionally and is notified when
// the engine closes.
//
// Close runs on every callback first, then PostClose runs on every callback.
type Callback interface {
	Close(state State, logger *slog.Logger) error
	PostClose(state State, logger *slog.Logger) error
}

// EventObserver is implemented by callbacks that want per-event hooks.
// Callbacks that do not implement it are skipped during dispatch.
type EventObserver interface {
	OnEvent(event Event, state State, logger *slog.Logger) error
}

// BaseCallback provides no-op shutdown hooks for embedding.
type BaseCallback struct{}

// Close does nothing.
func (BaseCallback) Close(State, *slog.Logger) error { return nil }

// PostClose does nothing.
func (BaseCallback) PostClose(State, *slog.Logger) error { return nil }

// HookFunc handles a single event for a callback.
type HookFunc func(event Event, state State, logger *slog.Logger) error

// CallbackFuncs adapts plain functions to the Callback and EventObserver
// interfaces. Nil fields are no-ops.
type CallbackFuncs struct {
	// Hooks maps events to handlers. Events without an entry are ignored.
	Hooks map[Event]HookFunc
	// All, when set, runs for every event after the per-event hook.
	All HookFunc

	CloseFunc     func(state State, logger *slog.Logger) error
	PostCloseFunc func(state State, logger *slog.Logger) error
}

var (
	_ Callback      = (*CallbackFuncs)(nil)
	_ EventObserver = (*CallbackFuncs)(nil)
)

// OnEvent implements EventObserver.
func (c *CallbackFuncs) OnEvent(event Event, state State, logger *slog.Logger) error {
	if fn, ok := c.Hooks[event]; ok && fn != nil {
		if err := fn(event, state, logger); err != nil {
			return err
		}
	}
	if c.All != nil {
		return c.All(event, state, logger)
	}
	return nil
}

// Close implements Callback.
func (c *CallbackFuncs) Close(state State, logger *slog.Logger) error {
	if c.CloseFunc == nil {
		return nil
	}
	return c.CloseFunc(state, logger)
}

// PostClose implements Callback.
func (c *CallbackFuncs) PostClose(state State, logger *slog.Logger) error {
	if c.PostCloseFunc == nil {
		return nil
	}
	return c.PostCloseFunc(state, logger)
}

// AlgorithmFuncs adapts plain functions to the Algorithm interface.
// A nil MatchFunc matches every event.
type AlgorithmFuncs struct {
	ID        string
	Rank      int
	MatchFunc func(event Event, state State) bool
	ApplyFunc func(event Event, state State, logger *slog.Logger) (any, error)
}

var (
	_ Algorithm   = (*AlgorithmFuncs)(nil)
	_ Named       = (*AlgorithmFuncs)(nil)
	_ Prioritized = (*AlgorithmFuncs)(nil)
)

// Name implements Named.
func (a *AlgorithmFuncs) Name() string { return a.ID }

// Priority implements Prioritized.
func (a *AlgorithmFuncs) Priority() int { return a.Rank }

// Match implements Algorithm.
func (a *AlgorithmFuncs) Match(event Event, state State) bool {
	if a.MatchFunc == nil {
		return true
	}
	return a.MatchFunc(event, state)
}

// Apply implements Algorithm.
func (a *AlgorithmFuncs) Apply(event Event, state State, logger *slog.Logger) (any, error) {
	if a.ApplyFunc == nil {
		return nil, nil
	}
	return a.ApplyFunc(event, state, logger)
}

// ParticipantName returns the identity used for p in traces and logs:
// its Name if it implements Named and the name is non-empty, else its Go type.
func ParticipantName(p any) string {
	if n, ok := p.(Named); ok {
		if name := n.Name(); name != "" {
			return name
		}
	}
	return fmt.Sprintf("%T", p)
}
