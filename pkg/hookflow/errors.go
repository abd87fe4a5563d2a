package hookflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for engine construction and dispatch.
var (
	// ErrEngineClosed indicates RunEvent was called after the engine closed.
	ErrEngineClosed = errors.New("engine is closed")

	// ErrUnknownEvent indicates an event outside the catalog.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrNilState indicates New was called without a state.
	ErrNilState = errors.New("state cannot be nil")
)

// LifecycleError is returned by RunEvent once the engine is closed.
type LifecycleError struct {
	// EngineID identifies the closed engine.
	EngineID string
	// Event is the event that was rejected.
	Event Event
	// ClosedBy is the path that closed the engine.
	ClosedBy ClosePath
}

// Error implements the error interface.
func (e *LifecycleError) Error() string {
	return fmt.Sprintf("engine %s: run event %s: closed by %s", e.EngineID, e.Event, e.ClosedBy)
}

// Unwrap returns ErrEngineClosed for errors.Is support.
func (e *LifecycleError) Unwrap() error {
	return ErrEngineClosed
}
