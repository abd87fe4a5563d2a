package sim

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/randalmurphal/hookflow/pkg/hookflow"
)

// EventCounter counts every event it observes and logs the totals on close.
type EventCounter struct {
	hookflow.BaseCallback

	mu     sync.Mutex
	counts map[hookflow.Event]int
	closed bool
}

// NewEventCounter creates an empty counter.
func NewEventCounter() *EventCounter {
	return &EventCounter{counts: make(map[hookflow.Event]int)}
}

// Name implements hookflow.Named.
func (c *EventCounter) Name() string { return "event_counter" }

// OnEvent implements hookflow.EventObserver.
func (c *EventCounter) OnEvent(event hookflow.Event, _ hookflow.State, _ *slog.Logger) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[event]++
	return nil
}

// Close implements hookflow.Callback.
func (c *EventCounter) Close(_ hookflow.State, logger *slog.Logger) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	logger.Info("event totals", slog.Int("events", c.total()), slog.Int("distinct", len(c.counts)))
	return nil
}

// Count returns how often event was observed.
func (c *EventCounter) Count(event hookflow.Event) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[event]
}

// Total returns the number of observed events.
func (c *EventCounter) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total()
}

// Closed reports whether the engine closed the counter.
func (c *EventCounter) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *EventCounter) total() int {
	n := 0
	for _, v := range c.counts {
		n += v
	}
	return n
}

// ThresholdStopper stops training once the loss falls below Threshold.
// It checks after every batch.
type ThresholdStopper struct {
	hookflow.BaseCallback
	Threshold float64
}

// Name implements hookflow.Named.
func (c *ThresholdStopper) Name() string { return "threshold_stopper" }

// OnEvent implements hookflow.EventObserver.
func (c *ThresholdStopper) OnEvent(event hookflow.Event, state hookflow.State, logger *slog.Logger) error {
	if event != hookflow.BatchEnd {
		return nil
	}
	ts, err := training(state)
	if err != nil {
		return err
	}
	if ts.Loss < c.Threshold && !ts.StopTraining {
		ts.StopTraining = true
		logger.Info("loss below threshold, stopping",
			slog.Float64("loss", ts.Loss),
			slog.Float64("threshold", c.Threshold),
			slog.Int("step", ts.Step),
		)
	}
	return nil
}

// ScopeChecker fails a close if scopes are still open.
type ScopeChecker struct {
	hookflow.BaseCallback
}

// Name implements hookflow.Named.
func (ScopeChecker) Name() string { return "scope_checker" }

// PostClose implements hookflow.Callback.
func (ScopeChecker) PostClose(state hookflow.State, _ *slog.Logger) error {
	ts, err := training(state)
	if err != nil {
		return err
	}
	if len(ts.Scopes) > 0 {
		return fmt.Errorf("%w: %d scopes still open: %v", ErrUnbalancedScope, len(ts.Scopes), ts.Scopes)
	}
	return nil
}
