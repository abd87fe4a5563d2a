package hookflow

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/hookflow/pkg/hookflow/observability"
)

// Engine dispatches lifecycle events to the algorithms and callbacks held by
// a State.
//
// An Engine must be closed exactly once. Close it explicitly, use With for a
// scoped engine, or rely on the process-exit hook as a last resort.
//
// Engine is NOT safe for concurrent dispatch. Close may be called from any
// goroutine.
type Engine struct {
	core *core
}

// core holds everything the close paths need. Cleanup and exit hooks
// reference core, never Engine, so an abandoned Engine stays collectable.
type core struct {
	id     string
	state  State
	logger *slog.Logger // handed to participants unchanged
	log    *slog.Logger // engine's own logs, enriched with engine_id
	cfg    engineConfig
	status atomic.Int32
}

// New creates an open engine for state and registers its process-exit hook.
func New(state State, opts ...Option) (*Engine, error) {
	if state == nil {
		return nil, ErrNilState
	}

	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}

	c := &core{
		id:     cfg.id,
		state:  state,
		logger: cfg.logger,
		log:    observability.EnrichLogger(cfg.logger, cfg.id),
		cfg:    cfg,
	}
	e := &Engine{core: c}

	if cfg.exitRegistry != nil {
		cfg.exitRegistry.Register(c.id, c.closeAtExit)
	}
	if cfg.gcCleanup {
		runtime.AddCleanup(e, func(c *core) { _ = c.close(CloseCollected) }, c)
	}

	return e, nil
}

// ID returns the engine identifier.
func (e *Engine) ID() string { return e.core.id }

// State returns the state the engine dispatches from.
func (e *Engine) State() State { return e.core.state }

// RunEvent dispatches event to the state's algorithms and callbacks and
// returns the trace of algorithm outcomes.
//
// Algorithms are read from the state once, ordered by the passes, and
// visited in that order: Match always, Apply only on a match. Then every
// callback implementing EventObserver sees the event. The first participant
// error is returned unchanged and ends the dispatch.
//
// ctx parents tracing spans and metrics; it is not used for cancellation.
// Once the engine is closed RunEvent returns a *LifecycleError.
func (e *Engine) RunEvent(ctx context.Context, event Event) (*Trace, error) {
	defer runtime.KeepAlive(e)
	c := e.core

	if path, closed := c.closedBy(); closed {
		return nil, &LifecycleError{EngineID: c.id, Event: event, ClosedBy: path}
	}
	if !event.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, string(event))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	ctx, span := c.cfg.spans.StartDispatchSpan(ctx, c.id, string(event))
	trace, err := c.dispatch(ctx, event)
	c.cfg.spans.EndSpanWithError(span, err)
	c.cfg.metrics.RecordDispatch(ctx, string(event), time.Since(start), err)

	return trace, err
}

func (c *core) dispatch(ctx context.Context, event Event) (*Trace, error) {
	done := observability.TimedOperation()
	algorithms := traversal(event, c.state.Algorithms(), c.cfg.passes)
	observability.LogDispatchStart(c.log, string(event), len(algorithms))

	rec := newRecorder(event, len(algorithms))
	for _, a := range algorithms {
		name := ParticipantName(a)
		if !a.Match(event, c.state) {
			rec.record(name, false, nil)
			continue
		}

		result, err := a.Apply(event, c.state, c.logger)
		if err != nil {
			observability.LogDispatchError(c.log, string(event), name, err)
			return nil, err
		}

		entry := rec.record(name, true, result)
		observability.LogAlgorithmApplied(c.log, string(event), entry.Name, entry.Order)
		c.cfg.metrics.RecordApply(ctx, string(event), entry.Name)
		c.cfg.spans.AddSpanEvent(ctx, "algorithm.applied",
			attribute.String("algorithm", entry.Name),
			attribute.Int("order", entry.Order),
		)
	}

	for _, cb := range c.state.Callbacks() {
		observer, ok := cb.(EventObserver)
		if !ok {
			continue
		}
		if err := observer.OnEvent(event, c.state, c.logger); err != nil {
			observability.LogDispatchError(c.log, string(event), ParticipantName(cb), err)
			return nil, err
		}
	}

	trace := rec.finish()
	if c.cfg.debugTrace {
		observability.LogTrace(c.log, trace)
	}
	observability.LogDispatchComplete(c.log, string(event), done(), trace.RanCount())
	return trace, nil
}
