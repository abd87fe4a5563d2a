/*
Package hookflow provides an event dispatch engine for training-loop
lifecycles.

# Overview

A training loop emits a fixed sequence of lifecycle events (Init,
EpochStart, BeforeForward, AfterForward, ...). At each event the Engine
visits the algorithms held by a State, letting each decide through Match
whether to Apply, and then notifies every callback. Each dispatch returns a
Trace recording which algorithms ran, in what order, and what they returned.

# Basic Usage

	state := hookflow.NewMemoryState(labelSmoothing, mixup)
	state.AddCallback(speedMonitor)

	engine, err := hookflow.New(state, hookflow.WithLogger(logger))
	if err != nil {
	    log.Fatal(err)
	}
	defer engine.Close()

	trace, err := engine.RunEvent(ctx, hookflow.BeforeForward)
	if err != nil {
	    return err
	}
	fmt.Println(trace.Results())

# Nesting

Events come in entering/exiting pairs (BeforeLoss/AfterLoss,
EpochStart/EpochEnd, ...). Entering events visit algorithms in list order;
exiting events visit them in reverse. An algorithm that changes state at
BeforeForward and restores it at AfterForward therefore unwinds like a
nested scope: first in, last out. Events without a counterpart are Forward.

Before the direction is applied, PriorityPass stable-sorts algorithms that
implement Prioritized. Extra passes can be added with WithPasses.

# Closing

An engine closes exactly once, whichever trigger fires first:

  - Engine.Close, called explicitly;
  - the end of a With scope;
  - garbage collection of an engine that was never closed;
  - the process-exit hook registered with shutdown.Default at construction.

Closing runs Callback.Close on every callback, then Callback.PostClose on
every callback. After that RunEvent fails with a *LifecycleError. Errors
from hooks are returned on the explicit and scoped paths and only logged on
the garbage-collection and process-exit paths.

# Errors

Participant errors are returned unchanged:

	_, err := engine.RunEvent(ctx, hookflow.AfterLoss)
	if errors.Is(err, errDivergence) {
	    // raised by an algorithm's Apply
	}

	if errors.Is(err, hookflow.ErrEngineClosed) {
	    // engine already closed
	}

Panics in participants are not recovered.

# Thread Safety

  - Engine.RunEvent is NOT safe for concurrent use
  - Engine.Close, IsClosed, and ClosedBy ARE safe for concurrent use
  - MemoryState is NOT safe for concurrent use

# Subpackages

  - shutdown: process-exit hook registry
  - observability: logging, metrics, and tracing helpers
  - config: engine settings from files and environment
*/
package hookflow
