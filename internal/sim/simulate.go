package sim

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/hookflow/pkg/hookflow"
	"github.com/randalmurphal/hookflow/pkg/hookflow/config"
)

// DefaultStopThreshold is the loss below which the demo stopper ends training.
const DefaultStopThreshold = 0.05

// Result is a Summary plus the demo counters.
type Result struct {
	Summary
	EngineID string
	Counts   map[hookflow.Event]int
}

// Simulate builds the demo state from the configured algorithms, runs the loop inside a scoped engine, and
// closes the engine when the loop ends. Settings supply the engine options
// and the loop size.
func Simulate(ctx context.Context, s config.Settings, logger *slog.Logger, opts ...LoopOption) (Result, error) {
	algorithms := DefaultAlgorithms()
	if len(s.Simulation.Algorithms) > 0 {
		var err error
		if algorithms, err = BuildAlgorithms(s.Simulation.Algorithms); err != nil {
			return Result{}, err
		}
	}

	state := NewTrainingState(algorithms...)
	counter := NewEventCounter()
	state.AddCallback(counter)
	state.AddCallback(&ThresholdStopper{Threshold: DefaultStopThreshold})
	state.AddCallback(ScopeChecker{})

	var result Result
	err := hookflow.With(state, func(engine *hookflow.Engine) error {
		result.EngineID = engine.ID()
		loop, err := NewLoop(engine, s.Simulation, append([]LoopOption{WithLoopLogger(logger)}, opts...)...)
		if err != nil {
			return err
		}
		result.Summary, err = loop.Run(ctx)
		return err
	}, s.Options(logger)...)

	result.Counts = make(map[hookflow.Event]int)
	for _, e := range hookflow.Events() {
		if n := counter.Count(e); n > 0 {
			result.Counts[e] = n
		}
	}
	return result, err
}
