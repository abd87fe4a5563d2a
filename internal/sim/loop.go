package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/hookflow/pkg/hookflow"
	"github.com/randalmurphal/hookflow/pkg/hookflow/config"
)

// Summary describes a finished simulation.
type Summary struct {
	Epochs       int
	Steps        int
	Events       int
	Applications int
	Evaluations  int
	Stopped      bool
	FinalLoss    float64
	FinalLR      float64
}

// Loop emits lifecycle events through an engine the way a trainer would.
type Loop struct {
	engine *hookflow.Engine
	state  *TrainingState
	size   config.Simulation
	logger *slog.Logger

	onTrace func(*hookflow.Trace)
	summary Summary
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithTraceHook calls fn with the trace of every dispatched event.
func WithTraceHook(fn func(*hookflow.Trace)) LoopOption {
	return func(l *Loop) {
		l.onTrace = fn
	}
}

// WithLoopLogger sets the logger for progress messages. Default: slog.Default()
func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoop creates a loop that dispatches through engine. The engine's state
// must be a *TrainingState.
func NewLoop(engine *hookflow.Engine, size config.Simulation, opts ...LoopOption) (*Loop, error) {
	ts, err := training(engine.State())
	if err != nil {
		return nil, err
	}
	l := &Loop{
		engine: engine,
		state:  ts,
		size:   size,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Run emits the full event sequence: init and fit start, then for every
// epoch the batch events and checkpoints, with evaluation every
// size.EvalEvery epochs. It stops early when a participant sets
// StopTraining or ctx is cancelled. Run does not close the engine.
func (l *Loop) Run(ctx context.Context) (Summary, error) {
	l.summary = Summary{}

	if err := l.emit(ctx, hookflow.Init, hookflow.FitStart); err != nil {
		return l.summary, err
	}

	for epoch := 0; epoch < l.size.Epochs; epoch++ {
		l.state.Epoch = epoch
		if err := l.emit(ctx, hookflow.EpochStart); err != nil {
			return l.summary, err
		}

		for batch := 0; batch < l.size.Batches; batch++ {
			if err := ctx.Err(); err != nil {
				return l.summary, err
			}
			l.state.Batch = batch
			if err := l.trainBatch(ctx); err != nil {
				return l.summary, err
			}
			if l.state.StopTraining {
				break
			}
		}

		if err := l.emit(ctx, hookflow.EpochEnd, hookflow.EpochCheckpoint); err != nil {
			return l.summary, err
		}
		l.summary.Epochs++
		l.logger.Info("epoch complete",
			slog.Int("epoch", epoch),
			slog.Float64("loss", l.state.Loss),
			slog.Float64("lr", l.state.LearningRate),
		)

		if l.size.EvalEvery > 0 && (epoch+1)%l.size.EvalEvery == 0 {
			if err := l.evaluate(ctx); err != nil {
				return l.summary, err
			}
		}
		if l.state.StopTraining {
			l.summary.Stopped = true
			break
		}
	}

	l.summary.FinalLoss = l.state.Loss
	l.summary.FinalLR = l.state.LearningRate
	return l.summary, nil
}

func (l *Loop) trainBatch(ctx context.Context) error {
	err := l.emit(ctx,
		hookflow.BatchStart,
		hookflow.AfterDataloader,
		hookflow.BeforeTrainBatch,
		hookflow.BeforeForward,
		hookflow.AfterForward,
		hookflow.BeforeLoss,
	)
	if err != nil {
		return err
	}

	l.state.Loss = syntheticLoss(l.state.Step) * l.state.LossScale

	err = l.emit(ctx,
		hookflow.AfterLoss,
		hookflow.BeforeBackward,
		hookflow.AfterBackward,
		hookflow.AfterTrainBatch,
	)
	if err != nil {
		return err
	}

	// Unscaled loss is what stoppers and logs see.
	l.state.Loss = syntheticLoss(l.state.Step)
	l.state.Step++
	l.summary.Steps++

	return l.emit(ctx, hookflow.BatchEnd, hookflow.BatchCheckpoint)
}

func (l *Loop) evaluate(ctx context.Context) error {
	if err := l.emit(ctx, hookflow.EvalStart); err != nil {
		return err
	}
	for batch := 0; batch < l.size.Batches; batch++ {
		err := l.emit(ctx,
			hookflow.EvalBatchStart,
			hookflow.EvalBeforeForward,
			hookflow.EvalAfterForward,
			hookflow.EvalBatchEnd,
		)
		if err != nil {
			return err
		}
	}
	if err := l.emit(ctx, hookflow.EvalEnd); err != nil {
		return err
	}
	l.summary.Evaluations++
	return nil
}

func (l *Loop) emit(ctx context.Context, events ...hookflow.Event) error {
	for _, event := range events {
		trace, err := l.engine.RunEvent(ctx, event)
		if err != nil {
			return fmt.Errorf("epoch %d batch %d: %w", l.state.Epoch, l.state.Batch, err)
		}
		l.summary.Events++
		l.summary.Applications += trace.RanCount()
		if l.onTrace != nil {
			l.onTrace(trace)
		}
	}
	return nil
}
