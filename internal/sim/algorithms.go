package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/randalmurphal/hookflow/pkg/hookflow"
)

// ErrUnknownAlgorithm indicates a name missing from the demo catalog.
var ErrUnknownAlgorithm = errors.New("unknown algorithm")

// ScopeTracker opens a named scope at an entering event and closes it at
// the exiting counterpart. Several trackers on the same pair must unwind in
// reverse order or the exiting dispatch fails with ErrUnbalancedScope.
type ScopeTracker struct {
	ID    string
	Enter hookflow.Event
}

// Name implements hookflow.Named.
func (a *ScopeTracker) Name() string { return a.ID }

// Match implements hookflow.Algorithm.
func (a *ScopeTracker) Match(event hookflow.Event, _ hookflow.State) bool {
	exit, _ := a.Enter.Counterpart()
	return event == a.Enter || event == exit
}

// Apply implements hookflow.Algorithm. It returns the stack depth after the change.
func (a *ScopeTracker) Apply(event hookflow.Event, state hookflow.State, _ *slog.Logger) (any, error) {
	ts, err := training(state)
	if err != nil {
		return nil, err
	}
	if event == a.Enter {
		ts.Push(a.ID)
		return len(ts.Scopes), nil
	}
	if err := ts.Pop(a.ID); err != nil {
		return nil, err
	}
	return len(ts.Scopes), nil
}

// LossScaler multiplies the loss scale by Factor for the duration of the
// loss computation and divides it back out afterwards.
type LossScaler struct {
	ID     string
	Factor float64
}

// Name implements hookflow.Named.
func (a *LossScaler) Name() string { return a.ID }

// Match implements hookflow.Algorithm.
func (a *LossScaler) Match(event hookflow.Event, _ hookflow.State) bool {
	return event == hookflow.BeforeLoss || event == hookflow.AfterLoss
}

// Apply implements hookflow.Algorithm. It returns the scale after the change.
func (a *LossScaler) Apply(event hookflow.Event, state hookflow.State, _ *slog.Logger) (any, error) {
	ts, err := training(state)
	if err != nil {
		return nil, err
	}
	if event == hookflow.BeforeLoss {
		ts.LossScale *= a.Factor
	} else {
		ts.LossScale /= a.Factor
	}
	return ts.LossScale, nil
}

// Warmup ramps the learning rate linearly over the first Steps batches.
// It has priority -1 so schedulers placed anywhere in the list see the
// warmed-up rate.
type Warmup struct {
	Steps  int
	BaseLR float64
}

// Name implements hookflow.Named.
func (a *Warmup) Name() string { return "warmup" }

// Priority implements hookflow.Prioritized.
func (a *Warmup) Priority() int { return -1 }

// Match implements hookflow.Algorithm.
func (a *Warmup) Match(event hookflow.Event, state hookflow.State) bool {
	if event != hookflow.BatchStart {
		return false
	}
	ts, err := training(state)
	return err == nil && ts.Step < a.Steps
}

// Apply implements hookflow.Algorithm. It returns the new learning rate.
func (a *Warmup) Apply(_ hookflow.Event, state hookflow.State, logger *slog.Logger) (any, error) {
	ts, err := training(state)
	if err != nil {
		return nil, err
	}
	ts.LearningRate = a.BaseLR * float64(ts.Step+1) / float64(a.Steps)
	logger.Debug("warmup", slog.Int("step", ts.Step), slog.Float64("lr", ts.LearningRate))
	return ts.LearningRate, nil
}

// StepDecay halves the learning rate at the end of every epoch.
type StepDecay struct{}

// Name implements hookflow.Named.
func (StepDecay) Name() string { return "step_decay" }

// Match implements hookflow.Algorithm.
func (StepDecay) Match(event hookflow.Event, _ hookflow.State) bool {
	return event == hookflow.EpochEnd
}

// Apply implements hookflow.Algorithm.
func (StepDecay) Apply(_ hookflow.Event, state hookflow.State, _ *slog.Logger) (any, error) {
	ts, err := training(state)
	if err != nil {
		return nil, err
	}
	ts.LearningRate /= 2
	return ts.LearningRate, nil
}

// Factory builds a fresh demo algorithm.
type Factory func() hookflow.Algorithm

type catalogEntry struct {
	name string
	new  Factory
}

// factories lists catalog names with their constructors. Order is the default
// list order used by DefaultAlgorithms.
var factories = []catalogEntry{
	{"forward_scope", func() hookflow.Algorithm { return &ScopeTracker{ID: "forward_scope", Enter: hookflow.BeforeForward} }},
	{"outer_scale", func() hookflow.Algorithm { return &LossScaler{ID: "outer_scale", Factor: 2} }},
	{"warmup", func() hookflow.Algorithm { return &Warmup{Steps: 4, BaseLR: 0.1} }},
	{"inner_scale", func() hookflow.Algorithm { return &LossScaler{ID: "inner_scale", Factor: 3} }},
	{"backward_scope", func() hookflow.Algorithm { return &ScopeTracker{ID: "backward_scope", Enter: hookflow.BeforeBackward} }},
	{"step_decay", func() hookflow.Algorithm { return StepDecay{} }},
}

// AlgorithmNames returns the catalog names in default order.
func AlgorithmNames() []string {
	names := make([]string, len(factories))
	for i, f := range factories {
		names[i] = f.name
	}
	return names
}

// BuildAlgorithms constructs the named algorithms in the given order.
func BuildAlgorithms(names []string) ([]hookflow.Algorithm, error) {
	algs := make([]hookflow.Algorithm, 0, len(names))
	for _, name := range names {
		i := slices.IndexFunc(factories, func(e catalogEntry) bool { return e.name == name })
		if i < 0 {
			return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownAlgorithm, name, AlgorithmNames())
		}
		algs = append(algs, factories[i].new())
	}
	return algs, nil
}

// DefaultAlgorithms returns the full demo set: two nested loss scalers,
// scope trackers around forward and backward, a step decay scheduler, and a
// warmup placed mid-list that still runs first.
func DefaultAlgorithms() []hookflow.Algorithm {
	algs, _ := BuildAlgorithms(AlgorithmNames())
	return algs
}
