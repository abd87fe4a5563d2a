// Package sim drives a hookflow engine through a simulated training loop.
//
// There is no model and no data: the loop only advances counters and a
// synthetic loss so that every lifecycle event is emitted in the order a
// real trainer would emit it.
package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/randalmurphal/hookflow/pkg/hookflow"
)

// ErrNotTrainingState indicates a participant was dispatched with a state
// other than *TrainingState.
var ErrNotTrainingState = errors.New("state is not a *sim.TrainingState")

// ErrUnbalancedScope indicates an exiting event unwound a scope other than
// the innermost one.
var ErrUnbalancedScope = errors.New("unbalanced scope")

// TrainingState is the state dispatched to participants during simulation.
type TrainingState struct {
	*hookflow.MemoryState

	Epoch int
	Batch int
	Step  int

	// Loss is set by the loop between BeforeLoss and AfterLoss.
	Loss float64
	// LossScale is multiplied in by scaling algorithms for the loss scope.
	LossScale float64
	// LearningRate is adjusted by schedulers.
	LearningRate float64

	// Scopes is the stack of scopes opened by entering events.
	Scopes []string

	// StopTraining ends the loop after the current batch.
	StopTraining bool
}

// NewTrainingState creates a state with the given algorithms.
func NewTrainingState(algorithms ...hookflow.Algorithm) *TrainingState {
	return &TrainingState{
		MemoryState:  hookflow.NewMemoryState(algorithms...),
		LossScale:    1,
		LearningRate: 0.1,
	}
}

// Push opens a scope.
func (s *TrainingState) Push(scope string) {
	s.Scopes = append(s.Scopes, scope)
}

// Pop closes the innermost scope, which must be scope.
func (s *TrainingState) Pop(scope string) error {
	if len(s.Scopes) == 0 {
		return fmt.Errorf("%w: pop %q from empty stack", ErrUnbalancedScope, scope)
	}
	top := s.Scopes[len(s.Scopes)-1]
	if top != scope {
		return fmt.Errorf("%w: pop %q, innermost is %q", ErrUnbalancedScope, scope, top)
	}
	s.Scopes = s.Scopes[:len(s.Scopes)-1]
	return nil
}

// syntheticLoss decays with the step count.
func syntheticLoss(step int) float64 {
	return 2.5 * math.Exp(-0.15*float64(step))
}

func training(state hookflow.State) (*TrainingState, error) {
	ts, ok := state.(*TrainingState)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotTrainingState, state)
	}
	return ts, nil
}
