package hookflow

import "slices"

// State holds the participants an engine dispatches to. The engine reads
// both sequences at the start of every call and never modifies them.
type State interface {
	Algorithms() []Algorithm
	Callbacks() []Callback
}

// MemoryState is a State backed by plain slices.
//
// MemoryState is NOT safe for concurrent use; it assumes a single owner
// (typically the training loop) that mutates it between dispatches.
type MemoryState struct {
	algorithms []Algorithm
	callbacks  []Callback
}

var _ State = (*MemoryState)(nil)

// NewMemoryState creates a state with the given algorithms.
func NewMemoryState(algorithms ...Algorithm) *MemoryState {
	return &MemoryState{algorithms: slices.Clone(algorithms)}
}

// Algorithms implements State.
func (s *MemoryState) Algorithms() []Algorithm {
	return s.algorithms
}

// Callbacks implements State.
func (s *MemoryState) Callbacks() []Callback {
	return s.callbacks
}

// SetAlgorithms replaces the algorithm sequence.
func (s *MemoryState) SetAlgorithms(algorithms ...Algorithm) *MemoryState {
	s.algorithms = slices.Clone(algorithms)
	return s
}

// AddAlgorithm appends an algorithm.
func (s *MemoryState) AddAlgorithm(a Algorithm) *MemoryState {
	s.algorithms = append(s.algorithms, a)
	return s
}

// InsertAlgorithm inserts an algorithm at index i, clamped to the valid range.
func (s *MemoryState) InsertAlgorithm(i int, a Algorithm) *MemoryState {
	i = max(0, min(i, len(s.algorithms)))
	s.algorithms = slices.Insert(s.algorithms, i, a)
	return s
}

// AddCallback appends a callback.
func (s *MemoryState) AddCallback(c Callback) *MemoryState {
	s.callbacks = append(s.callbacks, c)
	return s
}
