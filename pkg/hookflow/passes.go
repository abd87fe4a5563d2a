package hookflow

import (
	"slices"
)

// Pass reorders or filters the algorithms visited for an event.
// Passes receive a private copy and may modify it in place.
type Pass func(event Event, algorithms []Algorithm) []Algorithm

// PriorityPass stable-sorts algorithms by Prioritized.Priority, lowest first.
// Algorithms without a priority count as zero, so a single prioritized
// algorithm moves without disturbing the relative order of the rest.
func PriorityPass(_ Event, algorithms []Algorithm) []Algorithm {
	slices.SortStableFunc(algorithms, func(a, b Algorithm) int {
		return priorityOf(a) - priorityOf(b)
	})
	return algorithms
}

// DirectionPass reverses the algorithms for Reverse events, so an exiting
// event unwinds in the opposite order of its entering counterpart.
func DirectionPass(event Event, algorithms []Algorithm) []Algorithm {
	if event.Direction() == Reverse {
		slices.Reverse(algorithms)
	}
	return algorithms
}

func priorityOf(a Algorithm) int {
	if p, ok := a.(Prioritized); ok {
		return p.Priority()
	}
	return 0
}

// traversal computes the visiting order for one dispatch from a single
// snapshot of the state's algorithms.
func traversal(event Event, snapshot []Algorithm, passes []Pass) []Algorithm {
	algorithms := slices.Clone(snapshot)
	algorithms = PriorityPass(event, algorithms)
	for _, pass := range passes {
		algorithms = pass(event, algorithms)
	}
	return DirectionPass(event, algorithms)
}
