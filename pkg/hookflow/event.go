package hookflow

import "fmt"

// Event is a named point in the training lifecycle at which algorithms and
// callbacks run. The set of events is fixed; see Events for the catalog.
type Event string

// Lifecycle events, in the order a training loop emits them.
const (
	Init              Event = "init"
	FitStart          Event = "fit_start"
	EpochStart        Event = "epoch_start"
	BatchStart        Event = "batch_start"
	AfterDataloader   Event = "after_dataloader"
	BeforeTrainBatch  Event = "before_train_batch"
	BeforeForward     Event = "before_forward"
	AfterForward      Event = "after_forward"
	BeforeLoss        Event = "before_loss"
	AfterLoss         Event = "after_loss"
	BeforeBackward    Event = "before_backward"
	AfterBackward     Event = "after_backward"
	AfterTrainBatch   Event = "after_train_batch"
	BatchEnd          Event = "batch_end"
	BatchCheckpoint   Event = "batch_checkpoint"
	EpochEnd          Event = "epoch_end"
	EpochCheckpoint   Event = "epoch_checkpoint"
	EvalStart         Event = "eval_start"
	EvalBatchStart    Event = "eval_batch_start"
	EvalBeforeForward Event = "eval_before_forward"
	EvalAfterForward  Event = "eval_after_forward"
	EvalBatchEnd      Event = "eval_batch_end"
	EvalEnd           Event = "eval_end"
)

// Direction is the order in which algorithms are visited for an event.
type Direction int

const (
	// Forward visits algorithms in list order.
	Forward Direction = iota
	// Reverse visits algorithms in reverse list order.
	Reverse
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return "unknown"
	}
}

type eventInfo struct {
	direction   Direction
	counterpart Event
}

// catalog lists every event in emission order.
var catalog = []Event{
	Init, FitStart, EpochStart, BatchStart, AfterDataloader,
	BeforeTrainBatch, BeforeForward, AfterForward, BeforeLoss, AfterLoss,
	BeforeBackward, AfterBackward, AfterTrainBatch, BatchEnd, BatchCheckpoint,
	EpochEnd, EpochCheckpoint,
	EvalStart, EvalBatchStart, EvalBeforeForward, EvalAfterForward, EvalBatchEnd, EvalEnd,
}

// pairs maps each entering event to its exiting counterpart.
var pairs = map[Event]Event{
	EpochStart:        EpochEnd,
	BatchStart:        BatchEnd,
	BeforeTrainBatch:  AfterTrainBatch,
	BeforeForward:     AfterForward,
	BeforeLoss:        AfterLoss,
	BeforeBackward:    AfterBackward,
	EvalStart:         EvalEnd,
	EvalBatchStart:    EvalBatchEnd,
	EvalBeforeForward: EvalAfterForward,
}

var events = buildEventTable()

// buildEventTable derives directions from the before/after pairing.
// Events without a counterpart stay Forward.
func buildEventTable() map[Event]eventInfo {
	table := make(map[Event]eventInfo, len(catalog))
	for _, e := range catalog {
		table[e] = eventInfo{direction: Forward}
	}
	for enter, exit := range pairs {
		table[enter] = eventInfo{direction: Forward, counterpart: exit}
		table[exit] = eventInfo{direction: Reverse, counterpart: enter}
	}
	return table
}

// Events returns all events in emission order.
// The returned slice is a copy and may be modified.
func Events() []Event {
	out := make([]Event, len(catalog))
	copy(out, catalog)
	return out
}

// ParseEvent returns the event with the given name.
func ParseEvent(name string) (Event, error) {
	e := Event(name)
	if !e.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	return e, nil
}

// Valid reports whether e is part of the event catalog.
func (e Event) Valid() bool {
	_, ok := events[e]
	return ok
}

// String returns the event name.
func (e Event) String() string {
	return string(e)
}

// Direction returns the traversal direction for e.
// Unknown events report Forward.
func (e Event) Direction() Direction {
	return events[e].direction
}

// Counterpart returns the symmetric event paired with e, if any.
func (e Event) Counterpart() (Event, bool) {
	info, ok := events[e]
	if !ok || info.counterpart == "" {
		return "", false
	}
	return info.counterpart, true
}

// IsEntering reports whether e opens a before/after pair.
func (e Event) IsEntering() bool {
	_, ok := pairs[e]
	return ok
}

// IsExiting reports whether e closes a before/after pair.
func (e Event) IsExiting() bool {
	info, ok := events[e]
	return ok && info.direction == Reverse
}
