package hookflow

import (
	"fmt"
	"log/slog"
)

// TraceEntry records what happened to one algorithm during a dispatch.
type TraceEntry struct {
	// Name is the algorithm's identity within the trace.
	Name string
	// Event is the dispatched event.
	Event Event
	// Ran is true if Match returned true and Apply was called.
	Ran bool
	// Order is the position among entries that ran, starting at 0.
	// It is -1 when Ran is false.
	Order int
	// Result is the value returned by Apply.
	Result any
}

// Trace is the ordered record of one RunEvent call. Entries appear in the
// order Match was called, whether or not Apply ran.
type Trace struct {
	event   Event
	entries []TraceEntry
	index   map[string]int
}

// Event returns the dispatched event.
func (t *Trace) Event() Event { return t.event }

// Len returns the number of entries.
func (t *Trace) Len() int { return len(t.entries) }

// Entries returns a copy of all entries in match order.
func (t *Trace) Entries() []TraceEntry {
	out := make([]TraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Get returns the entry for name.
func (t *Trace) Get(name string) (TraceEntry, bool) {
	i, ok := t.index[name]
	if !ok {
		return TraceEntry{}, false
	}
	return t.entries[i], true
}

// Names returns entry names in match order.
func (t *Trace) Names() []string {
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.Name
	}
	return names
}

// Results returns the results of entries that ran, in execution order.
func (t *Trace) Results() []any {
	var results []any
	for _, e := range t.entries {
		if e.Ran {
			results = append(results, e.Result)
		}
	}
	return results
}

// RanCount returns how many algorithms ran.
func (t *Trace) RanCount() int {
	n := 0
	for _, e := range t.entries {
		if e.Ran {
			n++
		}
	}
	return n
}

// LogValue implements slog.LogValuer.
func (t *Trace) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(t.entries)+1)
	attrs = append(attrs, slog.String("event", string(t.event)))
	for _, e := range t.entries {
		if e.Ran {
			attrs = append(attrs, slog.Int(e.Name, e.Order))
		} else {
			attrs = append(attrs, slog.Bool(e.Name, false))
		}
	}
	return slog.GroupValue(attrs...)
}

// recorder builds a Trace for a single dispatch. The order counter starts
// at zero for every recorder.
type recorder struct {
	trace *Trace
	next  int
}

func newRecorder(event Event, capacity int) *recorder {
	return &recorder{
		trace: &Trace{
			event:   event,
			entries: make([]TraceEntry, 0, capacity),
			index:   make(map[string]int, capacity),
		},
	}
}

// record appends an entry and returns it. Duplicate names get a "#n" suffix.
func (r *recorder) record(name string, ran bool, result any) TraceEntry {
	key := name
	for n := 2; ; n++ {
		if _, taken := r.trace.index[key]; !taken {
			break
		}
		key = fmt.Sprintf("%s#%d", name, n)
	}

	entry := TraceEntry{
		Name:   key,
		Event:  r.trace.event,
		Ran:    ran,
		Order:  -1,
		Result: result,
	}
	if ran {
		entry.Order = r.next
		r.next++
	}

	r.trace.index[key] = len(r.trace.entries)
	r.trace.entries = append(r.trace.entries, entry)
	return entry
}

func (r *recorder) finish() *Trace {
	return r.trace
}
