package hookflow

import (
	"context"
	"io"
	"log/slog"
	"strconv"
)

// Test participants used across tests

// mockAlgorithm records how often it was matched and applied.
type mockAlgorithm struct {
	name       string
	match      bool
	result     any
	err        error
	matchCalls int
	applyCalls int
	seen       *[]string
}

func (a *mockAlgorithm) Name() string { return a.name }

func (a *mockAlgorithm) Match(_ Event, _ State) bool {
	a.matchCalls++
	return a.match
}

func (a *mockAlgorithm) Apply(_ Event, _ State, _ *slog.Logger) (any, error) {
	a.applyCalls++
	if a.seen != nil {
		*a.seen = append(*a.seen, a.name)
	}
	return a.result, a.err
}

// prioritizedAlgorithm is a mockAlgorithm with a non-default priority.
type prioritizedAlgorithm struct {
	mockAlgorithm
	priority int
}

func (a *prioritizedAlgorithm) Priority() int { return a.priority }

// makeAlgorithms creates n algorithms whose results encode their list index.
func makeAlgorithms(n int, match bool) []*mockAlgorithm {
	algs := make([]*mockAlgorithm, n)
	for i := range algs {
		algs[i] = &mockAlgorithm{
			name:   "a" + strconv.Itoa(i),
			match:  match,
			result: i,
		}
	}
	return algs
}

func asAlgorithms(algs []*mockAlgorithm) []Algorithm {
	out := make([]Algorithm, len(algs))
	for i, a := range algs {
		out[i] = a
	}
	return out
}

// recordingCallback appends every hook call to a shared log.
type recordingCallback struct {
	name         string
	log          *[]string
	eventErr     error
	closeErr     error
	postCloseErr error
	panicOnClose bool
}

func (c *recordingCallback) Name() string { return c.name }

func (c *recordingCallback) OnEvent(event Event, _ State, _ *slog.Logger) error {
	*c.log = append(*c.log, c.name+":"+string(event))
	return c.eventErr
}

func (c *recordingCallback) Close(_ State, _ *slog.Logger) error {
	*c.log = append(*c.log, c.name+":close")
	if c.panicOnClose {
		panic("close exploded")
	}
	return c.closeErr
}

func (c *recordingCallback) PostClose(_ State, _ *slog.Logger) error {
	*c.log = append(*c.log, c.name+":post_close")
	return c.postCloseErr
}

// discardLogger returns a logger that drops everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine creates an engine detached from the process-wide exit registry.
func newTestEngine(state State, opts ...Option) (*Engine, error) {
	base := []Option{WithoutExitHook(), WithLogger(discardLogger())}
	return New(state, append(base, opts...)...)
}

func testCtx() context.Context {
	return context.Background()
}
