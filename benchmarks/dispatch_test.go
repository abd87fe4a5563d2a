package benchmarks

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/randalmurphal/hookflow/pkg/hookflow"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// buildState creates n algorithms that all match.
func buildState(n int, match bool) *hookflow.MemoryState {
	state := hookflow.NewMemoryState()
	for i := 0; i < n; i++ {
		state.AddAlgorithm(&hookflow.AlgorithmFuncs{
			ID:        "alg" + strconv.Itoa(i),
			MatchFunc: func(hookflow.Event, hookflow.State) bool { return match },
			ApplyFunc: func(hookflow.Event, hookflow.State, *slog.Logger) (any, error) { return i, nil },
		})
	}
	return state
}

func mustEngine(b *testing.B, state hookflow.State, opts ...hookflow.Option) *hookflow.Engine {
	b.Helper()
	base := []hookflow.Option{hookflow.WithoutExitHook(), hookflow.WithLogger(quiet)}
	engine, err := hookflow.New(state, append(base, opts...)...)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = engine.Close() })
	return engine
}

func benchmarkDispatch(b *testing.B, n int, event hookflow.Event, match bool) {
	engine := mustEngine(b, buildState(n, match))
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.RunEvent(ctx, event); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRunEvent_Forward_5 dispatches an entering event to 5 algorithms.
func BenchmarkRunEvent_Forward_5(b *testing.B) { benchmarkDispatch(b, 5, hookflow.BeforeLoss, true) }

// BenchmarkRunEvent_Forward_50 dispatches an entering event to 50 algorithms.
func BenchmarkRunEvent_Forward_50(b *testing.B) { benchmarkDispatch(b, 50, hookflow.BeforeLoss, true) }

// BenchmarkRunEvent_Reverse_50 dispatches an exiting event to 50 algorithms.
func BenchmarkRunEvent_Reverse_50(b *testing.B) { benchmarkDispatch(b, 50, hookflow.AfterLoss, true) }

// BenchmarkRunEvent_NoMatch_50 measures the Match-only path.
func BenchmarkRunEvent_NoMatch_50(b *testing.B) { benchmarkDispatch(b, 50, hookflow.AfterLoss, false) }

// BenchmarkRunEvent_WithCallbacks dispatches to algorithms and 10 callbacks.
func BenchmarkRunEvent_WithCallbacks(b *testing.B) {
	state := buildState(10, true)
	for i := 0; i < 10; i++ {
		state.AddCallback(&hookflow.CallbackFuncs{
			All: func(hookflow.Event, hookflow.State, *slog.Logger) error { return nil },
		})
	}
	engine := mustEngine(b, state)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = engine.RunEvent(ctx, hookflow.BatchEnd)
	}
}

// BenchmarkRunEvent_Metrics measures dispatch with OTel metrics on the global provider.
func BenchmarkRunEvent_Metrics(b *testing.B) {
	engine := mustEngine(b, buildState(10, true), hookflow.WithMetrics(true), hookflow.WithTracing(true))
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = engine.RunEvent(ctx, hookflow.BeforeForward)
	}
}

// BenchmarkNewClose measures engine construction plus the explicit close path.
func BenchmarkNewClose(b *testing.B) {
	state := buildState(5, true)
	state.AddCallback(hookflow.BaseCallback{})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine, err := hookflow.New(state, hookflow.WithLogger(quiet))
		if err != nil {
			b.Fatal(err)
		}
		_ = engine.Close()
	}
}
