package hookflow

import (
	"log/slog"

	"github.com/randalmurphal/hookflow/pkg/hookflow/observability"
	"github.com/randalmurphal/hookflow/pkg/hookflow/shutdown"
)

// engineConfig holds configuration for an Engine.
type engineConfig struct {
	id         string
	logger     *slog.Logger
	passes     []Pass
	debugTrace bool

	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	exitRegistry *shutdown.Registry
	gcCleanup    bool
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		logger:       slog.Default(),
		metrics:      observability.NoopMetrics{},
		spans:        observability.NoopSpanManager{},
		exitRegistry: shutdown.Default,
		gcCleanup:    true,
	}
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithID sets the engine ID used in logs, spans, and the exit-hook key.
// Default: a random UUID.
func WithID(id string) Option {
	return func(c *engineConfig) {
		if id != "" {
			c.id = id
		}
	}
}

// WithLogger sets the logger handed to participants and used by the engine.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPasses adds ordering passes that run after PriorityPass and before
// the direction pass.
//
// Example:
//
//	engine, err := hookflow.New(state, hookflow.WithPasses(dropDisabled))
func WithPasses(passes ...Pass) Option {
	return func(c *engineConfig) {
		c.passes = append(c.passes, passes...)
	}
}

// WithDebugTrace logs every dispatch trace at debug level.
func WithDebugTrace(enabled bool) Option {
	return func(c *engineConfig) {
		c.debugTrace = enabled
	}
}

// WithMetrics enables OpenTelemetry metrics using the global meter provider.
func WithMetrics(enabled bool) Option {
	return func(c *engineConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithMetricsRecorder sets a custom metrics recorder.
func WithMetricsRecorder(m observability.MetricsRecorder) Option {
	return func(c *engineConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry spans using the global tracer provider.
func WithTracing(enabled bool) Option {
	return func(c *engineConfig) {
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithExitRegistry registers the engine's process-exit hook with r instead
// of shutdown.Default. A nil registry disables the hook.
func WithExitRegistry(r *shutdown.Registry) Option {
	return func(c *engineConfig) {
		c.exitRegistry = r
	}
}

// WithoutExitHook disables the process-exit close hook.
func WithoutExitHook() Option {
	return WithExitRegistry(nil)
}

// WithGCCleanup controls whether an engine dropped without being closed is
// closed after garbage collection. Default: true
func WithGCCleanup(enabled bool) Option {
	return func(c *engineConfig) {
		c.gcCleanup = enabled
	}
}
