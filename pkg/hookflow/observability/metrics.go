package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records hookflow metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDispatch records one RunEvent call with its duration and error status.
	RecordDispatch(ctx context.Context, event string, duration time.Duration, err error)

	// RecordApply records an algorithm whose Apply ran.
	RecordApply(ctx context.Context, event, algorithm string)

	// RecordClose records which path closed an engine.
	RecordClose(ctx context.Context, path string)

	// RecordSuppressedHookError records a close hook error that was swallowed.
	RecordSuppressedHookError(ctx context.Context, path, hook string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	dispatches       metric.Int64Counter
	dispatchLatency  metric.Float64Histogram
	dispatchErrors   metric.Int64Counter
	applications     metric.Int64Counter
	closes           metric.Int64Counter
	suppressedErrors metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics lazily initializes the shared OTel metrics instance.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("hookflow")

	dispatches, err := meter.Int64Counter("hookflow.event.dispatches",
		metric.WithDescription("Number of event dispatches"),
	)
	if err != nil {
		return nil, err
	}

	dispatchLatency, err := meter.Float64Histogram("hookflow.event.latency_ms",
		metric.WithDescription("Event dispatch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	dispatchErrors, err := meter.Int64Counter("hookflow.event.errors",
		metric.WithDescription("Number of dispatches aborted by a participant error"),
	)
	if err != nil {
		return nil, err
	}

	applications, err := meter.Int64Counter("hookflow.algorithm.applications",
		metric.WithDescription("Number of algorithm Apply calls"),
	)
	if err != nil {
		return nil, err
	}

	closes, err := meter.Int64Counter("hookflow.engine.closes",
		metric.WithDescription("Number of engines closed, by trigger path"),
	)
	if err != nil {
		return nil, err
	}

	suppressedErrors, err := meter.Int64Counter("hookflow.close.suppressed_errors",
		metric.WithDescription("Number of close hook errors swallowed during shutdown"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		dispatches:       dispatches,
		dispatchLatency:  dispatchLatency,
		dispatchErrors:   dispatchErrors,
		applications:     applications,
		closes:           closes,
		suppressedErrors: suppressedErrors,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordDispatch records a dispatch.
func (m *otelMetrics) RecordDispatch(ctx context.Context, event string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("event", event),
		attribute.Bool("success", err == nil),
	)
	m.dispatches.Add(ctx, 1, attrs)
	m.dispatchLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)

	if err != nil {
		m.dispatchErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
	}
}

// RecordApply records an algorithm application.
func (m *otelMetrics) RecordApply(ctx context.Context, event, algorithm string) {
	m.applications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("algorithm", algorithm),
	))
}

// RecordClose records an engine close.
func (m *otelMetrics) RecordClose(ctx context.Context, path string) {
	m.closes.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}

// RecordSuppressedHookError records a swallowed close hook error.
func (m *otelMetrics) RecordSuppressedHookError(ctx context.Context, path, hook string) {
	m.suppressedErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", path),
		attribute.String("hook", hook),
	))
}
