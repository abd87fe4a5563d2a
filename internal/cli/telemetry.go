package cli

import (
	"context"
	"errors"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TelemetryReport summarizes what the engine exported during a run.
type TelemetryReport struct {
	Dispatches   int64 `json:"dispatches,omitempty"`
	Applications int64 `json:"applications,omitempty"`
	Spans        int64 `json:"spans,omitempty"`
}

// telemetry installs in-process OTel SDK providers for one command run.
type telemetry struct {
	reader *sdkmetric.ManualReader
	meters *sdkmetric.MeterProvider
	traces *sdktrace.TracerProvider
	spans  *spanCounter
}

func setupTelemetry(metrics, tracing bool) *telemetry {
	t := &telemetry{}
	if metrics {
		t.reader = sdkmetric.NewManualReader()
		t.meters = sdkmetric.NewMeterProvider(sdkmetric.WithReader(t.reader))
		otel.SetMeterProvider(t.meters)
	}
	if tracing {
		t.spans = &spanCounter{}
		t.traces = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(t.spans))
		otel.SetTracerProvider(t.traces)
	}
	return t
}

func (t *telemetry) enabled() bool {
	return t.reader != nil || t.spans != nil
}

func (t *telemetry) report(ctx context.Context) (TelemetryReport, error) {
	var r TelemetryReport
	if t.spans != nil {
		r.Spans = t.spans.ended.Load()
	}
	if t.reader == nil {
		return r, nil
	}

	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &rm); err != nil {
		return r, err
	}
	r.Dispatches = counterTotal(&rm, "hookflow.event.dispatches")
	r.Applications = counterTotal(&rm, "hookflow.algorithm.applications")
	return r, nil
}

func (t *telemetry) shutdown(ctx context.Context) error {
	var errs []error
	if t.meters != nil {
		errs = append(errs, t.meters.Shutdown(ctx))
	}
	if t.traces != nil {
		errs = append(errs, t.traces.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func counterTotal(rm *metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

// spanCounter is a SpanProcessor that counts finished spans.
type spanCounter struct {
	ended atomic.Int64
}

var _ sdktrace.SpanProcessor = (*spanCounter)(nil)

func (c *spanCounter) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (c *spanCounter) OnEnd(sdktrace.ReadOnlySpan) { c.ended.Add(1) }

func (c *spanCounter) Shutdown(context.Context) error { return nil }

func (c *spanCounter) ForceFlush(context.Context) error { return nil }
