package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest creates a test meter provider and returns its reader.
func setupMetricsTest(t *testing.T) (*sdkmetric.ManualReader, func()) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	originalProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	cleanup := func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	}

	return reader, cleanup
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumFor returns the counter value for the datapoint carrying key=value.
func sumFor(t *testing.T, m *metricdata.Metrics, key, value string) (int64, bool) {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "Expected Sum type")
	for _, dp := range sum.DataPoints {
		for _, attr := range dp.Attributes.ToSlice() {
			if string(attr.Key) == key && attr.Value.AsString() == value {
				return dp.Value, true
			}
		}
	}
	return 0, false
}

func TestNewMetricsRecorder(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)

	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop, "Expected real metrics recorder, got noop")
}

func TestRecordDispatch(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("records dispatch count", func(t *testing.T) {
		m.RecordDispatch(ctx, "before_loss", 2*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "hookflow.event.dispatches")
		require.NotNil(t, metric)

		v, found := sumFor(t, metric, "event", "before_loss")
		assert.True(t, found, "Expected datapoint for event=before_loss")
		assert.GreaterOrEqual(t, v, int64(1))
	})

	t.Run("records latency", func(t *testing.T) {
		m.RecordDispatch(ctx, "after_loss", 5*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "hookflow.event.latency_ms")
		require.NotNil(t, metric)

		hist, ok := metric.Data.(metricdata.Histogram[float64])
		require.True(t, ok, "Expected Histogram type")
		require.NotEmpty(t, hist.DataPoints)
	})

	t.Run("records errors when present", func(t *testing.T) {
		m.RecordDispatch(ctx, "batch_end", time.Millisecond, errors.New("diverged"))

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "hookflow.event.errors")
		require.NotNil(t, metric)

		v, found := sumFor(t, metric, "event", "batch_end")
		assert.True(t, found)
		assert.Equal(t, int64(1), v)
	})

	t.Run("does not record error when nil", func(t *testing.T) {
		m.RecordDispatch(ctx, "eval_end", time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "hookflow.event.errors")
		if metric == nil {
			return
		}
		_, found := sumFor(t, metric, "event", "eval_end")
		assert.False(t, found, "Expected no errors for eval_end")
	})
}

func TestRecordApplyAndClose(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordApply(ctx, "init", "label_smoothing")
	m.RecordApply(ctx, "init", "label_smoothing")
	m.RecordClose(ctx, "explicit")
	m.RecordSuppressedHookError(ctx, "process_exit", "close")

	rm := collectMetrics(t, reader)

	applications := findMetric(rm, "hookflow.algorithm.applications")
	require.NotNil(t, applications)
	v, found := sumFor(t, applications, "algorithm", "label_smoothing")
	assert.True(t, found)
	assert.Equal(t, int64(2), v)

	closes := findMetric(rm, "hookflow.engine.closes")
	require.NotNil(t, closes)
	v, found = sumFor(t, closes, "path", "explicit")
	assert.True(t, found)
	assert.Equal(t, int64(1), v)

	suppressed := findMetric(rm, "hookflow.close.suppressed_errors")
	require.NotNil(t, suppressed)
	v, found = sumFor(t, suppressed, "hook", "close")
	assert.True(t, found)
	assert.Equal(t, int64(1), v)
}

func TestNewOtelMetrics_Creation(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.NotNil(t, m.dispatches)
	assert.NotNil(t, m.dispatchLatency)
	assert.NotNil(t, m.dispatchErrors)
	assert.NotNil(t, m.applications)
	assert.NotNil(t, m.closes)
	assert.NotNil(t, m.suppressedErrors)
}
