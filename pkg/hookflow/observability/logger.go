// Package observability provides logging, metrics, and tracing for
// hookflow engines.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds engine context to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, "5c0f...")
//	enriched.Info("dispatching") // includes engine_id
func EnrichLogger(logger *slog.Logger, engineID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("engine_id", engineID))
}

// LogDispatchStart logs the start of an event dispatch.
func LogDispatchStart(logger *slog.Logger, event string, algorithms int) {
	if logger == nil {
		return
	}
	logger.Debug("dispatch starting",
		slog.String("event", event),
		slog.Int("algorithms", algorithms),
	)
}

// LogDispatchComplete logs a successful dispatch.
func LogDispatchComplete(logger *slog.Logger, event string, durationMs float64, ran int) {
	if logger == nil {
		return
	}
	logger.Debug("dispatch completed",
		slog.String("event", event),
		slog.Float64("duration_ms", durationMs),
		slog.Int("algorithms_ran", ran),
	)
}

// LogDispatchError logs a dispatch aborted by a participant.
func LogDispatchError(logger *slog.Logger, event, participant string, err error) {
	if logger == nil {
		return
	}
	logger.Error("dispatch failed",
		slog.String("event", event),
		slog.String("participant", participant),
		slog.String("error", err.Error()),
	)
}

// LogAlgorithmApplied logs an algorithm that ran.
func LogAlgorithmApplied(logger *slog.Logger, event, algorithm string, order int) {
	if logger == nil {
		return
	}
	logger.Debug("algorithm applied",
		slog.String("event", event),
		slog.String("algorithm", algorithm),
		slog.Int("order", order),
	)
}

// LogTrace logs a complete dispatch trace. trace is usually a slog.LogValuer.
func LogTrace(logger *slog.Logger, trace any) {
	if logger == nil {
		return
	}
	logger.Debug("algorithm trace", slog.Any("trace", trace))
}

// LogCloseStart logs the start of the close protocol.
func LogCloseStart(logger *slog.Logger, path string, callbacks int) {
	if logger == nil {
		return
	}
	logger.Info("engine closing",
		slog.String("path", path),
		slog.Int("callbacks", callbacks),
	)
}

// LogCloseComplete logs the end of the close protocol.
func LogCloseComplete(logger *slog.Logger, path string, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Error("engine close failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Info("engine closed", slog.String("path", path))
}

// LogCloseHookError logs a shutdown hook error that was suppressed (non-fatal).
func LogCloseHookError(logger *slog.Logger, path, hook, callback string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("close hook failed",
		slog.String("path", path),
		slog.String("hook", hook),
		slog.String("callback", callback),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
