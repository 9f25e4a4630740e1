// Package observability provides structured logging, metrics, and tracing
// for binlog stream readers.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Every logging helper accepts a nil logger and does nothing with it.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds stream context to a logger.
// Returns a new logger with the stream_id field.
//
// Example:
//
//	enriched := EnrichLogger(logger, "stream-123")
//	enriched.Info("doing work") // includes stream_id
func EnrichLogger(logger *slog.Logger, streamID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("stream_id", streamID))
}

// LogStreamStart logs that the prologue was accepted and framing began.
func LogStreamStart(logger *slog.Logger, streamID string, capacity int) {
	if logger == nil {
		return
	}
	logger.Info("binlog stream started",
		slog.String("stream_id", streamID),
		slog.Int("relay_capacity", capacity),
	)
}

// LogStreamEnd logs a stream that ended cleanly or was cancelled.
func LogStreamEnd(logger *slog.Logger, streamID string, frames, bytes int64, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("binlog stream ended",
		slog.String("stream_id", streamID),
		slog.Int64("frames", frames),
		slog.Int64("bytes", bytes),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStreamPoisoned logs the failure that terminated a stream.
func LogStreamPoisoned(logger *slog.Logger, streamID string, kind string, offset int64, err error) {
	if logger == nil {
		return
	}
	logger.Error("binlog stream poisoned",
		slog.String("stream_id", streamID),
		slog.String("kind", kind),
		slog.Int64("offset", offset),
		slog.String("error", err.Error()),
	)
}

// LogFrame logs one decoded frame.
func LogFrame(logger *slog.Logger, eventType string, offset int64, size int) {
	if logger == nil {
		return
	}
	logger.Debug("frame decoded",
		slog.String("event_type", eventType),
		slog.Int64("offset", offset),
		slog.Int("size_bytes", size),
	)
}

// LogIncompleteTail logs bytes left over when the source ended mid-event.
// offset is where the incomplete event starts.
func LogIncompleteTail(logger *slog.Logger, offset int64, leftover int) {
	if logger == nil {
		return
	}
	logger.Warn("source ended inside an event",
		slog.Int64("offset", offset),
		slog.Int("leftover_bytes", leftover),
	)
}

// LogQuarantine logs a frame saved for later inspection.
func LogQuarantine(logger *slog.Logger, offset int64, fingerprint string) {
	if logger == nil {
		return
	}
	logger.Debug("frame quarantined",
		slog.Int64("offset", offset),
		slog.String("fingerprint", fingerprint),
	)
}

// LogQuarantineError logs a failure to quarantine a frame (non-fatal).
func LogQuarantineError(logger *slog.Logger, offset int64, err error) {
	if logger == nil {
		return
	}
	logger.Warn("quarantine failed",
		slog.Int64("offset", offset),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
