package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Stream outcomes recorded by RecordStream.
const (
	OutcomeEOF      = "eof"
	OutcomePoisoned = "poisoned"
	OutcomeCanceled = "canceled"
)

// MetricsRecorder records stream metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordFrame records one decode attempt with its size, decode duration and error status.
	RecordFrame(ctx context.Context, eventType string, sizeBytes int, duration time.Duration, err error)

	// RecordRelayWait records how long the producer blocked handing an item to the relay.
	RecordRelayWait(ctx context.Context, duration time.Duration)

	// RecordStream records a finished stream.
	RecordStream(ctx context.Context, outcome string, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	frames         metric.Int64Counter
	frameSize      metric.Int64Histogram
	decodeLatency  metric.Float64Histogram
	decodeErrors   metric.Int64Counter
	relayWait      metric.Float64Histogram
	streams        metric.Int64Counter
	streamDuration metric.Float64Histogram
}

// newOtelMetrics creates instruments from the global meter provider.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("binlogstream")

	frames, err := meter.Int64Counter("binlogstream.frames",
		metric.WithDescription("Number of frames handed to the decoder"),
	)
	if err != nil {
		return nil, err
	}

	frameSize, err := meter.Int64Histogram("binlogstream.frame.size_bytes",
		metric.WithDescription("Frame size in bytes, header included"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	decodeLatency, err := meter.Float64Histogram("binlogstream.decode.latency_ms",
		metric.WithDescription("Decoder latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	decodeErrors, err := meter.Int64Counter("binlogstream.decode.errors",
		metric.WithDescription("Number of frames the decoder rejected"),
	)
	if err != nil {
		return nil, err
	}

	relayWait, err := meter.Float64Histogram("binlogstream.relay.wait_ms",
		metric.WithDescription("Time the producer spent blocked on a full relay"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	streams, err := meter.Int64Counter("binlogstream.streams",
		metric.WithDescription("Number of finished streams"),
	)
	if err != nil {
		return nil, err
	}

	streamDuration, err := meter.Float64Histogram("binlogstream.stream.duration_ms",
		metric.WithDescription("Stream lifetime in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		frames:         frames,
		frameSize:      frameSize,
		decodeLatency:  decodeLatency,
		decodeErrors:   decodeErrors,
		relayWait:      relayWait,
		streams:        streams,
		streamDuration: streamDuration,
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
	m, err := newOtelMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordFrame records a decode attempt.
func (m *otelMetrics) RecordFrame(ctx context.Context, eventType string, sizeBytes int, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("event_type", eventType))

	m.frames.Add(ctx, 1, attrs)
	m.frameSize.Record(ctx, int64(sizeBytes), attrs)
	m.decodeLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)

	if err != nil {
		m.decodeErrors.Add(ctx, 1, attrs)
	}
}

// RecordRelayWait records producer blocking time.
func (m *otelMetrics) RecordRelayWait(ctx context.Context, duration time.Duration) {
	m.relayWait.Record(ctx, float64(duration.Microseconds())/1000)
}

// RecordStream records a finished stream.
func (m *otelMetrics) RecordStream(ctx context.Context, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.streams.Add(ctx, 1, attrs)
	m.streamDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}
