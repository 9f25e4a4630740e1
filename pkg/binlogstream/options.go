package binlogstream

import (
	"log/slog"

	"github.com/randalmurphal/binlogstream/pkg/binlogstream/observability"
	"github.com/randalmurphal/binlogstream/pkg/binlogstream/quarantine"
)

// readerConfig holds configuration for a Reader.
type readerConfig struct {
	capacity     int
	maxEventSize uint32
	streamID     string

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	quarantine quarantine.Store
}

// defaultReaderConfig returns the default reader configuration.
func defaultReaderConfig() readerConfig {
	return readerConfig{
		capacity:     DefaultCapacity,
		maxEventSize: DefaultMaxEventSize,
		metrics:      observability.NoopMetrics{},
		spans:        observability.NoopSpanManager{},
	}
}

// Option configures a Reader.
type Option func(*readerConfig)

// WithCapacity sets how many decoded events may wait for the caller before
// the producer blocks.
// Default: 100
//
// Non-positive values are ignored.
func WithCapacity(n int) Option {
	return func(c *readerConfig) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithMaxEventSize sets the largest event length a header may announce.
// Larger events poison the stream with a FormatError instead of being buffered.
// Default: 1 GiB
//
// Values below HeaderSize are ignored.
func WithMaxEventSize(n uint32) Option {
	return func(c *readerConfig) {
		if n >= HeaderSize {
			c.maxEventSize = n
		}
	}
}

// WithStreamID names the stream in logs, spans, and quarantine records.
// Default: a random UUID.
func WithStreamID(id string) Option {
	return func(c *readerConfig) {
		c.streamID = id
	}
}

// WithLogger sets the logger for stream lifecycle and frame logs.
// Default: nil (silent).
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	r, err := binlogstream.NewReader(ctx, src, dec, binlogstream.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(c *readerConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics using the global meter provider.
// Default: disabled.
func WithMetrics(enabled bool) Option {
	return func(c *readerConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables OpenTelemetry tracing using the global tracer provider.
// Default: disabled.
func WithTracing(enabled bool) Option {
	return func(c *readerConfig) {
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithQuarantine saves frames the decoder rejects to store before the
// stream is poisoned. Store failures are logged and otherwise ignored.
// Default: nil (frames are discarded).
func WithQuarantine(store quarantine.Store) Option {
	return func(c *readerConfig) {
		c.quarantine = store
	}
}
