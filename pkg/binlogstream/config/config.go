package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Settings configures a binlog reader and the process around it.
type Settings struct {
	// RelayCapacity is the number of decoded events buffered for the consumer.
	RelayCapacity int `yaml:"relay_capacity" json:"relay_capacity"`

	// ChunkSize is the size of each read from the underlying file or socket.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`

	// MaxEventSize is the largest event a header may announce, in bytes.
	MaxEventSize uint32 `yaml:"max_event_size" json:"max_event_size"`

	// Checksum is the server's binlog_checksum: "none" or "crc32".
	Checksum string `yaml:"checksum" json:"checksum"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format" json:"log_format"`

	// Metrics enables OpenTelemetry metrics.
	Metrics bool `yaml:"metrics" json:"metrics"`

	// Tracing enables OpenTelemetry tracing.
	Tracing bool `yaml:"tracing" json:"tracing"`

	// QuarantinePath is a SQLite database for rejected events. Empty disables quarantine.
	QuarantinePath string `yaml:"quarantine_path" json:"quarantine_path"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		RelayCapacity: 100,
		ChunkSize:     64 * 1024,
		MaxEventSize:  1 << 30,
		Checksum:      "none",
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// Validation errors.
var (
	ErrInvalidCapacity  = errors.New("relay_capacity must be positive")
	ErrInvalidChunkSize = errors.New("chunk_size must be positive")
	ErrInvalidMaxEvent  = errors.New("max_event_size must be at least 19")
	ErrInvalidChecksum  = errors.New("checksum must be none or crc32")
	ErrInvalidLogLevel  = errors.New("log_level must be debug, info, warn or error")
	ErrInvalidLogFormat = errors.New("log_format must be text or json")
)

// Validate reports every invalid field at once.
func (s Settings) Validate() error {
	var errs []error
	if s.RelayCapacity <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidCapacity, s.RelayCapacity))
	}
	if s.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidChunkSize, s.ChunkSize))
	}
	if s.MaxEventSize < 19 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidMaxEvent, s.MaxEventSize))
	}
	switch strings.ToLower(strings.TrimSpace(s.Checksum)) {
	case "", "none", "off", "crc32":
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidChecksum, s.Checksum))
	}
	if _, ok := parseLevel(s.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s.LogLevel))
	}
	switch strings.ToLower(strings.TrimSpace(s.LogFormat)) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogFormat, s.LogFormat))
	}
	return errors.Join(errs...)
}

// Level returns LogLevel as a slog.Level, defaulting to Info.
func (s Settings) Level() slog.Level {
	lvl, ok := parseLevel(s.LogLevel)
	if !ok {
		return slog.LevelInfo
	}
	return lvl
}

func parseLevel(raw string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, true
	case "debug":
		return slog.LevelDebug, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
