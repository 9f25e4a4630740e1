package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvRelayCapacity  = "BINLOGSTREAM_RELAY_CAPACITY"
	EnvChunkSize      = "BINLOGSTREAM_CHUNK_SIZE"
	EnvMaxEventSize   = "BINLOGSTREAM_MAX_EVENT_SIZE"
	EnvChecksum       = "BINLOGSTREAM_CHECKSUM"
	EnvLogLevel       = "BINLOGSTREAM_LOG_LEVEL"
	EnvLogFormat      = "BINLOGSTREAM_LOG_FORMAT"
	EnvMetrics        = "BINLOGSTREAM_METRICS"
	EnvTracing        = "BINLOGSTREAM_TRACING"
	EnvQuarantinePath = "BINLOGSTREAM_QUARANTINE_PATH"
)

// FromFile loads settings from a file, auto-detecting format by extension.
// Supported extensions: .yaml, .yml, .json. Keys missing from the file keep
// their Default values.
func FromFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Settings{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

// FromYAML parses YAML data over Default().
func FromYAML(data []byte) (Settings, error) {
	s := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Settings{}, fmt.Errorf("parse yaml: %w", err)
	}
	return s, nil
}

// FromJSON parses JSON data over Default().
func FromJSON(data []byte) (Settings, error) {
	s := Default()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("parse json: %w", err)
	}
	return s, nil
}

// ApplyEnv overrides fields from BINLOGSTREAM_* variables looked up with
// getenv (os.Getenv in production). Unset or unparsable values are ignored.
func (s *Settings) ApplyEnv(getenv func(string) string) {
	if v, ok := parseInt(getenv(EnvRelayCapacity)); ok {
		s.RelayCapacity = v
	}
	if v, ok := parseInt(getenv(EnvChunkSize)); ok {
		s.ChunkSize = v
	}
	if raw := strings.TrimSpace(getenv(EnvMaxEventSize)); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 32); err == nil {
			s.MaxEventSize = uint32(v)
		}
	}
	if v := strings.TrimSpace(getenv(EnvChecksum)); v != "" {
		s.Checksum = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		s.LogLevel = v
	}
	if v := strings.TrimSpace(getenv(EnvLogFormat)); v != "" {
		s.LogFormat = v
	}
	if v, ok := parseBool(getenv(EnvMetrics)); ok {
		s.Metrics = v
	}
	if v, ok := parseBool(getenv(EnvTracing)); ok {
		s.Tracing = v
	}
	if v := strings.TrimSpace(getenv(EnvQuarantinePath)); v != "" {
		s.QuarantinePath = v
	}
}

func parseInt(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
