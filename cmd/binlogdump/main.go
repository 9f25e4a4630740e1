// Command binlogdump prints the events of a MySQL/MariaDB binary log as JSON lines.
//
// Usage:
//
//	binlogdump [-config binlogdump.yaml] [-checksum crc32] mysql-bin.000001
//
// Reading "-" reads from stdin. The exit status is 0 when the log is read to its
// end, 1 when the stream is poisoned, and 2 on usage errors. A log that ends
// inside an event still exits 0; the partial event is reported on stderr.
// With metrics or tracing enabled, telemetry is written to stderr on exit.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/randalmurphal/binlogstream/pkg/binlogstream"
	"github.com/randalmurphal/binlogstream/pkg/binlogstream/config"
	"github.com/randalmurphal/binlogstream/pkg/binlogstream/quarantine"
)

const (
	exitOK       = 0
	exitPoisoned = 1
	exitUsage    = 2
)

// eventLine is one line of output.
type eventLine struct {
	Offset       int64  `json:"offset"`
	Type         string `json:"type"`
	TypeCode     uint8  `json:"type_code"`
	Timestamp    uint32 `json:"timestamp"`
	ServerID     uint32 `json:"server_id"`
	Length       uint32 `json:"length"`
	NextPosition uint32 `json:"next_position"`
	Flags        uint16 `json:"flags"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("binlogdump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML or JSON settings file")
	checksum := fs.String("checksum", "", "binlog_checksum of the server: none or crc32")
	capacity := fs.Int("capacity", 0, "relay capacity")
	quarantinePath := fs.String("quarantine", "", "SQLite file for rejected events")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: binlogdump [flags] <binlog file | ->")
		fs.PrintDefaults()
		return exitUsage
	}

	settings, err := loadSettings(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if *checksum != "" {
		settings.Checksum = *checksum
	}
	if *capacity > 0 {
		settings.RelayCapacity = *capacity
	}
	if *quarantinePath != "" {
		settings.QuarantinePath = *quarantinePath
	}
	if *verbose {
		settings.LogLevel = "debug"
	}
	if err := settings.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	logger := newLogger(settings, stderr)

	shutdownTelemetry, err := setupTelemetry(settings, stderr)
	defer func() {
		if err := shutdownTelemetry(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("flush telemetry", slog.String("error", err.Error()))
		}
	}()
	if err != nil {
		logger.Error("telemetry", slog.String("error", err.Error()))
		return exitUsage
	}

	in, closeInput, err := openInput(fs.Arg(0), stdin)
	if err != nil {
		logger.Error("open binlog", slog.String("error", err.Error()))
		return exitUsage
	}
	defer closeInput()

	alg, err := binlogstream.ParseChecksumAlgorithm(settings.Checksum)
	if err != nil {
		logger.Error("checksum", slog.String("error", err.Error()))
		return exitUsage
	}

	opts := []binlogstream.Option{
		binlogstream.WithCapacity(settings.RelayCapacity),
		binlogstream.WithMaxEventSize(settings.MaxEventSize),
		binlogstream.WithStreamID(fs.Arg(0)),
		binlogstream.WithLogger(logger),
		binlogstream.WithMetrics(settings.Metrics),
		binlogstream.WithTracing(settings.Tracing),
	}
	if settings.QuarantinePath != "" {
		store, err := quarantine.NewSQLiteStore(settings.QuarantinePath)
		if err != nil {
			logger.Error("open quarantine", slog.String("error", err.Error()))
			return exitUsage
		}
		defer store.Close()
		opts = append(opts, binlogstream.WithQuarantine(store))
	}

	dec := binlogstream.WithChecksum[binlogstream.RawEvent](binlogstream.RawDecoder{}, alg)
	r, err := binlogstream.NewReader(ctx, binlogstream.FromReader(in, settings.ChunkSize), dec, opts...)
	if err != nil {
		logger.Error("not a binary log", slog.String("error", err.Error()))
		return exitPoisoned
	}
	defer r.Close()

	return dump(ctx, r, stdout, logger)
}

// dump writes one JSON line per event until the stream ends.
func dump(ctx context.Context, r *binlogstream.Reader[binlogstream.RawEvent], stdout io.Writer, logger *slog.Logger) int {
	enc := json.NewEncoder(stdout)
	for {
		offset := r.Position()
		evt, err := r.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return exitOK
		case errors.Is(err, binlogstream.ErrPoisoned):
			logger.Error("stream poisoned",
				slog.String("kind", binlogstream.KindOf(err).String()),
				slog.Int64("last_good_position", r.Position()),
				slog.String("error", err.Error()),
			)
			return exitPoisoned
		case err != nil:
			logger.Warn("interrupted", slog.String("error", err.Error()))
			return exitPoisoned
		}

		h := evt.Header
		if err := enc.Encode(eventLine{
			Offset:       offset,
			Type:         h.EventType.String(),
			TypeCode:     uint8(h.EventType),
			Timestamp:    h.Timestamp,
			ServerID:     h.ServerID,
			Length:       h.EventLength,
			NextPosition: h.NextPosition,
			Flags:        h.Flags,
		}); err != nil {
			logger.Error("write output", slog.String("error", err.Error()))
			return exitPoisoned
		}
	}
}

func loadSettings(path string) (config.Settings, error) {
	settings := config.Default()
	if path != "" {
		var err error
		if settings, err = config.FromFile(path); err != nil {
			return config.Settings{}, err
		}
	}
	settings.ApplyEnv(os.Getenv)
	return settings, nil
}

func newLogger(s config.Settings, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: s.Level()}
	if strings.EqualFold(strings.TrimSpace(s.LogFormat), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func openInput(name string, stdin io.Reader) (io.Reader, func(), error) {
	if name == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
