/*
Package binlogstream reads MySQL/MariaDB binary logs as a stream of decoded events.

# Overview

A binary log is a 4-byte magic number followed by back-to-back events. Every
event starts with a fixed 19-byte header whose event_length field gives the
size of the whole event. binlogstream turns any forward-only byte source
into those events:

  - NewReader checks the magic number before anything else runs
  - a producer goroutine buffers source chunks, cuts out complete events,
    and hands each one to a Decoder
  - decoded events wait in a bounded relay (100 by default) until Next takes them

Chunk boundaries are irrelevant: an event split across any number of reads
decodes exactly as if it had arrived in one.

# Basic Usage

	f, err := os.Open("mysql-bin.000001")
	if err != nil {
	    log.Fatal(err)
	}
	defer f.Close()

	r, err := binlogstream.NewReader[binlogstream.RawEvent](ctx, binlogstream.FromReader(f, 0), binlogstream.RawDecoder{})
	if err != nil {
	    log.Fatal(err) // *FormatError if the file is not a binlog
	}
	defer r.Close()

	for {
	    evt, err := r.Next(ctx)
	    if errors.Is(err, io.EOF) {
	        break
	    }
	    if err != nil {
	        log.Fatal(err)
	    }
	    fmt.Println(evt.Header.EventType, r.Position())
	}

# Failures Poison the Stream

A replica that skips an event it could not apply has silently diverged from
its source. So the first failure ends the stream:

  - *FormatError: NewReader found no magic number
  - *DecodeError: the Decoder returned an error (or panicked), or a header
    announced an impossible length (the *FormatError is in its chain)
  - *SourceError: the source failed

The failure is queued behind the events that preceded it, so Next returns
every good event first, then the error, then the same error forever. All
of them match ErrPoisoned:

	if errors.Is(err, binlogstream.ErrPoisoned) {
	    // stop replicating; r.Position() is the last applied offset
	}

A source that ends in the middle of an event is not a failure. The partial
event is dropped with a warning and Next returns io.EOF; Position is the
offset to resume from once the rest of the event has been written.

Use WithQuarantine to keep the bytes of a rejected event for inspection.

# Backpressure

The relay is the only buffer between producer and consumer. When the caller
falls behind, the producer blocks on the full relay instead of reading
further, so memory is bounded by the relay capacity plus one event.

# Cancellation

The ctx passed to Next bounds only that call. The ctx passed to NewReader
bounds the producer; Close cancels it and waits for the producer to exit.

# Observability

WithLogger, WithMetrics, and WithTracing enable slog logging and
OpenTelemetry metrics and spans. See package observability.
*/
package binlogstream
