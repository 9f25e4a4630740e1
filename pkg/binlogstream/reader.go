package binlogstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/binlogstream/pkg/binlogstream/observability"
	"github.com/randalmurphal/binlogstream/pkg/binlogstream/quarantine"
)

// Reader frames a binary log into events and hands them to the caller one at a time.
//
// A producer goroutine started by NewReader reads the source, splits it into
// events, decodes them, and queues the results in a bounded relay. Next
// takes them off in log order. The first format, decode, or source failure
// is queued as the last item; the producer stops there and every later call
// to Next returns that error.
//
// Next is not safe for concurrent use: a Reader has exactly one consumer.
type Reader[E any] struct {
	decoder     Decoder[E]
	acc         *accumulator
	relay       *relay[E]
	cfg         readerConfig
	streamID    string
	logger      *slog.Logger
	frameLogger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	err    error // producer's terminal error; read only after done is closed

	frames atomic.Int64
	bytes  atomic.Int64

	terminal error
	position atomic.Int64
}

// Stats is a point-in-time view of a Reader.
type Stats struct {
	// Frames is the number of events decoded so far.
	Frames int64
	// Bytes is the number of event bytes decoded so far, headers included.
	Bytes int64
	// Pending is the number of items queued for the caller.
	Pending int
	// Capacity is the relay capacity.
	Capacity int
}

// NewReader validates the binlog prologue and starts the producer.
//
// The prologue is read synchronously: if src does not begin with
// MagicNumber, NewReader returns a *FormatError and no goroutine is started.
//
// ctx governs the producer. Cancelling it stops the producer at its next
// source read or relay write; Next then returns the context's error once the
// events already queued are consumed.
func NewReader[E any](ctx context.Context, src Source, dec Decoder[E], opts ...Option) (*Reader[E], error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if src == nil {
		return nil, ErrNilSource
	}
	if dec == nil {
		return nil, ErrNilDecoder
	}

	cfg := defaultReaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.streamID == "" {
		cfg.streamID = uuid.New().String()
	}

	acc := newAccumulator(src)
	if err := readPrologue(ctx, acc); err != nil {
		return nil, err
	}

	producerCtx, cancel := context.WithCancel(ctx)
	r := &Reader[E]{
		decoder:     dec,
		acc:         acc,
		relay:       newRelay[E](cfg.capacity),
		cfg:         cfg,
		streamID:    cfg.streamID,
		logger:      cfg.logger,
		frameLogger: observability.EnrichLogger(cfg.logger, cfg.streamID),
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	r.position.Store(FirstEventPosition)

	observability.LogStreamStart(r.logger, r.streamID, cfg.capacity)
	go r.produce(producerCtx)

	return r, nil
}

// readPrologue consumes and checks the magic number.
func readPrologue(ctx context.Context, acc *accumulator) error {
	err := acc.ensure(ctx, FirstEventPosition)
	switch {
	case errors.Is(err, io.EOF):
		return &FormatError{
			Offset: 0,
			Err:    fmt.Errorf("%w: stream ended after %d bytes", ErrInvalidMagic, acc.len()),
		}
	case err != nil && ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		return &SourceError{Offset: acc.read, Err: err}
	}

	var prologue [FirstEventPosition]byte
	acc.peek(prologue[:])
	if err := checkPrologue(prologue[:]); err != nil {
		return err
	}
	acc.discard(FirstEventPosition)
	return nil
}

// Next returns the next event in log order.
//
// It returns io.EOF once the source ended and every complete event was
// returned. When it reaches a failure it returns the *DecodeError or
// *SourceError (both match ErrPoisoned) and keeps returning it on every
// later call. An invalid header is a *DecodeError wrapping a *FormatError. If ctx is done first, Next returns ctx.Err() and
// the stream is unaffected.
func (r *Reader[E]) Next(ctx context.Context) (E, error) {
	var zero E
	if r.terminal != nil {
		return zero, r.terminal
	}

	item, ok, err := r.relay.get(ctx)
	if err != nil {
		return zero, err
	}
	if !ok {
		<-r.done
		r.terminal = r.err
		if r.terminal == nil {
			r.terminal = io.EOF
		}
		return zero, r.terminal
	}

	if item.err != nil {
		r.terminal = item.err
		return zero, item.err
	}
	r.position.Store(item.end)
	return item.event, nil
}

// All returns an iterator over the remaining events. Iteration stops at
// the end of the stream; a failure is yielded once as the final pair.
//
// Example:
//
//	for evt, err := range r.All(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    handle(evt)
//	}
func (r *Reader[E]) All(ctx context.Context) iter.Seq2[E, error] {
	return func(yield func(E, error) bool) {
		for {
			evt, err := r.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(evt, err) || err != nil {
				return
			}
		}
	}
}

// Close stops the producer and waits for it to exit. Events already queued
// can still be read; after them Next returns context.Canceled unless the
// stream had already finished.
//
// A Source that ignores context cancellation delays Close until its pending
// ReadChunk returns.
func (r *Reader[E]) Close() error {
	r.cancel()
	<-r.done
	return nil
}

// Done returns a channel that is closed when the producer has exited.
func (r *Reader[E]) Done() <-chan struct{} {
	return r.done
}

// Err returns the error that stopped the producer, or nil if it is still
// running or reached the end of the source cleanly.
func (r *Reader[E]) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Position returns the stream offset just past the last event returned by
// Next. Before the first event it is FirstEventPosition.
func (r *Reader[E]) Position() int64 {
	return r.position.Load()
}

// StreamID returns the identifier used in logs, spans, and quarantine records.
func (r *Reader[E]) StreamID() string {
	return r.streamID
}

// Stats returns current counters.
func (r *Reader[E]) Stats() Stats {
	return Stats{
		Frames:   r.frames.Load(),
		Bytes:    r.bytes.Load(),
		Pending:  r.relay.len(),
		Capacity: r.relay.cap(),
	}
}

// produce runs on the producer goroutine until the source ends, a failure
// poisons the stream, or ctx is cancelled.
func (r *Reader[E]) produce(ctx context.Context) {
	defer close(r.done)
	defer r.relay.close()

	elapsed := observability.TimedOperation()
	start := time.Now()
	ctx, span := r.cfg.spans.StartStreamSpan(ctx, r.streamID)

	err := r.frameLoop(ctx)

	outcome := observability.OutcomeEOF
	switch {
	case err == nil:
		observability.LogStreamEnd(r.logger, r.streamID, r.frames.Load(), r.bytes.Load(), elapsed())
	case errors.Is(err, ErrPoisoned):
		outcome = observability.OutcomePoisoned
		r.poison(ctx, err)
	default:
		outcome = observability.OutcomeCanceled
		observability.LogStreamEnd(r.logger, r.streamID, r.frames.Load(), r.bytes.Load(), elapsed())
	}

	r.err = err
	r.cfg.metrics.RecordStream(context.WithoutCancel(ctx), outcome, time.Since(start))
	r.cfg.spans.EndSpanWithError(span, err)
}

// frameLoop extracts every complete event from the accumulator, reading
// more from the source only when the buffered bytes hold no complete event.
// It returns nil at a clean end of source.
func (r *Reader[E]) frameLoop(ctx context.Context) error {
	var (
		raw        [HeaderSize]byte
		header     EventHeader
		haveHeader bool
		eof        bool
	)

	for {
		need := HeaderSize
		if haveHeader {
			need = int(header.EventLength)
		}

		if r.acc.len() < need {
			if eof {
				return r.endOfSource()
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.acc.fill(ctx); err != nil {
				if !errors.Is(err, io.EOF) {
					return r.sourceFailure(ctx, err)
				}
				eof = true
			}
			continue
		}

		if !haveHeader {
			r.acc.peek(raw[:])
			h, err := ParseEventHeader(raw[:])
			if err != nil {
				return headerError(r.acc.offset, h, err)
			}
			if h.EventLength > r.cfg.maxEventSize {
				return headerError(r.acc.offset, h,
					fmt.Errorf("%w: %d > %d", ErrEventTooLarge, h.EventLength, r.cfg.maxEventSize))
			}
			header, haveHeader = h, true
			continue
		}

		offset := r.acc.offset
		frame := r.acc.take(need)
		haveHeader = false

		if err := r.dispatch(ctx, offset, header, frame); err != nil {
			return err
		}
	}
}

// endOfSource ends the stream cleanly. Bytes of an incomplete trailing event
// are dropped with a warning; Position stays at the start of that event.
func (r *Reader[E]) endOfSource() error {
	if r.acc.len() > 0 {
		observability.LogIncompleteTail(r.frameLogger, r.acc.offset, r.acc.len())
	}
	return nil
}

// headerError reports an invalid mid-stream header as a decode failure of
// the event at offset, keeping the *FormatError in its chain.
func headerError(offset int64, h EventHeader, err error) error {
	return &DecodeError{
		Offset: offset,
		Header: h,
		Err:    &FormatError{Offset: offset, Err: err},
	}
}

// sourceFailure separates our own cancellation from a broken source.
func (r *Reader[E]) sourceFailure(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &SourceError{Offset: r.acc.read, Err: err}
}

// dispatch decodes one frame and queues the result.
func (r *Reader[E]) dispatch(ctx context.Context, offset int64, header EventHeader, frame []byte) error {
	start := time.Now()
	evt, err := r.decode(frame)
	r.cfg.metrics.RecordFrame(ctx, header.EventType.String(), len(frame), time.Since(start), err)
	if err != nil {
		r.quarantineFrame(ctx, offset, header, frame, err)
		return &DecodeError{Offset: offset, Header: header, Err: err}
	}

	r.frames.Add(1)
	r.bytes.Add(int64(len(frame)))
	observability.LogFrame(r.frameLogger, header.EventType.String(), offset, len(frame))

	start = time.Now()
	if err := r.relay.put(ctx, relayItem[E]{event: evt, end: offset + int64(len(frame))}); err != nil {
		return err
	}
	r.cfg.metrics.RecordRelayWait(ctx, time.Since(start))
	return nil
}

// decode calls the decoder, converting a panic into an error.
func (r *Reader[E]) decode(frame []byte) (evt E, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p, Stack: string(debug.Stack())}
		}
	}()
	return r.decoder.Decode(frame)
}

// quarantineFrame saves a rejected frame if a store is configured.
func (r *Reader[E]) quarantineFrame(ctx context.Context, offset int64, header EventHeader, frame []byte, cause error) {
	if r.cfg.quarantine == nil {
		return
	}
	rec := quarantine.NewRecord(r.streamID, offset, uint8(header.EventType), header.EventType.String(), frame, cause)
	if err := r.cfg.quarantine.Save(context.WithoutCancel(ctx), rec); err != nil {
		observability.LogQuarantineError(r.frameLogger, offset, err)
		return
	}
	observability.LogQuarantine(r.frameLogger, offset, rec.Fingerprint)
}

// poison queues the terminal error marker. If ctx is cancelled before the
// marker fits, Next still reports err once the relay drains.
func (r *Reader[E]) poison(ctx context.Context, err error) {
	offset := errorOffset(err)
	kind := KindOf(err).String()

	observability.LogStreamPoisoned(r.logger, r.streamID, kind, offset, err)
	r.cfg.spans.AddSpanEvent(ctx, "binlogstream.poisoned",
		attribute.String("kind", kind),
		attribute.Int64("offset", offset),
	)

	_ = r.relay.put(ctx, relayItem[E]{err: err})
}

// errorOffset extracts the stream offset carried by a stream error.
func errorOffset(err error) int64 {
	var formatErr *FormatError
	if errors.As(err, &formatErr) {
		return formatErr.Offset
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.Offset
	}
	var sourceErr *SourceError
	if errors.As(err, &sourceErr) {
		return sourceErr.Offset
	}
	return -1
}
