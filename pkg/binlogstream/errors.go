package binlogstream

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for prologue and header validation.
var (
	// ErrInvalidMagic indicates the stream does not start with MagicNumber.
	ErrInvalidMagic = errors.New("invalid binary log file header")

	// ErrEventTooShort indicates a header announced fewer bytes than HeaderSize.
	ErrEventTooShort = errors.New("event length smaller than header size")

	// ErrEventTooLarge indicates a header announced more bytes than the configured limit.
	ErrEventTooLarge = errors.New("event length exceeds limit")

	// ErrShortHeader indicates ParseEventHeader was given fewer than HeaderSize bytes.
	ErrShortHeader = errors.New("short event header")
)

// Sentinel errors for decoding.
var (
	// ErrChecksumMismatch indicates the trailing CRC32 of an event did not match its bytes.
	ErrChecksumMismatch = errors.New("event checksum mismatch")

	// ErrNilDecoder indicates NewReader was called without a decoder.
	ErrNilDecoder = errors.New("decoder cannot be nil")

	// ErrNilSource indicates NewReader was called without a source.
	ErrNilSource = errors.New("source cannot be nil")

	// ErrNilContext indicates NewReader was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")
)

// ErrPoisoned is matched by every error that terminates a stream.
// Once a Reader has returned an error matching ErrPoisoned, it never
// returns another event.
var ErrPoisoned = errors.New("binlog stream poisoned")

// FormatError reports malformed input: a bad prologue or an invalid event header.
// NewReader returns it bare for a bad prologue. Mid-stream it is wrapped in
// the *DecodeError of the event whose header it rejects.
type FormatError struct {
	// Offset is the stream offset at which the malformed bytes start.
	Offset int64
	// Err is the underlying error (ErrInvalidMagic, ErrEventTooShort, ...).
	Err error
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	return fmt.Sprintf("binlog format error at offset %d: %v", e.Offset, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *FormatError) Unwrap() error {
	return e.Err
}

// Is reports ErrPoisoned so callers can test for termination uniformly.
func (e *FormatError) Is(target error) bool {
	return target == ErrPoisoned
}

// DecodeError reports that the decoder rejected a complete frame.
type DecodeError struct {
	// Offset is the stream offset of the first byte of the frame.
	Offset int64
	// Header is the parsed header of the rejected frame.
	Header EventHeader
	// Err is the error returned by the decoder.
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s event at offset %d: %v", e.Header.EventType, e.Offset, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports ErrPoisoned so callers can test for termination uniformly.
func (e *DecodeError) Is(target error) bool {
	return target == ErrPoisoned
}

// SourceError reports that the byte source failed.
type SourceError struct {
	// Offset is the number of bytes successfully read before the failure.
	Offset int64
	// Err is the error returned by the source.
	Err error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("binlog source failed at offset %d: %v", e.Offset, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is reports ErrPoisoned so callers can test for termination uniformly.
func (e *SourceError) Is(target error) bool {
	return target == ErrPoisoned
}

// PanicError captures a panic raised by a decoder. It is returned as the
// Err of the DecodeError that poisons the stream.
type PanicError struct {
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("decoder panicked: %v", e.Value)
}

// Kind classifies stream errors by where they originated.
type Kind int

const (
	// KindUnknown is any error this package did not produce.
	KindUnknown Kind = iota

	// KindFormat is a malformed prologue or header.
	KindFormat

	// KindDecode is a decoder rejection.
	KindDecode

	// KindSource is a failure of the byte source.
	KindSource

	// KindCanceled is a context cancellation or deadline. Not a poisoning error.
	KindCanceled
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindDecode:
		return "decode"
	case KindSource:
		return "source"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// KindOf classifies err. Stream error types take precedence over context
// errors, so a SourceError wrapping context.Canceled is KindSource.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var formatErr *FormatError
	if errors.As(err, &formatErr) {
		return KindFormat
	}

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return KindDecode
	}

	var sourceErr *SourceError
	if errors.As(err, &sourceErr) {
		return KindSource
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}

	return KindUnknown
}
