// Package quarantine keeps the raw bytes of frames that poisoned a stream.
//
// A frame the decoder rejected is the only evidence of why replication
// stopped. Saving it, with its offset and the error, lets an operator inspect
// or replay it with a fixed decoder without re-reading the log.
package quarantine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Store persists quarantined frames.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a record. Overwrites if a record for (StreamID, Offset) already exists.
	Save(ctx context.Context, rec Record) error

	// Load retrieves a record.
	// Returns ErrNotFound if it doesn't exist.
	Load(ctx context.Context, streamID string, offset int64) (Record, error)

	// List returns all records for a stream, ordered by offset.
	// Returns empty slice (not error) if the stream has none.
	List(ctx context.Context, streamID string) ([]Record, error)

	// Delete removes a record.
	// Returns nil if it doesn't exist.
	Delete(ctx context.Context, streamID string, offset int64) error

	// Close releases any resources (connections, files).
	Close() error
}

// Record is one quarantined frame.
type Record struct {
	StreamID      string
	Offset        int64
	EventType     uint8
	EventTypeName string
	Fingerprint   string
	Data          []byte
	Error         string
	CapturedAt    time.Time
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates a record doesn't exist.
	ErrNotFound = errors.New("quarantine record not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("quarantine store closed")
)

// NewRecord builds a record for a rejected frame. The frame bytes are copied.
func NewRecord(streamID string, offset int64, eventType uint8, eventTypeName string, frame []byte, cause error) Record {
	data := make([]byte, len(frame))
	copy(data, frame)

	rec := Record{
		StreamID:      streamID,
		Offset:        offset,
		EventType:     eventType,
		EventTypeName: eventTypeName,
		Fingerprint:   Fingerprint(frame),
		Data:          data,
		CapturedAt:    time.Now().UTC(),
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	return rec
}

// Fingerprint returns a stable hex digest of frame bytes. Identical frames
// rejected in different streams share a fingerprint.
func Fingerprint(frame []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(frame))
}
