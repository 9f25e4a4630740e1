package binlogstream

import (
	"context"
	"io"
)

// DefaultChunkSize is the read size used by FromReader when none is given.
const DefaultChunkSize = 64 * 1024

// Source yields the raw bytes of a binary log, forward only.
//
// ReadChunk blocks until at least one byte is available, the source is
// exhausted (io.EOF), or it fails. Chunk boundaries carry no meaning and may
// fall anywhere, including inside an event header. The returned slice is
// owned by the caller from then on and must not be reused by the source.
// A chunk may accompany io.EOF; once io.EOF is returned every later call
// must return it too. Implementations should return promptly once ctx is done.
type Source interface {
	ReadChunk(ctx context.Context) ([]byte, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]byte, error)

// ReadChunk calls f(ctx).
func (f SourceFunc) ReadChunk(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// readerSource adapts an io.Reader.
type readerSource struct {
	r         io.Reader
	chunkSize int
	err       error // deferred error from a read that also returned data
}

// FromReader returns a Source reading chunkSize bytes at a time from r.
// A chunkSize <= 0 selects DefaultChunkSize.
//
// io.Reader has no cancellation, so a Read blocked inside r is only
// abandoned once it returns; ctx is checked before every Read.
func FromReader(r io.Reader, chunkSize int) Source {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &readerSource{r: r, chunkSize: chunkSize}
}

// ReadChunk implements Source.
func (s *readerSource) ReadChunk(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}

	buf := make([]byte, s.chunkSize)
	n, err := s.r.Read(buf)
	if n > 0 {
		s.err = err
		return buf[:n], nil
	}
	return nil, err
}
