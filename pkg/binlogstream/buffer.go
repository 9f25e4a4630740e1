package binlogstream

import (
	"context"
	"io"
)

// accumulator holds bytes read from a Source that the framer has not consumed yet.
//
// Chunks are kept as the source returned them; appending never moves bytes
// already held. It is owned by the producer goroutine and is not safe for
// concurrent use.
type accumulator struct {
	src    Source
	chunks [][]byte
	head   int   // consumed bytes of chunks[0]
	size   int   // unconsumed bytes across all chunks
	offset int64 // stream offset of the first unconsumed byte
	read   int64 // total bytes pulled from src
}

func newAccumulator(src Source) *accumulator {
	return &accumulator{src: src}
}

// len returns the number of unconsumed bytes.
func (a *accumulator) len() int {
	return a.size
}

// fill pulls one chunk from the source. It returns io.EOF once the source is
// exhausted; empty chunks are accepted and simply add nothing.
func (a *accumulator) fill(ctx context.Context) error {
	chunk, err := a.src.ReadChunk(ctx)
	if len(chunk) > 0 {
		a.chunks = append(a.chunks, chunk)
		a.size += len(chunk)
		a.read += int64(len(chunk))
	}
	return err
}

// ensure fills until at least n bytes are unconsumed.
// A source that ends first yields io.EOF with the partial bytes still held.
func (a *accumulator) ensure(ctx context.Context, n int) error {
	for a.size < n {
		if err := a.fill(ctx); err != nil {
			if err == io.EOF && a.size >= n {
				return nil
			}
			return err
		}
	}
	return nil
}

// peek copies the first len(dst) unconsumed bytes into dst without consuming them.
// The caller guarantees len(dst) <= a.len().
func (a *accumulator) peek(dst []byte) {
	head := a.head
	copied := 0
	for _, chunk := range a.chunks {
		if copied == len(dst) {
			return
		}
		copied += copy(dst[copied:], chunk[head:])
		head = 0
	}
}

// discard marks the first n unconsumed bytes as consumed.
func (a *accumulator) discard(n int) {
	a.size -= n
	a.offset += int64(n)
	for n > 0 {
		avail := len(a.chunks[0]) - a.head
		if n < avail {
			a.head += n
			return
		}
		n -= avail
		a.chunks[0] = nil
		a.chunks = a.chunks[1:]
		a.head = 0
	}
	if len(a.chunks) == 0 {
		a.chunks = nil
	}
}

// take consumes the first n bytes and returns them in a freshly allocated slice.
func (a *accumulator) take(n int) []byte {
	b := make([]byte, n)
	a.peek(b)
	a.discard(n)
	return b
}
