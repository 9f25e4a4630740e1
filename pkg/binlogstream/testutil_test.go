package binlogstream

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// buildEvent returns a complete event of the given type whose body is body.
func buildEvent(typ EventType, body []byte) []byte {
	h := EventHeader{
		Timestamp:   1700000000,
		EventType:   typ,
		ServerID:    1,
		EventLength: uint32(HeaderSize + len(body)),
	}
	return append(EncodeEventHeader(h), body...)
}

// buildLog prefixes events with the magic number.
func buildLog(events ...[]byte) []byte {
	var buf bytes.Buffer
	buf.Write(MagicNumber[:])
	for _, e := range events {
		buf.Write(e)
	}
	return buf.Bytes()
}

// chunkSource returns fixed chunks in order, then io.EOF.
type chunkSource struct {
	mu     sync.Mutex
	chunks [][]byte
	err    error // returned instead of io.EOF once chunks run out
	reads  int
}

func fromChunks(chunks ...[]byte) *chunkSource {
	return &chunkSource{chunks: chunks}
}

func (s *chunkSource) ReadChunk(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if len(s.chunks) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	out := make([]byte, len(c))
	copy(out, c)
	return out, nil
}

func (s *chunkSource) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// splitEvery cuts data into chunks of n bytes.
func splitEvery(data []byte, n int) [][]byte {
	var out [][]byte
	for len(data) > n {
		out = append(out, data[:n])
		data = data[n:]
	}
	if len(data) > 0 {
		out = append(out, data)
	}
	return out
}

// blockingSource returns its chunks, then blocks until ctx is done.
type blockingSource struct {
	chunks [][]byte
}

func (s *blockingSource) ReadChunk(ctx context.Context) ([]byte, error) {
	if len(s.chunks) > 0 {
		c := s.chunks[0]
		s.chunks = s.chunks[1:]
		return c, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

// drain reads until an error and returns the events and the error.
func drain[E any](ctx context.Context, r *Reader[E]) ([]E, error) {
	var out []E
	for {
		evt, err := r.Next(ctx)
		if err != nil {
			return out, err
		}
		out = append(out, evt)
	}
}

// bodyDecoder decodes a frame into its body as a string.
var bodyDecoder = DecoderFunc[string](func(frame []byte) (string, error) {
	return string(frame[HeaderSize:]), nil
})
