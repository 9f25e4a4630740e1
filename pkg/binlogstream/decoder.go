package binlogstream

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"
)

// Decoder turns the bytes of one complete event into a value of type E.
//
// frame holds exactly EventHeader.EventLength bytes, header included, and is
// owned by the decoder: the reader never touches it again. Decode must not
// call back into the Reader. Any error poisons the stream.
type Decoder[E any] interface {
	Decode(frame []byte) (E, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc[E any] func(frame []byte) (E, error)

// Decode calls f(frame).
func (f DecoderFunc[E]) Decode(frame []byte) (E, error) {
	return f(frame)
}

// RawEvent is an event split into its header and undecoded body.
type RawEvent struct {
	Header EventHeader
	Body   []byte
}

// RawDecoder decodes only the event header. Body is everything after the
// header, including a trailing checksum if the inner decoder was not wrapped
// with WithChecksum.
type RawDecoder struct{}

// Decode implements Decoder.
func (RawDecoder) Decode(frame []byte) (RawEvent, error) {
	h, err := ParseEventHeader(frame)
	if err != nil {
		return RawEvent{}, err
	}
	return RawEvent{Header: h, Body: frame[HeaderSize:]}, nil
}

// ChecksumAlgorithm is the binlog_checksum setting of the server that wrote the log.
type ChecksumAlgorithm uint8

const (
	// ChecksumNone means events carry no trailing checksum.
	ChecksumNone ChecksumAlgorithm = 0
	// ChecksumCRC32 means every event ends with a 4-byte little-endian CRC32 (IEEE).
	ChecksumCRC32 ChecksumAlgorithm = 1
)

// ChecksumSize is the length of a CRC32 event checksum.
const ChecksumSize = 4

// String returns the algorithm name as the server spells it.
func (a ChecksumAlgorithm) String() string {
	switch a {
	case ChecksumNone:
		return "NONE"
	case ChecksumCRC32:
		return "CRC32"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// ParseChecksumAlgorithm parses "none" or "crc32", case-insensitively.
func ParseChecksumAlgorithm(s string) (ChecksumAlgorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return ChecksumNone, nil
	case "crc32":
		return ChecksumCRC32, nil
	default:
		return ChecksumNone, fmt.Errorf("unknown checksum algorithm %q", s)
	}
}

type checksumDecoder[E any] struct {
	inner Decoder[E]
}

// WithChecksum wraps dec so that each frame's trailing checksum is verified
// and stripped before dec sees it. With ChecksumNone it returns dec unchanged.
func WithChecksum[E any](dec Decoder[E], alg ChecksumAlgorithm) Decoder[E] {
	if alg == ChecksumNone {
		return dec
	}
	return &checksumDecoder[E]{inner: dec}
}

// Decode implements Decoder.
func (d *checksumDecoder[E]) Decode(frame []byte) (E, error) {
	var zero E
	if len(frame) < HeaderSize+ChecksumSize {
		return zero, fmt.Errorf("%w: frame of %d bytes has no room for a checksum", ErrChecksumMismatch, len(frame))
	}

	n := len(frame) - ChecksumSize
	want := binary.LittleEndian.Uint32(frame[n:])
	if got := crc32.ChecksumIEEE(frame[:n]); got != want {
		return zero, fmt.Errorf("%w: computed %08x, stored %08x", ErrChecksumMismatch, got, want)
	}
	return d.inner.Decode(frame[:n])
}
