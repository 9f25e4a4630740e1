package binlogstream

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withCRC appends the CRC32 of frame and fixes up its length field.
func withCRC(frame []byte) []byte {
	out := make([]byte, len(frame), len(frame)+ChecksumSize)
	copy(out, frame)
	binary.LittleEndian.PutUint32(out[9:13], uint32(len(frame)+ChecksumSize))
	return binary.LittleEndian.AppendUint32(out, crc32.ChecksumIEEE(out))
}

func TestRawDecoder(t *testing.T) {
	frame := buildEvent(QueryEvent, []byte("BEGIN"))

	evt, err := RawDecoder{}.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, QueryEvent, evt.Header.EventType)
	assert.Equal(t, "BEGIN", string(evt.Body))

	_, err = RawDecoder{}.Decode(frame[:10])
	assert.ErrorIs(t, err, ErrShortHeader)
}

func TestDecoderFunc(t *testing.T) {
	dec := DecoderFunc[int](func(frame []byte) (int, error) {
		return len(frame), nil
	})
	n, err := dec.Decode(make([]byte, 30))
	require.NoError(t, err)
	assert.Equal(t, 30, n)
}

func TestWithChecksum(t *testing.T) {
	t.Run("none returns the decoder unchanged", func(t *testing.T) {
		dec := WithChecksum[RawEvent](RawDecoder{}, ChecksumNone)
		_, ok := dec.(RawDecoder)
		assert.True(t, ok)
	})

	t.Run("valid checksum is stripped", func(t *testing.T) {
		frame := withCRC(buildEvent(XidEvent, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
		dec := WithChecksum[RawEvent](RawDecoder{}, ChecksumCRC32)

		evt, err := dec.Decode(frame)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, evt.Body)
	})

	t.Run("corrupt byte is rejected", func(t *testing.T) {
		frame := withCRC(buildEvent(XidEvent, []byte{1, 2, 3, 4}))
		frame[HeaderSize] ^= 0xff

		_, err := WithChecksum[RawEvent](RawDecoder{}, ChecksumCRC32).Decode(frame)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("frame too short for a checksum", func(t *testing.T) {
		frame := buildEvent(StopEvent, nil)
		_, err := WithChecksum[RawEvent](RawDecoder{}, ChecksumCRC32).Decode(frame)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("inner error passes through", func(t *testing.T) {
		boom := errors.New("boom")
		inner := DecoderFunc[int](func([]byte) (int, error) { return 0, boom })
		frame := withCRC(buildEvent(QueryEvent, []byte("x")))

		_, err := WithChecksum[int](inner, ChecksumCRC32).Decode(frame)
		assert.ErrorIs(t, err, boom)
	})
}

func TestParseChecksumAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    ChecksumAlgorithm
		wantErr bool
	}{
		{"", ChecksumNone, false},
		{"NONE", ChecksumNone, false},
		{"off", ChecksumNone, false},
		{"CRC32", ChecksumCRC32, false},
		{" crc32 ", ChecksumCRC32, false},
		{"md5", ChecksumNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChecksumAlgorithm(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "CRC32", ChecksumCRC32.String())
	assert.Equal(t, "NONE", ChecksumNone.String())
}
