package binlogstream

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// FirstEventPosition is the offset of the first event: the prologue length.
	FirstEventPosition = 4

	// HeaderSize is the size of a v4 event header.
	HeaderSize = 19

	// DefaultMaxEventSize bounds a single event, matching the largest
	// max_allowed_packet the server accepts.
	DefaultMaxEventSize = 1 << 30
)

// MagicNumber is the prologue every binary log file starts with.
var MagicNumber = [FirstEventPosition]byte{0xfe, 0x62, 0x69, 0x6e}

// EventType is the one-byte type code of a binlog event.
type EventType uint8

// MySQL event types.
const (
	UnknownEvent           EventType = 0x00
	StartEventV3           EventType = 0x01
	QueryEvent             EventType = 0x02
	StopEvent              EventType = 0x03
	RotateEvent            EventType = 0x04
	IntvarEvent            EventType = 0x05
	RandEvent              EventType = 0x0d
	UserVarEvent           EventType = 0x0e
	FormatDescriptionEvent EventType = 0x0f
	XidEvent               EventType = 0x10
	TableMapEvent          EventType = 0x13
	WriteRowsEventV1       EventType = 0x17
	UpdateRowsEventV1      EventType = 0x18
	DeleteRowsEventV1      EventType = 0x19
	IncidentEvent          EventType = 0x1a
	HeartbeatEvent         EventType = 0x1b
	RowsQueryEvent         EventType = 0x1d
	WriteRowsEventV2       EventType = 0x1e
	UpdateRowsEventV2      EventType = 0x1f
	DeleteRowsEventV2      EventType = 0x20
	GtidEvent              EventType = 0x21
	AnonymousGtidEvent     EventType = 0x22
	PreviousGtidsEvent     EventType = 0x23
)

// MariaDB event types.
const (
	MariaAnnotateRowsEvent     EventType = 0xa0
	MariaBinlogCheckpointEvent EventType = 0xa1
	MariaGtidEvent             EventType = 0xa2
	MariaGtidListEvent         EventType = 0xa3
	MariaStartEncryptionEvent  EventType = 0xa4
)

var eventTypeNames = map[EventType]string{
	UnknownEvent:               "unknown",
	StartEventV3:               "start_v3",
	QueryEvent:                 "query",
	StopEvent:                  "stop",
	RotateEvent:                "rotate",
	IntvarEvent:                "intvar",
	RandEvent:                  "rand",
	UserVarEvent:               "user_var",
	FormatDescriptionEvent:     "format_description",
	XidEvent:                   "xid",
	TableMapEvent:              "table_map",
	WriteRowsEventV1:           "write_rows_v1",
	UpdateRowsEventV1:          "update_rows_v1",
	DeleteRowsEventV1:          "delete_rows_v1",
	IncidentEvent:              "incident",
	HeartbeatEvent:             "heartbeat",
	RowsQueryEvent:             "rows_query",
	WriteRowsEventV2:           "write_rows_v2",
	UpdateRowsEventV2:          "update_rows_v2",
	DeleteRowsEventV2:          "delete_rows_v2",
	GtidEvent:                  "gtid",
	AnonymousGtidEvent:         "anonymous_gtid",
	PreviousGtidsEvent:         "previous_gtids",
	MariaAnnotateRowsEvent:     "mariadb_annotate_rows",
	MariaBinlogCheckpointEvent: "mariadb_binlog_checkpoint",
	MariaGtidEvent:             "mariadb_gtid",
	MariaGtidListEvent:         "mariadb_gtid_list",
	MariaStartEncryptionEvent:  "mariadb_start_encryption",
}

// String returns the event type name.
func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", uint8(t))
}

// EventHeader is the fixed v4 header at the front of every event.
//
// Layout (little endian):
//
//	offset  size  field
//	0       4     timestamp
//	4       1     event type
//	5       4     server id
//	9       4     event length (header included)
//	13      4     next position
//	17      2     flags
type EventHeader struct {
	Timestamp    uint32
	EventType    EventType
	ServerID     uint32
	EventLength  uint32
	NextPosition uint32
	Flags        uint16
}

// Time returns the event timestamp.
func (h EventHeader) Time() time.Time {
	return time.Unix(int64(h.Timestamp), 0).UTC()
}

// BodyLength returns the number of bytes following the header.
func (h EventHeader) BodyLength() int {
	return int(h.EventLength) - HeaderSize
}

// ParseEventHeader decodes the first HeaderSize bytes of b.
// It rejects headers whose event length is smaller than HeaderSize, since
// such a frame could never be complete.
func ParseEventHeader(b []byte) (EventHeader, error) {
	if len(b) < HeaderSize {
		return EventHeader{}, fmt.Errorf("%w: have %d bytes, need %d", ErrShortHeader, len(b), HeaderSize)
	}
	h := EventHeader{
		Timestamp:    binary.LittleEndian.Uint32(b[0:4]),
		EventType:    EventType(b[4]),
		ServerID:     binary.LittleEndian.Uint32(b[5:9]),
		EventLength:  binary.LittleEndian.Uint32(b[9:13]),
		NextPosition: binary.LittleEndian.Uint32(b[13:17]),
		Flags:        binary.LittleEndian.Uint16(b[17:19]),
	}
	if h.EventLength < HeaderSize {
		return h, fmt.Errorf("%w: %d < %d", ErrEventTooShort, h.EventLength, HeaderSize)
	}
	return h, nil
}

// EncodeEventHeader is the inverse of ParseEventHeader.
func EncodeEventHeader(h EventHeader) []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Timestamp)
	buf[4] = byte(h.EventType)
	binary.LittleEndian.PutUint32(buf[5:9], h.ServerID)
	binary.LittleEndian.PutUint32(buf[9:13], h.EventLength)
	binary.LittleEndian.PutUint32(buf[13:17], h.NextPosition)
	binary.LittleEndian.PutUint16(buf[17:19], h.Flags)
	return buf
}

// checkPrologue compares the first FirstEventPosition bytes against MagicNumber.
func checkPrologue(b []byte) error {
	if !bytes.Equal(b, MagicNumber[:]) {
		return &FormatError{
			Offset: 0,
			Err:    fmt.Errorf("%w: got % x", ErrInvalidMagic, b),
		}
	}
	return nil
}
