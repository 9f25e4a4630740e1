package quarantine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists quarantined frames to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite quarantine store.
// The path should be a file path (e.g., "./quarantine.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every :memory: connection is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS quarantined_frames (
			stream_id TEXT NOT NULL,
			frame_offset INTEGER NOT NULL,
			event_type INTEGER NOT NULL,
			event_type_name TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			data BLOB NOT NULL,
			error_message TEXT NOT NULL,
			captured_at TEXT NOT NULL,
			PRIMARY KEY (stream_id, frame_offset)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_quarantined_frames_fingerprint
		ON quarantined_frames(fingerprint)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quarantined_frames
			(stream_id, frame_offset, event_type, event_type_name, fingerprint, data, error_message, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(stream_id, frame_offset) DO UPDATE SET
			event_type = excluded.event_type,
			event_type_name = excluded.event_type_name,
			fingerprint = excluded.fingerprint,
			data = excluded.data,
			error_message = excluded.error_message,
			captured_at = excluded.captured_at
	`, rec.StreamID, rec.Offset, int(rec.EventType), rec.EventTypeName, rec.Fingerprint,
		nonNil(rec.Data), rec.Error, rec.CapturedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save quarantine record: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, streamID string, offset int64) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Record{}, ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT stream_id, frame_offset, event_type, event_type_name, fingerprint, data, error_message, captured_at
		FROM quarantined_frames
		WHERE stream_id = ? AND frame_offset = ?
	`, streamID, offset)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load quarantine record: %w", err)
	}
	return rec, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, streamID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT stream_id, frame_offset, event_type, event_type_name, fingerprint, data, error_message, captured_at
		FROM quarantined_frames
		WHERE stream_id = ?
		ORDER BY frame_offset
	`, streamID)
	if err != nil {
		return nil, fmt.Errorf("list quarantine records: %w", err)
	}
	defer rows.Close()

	recs := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quarantine record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quarantine records: %w", err)
	}
	return recs, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, streamID string, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM quarantined_frames
		WHERE stream_id = ? AND frame_offset = ?
	`, streamID, offset)
	if err != nil {
		return fmt.Errorf("delete quarantine record: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec        Record
		eventType  int
		capturedAt string
	)
	if err := row.Scan(&rec.StreamID, &rec.Offset, &eventType, &rec.EventTypeName,
		&rec.Fingerprint, &rec.Data, &rec.Error, &capturedAt); err != nil {
		return Record{}, err
	}
	rec.EventType = uint8(eventType)
	rec.CapturedAt, _ = time.Parse(time.RFC3339Nano, capturedAt)
	return rec, nil
}

// nonNil keeps empty frames from being stored as NULL in a NOT NULL column.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
