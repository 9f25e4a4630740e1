package quarantine

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory quarantine store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[int64]Record // streamID -> offset -> record
	closed bool
}

// NewMemoryStore creates a new in-memory quarantine store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[int64]Record),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if m.data[rec.StreamID] == nil {
		m.data[rec.StreamID] = make(map[int64]Record)
	}
	m.data[rec.StreamID][rec.Offset] = copyRecord(rec)
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, streamID string, offset int64) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Record{}, ErrStoreClosed
	}

	rec, ok := m.data[streamID][offset]
	if !ok {
		return Record{}, ErrNotFound
	}
	return copyRecord(rec), nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, streamID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	stream := m.data[streamID]
	recs := make([]Record, 0, len(stream))
	for _, rec := range stream {
		recs = append(recs, copyRecord(rec))
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].Offset < recs[j].Offset
	})
	return recs, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, streamID string, offset int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if stream, ok := m.data[streamID]; ok {
		delete(stream, offset)
	}
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the total number of records across all streams.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, stream := range m.data {
		count += len(stream)
	}
	return count
}

func copyRecord(rec Record) Record {
	data := make([]byte, len(rec.Data))
	copy(data, rec.Data)
	rec.Data = data
	return rec
}
