package store

import (
	"bytes"
	"context"
	"maps"
	"slices"
	"sync"
)

// Memory is a process-local backend. Everything is lost when the process
// exits; it serves previews and tests.
type Memory struct {
	collections map[string][]Record
	values      map[string][]byte
	mu          sync.RWMutex
	closed      bool
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string][]Record),
		values:      make(map[string][]byte),
	}
}

// Kind implements Backend.
func (m *Memory) Kind() Kind { return KindMemory }

// Close implements Backend. Later calls fail with ErrUnavailable.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *Memory) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.closed {
		return ErrUnavailable.WithMessage("memory store closed")
	}
	return nil
}

// GetAll implements RecordStore.
func (m *Memory) GetAll(ctx context.Context, collection string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	return cloneRecords(m.collections[collection]), nil
}

// Put implements RecordStore.
func (m *Memory) Put(ctx context.Context, collection string, records []Record) error {
	records, err := ValidateRecords(records)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}
	m.collections[collection] = cloneRecords(records)
	return nil
}

// PutOne implements RecordStore.
func (m *Memory) PutOne(ctx context.Context, collection string, record Record) error {
	if _, err := ValidateRecords([]Record{record}); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}
	rec := Record{ID: record.ID, Data: bytes.Clone(record.Data)}
	m.collections[collection] = UpsertRecord(m.collections[collection], rec)
	return nil
}

// DeleteOne implements RecordStore.
func (m *Memory) DeleteOne(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}
	if records, ok := RemoveRecord(m.collections[collection], id); ok {
		m.collections[collection] = records
	}
	return nil
}

// Clear implements RecordStore.
func (m *Memory) Clear(ctx context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}
	delete(m.collections, collection)
	return nil
}

// Collections implements Collections.
func (m *Memory) Collections(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(m.collections)), nil
}

// Get implements KeyValue.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

// Set implements KeyValue.
func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}
	m.values[key] = bytes.Clone(value)
	return nil
}

// Delete implements KeyValue.
func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}
