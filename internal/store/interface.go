package store

import (
	"context"
	"encoding/json"
)

// Kind classifies a backend by how it lays out collections.
type Kind string

const (
	// KindMemory keeps everything in process memory.
	KindMemory Kind = "memory"
	// KindDocument stores each collection as one serialized value.
	KindDocument Kind = "document"
	// KindIndexed stores each record individually, keyed by its id.
	KindIndexed Kind = "indexed"
)

// Record is one stored entity. Data is the entity's JSON encoding, which
// must carry an "id" field equal to ID.
type Record struct {
	ID   string
	Data json.RawMessage
}

// RecordStore holds named, ordered collections of records.
//
// Every call may block on I/O. A collection that was never written reads as
// empty.
type RecordStore interface {
	// GetAll returns the records of collection in stored order.
	GetAll(ctx context.Context, collection string) ([]Record, error)
	// Put replaces the whole collection.
	Put(ctx context.Context, collection string, records []Record) error
	// PutOne inserts or replaces a single record by id. New records are
	// appended.
	PutOne(ctx context.Context, collection string, record Record) error
	// DeleteOne removes a record. Missing ids are not an error.
	DeleteOne(ctx context.Context, collection, id string) error
	// Clear removes the collection entirely.
	Clear(ctx context.Context, collection string) error
}

// KeyValue holds opaque values under string keys.
type KeyValue interface {
	// Get returns ErrNotFound for missing keys.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes all keys or none of them. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}

// Backend is a storage engine usable for every repository.
type Backend interface {
	RecordStore
	KeyValue
	Kind() Kind
	Close() error
}
