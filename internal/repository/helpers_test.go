package repository

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"github.com/storyloom/storyloom-server/internal/sse"
	"github.com/storyloom/storyloom-server/internal/store"
	"github.com/storyloom/storyloom-server/internal/store/sqlite"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type backendCase struct {
	name string
	open func(t *testing.T, dir string) store.Backend
}

// backends opens each persistent backend kind. The dir argument lets a test
// reopen the same storage from a fresh instance.
var backends = []backendCase{
	{
		name: "badger",
		open: func(t *testing.T, dir string) store.Backend {
			s, err := store.Open(filepath.Join(dir, "badger"), nil)
			require.NoError(t, err)
			return s
		},
	},
	{
		name: "sqlite",
		open: func(t *testing.T, dir string) store.Backend {
			s, err := sqlite.Open(filepath.Join(dir, "storyloom.db"), testLogger())
			require.NoError(t, err)
			return s
		},
	},
}

// recordingEmitter captures emitted events.
type recordingEmitter struct {
	events []sse.Event
	mu     sync.Mutex
}

func (e *recordingEmitter) Emit(event any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ev, ok := event.(sse.Event); ok {
		e.events = append(e.events, ev)
	}
}

func (e *recordingEmitter) types() []sse.EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]sse.EventType, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Type
	}
	return out
}

// countingStore counts the write calls reaching a RecordStore.
type countingStore struct {
	store.Backend
	puts, putOnes, deletes int
}

func (c *countingStore) Put(ctx context.Context, collection string, records []store.Record) error {
	c.puts++
	return c.Backend.Put(ctx, collection, records)
}

func (c *countingStore) PutOne(ctx context.Context, collection string, record store.Record) error {
	c.putOnes++
	return c.Backend.PutOne(ctx, collection, record)
}

func (c *countingStore) DeleteOne(ctx context.Context, collection, id string) error {
	c.deletes++
	return c.Backend.DeleteOne(ctx, collection, id)
}

// seedRawDocument writes value verbatim as the stored document of
// collection in the badger database at path. The database must be closed.
func seedRawDocument(t *testing.T, path, collection, value string) {
	t.Helper()

	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	require.NoError(t, err)
	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("col:"+collection), []byte(value))
	}))
	require.NoError(t, db.Close())
}
