// Package storetest holds the behaviour every store.Backend must share.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyloom/storyloom-server/internal/store"
)

// Factory opens a fresh, empty backend for one subtest.
type Factory func(t *testing.T) store.Backend

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func rec(t *testing.T, id, name string) store.Record {
	t.Helper()
	r, err := store.NewRecord(id, item{ID: id, Name: name})
	require.NoError(t, err)
	return r
}

func names(t *testing.T, records []store.Record) []string {
	t.Helper()
	out := make([]string, 0, len(records))
	for _, r := range records {
		var it item
		require.NoError(t, json.Unmarshal(r.Data, &it))
		assert.Equal(t, r.ID, it.ID)
		out = append(out, it.Name)
	}
	return out
}

// Run exercises the RecordStore and KeyValue contracts.
func Run(t *testing.T, open Factory) {
	ctx := context.Background()

	t.Run("missing collection reads empty", func(t *testing.T) {
		b := open(t)
		records, err := b.GetAll(ctx, "books")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("put replaces whole collection in order", func(t *testing.T) {
		b := open(t)
		require.NoError(t, b.Put(ctx, "books", []store.Record{rec(t, "1", "a"), rec(t, "2", "b")}))
		require.NoError(t, b.Put(ctx, "books", []store.Record{rec(t, "3", "c"), rec(t, "1", "a2")}))

		records, err := b.GetAll(ctx, "books")
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a2"}, names(t, records))
	})

	t.Run("put empty leaves empty collection", func(t *testing.T) {
		b := open(t)
		require.NoError(t, b.Put(ctx, "books", []store.Record{rec(t, "1", "a")}))
		require.NoError(t, b.Put(ctx, "books", nil))

		records, err := b.GetAll(ctx, "books")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("put duplicate ids keeps last", func(t *testing.T) {
		b := open(t)
		require.NoError(t, b.Put(ctx, "books", []store.Record{rec(t, "1", "first"), rec(t, "1", "second")}))

		records, err := b.GetAll(ctx, "books")
		require.NoError(t, err)
		assert.Equal(t, []string{"second"}, names(t, records))
	})

	t.Run("put rejects empty id", func(t *testing.T) {
		b := open(t)
		err := b.Put(ctx, "books", []store.Record{{ID: "", Data: json.RawMessage(`{}`)}})
		assert.ErrorIs(t, err, store.ErrInvalidInput)
	})

	t.Run("putOne upserts in place and appends new", func(t *testing.T) {
		b := open(t)
		require.NoError(t, b.Put(ctx, "books", []store.Record{rec(t, "1", "a"), rec(t, "2", "b")}))
		require.NoError(t, b.PutOne(ctx, "books", rec(t, "1", "a2")))
		require.NoError(t, b.PutOne(ctx, "books", rec(t, "9", "z")))

		records, err := b.GetAll(ctx, "books")
		require.NoError(t, err)
		assert.Equal(t, []string{"a2", "b", "z"}, names(t, records))
	})

	t.Run("deleteOne is idempotent", func(t *testing.T) {
		b := open(t)
		require.NoError(t, b.Put(ctx, "books", []store.Record{rec(t, "1", "a"), rec(t, "2", "b")}))

		require.NoError(t, b.DeleteOne(ctx, "books", "1"))
		require.NoError(t, b.DeleteOne(ctx, "books", "1"))
		require.NoError(t, b.DeleteOne(ctx, "never", "1"))

		records, err := b.GetAll(ctx, "books")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, names(t, records))
	})

	t.Run("collections are independent", func(t *testing.T) {
		b := open(t)
		require.NoError(t, b.Put(ctx, "slides:theme", []store.Record{rec(t, "1", "t")}))
		require.NoError(t, b.Put(ctx, "slides:scene", []store.Record{rec(t, "1", "s")}))
		require.NoError(t, b.Clear(ctx, "slides:theme"))

		theme, err := b.GetAll(ctx, "slides:theme")
		require.NoError(t, err)
		assert.Empty(t, theme)

		scene, err := b.GetAll(ctx, "slides:scene")
		require.NoError(t, err)
		assert.Equal(t, []string{"s"}, names(t, scene))
	})

	t.Run("clear missing collection", func(t *testing.T) {
		b := open(t)
		assert.NoError(t, b.Clear(ctx, "nothing"))
	})

	t.Run("key value roundtrip", func(t *testing.T) {
		b := open(t)

		_, err := b.Get(ctx, "drawing_aiPanelOpen")
		assert.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, b.Set(ctx, "drawing_aiPanelOpen", []byte("true")))
		v, err := b.Get(ctx, "drawing_aiPanelOpen")
		require.NoError(t, err)
		assert.Equal(t, "true", string(v))
	})

	t.Run("key value delete many", func(t *testing.T) {
		b := open(t)
		for i := range 4 {
			require.NoError(t, b.Set(ctx, fmt.Sprintf("k%d", i), []byte("v")))
		}

		require.NoError(t, b.Delete(ctx, "k0", "k1", "k2", "missing"))

		for i := range 3 {
			_, err := b.Get(ctx, fmt.Sprintf("k%d", i))
			assert.ErrorIs(t, err, store.ErrNotFound)
		}
		v, err := b.Get(ctx, "k3")
		require.NoError(t, err)
		assert.Equal(t, "v", string(v))
	})

	t.Run("records and values do not collide", func(t *testing.T) {
		b := open(t)
		require.NoError(t, b.Set(ctx, "books", []byte("not an array")))
		require.NoError(t, b.Put(ctx, "books", []store.Record{rec(t, "1", "a")}))

		records, err := b.GetAll(ctx, "books")
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("canceled context", func(t *testing.T) {
		b := open(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := b.GetAll(cctx, "books")
		assert.Error(t, err)
	})
}
