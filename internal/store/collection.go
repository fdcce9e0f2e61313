package store

import (
	"context"
	"encoding/json"
)

// Collection provides typed access to one named collection of a
// RecordStore.
type Collection[T any] struct {
	store RecordStore
	idOf  func(*T) string
	name  string
}

// NewCollection binds type T to collection name. idOf returns the record id
// of an item.
func NewCollection[T any](s RecordStore, name string, idOf func(*T) string) *Collection[T] {
	return &Collection[T]{store: s, name: name, idOf: idOf}
}

// Name returns the collection key.
func (c *Collection[T]) Name() string { return c.name }

// All decodes every record in stored order. Records that do not decode
// into T are left out and their ids returned in skipped, so one bad row
// never hides the rest of the collection.
func (c *Collection[T]) All(ctx context.Context) (items []T, skipped []string, err error) {
	records, err := c.store.GetAll(ctx, c.name)
	if err != nil {
		return nil, nil, err
	}

	items = make([]T, 0, len(records))
	for _, r := range records {
		var item T
		if err := json.Unmarshal(r.Data, &item); err != nil {
			skipped = append(skipped, r.ID)
			continue
		}
		items = append(items, item)
	}
	return items, skipped, nil
}

// ReplaceAll overwrites the collection with items.
func (c *Collection[T]) ReplaceAll(ctx context.Context, items []T) error {
	records := make([]Record, 0, len(items))
	for i := range items {
		r, err := NewRecord(c.idOf(&items[i]), &items[i])
		if err != nil {
			return err
		}
		records = append(records, r)
	}
	return c.store.Put(ctx, c.name, records)
}

// Upsert writes a single item.
func (c *Collection[T]) Upsert(ctx context.Context, item *T) error {
	r, err := NewRecord(c.idOf(item), item)
	if err != nil {
		return err
	}
	return c.store.PutOne(ctx, c.name, r)
}

// Delete removes the item with id. Missing ids are not an error.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.DeleteOne(ctx, c.name, id)
}

// Clear removes the collection.
func (c *Collection[T]) Clear(ctx context.Context) error {
	return c.store.Clear(ctx, c.name)
}
