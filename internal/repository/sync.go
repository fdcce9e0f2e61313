// Package repository implements the book, slide and drawing repositories on
// top of a store.RecordStore, along with the policy deciding how each
// mutation reaches the backend.
package repository

import (
	"context"
	"fmt"

	"github.com/storyloom/storyloom-server/internal/sse"
	"github.com/storyloom/storyloom-server/internal/store"
)

// EventEmitter broadcasts change notifications after a write is durable.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// SyncPolicy selects how mutations are written.
type SyncPolicy string

const (
	// SyncAuto writes single records to indexed backends and whole
	// collections to everything else.
	SyncAuto SyncPolicy = "auto"
	// SyncCollection always rewrites the whole collection.
	SyncCollection SyncPolicy = "collection"
	// SyncRecord always writes the changed record only.
	SyncRecord SyncPolicy = "record"
)

// ParseSyncPolicy validates a policy name. Empty means SyncAuto.
func ParseSyncPolicy(s string) (SyncPolicy, error) {
	switch p := SyncPolicy(s); p {
	case "":
		return SyncAuto, nil
	case SyncAuto, SyncCollection, SyncRecord:
		return p, nil
	default:
		return "", fmt.Errorf("unknown sync policy %q", s)
	}
}

type kinded interface {
	Kind() store.Kind
}

// Sync reconciles in-memory edits with the backend.
//
// Repositories apply a mutation to a freshly loaded copy of the collection,
// then hand the result here. Under whole-collection writes the stored value
// becomes exactly that copy; under record writes only the touched record is
// sent. Either way the stored collection equals the in-memory one once the
// call returns, and nothing is emitted unless the write succeeded.
//
// There is no cross-process locking: two writers racing on one collection
// resolve as last write wins.
type Sync struct {
	rs        store.RecordStore
	emitter   EventEmitter
	perRecord bool
}

// NewSync returns a Sync writing to rs under policy.
func NewSync(rs store.RecordStore, policy SyncPolicy, emitter EventEmitter) *Sync {
	if emitter == nil {
		emitter = NoopEmitter{}
	}

	perRecord := false
	switch policy {
	case SyncRecord:
		perRecord = true
	case SyncCollection:
	default:
		if k, ok := rs.(kinded); ok {
			perRecord = k.Kind() == store.KindIndexed
		}
	}
	return &Sync{rs: rs, emitter: emitter, perRecord: perRecord}
}

// Store returns the backing record store.
func (s *Sync) Store() store.RecordStore { return s.rs }

// PerRecord reports whether single-record writes are used.
func (s *Sync) PerRecord() bool { return s.perRecord }

// saveOne persists all after changed was inserted or replaced in it. A
// dirty collection holds stored data that did not decode; it is always
// rewritten whole so the bad data is purged and the write is visible.
func saveOne[T any](ctx context.Context, s *Sync, col *store.Collection[T], all []T, changed *T, id string, dirty bool) error {
	var err error
	if s.perRecord && !dirty {
		err = col.Upsert(ctx, changed)
	} else {
		err = col.ReplaceAll(ctx, all)
	}
	if err != nil {
		return err
	}
	s.emitter.Emit(sse.NewRecordSavedEvent(col.Name(), id))
	return nil
}

// deleteOne persists all after the record id was removed from it.
func deleteOne[T any](ctx context.Context, s *Sync, col *store.Collection[T], all []T, id string, dirty bool) error {
	var err error
	if s.perRecord && !dirty {
		err = col.Delete(ctx, id)
	} else {
		err = col.ReplaceAll(ctx, all)
	}
	if err != nil {
		return err
	}
	s.emitter.Emit(sse.NewRecordDeletedEvent(col.Name(), id))
	return nil
}

// replaceAll persists all as the complete collection.
func replaceAll[T any](ctx context.Context, s *Sync, col *store.Collection[T], all []T) error {
	if err := col.ReplaceAll(ctx, all); err != nil {
		return err
	}
	s.emitter.Emit(sse.NewCollectionReplacedEvent(col.Name(), len(all)))
	return nil
}

// clearAll removes the collection.
func clearAll[T any](ctx context.Context, s *Sync, col *store.Collection[T]) error {
	if err := col.Clear(ctx); err != nil {
		return err
	}
	s.emitter.Emit(sse.NewCollectionReplacedEvent(col.Name(), 0))
	return nil
}
