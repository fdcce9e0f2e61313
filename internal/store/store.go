package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/dgraph-io/badger/v4"
)

// Collections is implemented by backends that can enumerate the
// collections they hold.
type Collections interface {
	Collections(ctx context.Context) ([]string, error)
}

// conflictAttempts bounds retries of read-modify-write transactions that
// lose a race with a concurrent writer.
const conflictAttempts = 5

// Store is the document backend on top of Badger. Each collection is a
// single JSON array under "col:<name>"; plain values live under "kv:<key>".
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens (or creates) a Badger database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // A write is only acknowledged once it is on disk
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Info("Badger database opened successfully", "path", path)

	return &Store{db: db, logger: logger}, nil
}

// Kind implements Backend.
func (s *Store) Kind() Kind { return KindDocument }

// Close gracefully closes the database.
func (s *Store) Close() error {
	s.logger.Info("Closing database connection")
	return s.db.Close()
}

// GetAll implements RecordStore.
func (s *Store) GetAll(ctx context.Context, collection string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		records, err = readDocument(txn, collection)
		return err
	})
	if err != nil {
		return nil, wrapBadger(err)
	}
	return records, nil
}

// Put implements RecordStore.
func (s *Store) Put(ctx context.Context, collection string, records []Record) error {
	records, err := ValidateRecords(records)
	if err != nil {
		return err
	}
	value, err := EncodeDocument(records)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(collectionPrefix+collection), value)
	})
	return wrapBadger(err)
}

// PutOne implements RecordStore. The collection is rewritten inside one
// transaction.
func (s *Store) PutOne(ctx context.Context, collection string, record Record) error {
	if _, err := ValidateRecords([]Record{record}); err != nil {
		return err
	}
	return s.modify(ctx, collection, func(records []Record) ([]Record, bool) {
		return UpsertRecord(records, record), true
	})
}

// DeleteOne implements RecordStore.
func (s *Store) DeleteOne(ctx context.Context, collection, id string) error {
	return s.modify(ctx, collection, func(records []Record) ([]Record, bool) {
		return RemoveRecord(records, id)
	})
}

// Clear implements RecordStore.
func (s *Store) Clear(ctx context.Context, collection string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(collectionPrefix + collection))
	})
	return wrapBadger(err)
}

// Collections implements Collections.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(collectionPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), collectionPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, wrapBadger(err)
	}
	return names, nil
}

// Get implements KeyValue.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k := buildKey(kvPrefix, key)
	defer releaseKey(k)

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapBadger(err)
	}
	return value, nil
}

// Set implements KeyValue.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(kvPrefix+key), value)
	})
	return wrapBadger(err)
}

// Delete implements KeyValue. All keys are removed in one transaction.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete([]byte(kvPrefix + k)); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapBadger(err)
}

// modify runs a read-modify-write of one collection, retrying when Badger
// reports a conflicting concurrent commit.
func (s *Store) modify(ctx context.Context, collection string, fn func([]Record) ([]Record, bool)) error {
	update := func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			records, err := readDocument(txn, collection)
			if err != nil {
				return err
			}
			records, changed := fn(records)
			if !changed {
				return nil
			}
			value, err := EncodeDocument(records)
			if err != nil {
				return err
			}
			return txn.Set([]byte(collectionPrefix+collection), value)
		})
	}

	err := retry.Do(update,
		retry.Context(ctx),
		retry.Attempts(conflictAttempts),
		retry.Delay(2*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, badger.ErrConflict) }),
	)
	if err != nil {
		s.logger.Warn("collection update failed",
			slog.String("collection", collection),
			slog.String("error", err.Error()))
	}
	return wrapBadger(err)
}

func readDocument(txn *badger.Txn, collection string) ([]Record, error) {
	k := buildKey(collectionPrefix, collection)
	defer releaseKey(k)

	item, err := txn.Get(k)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, err
	}

	var records []Record
	err = item.Value(func(val []byte) error {
		var derr error
		records, derr = DecodeDocument(val)
		return derr
	})
	if err != nil {
		return nil, err
	}
	// Records alias the value buffer, which is only valid inside the
	// transaction.
	return cloneRecords(records), nil
}

// wrapBadger maps engine errors onto store sentinels, leaving store errors
// and context errors untouched.
func wrapBadger(err error) error {
	if err == nil {
		return nil
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return ErrUnavailable.WithCause(err)
}
