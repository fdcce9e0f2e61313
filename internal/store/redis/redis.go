// Package redis is a document backend on Redis, for deployments where
// several server replicas share one store. Each collection is one JSON
// array value, as in the Badger backend.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	goredis "github.com/redis/go-redis/v9"

	"github.com/storyloom/storyloom-server/internal/store"
)

const (
	// DefaultPrefix namespaces every key this backend writes.
	DefaultPrefix = "storyloom:"

	connectAttempts  = 3
	conflictAttempts = 5
)

// Store implements store.Backend on a Redis client.
type Store struct {
	client *goredis.Client
	logger *slog.Logger
	prefix string
}

var _ store.Backend = (*Store)(nil)

// Open parses a redis:// URL, connects, and pings until the server answers
// or the attempts run out.
func Open(ctx context.Context, rawURL, prefix string, logger *slog.Logger) (*Store, error) {
	opts, err := goredis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := goredis.NewClient(opts)

	err = retry.Do(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return client.Ping(pingCtx).Err()
		},
		retry.Context(ctx),
		retry.Attempts(connectAttempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return New(client, prefix, logger), nil
}

// New wraps an existing client.
func New(client *goredis.Client, prefix string, logger *slog.Logger) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{client: client, prefix: prefix, logger: logger}
}

// Kind implements store.Backend.
func (s *Store) Kind() store.Kind { return store.KindDocument }

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) collectionKey(name string) string { return s.prefix + "col:" + name }
func (s *Store) valueKey(key string) string       { return s.prefix + "kv:" + key }

// GetAll implements store.RecordStore.
func (s *Store) GetAll(ctx context.Context, collection string) ([]store.Record, error) {
	raw, err := s.client.Get(ctx, s.collectionKey(collection)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return []store.Record{}, nil
	}
	if err != nil {
		return nil, wrap(err)
	}
	return store.DecodeDocument(raw)
}

// Put implements store.RecordStore.
func (s *Store) Put(ctx context.Context, collection string, records []store.Record) error {
	records, err := store.ValidateRecords(records)
	if err != nil {
		return err
	}
	value, err := store.EncodeDocument(records)
	if err != nil {
		return err
	}
	return wrap(s.client.Set(ctx, s.collectionKey(collection), value, 0).Err())
}

// PutOne implements store.RecordStore with an optimistic WATCH/MULTI
// transaction.
func (s *Store) PutOne(ctx context.Context, collection string, record store.Record) error {
	if _, err := store.ValidateRecords([]store.Record{record}); err != nil {
		return err
	}
	return s.modify(ctx, collection, func(records []store.Record) ([]store.Record, bool) {
		return store.UpsertRecord(records, record), true
	})
}

// DeleteOne implements store.RecordStore.
func (s *Store) DeleteOne(ctx context.Context, collection, id string) error {
	return s.modify(ctx, collection, func(records []store.Record) ([]store.Record, bool) {
		return store.RemoveRecord(records, id)
	})
}

// Clear implements store.RecordStore.
func (s *Store) Clear(ctx context.Context, collection string) error {
	return wrap(s.client.Del(ctx, s.collectionKey(collection)).Err())
}

// Collections implements store.Collections.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	prefix := s.collectionKey("")
	var names []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, wrap(err)
	}
	return names, nil
}

// Get implements store.KeyValue.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.valueKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, wrap(err)
	}
	return v, nil
}

// Set implements store.KeyValue.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return wrap(s.client.Set(ctx, s.valueKey(key), value, 0).Err())
}

// Delete implements store.KeyValue. DEL with several keys is atomic.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.valueKey(k)
	}
	return wrap(s.client.Del(ctx, full...).Err())
}

// modify runs a read-modify-write of one collection under WATCH, retrying
// when another writer changes the key first.
func (s *Store) modify(ctx context.Context, collection string, fn func([]store.Record) ([]store.Record, bool)) error {
	key := s.collectionKey(collection)

	txf := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		records, err := store.DecodeDocument(raw)
		if err != nil {
			return err
		}
		records, changed := fn(records)
		if !changed {
			return nil
		}
		value, err := store.EncodeDocument(records)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, value, 0)
			return nil
		})
		return err
	}

	err := retry.Do(
		func() error { return s.client.Watch(ctx, txf, key) },
		retry.Context(ctx),
		retry.Attempts(conflictAttempts),
		retry.Delay(2*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, goredis.TxFailedErr) }),
	)
	if err != nil {
		s.logger.Warn("collection update failed",
			slog.String("collection", collection),
			slog.String("error", err.Error()))
	}
	return wrap(err)
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return store.ErrUnavailable.WithCause(err)
}
