package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/storyloom/storyloom-server/internal/store"
)

// GetAll implements store.RecordStore.
func (s *Store) GetAll(ctx context.Context, collection string) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM records WHERE collection = ? ORDER BY position`, collection)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	records := []store.Record{}
	for rows.Next() {
		var (
			id   string
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, wrap(err)
		}
		if !json.Valid([]byte(data)) {
			return nil, store.ErrMalformed.WithMessage("record " + id + " in " + collection + " is not valid JSON")
		}
		records = append(records, store.Record{ID: id, Data: json.RawMessage(data)})
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err)
	}
	return records, nil
}

// Put implements store.RecordStore. The collection is replaced inside one
// transaction.
func (s *Store) Put(ctx context.Context, collection string, records []store.Record) error {
	records, err := store.ValidateRecords(records)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, collection); err != nil {
		return wrap(err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (collection, id, position, data, updated_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return wrap(err)
	}
	defer stmt.Close()

	ts := now()
	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, collection, r.ID, i, string(r.Data), ts); err != nil {
			return wrap(err)
		}
	}
	return wrap(tx.Commit())
}

// PutOne implements store.RecordStore. Existing records keep their position;
// new ones go to the end.
func (s *Store) PutOne(ctx context.Context, collection string, record store.Record) error {
	if _, err := store.ValidateRecords([]store.Record{record}); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (collection, id, position, data, updated_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM records WHERE collection = ?), ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		collection, record.ID, collection, string(record.Data), now())
	return wrap(err)
}

// DeleteOne implements store.RecordStore.
func (s *Store) DeleteOne(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND id = ?`, collection, id)
	return wrap(err)
}

// Clear implements store.RecordStore.
func (s *Store) Clear(ctx context.Context, collection string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, collection)
	return wrap(err)
}

// Collections implements store.Collections.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT collection FROM records ORDER BY collection`)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrap(err)
		}
		names = append(names, name)
	}
	return names, wrap(rows.Err())
}

// Get implements store.KeyValue.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, wrap(err)
	}
	return value, nil
}

// Set implements store.KeyValue.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now())
	return wrap(err)
}

// Delete implements store.KeyValue. All keys go in one transaction.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, k); err != nil {
			return wrap(err)
		}
	}
	return wrap(tx.Commit())
}
