// Package sqlite is the indexed record backend: every record is its own row
// keyed by (collection, id), so single-record writes never rewrite the
// collection.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/storyloom/storyloom-server/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in PRAGMA user_version once the schema exists.
const schemaVersion = 1

// Store provides SQLite-backed record and key/value storage.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.Backend = (*Store)(nil)

// Open creates or opens a SQLite database at path and upgrades its schema
// to the current version.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "busy_timeout(5000)")
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, logger: logger}
	if err := s.upgrade(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite database opened successfully", "path", path)
	return s, nil
}

// upgrade creates the schema on first use and records its version.
func (s *Store) upgrade(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upgrade: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upgrade: %w", err)
	}

	s.logger.Info("sqlite schema upgraded",
		slog.Int("from", version),
		slog.Int("to", schemaVersion))
	return nil
}

// Kind implements store.Backend.
func (s *Store) Kind() store.Kind { return store.KindIndexed }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// wrap maps driver errors onto store sentinels, leaving store errors and
// context errors untouched.
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

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
