// Package sqlite provides the embedded file-backed member store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"idcard/internal/infra/persistence/sqlstore"
	"idcard/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.MemberStore = (*Store)(nil)

// DefaultPath is used when no file path is configured.
const DefaultPath = "idcard.db"

// MaxReaders caps the read pool.
const MaxReaders = 4

// Store persists members to a single SQLite file.
type Store struct {
	*sqlstore.Store
	path string
}

// NewStore opens (creating if needed) the database at path and applies the schema.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", dsn(path, false))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer connection avoids SQLITE_BUSY under concurrent updates
	db.SetMaxOpenConns(1)
	// WAL readers are not blocked by the writer, so reads get their own pool
	// instead of queueing behind it.
	reader, err := sql.Open("sqlite", dsn(path, true))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite reader: %w", err)
	}
	reader.SetMaxOpenConns(MaxReaders)
	inner := sqlstore.New(db, sqlstore.SQLite, sqlstore.WithReader(reader))
	if err := inner.Migrate(ctx); err != nil {
		_ = inner.Close()
		return nil, err
	}
	return &Store{Store: inner, path: path}, nil
}

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

func dsn(path string, readOnly bool) string {
	d := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if readOnly {
		d += "&_pragma=query_only(1)"
	}
	return d
}
