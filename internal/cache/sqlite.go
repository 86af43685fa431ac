package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	fingerprint  TEXT PRIMARY KEY,
	category     TEXT NOT NULL,
	provider     TEXT NOT NULL,
	operation    TEXT NOT NULL,
	locale       TEXT NOT NULL,
	resource     TEXT NOT NULL,
	content_type TEXT NOT NULL,
	url          TEXT NOT NULL,
	data         BLOB NOT NULL,
	checksum     BLOB NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_entries_category ON cache_entries(category);
`

// SQLiteStore keeps entries in a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite cache schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, fingerprint string) (*Entry, error) {
	var (
		e        Entry
		checksum []byte
		created  int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT category, provider, operation, locale, resource, content_type, url, data, checksum, created_at
		FROM cache_entries WHERE fingerprint = ?`, fingerprint).Scan(
		&e.Key.Category, &e.Key.Provider, &e.Key.Operation, &e.Key.Locale, &e.Key.Resource,
		&e.ContentType, &e.URL, &e.Data, &checksum, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite cache get: %w", err)
	}
	copy(e.Checksum[:], checksum)
	e.Created = time.Unix(0, created)
	if len(checksum) != len(e.Checksum) || !e.Valid(fingerprint) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE fingerprint = ?`, fingerprint)
		return nil, ErrMiss
	}
	return &e, nil
}

func (s *SQLiteStore) Put(ctx context.Context, fingerprint string, e *Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO cache_entries
			(fingerprint, category, provider, operation, locale, resource, content_type, url, data, checksum, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fingerprint, string(e.Key.Category), e.Key.Provider, e.Key.Operation, string(e.Key.Locale), e.Key.Resource,
		e.ContentType, e.URL, e.Data, e.Checksum[:], e.Created.UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite cache put: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, scope Scope) (int, error) {
	var (
		res sql.Result
		err error
	)
	if scope == ScopeAll {
		res, err = s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE category = ?`, string(scope))
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite cache clear: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
