package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/milodocs/pagekit/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS preferences (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);`

// SQLite is a Store persisted in a single SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) the preference database at path.
// ":memory:" opens a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "SQLite", "Open", "open database")
	}
	// SQLite tolerates one writer; serialize through a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "SQLite", "Open", "apply schema")
	}
	return &SQLite{db: db}, nil
}

// Get returns the value for a key, or errors.ErrKeyNotFound.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrKeyNotFound
	}
	if err != nil {
		return nil, errors.WrapTransient(err, "SQLite", "Get", "query "+key)
	}
	return value, nil
}

// Put creates or replaces a key.
func (s *SQLite) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return errors.WrapTransient(err, "SQLite", "Put", "upsert "+key)
	}
	return nil
}

// Delete removes a key.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM preferences WHERE key = ?`, key); err != nil {
		return errors.WrapTransient(err, "SQLite", "Delete", "delete "+key)
	}
	return nil
}

// Keys returns all keys with the given prefix.
func (s *SQLite) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM preferences WHERE key LIKE ? ORDER BY key`, prefix+"%")
	if err != nil {
		return nil, errors.WrapTransient(err, "SQLite", "Keys", "query prefix")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.WrapTransient(err, "SQLite", "Keys", "scan row")
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapTransient(err, "SQLite", "Keys", "iterate rows")
	}
	return out, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
