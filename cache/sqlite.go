package cache

import (
	"context"
	"database/sql"

	_ "github.com/glebarez/go-sqlite"
)

type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens (and if needed creates) an SQLite-backed cache in the
// given file. Use "file::memory:?cache=shared" for an in-memory database.
func NewSQLiteCache(filename string) SQLiteCache {
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		panic(err)
	}
	_, err = db.Exec("CREATE TABLE IF NOT EXISTS cache (key TEXT PRIMARY KEY, value BLOB)")
	if err != nil {
		panic(err)
	}
	return SQLiteCache{
		db: db,
	}
}

func (s SQLiteCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM cache WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s SQLiteCache) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, "INSERT OR REPLACE INTO cache (key, value) VALUES (?, ?)", key, value)
	return err
}

func (s SQLiteCache) Purge(ctx context.Context, key string) {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cache WHERE key = ?", key)
	if err != nil {
		panic(err)
	}
}
