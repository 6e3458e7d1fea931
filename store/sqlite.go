package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// SQLite is a Store persisted in an SQLite database.
type SQLite struct {
	db    *sql.DB
	mutex sync.RWMutex
	subs  []Subscriber
}

// NewSQLite opens (and if needed creates) a store in the given file.
// Use "file::memory:?cache=shared" for an in-memory database.
func NewSQLite(filename string) (*SQLite, error) {
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	schema := []string{
		"CREATE TABLE IF NOT EXISTS containers (name TEXT PRIMARY KEY)",
		"CREATE TABLE IF NOT EXISTS composites (name TEXT PRIMARY KEY, refs TEXT)",
		"CREATE TABLE IF NOT EXISTS items (container TEXT, name TEXT, text TEXT, revision INTEGER, modified INTEGER, PRIMARY KEY (container, name))",
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("create store schema: %w", err)
		}
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Subscribe(fn Subscriber) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *SQLite) notify(mut Mutation) {
	s.mutex.RLock()
	subs := s.subs
	s.mutex.RUnlock()
	for _, fn := range subs {
		fn(mut)
	}
}

func (s *SQLite) Containers(ctx context.Context) ([]string, error) {
	return s.names(ctx, "SELECT name FROM containers ORDER BY name")
}

func (s *SQLite) PutContainer(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO containers (name) VALUES (?)", name)
	if err != nil {
		return err
	}
	s.notify(Mutation{Kind: KindContainer, Op: OpPut, Name: name})
	return nil
}

func (s *SQLite) DeleteContainer(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM containers WHERE name = ?", name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, err = s.db.ExecContext(ctx, "DELETE FROM items WHERE container = ?", name)
	if err != nil {
		return err
	}
	s.notify(Mutation{Kind: KindContainer, Op: OpDelete, Name: name})
	return nil
}

func (s *SQLite) Composites(ctx context.Context) ([]string, error) {
	return s.names(ctx, "SELECT name FROM composites ORDER BY name")
}

func (s *SQLite) Composite(ctx context.Context, name string) (Composite, error) {
	var refs string
	err := s.db.QueryRowContext(ctx, "SELECT refs FROM composites WHERE name = ?", name).Scan(&refs)
	if err == sql.ErrNoRows {
		return Composite{}, ErrNotFound
	}
	if err != nil {
		return Composite{}, err
	}
	c := Composite{Name: name}
	if err := json.Unmarshal([]byte(refs), &c.Refs); err != nil {
		return Composite{}, fmt.Errorf("decode composite refs: %w", err)
	}
	return c, nil
}

func (s *SQLite) PutComposite(ctx context.Context, c Composite) error {
	refs, err := json.Marshal(c.Refs)
	if err != nil {
		return fmt.Errorf("encode composite refs: %w", err)
	}
	_, err = s.db.ExecContext(ctx, "INSERT OR REPLACE INTO composites (name, refs) VALUES (?, ?)", c.Name, string(refs))
	if err != nil {
		return err
	}
	s.notify(Mutation{Kind: KindComposite, Op: OpPut, Name: c.Name})
	return nil
}

func (s *SQLite) DeleteComposite(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM composites WHERE name = ?", name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.notify(Mutation{Kind: KindComposite, Op: OpDelete, Name: name})
	return nil
}

func (s *SQLite) Items(ctx context.Context, container string) ([]Item, error) {
	if exists, err := s.containerExists(ctx, container); err != nil {
		return nil, err
	} else if !exists {
		return nil, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT container, name, text, revision, modified FROM items WHERE container = ? ORDER BY name", container)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func (s *SQLite) Item(ctx context.Context, container, name string) (Item, error) {
	var it Item
	var modified int64
	err := s.db.QueryRowContext(ctx,
		"SELECT container, name, text, revision, modified FROM items WHERE container = ? AND name = ?",
		container, name).Scan(&it.Container, &it.Name, &it.Text, &it.Revision, &modified)
	if err == sql.ErrNoRows {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, err
	}
	it.Modified = time.Unix(modified, 0).UTC()
	return it, nil
}

func (s *SQLite) PutItem(ctx context.Context, it Item) (Item, error) {
	if exists, err := s.containerExists(ctx, it.Container); err != nil {
		return Item{}, err
	} else if !exists {
		return Item{}, ErrNotFound
	}
	var revision int64
	err := s.db.QueryRowContext(ctx, "SELECT revision FROM items WHERE container = ? AND name = ?",
		it.Container, it.Name).Scan(&revision)
	if err != nil && err != sql.ErrNoRows {
		return Item{}, err
	}
	it.Revision = revision + 1
	it.Modified = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO items (container, name, text, revision, modified) VALUES (?, ?, ?, ?, ?)",
		it.Container, it.Name, it.Text, it.Revision, it.Modified.Unix())
	if err != nil {
		return Item{}, err
	}
	s.notify(Mutation{Kind: KindItem, Op: OpPut, Container: it.Container, Name: it.Name})
	return it, nil
}

func (s *SQLite) DeleteItem(ctx context.Context, container, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE container = ? AND name = ?", container, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.notify(Mutation{Kind: KindItem, Op: OpDelete, Container: container, Name: name})
	return nil
}

func (s *SQLite) Search(ctx context.Context, query string) ([]Item, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		"SELECT container, name, text, revision, modified FROM items WHERE name LIKE ? OR text LIKE ? ORDER BY container, name",
		pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func (s *SQLite) containerExists(ctx context.Context, name string) (bool, error) {
	var found string
	err := s.db.QueryRowContext(ctx, "SELECT name FROM containers WHERE name = ?", name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLite) names(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		var it Item
		var modified int64
		if err := rows.Scan(&it.Container, &it.Name, &it.Text, &it.Revision, &modified); err != nil {
			return nil, err
		}
		it.Modified = time.Unix(modified, 0).UTC()
		items = append(items, it)
	}
	return items, rows.Err()
}
