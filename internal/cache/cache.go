// Package cache keeps parse results in a local SQLite database so unchanged
// files are not parsed twice.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/QTest-hq/cast/internal/ast"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// Entry is one cached parse result
type Entry struct {
	Digest      string
	Fingerprint string
	Name        string
	Lines       int
	Counts      map[ast.NodeType]int
	Tree        json.RawMessage
	CreatedAt   time.Time
}

// Cache is a SQLite backed result cache
type Cache struct {
	db *sql.DB
}

// Open creates or opens the cache at path. ":memory:" keeps it in memory.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one writer at a time, the batch pool shares this handle
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	c := &Cache{db: db}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	log.Debug().Str("path", path).Msg("opened parse cache")
	return c, nil
}

// Close closes the database
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS trees (
			digest TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			name TEXT,
			lines INTEGER,
			counts JSON,
			tree JSON,
			created_at INTEGER,
			PRIMARY KEY (digest, fingerprint)
		);`,
	}

	for _, q := range queries {
		if _, err := c.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Get looks up a result by content digest and pattern fingerprint
func (c *Cache) Get(ctx context.Context, digest, fingerprint string) (*Entry, bool, error) {
	var (
		e       = Entry{Digest: digest, Fingerprint: fingerprint}
		counts  []byte
		tree    []byte
		created int64
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT name, lines, counts, tree, created_at
		FROM trees WHERE digest = ? AND fingerprint = ?
	`, digest, fingerprint).Scan(&e.Name, &e.Lines, &counts, &tree, &created)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}

	if err := json.Unmarshal(counts, &e.Counts); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %s: %w", digest, err)
	}
	e.Tree = tree
	e.CreatedAt = time.Unix(created, 0)
	return &e, true, nil
}

// Put stores or replaces a result
func (c *Cache) Put(ctx context.Context, e *Entry) error {
	counts, err := json.Marshal(e.Counts)
	if err != nil {
		return fmt.Errorf("failed to encode counts: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trees (digest, fingerprint, name, lines, counts, tree, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.Digest, e.Fingerprint, e.Name, e.Lines, string(counts), string(e.Tree), e.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Len returns the number of cached results
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trees`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
