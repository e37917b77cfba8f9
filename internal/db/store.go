package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/QTest-hq/cast/internal/ast"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// Store provides database operations
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new store
func NewStore(db *DB) *Store {
	return &Store{pool: db.Pool()}
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// TreeRecord is a stored parse result
type TreeRecord struct {
	ID        uuid.UUID            `json:"id"`
	Name      string               `json:"name"`
	Digest    string               `json:"digest"`
	Lines     int                  `json:"lines"`
	Counts    map[ast.NodeType]int `json:"counts"`
	Tree      json.RawMessage      `json:"tree,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// NewTreeRecord snapshots a tree into an unsaved record
func NewTreeRecord(name, digest string, tree *ast.Tree, opts ast.SnapshotOptions) (*TreeRecord, error) {
	data, err := json.Marshal(tree.Snapshot(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to encode tree: %w", err)
	}
	return &TreeRecord{
		Name:   name,
		Digest: digest,
		Lines:  tree.Len(),
		Counts: tree.Counts(),
		Tree:   data,
	}, nil
}

// SaveTree inserts a tree record, assigning its id and creation time
func (s *Store) SaveTree(ctx context.Context, rec *TreeRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO trees (id, name, digest, lines, counts, tree, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.Name, rec.Digest, rec.Lines, rec.Counts, rec.Tree, rec.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save tree: %w", err)
	}

	return nil
}

// GetTree gets a tree record by ID
func (s *Store) GetTree(ctx context.Context, id uuid.UUID) (*TreeRecord, error) {
	rec := &TreeRecord{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, digest, lines, counts, tree, created_at
		FROM trees WHERE id = $1
	`, id).Scan(&rec.ID, &rec.Name, &rec.Digest, &rec.Lines, &rec.Counts, &rec.Tree, &rec.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	return rec, nil
}

// ListTrees lists the most recent tree records without their snapshots
func (s *Store) ListTrees(ctx context.Context, limit int) ([]TreeRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, digest, lines, counts, created_at
		FROM trees
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list trees: %w", err)
	}
	defer rows.Close()

	recs := make([]TreeRecord, 0)
	for rows.Next() {
		var rec TreeRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Digest, &rec.Lines, &rec.Counts, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tree: %w", err)
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}
