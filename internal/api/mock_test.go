package api

import (
	"context"
	"sort"
	"time"

	"github.com/QTest-hq/cast/internal/db"
	"github.com/google/uuid"
)

// MockTreeStore is an in-memory TreeStore for handler tests
type MockTreeStore struct {
	trees   map[uuid.UUID]*db.TreeRecord
	pingErr error
	saveErr error
	getErr  error
	listErr error
}

// Compile-time check that MockTreeStore implements TreeStore
var _ TreeStore = (*MockTreeStore)(nil)

func NewMockTreeStore() *MockTreeStore {
	return &MockTreeStore{
		trees: make(map[uuid.UUID]*db.TreeRecord),
	}
}

func (m *MockTreeStore) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *MockTreeStore) SaveTree(ctx context.Context, rec *db.TreeRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now()
	m.trees[rec.ID] = rec
	return nil
}

func (m *MockTreeStore) GetTree(ctx context.Context, id uuid.UUID) (*db.TreeRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.trees[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return rec, nil
}

func (m *MockTreeStore) ListTrees(ctx context.Context, limit int) ([]db.TreeRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := make([]db.TreeRecord, 0, len(m.trees))
	for _, rec := range m.trees {
		r := *rec
		r.Tree = nil
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
