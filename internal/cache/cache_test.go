package cache

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/QTest-hq/cast/internal/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_Miss(t *testing.T) {
	c := openTemp(t)

	e, ok, err := c.Get(context.Background(), "nope", "fp")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, e)
}

func TestCache_PutGet(t *testing.T) {
	c := openTemp(t)
	ctx := context.Background()

	in := &Entry{
		Digest:      "abc",
		Fingerprint: "fp1",
		Name:        "a.c",
		Lines:       12,
		Counts:      map[ast.NodeType]int{ast.Code: 2, ast.Comment: 1},
		Tree:        json.RawMessage(`{"nodes":{}}`),
	}
	require.NoError(t, c.Put(ctx, in))

	got, ok, err := c.Get(ctx, "abc", "fp1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a.c", got.Name)
	assert.Equal(t, 12, got.Lines)
	assert.Equal(t, in.Counts, got.Counts)
	assert.JSONEq(t, `{"nodes":{}}`, string(got.Tree))
	assert.False(t, got.CreatedAt.IsZero())

	_, ok, err = c.Get(ctx, "abc", "fp2")
	require.NoError(t, err)
	assert.False(t, ok, "a different pattern set must miss")
}

func TestCache_Replace(t *testing.T) {
	c := openTemp(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, &Entry{Digest: "d", Fingerprint: "f", Name: "old", Counts: map[ast.NodeType]int{}}))
	require.NoError(t, c.Put(ctx, &Entry{Digest: "d", Fingerprint: "f", Name: "new", Counts: map[ast.NodeType]int{}}))

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, ok, err := c.Get(ctx, "d", "f")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", got.Name)
}

func TestCache_Memory(t *testing.T) {
	c, err := Open(":memory:")
	require.NoError(t, err)
	defer c.Close()

	n, err := c.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
