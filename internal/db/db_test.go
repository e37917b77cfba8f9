package db

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/QTest-hq/cast/internal/ast"
	"github.com/google/uuid"
)

func TestDB_Pool_Nil(t *testing.T) {
	db := &DB{pool: nil}

	if db.Pool() != nil {
		t.Error("Pool() should return nil when pool is nil")
	}

	// Close on an unopened DB is a no-op
	db.Close()
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(context.Background(), "://not a url")
	if err == nil {
		t.Fatal("New() should fail on an invalid URL")
	}
	if !strings.Contains(err.Error(), "failed to parse database URL") {
		t.Errorf("error = %v, want parse failure", err)
	}
}

func TestSchema(t *testing.T) {
	for _, want := range []string{"CREATE TABLE IF NOT EXISTS trees", "digest", "tree JSONB"} {
		if !strings.Contains(Schema, want) {
			t.Errorf("Schema missing %q", want)
		}
	}
}

func TestNewTreeRecord(t *testing.T) {
	tree, err := ast.ParseString(context.Background(), "// doc\nint foo(void);\n")
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	rec, err := NewTreeRecord("foo.h", "abc123", tree, ast.SnapshotOptions{SkipIndex: true})
	if err != nil {
		t.Fatalf("NewTreeRecord() error = %v", err)
	}

	if rec.ID != uuid.Nil {
		t.Error("NewTreeRecord() should leave the ID for SaveTree")
	}
	if rec.Name != "foo.h" || rec.Digest != "abc123" {
		t.Errorf("Name/Digest = %s/%s, want foo.h/abc123", rec.Name, rec.Digest)
	}
	if rec.Lines != 2 {
		t.Errorf("Lines = %d, want 2", rec.Lines)
	}
	if rec.Counts[ast.Comment] != 1 || rec.Counts[ast.Code] != 1 {
		t.Errorf("Counts = %v, want one comment and one code node", rec.Counts)
	}

	var snap map[string]json.RawMessage
	if err := json.Unmarshal(rec.Tree, &snap); err != nil {
		t.Fatalf("tree is not valid JSON: %v", err)
	}
	if _, ok := snap["index"]; ok {
		t.Error("tree should not carry the index when skipped")
	}
}

func TestTreeRecord_JSON(t *testing.T) {
	rec := TreeRecord{
		ID:     uuid.New(),
		Name:   "a.c",
		Digest: "ff",
		Lines:  3,
		Counts: map[ast.NodeType]int{ast.Definition: 2},
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	out := string(data)
	if !strings.Contains(out, `"counts":{"defs":2}`) {
		t.Errorf("counts should use type names, got %s", out)
	}
	if strings.Contains(out, `"tree"`) {
		t.Errorf("empty tree should be omitted, got %s", out)
	}
}
