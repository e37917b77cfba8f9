package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/QTest-hq/cast/internal/config"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleC = `// doc
int add(int a) {
  return a;
}
`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func decodeTree(t *testing.T, data string) map[string]json.RawMessage {
	t.Helper()
	var tree map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(data), &tree))
	return tree
}

func TestValidateFilePath_Empty(t *testing.T) {
	_, err := validateFilePath("")
	if err == nil {
		t.Error("validateFilePath('') should return error")
	}
}

func TestValidateFilePath_NonExistent(t *testing.T) {
	_, err := validateFilePath("/nonexistent/path/to/file.c")
	if err == nil {
		t.Error("validateFilePath with non-existent file should return error")
	}
}

func TestValidateFilePath_Directory(t *testing.T) {
	_, err := validateFilePath(t.TempDir())
	if err == nil {
		t.Error("validateFilePath with a directory should return error")
	}
}

func TestValidateDirPath_Empty(t *testing.T) {
	_, err := validateDirPath("")
	if err == nil {
		t.Error("validateDirPath('') should return error")
	}
}

func TestValidateDirPath_NonExistent(t *testing.T) {
	_, err := validateDirPath("/nonexistent/directory/path")
	if err == nil {
		t.Error("validateDirPath with non-existent directory should return error")
	}
}

func TestValidateDirPath_CurrentDir(t *testing.T) {
	// Current directory should be valid
	path, err := validateDirPath(".")
	if err != nil {
		t.Errorf("validateDirPath('.') should not error: %v", err)
	}
	if path == "" {
		t.Error("validateDirPath('.') should return non-empty path")
	}
}

func TestTransform(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.c")
	writeFile(t, path, sampleC)

	out, err := run(t, "", "transform", path)
	require.NoError(t, err)
	tree := decodeTree(t, out)
	assert.Contains(t, tree, "nodes")
	assert.Contains(t, tree, "index")

	out, err = run(t, "", "transform", "--skip-index", path)
	require.NoError(t, err)
	assert.NotContains(t, decodeTree(t, out), "index")
}

func TestTransform_OutputFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.c")
	dest := filepath.Join(dir, "a.json")
	writeFile(t, path, sampleC)

	out, err := run(t, "", "transform", path, "-o", dest)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, decodeTree(t, string(data)), "nodes")
}

func TestTransform_Stdin(t *testing.T) {
	out, err := run(t, sampleC, "transform", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "return a;")
}

func TestTransform_Revision(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "a.c"), sampleC)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("a.c")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "a.c"), "int changed;\n")

	out, err := run(t, "", "transform", "--repo", dir, "--rev", "HEAD", "a.c")
	require.NoError(t, err)
	assert.Contains(t, out, "return a;")
	assert.NotContains(t, out, "changed")
}

func TestTransform_MissingInput(t *testing.T) {
	_, err := run(t, "", "transform", filepath.Join(t.TempDir(), "missing.c"))
	assert.Error(t, err)
}

func TestAnnotate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.c")
	writeFile(t, path, sampleC)

	out, err := run(t, "", "annotate", path, "--range", "1:3")
	require.NoError(t, err)
	assert.Contains(t, out, "return a;")
	assert.NotContains(t, out, "// doc")
	assert.Contains(t, out, "4 lines")

	_, err = run(t, "", "annotate", path, "--range", "3:1")
	assert.Error(t, err)
}

func TestCrosscheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.c")
	writeFile(t, path, sampleC)

	out, err := run(t, "", "crosscheck", path)
	require.NoError(t, err)
	assert.Contains(t, out, "agreement 100.0%")

	out, err = run(t, "", "crosscheck", "--json", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"diffs"`)
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.c"), sampleC)
	writeFile(t, filepath.Join(dir, "inc", "b.h"), "struct b {\n  int x;\n};\n")
	writeFile(t, filepath.Join(dir, "README.md"), "# readme\n")
	t.Setenv("CACHE_PATH", filepath.Join(t.TempDir(), "cache.db"))

	out, err := run(t, "", "batch", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "a.c")
	assert.Contains(t, out, "b.h")
	assert.NotContains(t, out, "README")
	assert.NotContains(t, out, "(cached)")

	out, err = run(t, "", "batch", "--workers", "1", dir)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "(cached)"))

	out, err = run(t, "", "batch", "--no-cache", dir)
	require.NoError(t, err)
	assert.NotContains(t, out, "(cached)")
}

func TestBatch_Errors(t *testing.T) {
	_, err := run(t, "", "batch", "--no-cache", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	_, err = run(t, "", "batch", "--no-cache", t.TempDir())
	assert.Error(t, err)
}

func TestResolvePaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.c"), "int a;\n")
	writeFile(t, filepath.Join(dir, "vendor", "v.c"), "int v;\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "x\n")
	single := filepath.Join(dir, "notes.txt")

	paths, err := resolvePaths([]string{dir, single}, config.DefaultProjectConfig())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.c"), single}, paths)
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "", "init", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, ".cast.yaml")

	cfg, err := config.LoadProjectConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultProjectConfig().Patterns, cfg.Patterns)

	_, err = run(t, "", "init", "--dir", dir)
	assert.Error(t, err)

	_, err = run(t, "", "init", "--dir", dir, "--force")
	assert.NoError(t, err)
}

func TestPatternOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.c")
	writeFile(t, path, "union value {\n  int i;\n};\n")

	out, err := run(t, "", "crosscheck", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "agreement 100.0%")

	out, err = run(t, "", "crosscheck", path,
		"--definition-pattern", `\bstruct\s+`,
		"--definition-pattern", `\benum\s+`,
		"--definition-pattern", `\bunion\s+`)
	require.NoError(t, err)
	assert.Contains(t, out, "agreement 100.0%")

	_, err = run(t, "", "transform", path, "--function-pattern", "(")
	assert.Error(t, err)
}
