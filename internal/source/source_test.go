package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, s *Source) []string {
	t.Helper()
	var lines []string
	for line, err := range s.Lines() {
		require.NoError(t, err)
		lines = append(lines, line)
	}
	return lines
}

func TestLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"trailing newline", "a\nb\n", []string{"a", "b"}},
		{"no trailing newline", "a\nb", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"blank lines kept", "a\n\n\nb\n", []string{"a", "", "", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("test.c", []byte(tt.in))
			assert.Equal(t, tt.want, collect(t, s))
			assert.Equal(t, len(tt.want), s.LineCount())
		})
	}
}

func TestLines_TooLong(t *testing.T) {
	long := strings.Repeat("x", MaxLineBytes+1)

	var got error
	for _, err := range Lines(strings.NewReader(long)) {
		if err != nil {
			got = err
		}
	}
	assert.Error(t, got)
}

func TestLines_StopEarly(t *testing.T) {
	n := 0
	for range Lines(strings.NewReader("a\nb\nc\n")) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestDigest(t *testing.T) {
	a := Digest([]byte("int x;\n"))
	b := Digest([]byte("int x;\n"))
	c := Digest([]byte("int y;\n"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.c")
	require.NoError(t, os.WriteFile(path, []byte("// doc\nint x;\n"), 0644))

	s, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Name)
	assert.Equal(t, Digest([]byte("// doc\nint x;\n")), s.Digest)
	assert.Equal(t, []string{"// doc", "int x;"}, collect(t, s))

	_, err = FromFile(filepath.Join(dir, "missing.c"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFromReader(t *testing.T) {
	s, err := FromReader("stdin", strings.NewReader("struct a;\n"))
	require.NoError(t, err)
	assert.Equal(t, "stdin", s.Name)
	assert.Equal(t, []string{"struct a;"}, collect(t, s))
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"a.c", "inc/b.h", "README.md", ".git/config.c"} {
		full := filepath.Join(dir, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte("x\n"), 0644))
	}

	files, err := Files(dir, func(rel string) bool {
		return strings.HasSuffix(rel, ".c") || strings.HasSuffix(rel, ".h")
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.c", filepath.Join("inc", "b.h")}, files)
}

func TestFromGit(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	path := filepath.Join(dir, "src", "a.c")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("int first;\n"), 0644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("src/a.c")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	// working tree changes are not visible at HEAD
	require.NoError(t, os.WriteFile(path, []byte("int second;\n"), 0644))

	s, err := FromGit(dir, "HEAD", "src/a.c")
	require.NoError(t, err)
	assert.Equal(t, "src/a.c@HEAD", s.Name)
	assert.Equal(t, []string{"int first;"}, collect(t, s))

	_, err = FromGit(dir, "", "src/missing.c")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = FromGit(dir, "no-such-branch", "src/a.c")
	assert.Error(t, err)
}
