// Package source loads the text fed to the tree builder and turns it into line
// sequences.
package source

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/zeebo/xxh3"
)

// MaxLineBytes is the longest line the scanner accepts
const MaxLineBytes = 1 << 20

// ErrNotFound is returned when an input file does not exist
var ErrNotFound = errors.New("source not found")

// Source is one named input with its content and digest
type Source struct {
	Name    string
	Content []byte
	Digest  string
}

// New wraps in-memory content
func New(name string, content []byte) *Source {
	return &Source{
		Name:    name,
		Content: content,
		Digest:  Digest(content),
	}
}

// FromFile reads a source from disk
func FromFile(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return New(path, data), nil
}

// FromReader drains r into a source
func FromReader(name string, r io.Reader) (*Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return New(name, data), nil
}

// Lines returns the content as a line sequence
func (s *Source) Lines() iter.Seq2[string, error] {
	return Lines(bytes.NewReader(s.Content))
}

// LineCount returns the number of lines the builder will consume
func (s *Source) LineCount() int {
	if len(s.Content) == 0 {
		return 0
	}
	n := bytes.Count(s.Content, []byte("\n"))
	if s.Content[len(s.Content)-1] != '\n' {
		n++
	}
	return n
}

// Lines yields each line of r without its terminator. A scan error is yielded
// once as the final element.
func Lines(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
		for scanner.Scan() {
			if !yield(strings.TrimSuffix(scanner.Text(), "\r"), nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", err)
		}
	}
}

// Digest returns the hex xxh3 hash of content
func Digest(content []byte) string {
	h := xxh3.New()
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// Files walks root and returns the relative paths accepted by match, skipping
// hidden directories
func Files(root string, match func(rel string) bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if match == nil || match(filepath.ToSlash(rel)) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	log.Debug().Str("root", root).Int("files", len(files)).Msg("collected source files")
	return files, nil
}
