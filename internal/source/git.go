package source

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog/log"
)

// FromGit reads path as it was at rev in the repository at repoPath. rev is
// anything git rev-parse understands, such as HEAD, a branch or a short hash.
func FromGit(repoPath, rev, path string) (*Source, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repo: %w", err)
	}

	if rev == "" {
		rev = "HEAD"
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", rev, err)
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", hash, err)
	}

	name := filepath.ToSlash(path)
	file, err := commit.File(name)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s at %s", ErrNotFound, name, rev)
		}
		return nil, fmt.Errorf("failed to read %s at %s: %w", name, rev, err)
	}

	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", file.Hash, err)
	}

	log.Debug().
		Str("path", name).
		Str("rev", rev).
		Str("commit", hash.String()[:8]).
		Msg("loaded source from git")

	return New(name+"@"+rev, []byte(contents)), nil
}
