package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/QTest-hq/cast/internal/ast"
	"github.com/QTest-hq/cast/internal/cache"
	"github.com/QTest-hq/cast/internal/source"
)

// Result is the outcome of parsing one file
type Result struct {
	Path     string               `json:"path"`
	Digest   string               `json:"digest,omitempty"`
	Lines    int                  `json:"lines"`
	Counts   map[ast.NodeType]int `json:"counts,omitempty"`
	Tree     json.RawMessage      `json:"tree,omitempty"`
	Cached   bool                 `json:"cached"`
	Duration time.Duration        `json:"duration"`
	Err      error                `json:"-"`
}

// PoolConfig configures the batch pool
type PoolConfig struct {
	// Parallel parses, defaults to the number of CPUs
	Workers int

	// Optional result cache
	Cache *cache.Cache

	// Heuristics and their fingerprint for cache keys
	Patterns    *ast.Patterns
	Fingerprint string

	// Keep the snapshot of every tree in its result
	KeepTree bool
	Snapshot ast.SnapshotOptions
}

// Pool parses many files concurrently. Every file still gets its own builder.
type Pool struct {
	cfg PoolConfig
}

// NewPool creates a new batch pool
func NewPool(cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Pool{cfg: cfg}
}

// Workers returns the parallelism limit
func (p *Pool) Workers() int {
	return p.cfg.Workers
}

// Run parses paths and returns one result per path, in input order. Per file
// failures are reported in Result.Err and do not stop the batch.
func (p *Pool) Run(ctx context.Context, paths []string) []Result {
	results := make([]Result, len(paths))

	g := new(errgroup.Group)
	g.SetLimit(min(p.cfg.Workers, max(len(paths), 1)))
	for i, path := range paths {
		g.Go(func() error {
			results[i] = p.parseFile(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	var failed, cached int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
		if r.Cached {
			cached++
		}
	}
	log.Info().
		Int("files", len(paths)).
		Int("cached", cached).
		Int("failed", failed).
		Int("workers", p.cfg.Workers).
		Msg("batch complete")

	return results
}

func (p *Pool) parseFile(ctx context.Context, path string) (res Result) {
	start := time.Now()
	res.Path = path
	defer func() { res.Duration = time.Since(start) }()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	src, err := source.FromFile(path)
	if err != nil {
		res.Err = err
		return res
	}
	res.Digest = src.Digest

	if p.cfg.Cache != nil {
		entry, ok, err := p.cfg.Cache.Get(ctx, src.Digest, p.cfg.Fingerprint)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("cache lookup failed")
		} else if ok {
			res.Lines = entry.Lines
			res.Counts = entry.Counts
			res.Cached = true
			if p.cfg.KeepTree {
				res.Tree = entry.Tree
			}
			return res
		}
	}

	var opts []ast.Option
	if p.cfg.Patterns != nil {
		opts = append(opts, ast.WithPatterns(p.cfg.Patterns))
	}
	opts = append(opts, ast.WithLogger(log.Logger.With().Str("component", "ast").Str("path", path).Logger()))

	tree, err := ast.Parse(ctx, src.Lines(), opts...)
	if err != nil {
		res.Err = fmt.Errorf("failed to parse %s: %w", path, err)
		return res
	}
	res.Lines = tree.Len()
	res.Counts = tree.Counts()

	if !p.cfg.KeepTree && p.cfg.Cache == nil {
		return res
	}

	data, err := json.Marshal(tree.Snapshot(p.cfg.Snapshot))
	if err != nil {
		res.Err = fmt.Errorf("failed to encode %s: %w", path, err)
		return res
	}
	if p.cfg.KeepTree {
		res.Tree = data
	}

	if p.cfg.Cache != nil {
		err := p.cfg.Cache.Put(ctx, &cache.Entry{
			Digest:      src.Digest,
			Fingerprint: p.cfg.Fingerprint,
			Name:        path,
			Lines:       res.Lines,
			Counts:      res.Counts,
			Tree:        data,
		})
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("cache write failed")
		}
	}

	return res
}
