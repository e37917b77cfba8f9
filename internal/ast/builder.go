// Package ast incrementally builds a lightweight syntactic model of C-like
// source. Lines are fed one at a time through a single-pass state machine that
// classifies each line, tracks brace depth, inserts or merges nodes and links
// doc comments to the declarations they precede.
package ast

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Option configures a Builder
type Option func(*Builder)

// WithPatterns replaces the declaration heuristics
func WithPatterns(p *Patterns) Option {
	return func(b *Builder) {
		if p != nil {
			b.classifier.Patterns = p
		}
	}
}

// WithRules replaces the classifier rule list
func WithRules(rules []Rule) Option {
	return func(b *Builder) {
		if rules != nil {
			b.classifier.Rules = rules
		}
	}
}

// WithLogger sets the logger used for run and defect reporting
func WithLogger(l zerolog.Logger) Option {
	return func(b *Builder) {
		b.log = l
	}
}

// Builder drives one parse. It owns its tree and state exclusively and must
// not be shared between parses.
type Builder struct {
	tree       *Tree
	state      *State
	classifier *Classifier
	log        zerolog.Logger

	halted  atomic.Bool
	dropped int
	err     error
}

// NewBuilder creates a builder with an empty tree
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		tree:       NewTree(),
		state:      NewState(),
		classifier: NewClassifier(nil, nil),
		log:        log.Logger.With().Str("component", "ast").Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Tree returns the tree built so far
func (b *Builder) Tree() *Tree {
	return b.tree
}

// Err returns the defect that aborted the run, if any
func (b *Builder) Err() error {
	return b.err
}

// Halt raises the stop flag. Lines fed afterwards are dropped and the tree
// keeps whatever partial state it has. Safe to call from another goroutine.
func (b *Builder) Halt() {
	b.halted.Store(true)
}

// Halted reports whether Halt has been called
func (b *Builder) Halted() bool {
	return b.halted.Load()
}

// Dropped returns how many lines arrived after Halt
func (b *Builder) Dropped() int {
	return b.dropped
}

// Feed processes one raw line
func (b *Builder) Feed(line string) error {
	if b.halted.Load() {
		b.dropped++
		return nil
	}
	if b.err != nil {
		return b.err
	}
	if err := b.step(line); err != nil {
		b.err = err
		b.log.Error().Err(err).Object("state", b.state).Msg("aborting parse")
		return err
	}
	return nil
}

// Run folds a line sequence into the tree. It stops at the end of the
// sequence, on a read error, on a defect, when ctx is done or after Halt.
func (b *Builder) Run(ctx context.Context, lines iter.Seq2[string, error]) (*Tree, error) {
	b.log.Debug().Msg("parse started")

	for line, err := range lines {
		if err != nil {
			return b.tree, fmt.Errorf("failed to read line %d: %w", b.tree.Len(), err)
		}
		if err := ctx.Err(); err != nil {
			return b.tree, err
		}
		if b.halted.Load() {
			b.log.Warn().Int("lines", b.tree.Len()).Msg("parse halted")
			break
		}
		if err := b.Feed(line); err != nil {
			return b.tree, err
		}
	}

	b.log.Debug().
		Int("lines", b.tree.Len()).
		Int("comments", b.tree.Count(Comment)).
		Int("code", b.tree.Count(Code)).
		Int("defs", b.tree.Count(Definition)).
		Int("chars", b.tree.Count(Char)).
		Msg("parse finished")

	return b.tree, nil
}

// step runs the per-line pipeline: classify, track depth, insert, associate, iterate
func (b *Builder) step(raw string) error {
	s, t := b.state, b.tree

	s.begin(raw)
	t.Source = append(t.Source, raw)

	if skippable(s.ln) {
		// a gap breaks adjacency, except inside a block comment
		if !s.inside[Comment] {
			clear(s.previous)
		}
		return t.recordIndex(s, NA, &IndexEntry{NodeID: LineID(s.lno)})
	}

	if err := b.classifier.Classify(t, s); err != nil {
		return err
	}
	trackDepth(s)
	if err := t.insert(s); err != nil {
		return err
	}
	b.associate()
	s.iterate()
	return nil
}

func (b *Builder) associate() {
	s := b.state
	if s.node == nil || !(s.blockStart || s.inside[Definition]) {
		return
	}
	related, err := b.tree.FindPrecedence(s.node)
	if err != nil {
		if errors.Is(err, ErrInvariant) {
			b.log.Error().Err(err).Object("state", s).Msg("skipping association")
		}
		return
	}
	if related != nil {
		Associate(s.node, related)
	}
}

// Parse builds a tree from a line sequence
func Parse(ctx context.Context, lines iter.Seq2[string, error], opts ...Option) (*Tree, error) {
	return NewBuilder(opts...).Run(ctx, lines)
}

// ParseString builds a tree from in-memory text
func ParseString(ctx context.Context, text string, opts ...Option) (*Tree, error) {
	return Parse(ctx, func(yield func(string, error) bool) {
		for line := range strings.Lines(text) {
			if !yield(strings.TrimRight(line, "\r\n"), nil) {
				return
			}
		}
	}, opts...)
}
