package ast

import (
	"strings"

	"github.com/rs/zerolog"
)

// State is the transient parser state of one run
type State struct {
	inside   map[NodeType]bool
	current  map[NodeType]int
	previous map[NodeType]int

	depth int
	lno   int

	// per-line scratch
	raw        string
	ln         string
	closing    map[NodeType]bool
	blockStart bool
	node       *Node
}

// NewState returns a state positioned before the first line
func NewState() *State {
	return &State{
		inside:   make(map[NodeType]bool),
		current:  make(map[NodeType]int),
		previous: make(map[NodeType]int),
		closing:  make(map[NodeType]bool),
		lno:      -1,
	}
}

// Line returns the number of the line being processed
func (s *State) Line() int { return s.lno }

// Depth returns the current brace depth of the open block
func (s *State) Depth() int { return s.depth }

// Inside reports whether a block of the given type is open
func (s *State) Inside(t NodeType) bool { return s.inside[t] }

// Closing reports whether a block of the given type closes on this line
func (s *State) Closing(t NodeType) bool { return s.closing[t] }

// BlockStart reports whether the current line started a new block
func (s *State) BlockStart() bool { return s.blockStart }

// Trimmed returns the current line without surrounding whitespace
func (s *State) Trimmed() string { return s.ln }

// Current returns the id of the in-progress node of the given type
func (s *State) Current(t NodeType) (int, bool) {
	v, ok := s.current[t]
	return v, ok
}

// Previous returns the id of the node of the given type closed on the line before
func (s *State) Previous(t NodeType) (int, bool) {
	v, ok := s.previous[t]
	return v, ok
}

// begin resets per-line scratch and records the new line
func (s *State) begin(raw string) {
	s.lno++
	s.raw = raw
	s.ln = strings.TrimSpace(raw)
	s.node = nil
	s.blockStart = false
	clear(s.closing)
}

func (s *State) open(t NodeType) {
	s.current[t] = s.lno
	s.inside[t] = true
	s.blockStart = true
}

func (s *State) closeNow(t NodeType) {
	s.current[t] = s.lno
	s.closing[t] = true
}

// iterate rolls closed nodes into previous for the next line. Anything not
// closed on this line is too far away to be referenced by the next one.
func (s *State) iterate() {
	next := make(map[NodeType]int, len(s.closing))
	for t, closed := range s.closing {
		if !closed {
			continue
		}
		if id, ok := s.current[t]; ok {
			next[t] = id
		}
		delete(s.current, t)
	}
	s.previous = next
}

// MarshalZerologObject dumps the state into log events
func (s *State) MarshalZerologObject(e *zerolog.Event) {
	e.Int("lno", s.lno).
		Str("ln", s.ln).
		Int("depth", s.depth).
		Bool("block_start", s.blockStart)

	inside := zerolog.Dict()
	for t, v := range s.inside {
		inside.Bool(t.String(), v)
	}
	e.Dict("inside", inside)

	current := zerolog.Dict()
	for t, v := range s.current {
		current.Int(t.String(), v)
	}
	e.Dict("current", current)

	previous := zerolog.Dict()
	for t, v := range s.previous {
		previous.Int(t.String(), v)
	}
	e.Dict("previous", previous)
}
