package ast

import (
	"encoding/json"
	"sort"
)

// Tree is the root aggregate of one parse: the source log, one container per
// category and the global per-line index.
type Tree struct {
	Source []string

	containers map[NodeType]map[NodeID]*Node
	index      map[NodeID]*IndexEntry
}

// NewTree returns an empty tree
func NewTree() *Tree {
	t := &Tree{
		Source:     make([]string, 0),
		containers: make(map[NodeType]map[NodeID]*Node, len(Containers)),
		index:      make(map[NodeID]*IndexEntry),
	}
	for _, c := range Containers {
		t.containers[c] = make(map[NodeID]*Node)
	}
	return t
}

// Len returns the number of consumed lines
func (t *Tree) Len() int {
	return len(t.Source)
}

// Keys lists the node ids in a container, ordered by line
func (t *Tree) Keys(container NodeType) []NodeID {
	c := t.containers[container]
	keys := make([]NodeID, 0, len(c))
	for id := range c {
		keys = append(keys, id)
	}
	sortIDs(keys)
	return keys
}

// Nodes returns the nodes of a container, ordered by line
func (t *Tree) Nodes(container NodeType) []*Node {
	keys := t.Keys(container)
	nodes := make([]*Node, len(keys))
	for i, k := range keys {
		nodes[i] = t.containers[container][k]
	}
	return nodes
}

// Count returns how many nodes a container holds
func (t *Tree) Count(container NodeType) int {
	return len(t.containers[container])
}

// Counts returns the node count of every container
func (t *Tree) Counts() map[NodeType]int {
	counts := make(map[NodeType]int, len(Containers))
	for _, c := range Containers {
		counts[c] = len(t.containers[c])
	}
	return counts
}

// Entry returns the index record of a line or sub-line id
func (t *Tree) Entry(id NodeID) (IndexEntry, bool) {
	e, ok := t.index[id]
	if !ok {
		return IndexEntry{}, false
	}
	return *e, true
}

// Node resolves an id to the node owning it. Lines absorbed into a larger node
// resolve to that node; member and extracted comment ids resolve through their parents.
func (t *Tree) Node(id NodeID) (*Node, bool) {
	e, ok := t.index[id]
	if !ok {
		return nil, false
	}
	if e.Parent != nil {
		p, ok := t.Node(*e.Parent)
		if !ok || e.Ord < 0 || e.Ord >= len(p.Inner) {
			return nil, false
		}
		return p.Inner[e.Ord], true
	}
	c, ok := t.containers[e.Type]
	if !ok {
		return nil, false
	}
	n, ok := c[e.NodeID]
	return n, ok
}

// Inner returns the children of a node, optionally filtered by type
func (t *Tree) Inner(pid NodeID, types ...NodeType) []*Node {
	n, ok := t.Node(pid)
	if !ok {
		return nil
	}
	results := make([]*Node, 0, len(n.Inner))
	for _, child := range n.Inner {
		if child == nil {
			continue
		}
		if len(types) == 0 || hasType(types, child.Type) {
			results = append(results, child)
		}
	}
	return results
}

// SnapshotOptions controls what a snapshot carries
type SnapshotOptions struct {
	SkipIndex bool
}

// Snapshot is the plain nested form of a tree used for export
type Snapshot struct {
	Nodes map[NodeType]map[NodeID]*Node `json:"nodes"`
	Index map[NodeID]IndexEntry         `json:"index,omitempty"`
}

// Snapshot copies the container maps and, unless skipped, the index
func (t *Tree) Snapshot(opts SnapshotOptions) Snapshot {
	s := Snapshot{Nodes: make(map[NodeType]map[NodeID]*Node, len(Containers))}
	for _, c := range Containers {
		m := make(map[NodeID]*Node, len(t.containers[c]))
		for id, n := range t.containers[c] {
			m[id] = n
		}
		s.Nodes[c] = m
	}
	if !opts.SkipIndex {
		s.Index = make(map[NodeID]IndexEntry, len(t.index))
		for id, e := range t.index {
			s.Index[id] = *e
		}
	}
	return s
}

// MarshalJSON exports the full snapshot including the index
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Snapshot(SnapshotOptions{}))
}

// JSON renders an indented snapshot
func (t *Tree) JSON(opts SnapshotOptions) ([]byte, error) {
	return json.MarshalIndent(t.Snapshot(opts), "", "    ")
}

// cached returns the node at key in container, creating and registering it if absent
func (t *Tree) cached(container NodeType, key NodeID, typ NodeType) (*Node, bool) {
	if n, ok := t.containers[container][key]; ok {
		return n, false
	}
	n := newNode(key, typ)
	t.containers[container][key] = n
	return n, true
}

// recordIndex overwrites the index entry of the current line. The owner is the
// node just processed, else the explicit id in extra.
func (t *Tree) recordIndex(s *State, typ NodeType, extra *IndexEntry) error {
	var e IndexEntry
	if extra != nil {
		e = *extra
	}
	switch {
	case s.node != nil:
		e.NodeID = s.node.ID
	case extra == nil:
		return invariant("index", s.lno, "no current node and no explicit id for %s", typ)
	}
	e.Type = typ
	t.index[LineID(s.lno)] = &e
	return nil
}

func hasType(types []NodeType, t NodeType) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

func sortIDs(ids []NodeID) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Line != ids[j].Line {
			return ids[i].Line < ids[j].Line
		}
		return ids[i].Sub < ids[j].Sub
	})
}
