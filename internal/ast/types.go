package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeType is the category tag of a node
type NodeType uint8

const (
	NA NodeType = iota
	Comment
	Code
	Definition
	Member
	Char
)

var nodeTypeNames = [...]string{
	NA:         "na",
	Comment:    "comments",
	Code:       "code",
	Definition: "defs",
	Member:     "members",
	Char:       "chars",
}

// Containers lists the node types that own a top-level container
var Containers = []NodeType{Comment, Code, Definition, Char}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return fmt.Sprintf("nodetype(%d)", uint8(t))
}

// MarshalText implements encoding.TextMarshaler
func (t NodeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *NodeType) UnmarshalText(b []byte) error {
	v, err := ParseNodeType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseNodeType resolves a type name such as "code" or "defs"
func ParseNodeType(s string) (NodeType, error) {
	for i, name := range nodeTypeNames {
		if strings.EqualFold(s, name) {
			return NodeType(i), nil
		}
	}
	return NA, fmt.Errorf("unknown node type: %q", s)
}

// NodeID identifies a node by the line it started on. Sub is zero for nodes
// started by a line and the ordinal for comments extracted from inside a line.
type NodeID struct {
	Line int
	Sub  int
}

// LineID returns the id of a line-started node
func LineID(line int) NodeID {
	return NodeID{Line: line}
}

func (id NodeID) String() string {
	if id.Sub == 0 {
		return strconv.Itoa(id.Line)
	}
	return strconv.Itoa(id.Line) + "." + strconv.Itoa(id.Sub)
}

// MarshalText implements encoding.TextMarshaler
func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *NodeID) UnmarshalText(b []byte) error {
	v, err := ParseNodeID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// ParseNodeID parses "14" or "14.1"
func ParseNodeID(s string) (NodeID, error) {
	line, sub, found := strings.Cut(s, ".")
	l, err := strconv.Atoi(line)
	if err != nil || l < 0 {
		return NodeID{}, fmt.Errorf("invalid node id: %q", s)
	}
	if !found {
		return NodeID{Line: l}, nil
	}
	n, err := strconv.Atoi(sub)
	if err != nil || n < 1 {
		return NodeID{}, fmt.Errorf("invalid node id: %q", s)
	}
	return NodeID{Line: l, Sub: n}, nil
}

// Fragment is one absorbed line, or part of a line, of a node
type Fragment struct {
	Line int    `json:"no"`
	Text string `json:"ln"`
}

// ChildRef locates a child inside its parent's Inner slice
type ChildRef struct {
	Ord  int      `json:"ind"`
	Type NodeType `json:"type"`
}

// Node is a classified, possibly multi-line unit of source
type Node struct {
	ID     NodeID                `json:"id"`
	Type   NodeType              `json:"type"`
	Data   []Fragment            `json:"data"`
	Assocs map[NodeType][]NodeID `json:"assocs"`
	Inner  []*Node               `json:"inner"`
	Index  map[NodeID]ChildRef   `json:"index"`
	Parent *NodeID               `json:"parent,omitempty"`
}

func newNode(id NodeID, typ NodeType) *Node {
	return &Node{
		ID:     id,
		Type:   typ,
		Data:   make([]Fragment, 0, 1),
		Assocs: make(map[NodeType][]NodeID),
		Inner:  make([]*Node, 0),
		Index:  make(map[NodeID]ChildRef),
	}
}

// Text joins the node's data fragments with newlines
func (n *Node) Text() string {
	lines := make([]string, len(n.Data))
	for i, f := range n.Data {
		lines[i] = f.Text
	}
	return strings.Join(lines, "\n")
}

// HasAssoc reports whether n links to a node of the given type, optionally a specific one
func (n *Node) HasAssoc(typ NodeType, ids ...NodeID) bool {
	linked, ok := n.Assocs[typ]
	if !ok || len(linked) == 0 {
		return false
	}
	for _, want := range ids {
		if !containsID(linked, want) {
			return false
		}
	}
	return true
}

// lastLine is the highest physical line absorbed by n or its children
func (n *Node) lastLine() int {
	last := n.ID.Line
	for _, f := range n.Data {
		if f.Line > last {
			last = f.Line
		}
	}
	for _, c := range n.Inner {
		if l := c.lastLine(); l > last {
			last = l
		}
	}
	return last
}

// IndexEntry records which node owns a consumed line (or sub-line id)
type IndexEntry struct {
	NodeID NodeID   `json:"node_id"`
	Type   NodeType `json:"type"`
	Parent *NodeID  `json:"parent,omitempty"`
	Ord    int      `json:"ind,omitempty"`
}

func containsID(ids []NodeID, id NodeID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []NodeID, id NodeID) []NodeID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
