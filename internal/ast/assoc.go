package ast

// FindPrecedence returns the comment that ends on the line directly above n.
// Only code, plain, definition and member nodes look backwards; comments are
// the source side of a link and never a target. A missing index entry for the
// previous line is reported as an invariant error for the caller to log.
func (t *Tree) FindPrecedence(n *Node) (*Node, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Type {
	case Code, Char, Definition, Member:
	default:
		return nil, nil
	}
	if n.ID.Line == 0 {
		return nil, nil
	}

	e, ok := t.index[LineID(n.ID.Line-1)]
	if !ok {
		return nil, invariant("precedence", n.ID.Line, "no index entry for line %d", n.ID.Line-1)
	}
	if e.Type != Comment || e.Parent != nil {
		return nil, nil
	}
	match, ok := t.containers[Comment][e.NodeID]
	if !ok {
		return nil, invariant("precedence", n.ID.Line, "comment %s is missing", e.NodeID)
	}
	return match, nil
}

// Associate links two nodes in both directions. Repeated calls are no-ops.
func Associate(n, related *Node) {
	if n == nil || related == nil || n == related {
		return
	}
	if !containsID(n.Assocs[related.Type], related.ID) {
		n.Assocs[related.Type] = append(n.Assocs[related.Type], related.ID)
	}
	if !containsID(related.Assocs[n.Type], n.ID) {
		related.Assocs[n.Type] = append(related.Assocs[n.Type], n.ID)
	}
}
