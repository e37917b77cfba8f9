package ast

// Transform moves the node id from the from container into the to container.
// The node keeps its id, data and links; related nodes re-key their links to
// the new type so lookups by type stay consistent with container membership.
func (t *Tree) Transform(id NodeID, from, to NodeType) error {
	n, ok := t.containers[from][id]
	if !ok {
		return invariant("transform", id.Line, "no %s node %s", from, id)
	}
	if from == to {
		return nil
	}
	dst, ok := t.containers[to]
	if !ok {
		return invariant("transform", id.Line, "%s has no container", to)
	}

	delete(t.containers[from], id)
	dst[id] = n
	n.Type = to

	for _, f := range n.Data {
		if e, ok := t.index[LineID(f.Line)]; ok && e.NodeID == id && e.Parent == nil {
			e.Type = to
		}
	}

	for _, ids := range n.Assocs {
		for _, rid := range ids {
			rel, ok := t.Node(rid)
			if !ok || !containsID(rel.Assocs[from], id) {
				continue
			}
			rel.Assocs[from] = removeID(rel.Assocs[from], id)
			if len(rel.Assocs[from]) == 0 {
				delete(rel.Assocs, from)
			}
			if !containsID(rel.Assocs[to], id) {
				rel.Assocs[to] = append(rel.Assocs[to], id)
			}
		}
	}

	if got, ok := t.containers[to][id]; !ok || got != n {
		return invariant("transform", id.Line, "node %s lost while moving to %s", id, to)
	}
	return nil
}

// Combine merges two adjacent nodes of the same type. The node starting
// earlier survives and absorbs the data, children and links of the other.
// The absorbed node must begin on the line right after the survivor ends.
func (t *Tree) Combine(a, b *Node) error {
	if a == nil || b == nil {
		return invariant("combine", -1, "missing node")
	}
	if a.ID == b.ID {
		return nil
	}

	n1, n2 := a, b
	if less(n2.ID, n1.ID) {
		n1, n2 = n2, n1
	}
	if n1.Type != n2.Type {
		return invariant("combine", n2.ID.Line, "cannot combine %s %s with %s %s", n1.Type, n1.ID, n2.Type, n2.ID)
	}
	if n2.ID.Line != n1.lastLine()+1 {
		return invariant("combine", n2.ID.Line, "nodes %s and %s are not adjacent", n1.ID, n2.ID)
	}

	c, ok := t.containers[n2.Type]
	if !ok || c[n2.ID] != n2 {
		return invariant("combine", n2.ID.Line, "%s node %s already absorbed", n2.Type, n2.ID)
	}

	for _, f := range n2.Data {
		if e, ok := t.index[LineID(f.Line)]; ok && e.NodeID == n2.ID {
			e.NodeID = n1.ID
		}
	}
	n1.Data = append(n1.Data, n2.Data...)

	pid := n1.ID
	for _, child := range n2.Inner {
		ord := len(n1.Inner)
		n1.Inner = append(n1.Inner, child)
		n1.Index[child.ID] = ChildRef{Ord: ord, Type: child.Type}
		child.Parent = &pid
		if e, ok := t.index[child.ID]; ok {
			e.Parent = &pid
			e.Ord = ord
		}
	}

	delete(c, n2.ID)

	for _, ids := range n2.Assocs {
		for _, rid := range ids {
			rel, ok := t.Node(rid)
			if !ok {
				continue
			}
			rel.Assocs[n2.Type] = removeID(rel.Assocs[n2.Type], n2.ID)
			if len(rel.Assocs[n2.Type]) == 0 {
				delete(rel.Assocs, n2.Type)
			}
			if rel != n1 {
				Associate(n1, rel)
			}
		}
	}

	return nil
}

func less(a, b NodeID) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Sub < b.Sub
}
