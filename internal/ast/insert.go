package ast

import "strings"

// refTypes maps a node type to the type whose just-closed node it links to on creation
var refTypes = map[NodeType]NodeType{
	Comment:    Code,
	Code:       Comment,
	Definition: Comment,
	Char:       Comment,
}

// insert routes the current line into exactly one category, merging it with
// the preceding node where the line continues the same construct.
func (t *Tree) insert(s *State) error {
	prev, prevLine := t.previousLine(s)

	switch {
	case !s.inside[Definition] && (s.inside[Comment] || s.closing[Comment]):
		return t.insertComment(s, prev, prevLine)

	case s.inside[Code] || s.closing[Code]:
		if _, err := t.process(s, Code); err != nil {
			return err
		}
		if s.blockStart {
			return t.backtrace(s)
		}
		return nil

	case s.inside[Definition] || s.closing[Definition]:
		switch {
		case !s.closing[Definition] && (s.inside[Comment] || s.closing[Comment]):
			return t.insertComment(s, prev, prevLine)
		case !s.closing[Definition] && !s.blockStart && len(s.ln) > 1:
			_, err := t.processMember(s)
			return err
		default:
			_, err := t.process(s, Definition)
			return err
		}

	default:
		if _, ok := s.current[Char]; !ok {
			s.closeNow(Char)
		}
		_, err := t.process(s, Char)
		return err
	}
}

func (t *Tree) previousLine(s *State) (*IndexEntry, string) {
	if s.lno == 0 {
		return nil, ""
	}
	e, ok := t.index[LineID(s.lno-1)]
	if !ok {
		return nil, ""
	}
	return e, strings.TrimSpace(t.Source[s.lno-1])
}

func (t *Tree) insertComment(s *State, prev *IndexEntry, prevLine string) error {
	n, err := t.process(s, Comment)
	if err != nil {
		return err
	}
	if !continuesComment(s.ln, prev, prevLine) {
		return nil
	}
	target, ok := t.containers[Comment][prev.NodeID]
	if !ok {
		return invariant("insert", s.lno, "previous comment %s is missing", prev.NodeID)
	}
	if err := t.Combine(target, n); err != nil {
		return err
	}
	s.node = target
	return nil
}

// continuesComment decides whether a comment line extends the comment on the
// line above. Consecutive "//" lines merge, a new "/*" always starts its own
// node, and lines inside an open block already share one.
func continuesComment(ln string, prev *IndexEntry, prevLine string) bool {
	if prev == nil || prev.Type != Comment || prev.Parent != nil {
		return false
	}
	switch {
	case strings.HasPrefix(ln, "//"):
		return strings.HasPrefix(prevLine, "//")
	case strings.HasPrefix(ln, "/*"):
		return false
	default:
		return true
	}
}

// backtrace folds plain or definition lines directly above a function start
// into the function, e.g. a return type on its own line.
func (t *Tree) backtrace(s *State) error {
	n := s.node
	for n.ID.Line > 0 {
		e, ok := t.index[LineID(n.ID.Line-1)]
		if !ok || !leadIn(e, t.Source[n.ID.Line-1]) {
			break
		}
		if err := t.Transform(e.NodeID, e.Type, Code); err != nil {
			return err
		}
		survivor := t.containers[Code][e.NodeID]
		if err := t.Combine(survivor, n); err != nil {
			return err
		}
		n = survivor
	}
	if n != s.node {
		s.node = n
		s.current[Code] = n.ID.Line
		delete(s.previous, Code)
	}
	return nil
}

func leadIn(e *IndexEntry, raw string) bool {
	if e.Parent != nil || (e.Type != Char && e.Type != Definition) {
		return false
	}
	return !strings.ContainsAny(raw, ";{}")
}

// process appends the current line to the in-progress node of typ
func (t *Tree) process(s *State, typ NodeType) (*Node, error) {
	if typ == Member {
		return t.processMember(s)
	}
	key, ok := s.current[typ]
	if !ok {
		return nil, invariant("process", s.lno, "no current %s node", typ)
	}

	n, _ := t.cached(typ, LineID(key), typ)
	n.Data = append(n.Data, Fragment{Line: s.lno, Text: s.raw})
	s.node = n

	if ref, ok := refTypes[typ]; ok {
		if rid, ok := s.previous[ref]; ok {
			if related, ok := t.Node(LineID(rid)); ok && related != n {
				Associate(n, related)
			}
			delete(s.previous, ref)
		}
	}

	return n, t.recordIndex(s, typ, nil)
}

// processMember adds the current line as a member child of the open definition
func (t *Tree) processMember(s *State) (*Node, error) {
	key, ok := s.current[Definition]
	if !ok {
		return nil, invariant("member", s.lno, "no open definition")
	}
	parent, ok := t.containers[Definition][LineID(key)]
	if !ok {
		return nil, invariant("member", s.lno, "definition %d is missing", key)
	}

	pid := parent.ID
	child := newNode(LineID(s.lno), Member)
	child.Parent = &pid
	child.Data = append(child.Data, Fragment{Line: s.lno, Text: s.raw})

	ord := len(parent.Inner)
	parent.Inner = append(parent.Inner, child)
	parent.Index[child.ID] = ChildRef{Ord: ord, Type: Member}
	s.node = child

	if err := t.recordIndex(s, Member, &IndexEntry{Parent: &pid, Ord: ord}); err != nil {
		return nil, err
	}
	t.extractInlineComment(child)
	return child, nil
}

// extractInlineComment splits a trailing comment off a member line into a
// child comment node with a sub-line id.
func (t *Tree) extractInlineComment(n *Node) {
	text := n.Data[0].Text
	pos := inlineCommentAt(text)
	if pos < 1 {
		return
	}

	n.Data[0].Text = strings.TrimRight(text[:pos], " \t")

	ord := len(n.Inner)
	cid := NodeID{Line: n.ID.Line, Sub: ord + 1}
	pid := n.ID

	c := newNode(cid, Comment)
	c.Parent = &pid
	c.Data = append(c.Data, Fragment{Line: n.ID.Line, Text: text[pos:]})

	n.Inner = append(n.Inner, c)
	n.Index[cid] = ChildRef{Ord: ord, Type: Comment}
	Associate(n, c)

	t.index[cid] = &IndexEntry{NodeID: cid, Type: Comment, Parent: &pid, Ord: ord}
}

// inlineCommentAt returns the position of the first comment marker, or -1
func inlineCommentAt(text string) int {
	line := strings.Index(text, "//")
	block := strings.Index(text, "/*")
	switch {
	case line < 0:
		return block
	case block < 0:
		return line
	default:
		return min(line, block)
	}
}
