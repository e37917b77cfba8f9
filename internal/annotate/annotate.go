// Package annotate prints a parsed source with a gutter naming the node that
// owns each line.
package annotate

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/QTest-hq/cast/internal/ast"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorComment = lipgloss.Color("42")
	colorCode    = lipgloss.Color("39")
	colorDef     = lipgloss.Color("220")
	colorMember  = lipgloss.Color("86")
	colorChar    = lipgloss.Color("252")
	colorDim     = lipgloss.Color("241")
)

// Range is an inclusive line range. A negative To means through the last line.
type Range struct {
	From int
	To   int
}

// All covers every line
var All = Range{From: 0, To: -1}

// Contains reports whether line falls in r
func (r Range) Contains(line int) bool {
	return line >= r.From && (r.To < 0 || line <= r.To)
}

// ParseRange parses "from:to", where either side may be empty
func ParseRange(s string) (Range, error) {
	if s == "" {
		return All, nil
	}
	from, to, ok := strings.Cut(s, ":")
	if !ok {
		return Range{}, fmt.Errorf("invalid range %q, expected from:to", s)
	}

	r := All
	if from != "" {
		v, err := strconv.Atoi(from)
		if err != nil || v < 0 {
			return Range{}, fmt.Errorf("invalid range start %q", from)
		}
		r.From = v
	}
	if to != "" {
		v, err := strconv.Atoi(to)
		if err != nil || v < 0 {
			return Range{}, fmt.Errorf("invalid range end %q", to)
		}
		r.To = v
	}
	if r.To >= 0 && r.To < r.From {
		return Range{}, fmt.Errorf("invalid range %q: end before start", s)
	}
	return r, nil
}

// Annotator renders annotated listings to one writer
type Annotator struct {
	w      io.Writer
	styles map[ast.NodeType]lipgloss.Style
	gutter lipgloss.Style
}

// New binds an annotator to w. Colours are dropped when w is not a terminal.
func New(w io.Writer) *Annotator {
	r := lipgloss.NewRenderer(w)
	return &Annotator{
		w: w,
		styles: map[ast.NodeType]lipgloss.Style{
			ast.NA:         r.NewStyle().Foreground(colorDim),
			ast.Comment:    r.NewStyle().Foreground(colorComment).Italic(true),
			ast.Code:       r.NewStyle().Foreground(colorCode).Bold(true),
			ast.Definition: r.NewStyle().Foreground(colorDef).Bold(true),
			ast.Member:     r.NewStyle().Foreground(colorMember),
			ast.Char:       r.NewStyle().Foreground(colorChar),
		},
		gutter: r.NewStyle().Foreground(colorDim),
	}
}

// Render writes one annotated row per consumed line in rng
func (a *Annotator) Render(tree *ast.Tree, rng Range) error {
	bw := bufio.NewWriter(a.w)

	for i, raw := range tree.Source {
		if !rng.Contains(i) {
			continue
		}

		typ, owner := ast.NA, ""
		if e, ok := tree.Entry(ast.LineID(i)); ok {
			typ = e.Type
			if typ != ast.NA {
				owner = e.NodeID.String()
			}
			if e.Parent != nil {
				owner = e.Parent.String() + ">" + owner
			}
		}

		style := a.styles[typ]
		row := fmt.Sprintf("%5d %-8s %-8s", i, typ, owner)
		if _, err := fmt.Fprintf(bw, "%s %s %s\n", style.Render(row), a.gutter.Render("|"), raw); err != nil {
			return err
		}

		if extra := a.inline(tree, i); extra != "" {
			if _, err := fmt.Fprintf(bw, "%s %s %s\n", a.styles[ast.Comment].Render(fmt.Sprintf("%5s %-8s %-8s", "", ast.Comment, ast.NodeID{Line: i, Sub: 1})), a.gutter.Render("|"), extra); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

// inline returns the text of a comment split off line i, if any
func (a *Annotator) inline(tree *ast.Tree, line int) string {
	n, ok := tree.Node(ast.NodeID{Line: line, Sub: 1})
	if !ok || n.Type != ast.Comment {
		return ""
	}
	return strings.TrimSpace(n.Text())
}

// Summary writes the per-container node counts on one line
func (a *Annotator) Summary(tree *ast.Tree) error {
	counts := tree.Counts()
	parts := make([]string, 0, len(ast.Containers))
	for _, c := range ast.Containers {
		parts = append(parts, a.styles[c].Render(fmt.Sprintf("%s=%d", c, counts[c])))
	}
	_, err := fmt.Fprintf(a.w, "%d lines  %s\n", tree.Len(), strings.Join(parts, "  "))
	return err
}
