// Package crosscheck compares a heuristic tree against the tree-sitter C
// grammar to measure how far the line heuristics drift on real code.
package crosscheck

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/QTest-hq/cast/internal/ast"
	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
)

// Categories are the node types compared
var Categories = []ast.NodeType{ast.Comment, ast.Code, ast.Definition}

// Diff holds the start lines found by both sides, only by the grammar (missed)
// and only by the heuristics (extra)
type Diff struct {
	Matched []int `json:"matched"`
	Missed  []int `json:"missed"`
	Extra   []int `json:"extra"`
}

// Report is the outcome of one comparison
type Report struct {
	Name  string                `json:"name"`
	Diffs map[ast.NodeType]Diff `json:"diffs"`
}

// Agreement is matched / (matched + missed + extra) over all categories.
// Two empty sides agree fully.
func (r *Report) Agreement() float64 {
	var matched, total int
	for _, d := range r.Diffs {
		matched += len(d.Matched)
		total += len(d.Matched) + len(d.Missed) + len(d.Extra)
	}
	if total == 0 {
		return 1
	}
	return float64(matched) / float64(total)
}

// Checker wraps a tree-sitter parser. It is not safe for concurrent use.
type Checker struct {
	parser *sitter.Parser
}

// New creates a checker for C sources
func New() *Checker {
	p := sitter.NewParser()
	p.SetLanguage(c.GetLanguage())
	return &Checker{parser: p}
}

// Check parses content with the grammar and compares node start lines with tree
func (ch *Checker) Check(ctx context.Context, name string, content []byte, tree *ast.Tree) (*Report, error) {
	st, err := ch.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	defer st.Close()

	g := &grammarLines{src: content, lines: strings.Split(string(content), "\n")}
	g.walk(st.RootNode(), false)

	want := map[ast.NodeType][]int{
		ast.Comment:    g.mergedComments(),
		ast.Code:       g.code,
		ast.Definition: g.defs,
	}

	report := &Report{Name: name, Diffs: make(map[ast.NodeType]Diff, len(Categories))}
	for _, typ := range Categories {
		report.Diffs[typ] = diff(want[typ], heuristicLines(tree, typ))
	}

	log.Debug().
		Str("name", name).
		Float64("agreement", report.Agreement()).
		Msg("cross-check finished")

	return report, nil
}

func heuristicLines(tree *ast.Tree, typ ast.NodeType) []int {
	keys := tree.Keys(typ)
	lines := make([]int, len(keys))
	for i, k := range keys {
		lines[i] = k.Line
	}
	return lines
}

func diff(grammar, heuristic []int) Diff {
	g := dedupe(grammar)
	h := dedupe(heuristic)

	d := Diff{Matched: []int{}, Missed: []int{}, Extra: []int{}}
	for _, l := range g {
		if _, ok := slices.BinarySearch(h, l); ok {
			d.Matched = append(d.Matched, l)
		} else {
			d.Missed = append(d.Missed, l)
		}
	}
	for _, l := range h {
		if _, ok := slices.BinarySearch(g, l); !ok {
			d.Extra = append(d.Extra, l)
		}
	}
	return d
}

func dedupe(lines []int) []int {
	out := slices.Clone(lines)
	slices.Sort(out)
	return slices.Compact(out)
}

type span struct {
	start, end int
	line       bool
}

// grammarLines collects the start rows of the constructs the heuristics model
type grammarLines struct {
	src      []byte
	lines    []string
	code     []int
	defs     []int
	comments []span
}

func (g *grammarLines) walk(n *sitter.Node, nested bool) {
	switch n.Type() {
	case "comment":
		if g.leadsLine(n) {
			g.comments = append(g.comments, span{
				start: int(n.StartPoint().Row),
				end:   int(n.EndPoint().Row),
				line:  strings.HasPrefix(n.Content(g.src), "//"),
			})
		}
		return

	case "function_definition":
		if !nested {
			g.code = append(g.code, int(n.StartPoint().Row))
		}
		return

	case "declaration":
		if !nested && isPrototype(n) {
			g.code = append(g.code, int(n.StartPoint().Row))
			return
		}

	case "struct_specifier", "enum_specifier", "union_specifier":
		if !nested {
			g.defs = append(g.defs, int(n.StartPoint().Row))
		}
		nested = true

	case "parameter_list", "field_declaration_list", "enumerator_list":
		nested = true
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child != nil {
			g.walk(child, nested)
		}
	}
}

// leadsLine reports whether only whitespace precedes n on its first line
func (g *grammarLines) leadsLine(n *sitter.Node) bool {
	p := n.StartPoint()
	if int(p.Row) >= len(g.lines) {
		return false
	}
	line := g.lines[p.Row]
	col := min(int(p.Column), len(line))
	return strings.TrimSpace(line[:col]) == ""
}

// mergedComments folds runs of adjacent line comments into their first line
func (g *grammarLines) mergedComments() []int {
	var starts []int
	for i, s := range g.comments {
		if i > 0 {
			prev := g.comments[i-1]
			if s.line && prev.line && s.start == prev.end+1 {
				continue
			}
		}
		starts = append(starts, s.start)
	}
	return starts
}

// isPrototype reports a declaration whose declarator is a function
func isPrototype(n *sitter.Node) bool {
	d := n.ChildByFieldName("declarator")
	for d != nil {
		switch d.Type() {
		case "function_declarator":
			return true
		case "pointer_declarator", "parenthesized_declarator":
			d = d.ChildByFieldName("declarator")
		default:
			return false
		}
	}
	return false
}
