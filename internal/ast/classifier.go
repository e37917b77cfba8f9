package ast

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultFunctionPattern matches an identifier run followed by a parenthesised list
	DefaultFunctionPattern = `[A-Za-z0-9_\s]+\(.*\)`
)

// DefaultDefinitionPatterns match struct and enum declarations
var DefaultDefinitionPatterns = []string{`\bstruct\s+`, `\benum\s+`}

// Patterns holds the heuristics used to recognise declarations
type Patterns struct {
	Function    *regexp.Regexp
	Definitions []*regexp.Regexp
}

// DefaultPatterns returns the built-in C heuristics
func DefaultPatterns() *Patterns {
	p, err := NewPatterns(DefaultFunctionPattern, DefaultDefinitionPatterns)
	if err != nil {
		panic(err)
	}
	return p
}

// NewPatterns compiles a function pattern and a set of definition patterns
func NewPatterns(function string, definitions []string) (*Patterns, error) {
	fn, err := regexp.Compile(function)
	if err != nil {
		return nil, fmt.Errorf("invalid function pattern: %w", err)
	}
	p := &Patterns{Function: fn, Definitions: make([]*regexp.Regexp, 0, len(definitions))}
	for _, d := range definitions {
		re, err := regexp.Compile(d)
		if err != nil {
			return nil, fmt.Errorf("invalid definition pattern %q: %w", d, err)
		}
		p.Definitions = append(p.Definitions, re)
	}
	return p, nil
}

// IsFunction reports whether a trimmed line looks like a function declaration
func (p *Patterns) IsFunction(ln string) bool {
	return p.Function.MatchString(ln)
}

// IsDefinition reports whether a trimmed line looks like a struct or enum declaration
func (p *Patterns) IsDefinition(ln string) bool {
	for _, re := range p.Definitions {
		if re.MatchString(ln) {
			return true
		}
	}
	return false
}

// Rule is one matcher and action of the line classifier
type Rule struct {
	Name  string
	Match func(s *State, p *Patterns) bool
	Apply func(t *Tree, s *State, p *Patterns) error
}

// Classifier runs an ordered rule list against each line; the first match wins
type Classifier struct {
	Patterns *Patterns
	Rules    []Rule
}

// NewClassifier builds a classifier, falling back to the defaults for nil arguments
func NewClassifier(p *Patterns, rules []Rule) *Classifier {
	if p == nil {
		p = DefaultPatterns()
	}
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{Patterns: p, Rules: rules}
}

// Classify mutates the state according to the first matching rule
func (c *Classifier) Classify(t *Tree, s *State) error {
	for _, r := range c.Rules {
		if r.Match(s, c.Patterns) {
			if r.Apply == nil {
				return nil
			}
			if err := r.Apply(t, s, c.Patterns); err != nil {
				return fmt.Errorf("rule %s: %w", r.Name, err)
			}
			return nil
		}
	}
	return nil
}

// DefaultRules returns the C line rules in priority order
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "block-comment-open",
			Match: func(s *State, _ *Patterns) bool {
				return !s.inside[Comment] && !s.inside[Code] && strings.HasPrefix(s.ln, "/*")
			},
			Apply: func(_ *Tree, s *State, _ *Patterns) error {
				if strings.Contains(s.ln[2:], "*/") {
					s.closeNow(Comment)
					return nil
				}
				s.open(Comment)
				return nil
			},
		},
		{
			Name: "block-comment-close",
			Match: func(s *State, _ *Patterns) bool {
				return s.inside[Comment] && strings.Contains(s.ln, "*/")
			},
			Apply: func(_ *Tree, s *State, _ *Patterns) error {
				delete(s.inside, Comment)
				s.closing[Comment] = true
				return nil
			},
		},
		{
			// swallow the rest of an open block comment
			Name: "block-comment-body",
			Match: func(s *State, _ *Patterns) bool {
				return s.inside[Comment]
			},
		},
		{
			Name: "line-comment",
			Match: func(s *State, _ *Patterns) bool {
				return !s.inside[Code] && strings.HasPrefix(s.ln, "//")
			},
			Apply: func(_ *Tree, s *State, _ *Patterns) error {
				s.closeNow(Comment)
				s.blockStart = true
				return nil
			},
		},
		{
			Name: "definition",
			Match: func(s *State, p *Patterns) bool {
				return !s.inside[Definition] && !s.inside[Code] &&
					p.IsDefinition(s.ln) && !p.IsFunction(s.ln)
			},
			Apply: func(_ *Tree, s *State, _ *Patterns) error {
				s.open(Definition)
				return nil
			},
		},
		{
			Name: "function",
			Match: func(s *State, p *Patterns) bool {
				return !s.inside[Definition] && !s.inside[Code] && p.IsFunction(s.ln)
			},
			Apply: func(_ *Tree, s *State, _ *Patterns) error {
				if s.depth == 0 && isPrototype(s.ln) {
					s.closeNow(Code)
					s.blockStart = true
					return nil
				}
				s.open(Code)
				return nil
			},
		},
		{
			// a definition that turns out to be a function's return type
			Name: "definition-reinterpret",
			Match: func(s *State, p *Patterns) bool {
				return s.inside[Definition] && !s.inside[Code] && s.depth == 0 && p.IsFunction(s.ln)
			},
			Apply: reinterpretDefinition,
		},
		{
			Name: "definition-body",
			Match: func(s *State, _ *Patterns) bool {
				return s.inside[Definition] || s.inside[Code]
			},
		},
		{
			Name: "plain",
			Match: func(s *State, _ *Patterns) bool {
				return true
			},
			Apply: func(_ *Tree, s *State, _ *Patterns) error {
				s.closeNow(Char)
				return nil
			},
		},
	}
}

func reinterpretDefinition(t *Tree, s *State, _ *Patterns) error {
	id, ok := s.current[Definition]
	if !ok {
		return invariant("reinterpret", s.lno, "no open definition")
	}
	if err := t.Transform(LineID(id), Definition, Code); err != nil {
		return err
	}

	s.current[Code] = id
	if prev, ok := s.previous[Definition]; ok {
		s.previous[Code] = prev
	}
	delete(s.previous, Definition)
	delete(s.current, Definition)
	delete(s.inside, Definition)

	if isPrototype(s.ln) {
		s.closing[Code] = true
		return nil
	}
	s.inside[Code] = true
	return nil
}

// isPrototype reports a one-line declaration terminated by a semicolon
func isPrototype(ln string) bool {
	return strings.Contains(ln, ";") && !strings.Contains(ln, "{")
}

// skippable lines are recorded but never classified
func skippable(ln string) bool {
	return ln == "" || strings.HasPrefix(ln, "#")
}
