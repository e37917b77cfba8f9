package ast

import "strings"

// trackDepth follows brace nesting of an open code or definition block and
// flags the block as closing once its nesting returns to the starting level.
func trackDepth(s *State) {
	if !s.inside[Code] && !s.inside[Definition] {
		return
	}

	open := strings.Count(s.ln, "{")
	closed := strings.Count(s.ln, "}")

	next := s.depth + open - closed
	if next > 0 {
		s.depth = next
		return
	}
	s.depth = 0

	switch {
	case s.inside[Definition]:
		// "struct foo;" or the closing "};"
		if strings.Index(s.ln, ";") >= 1 || closed > 0 {
			delete(s.inside, Definition)
			s.closing[Definition] = true
		}
	case s.inside[Code]:
		if closed > 0 {
			delete(s.inside, Code)
			s.closing[Code] = true
		}
	}
}
