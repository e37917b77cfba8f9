package ast

import (
	"errors"
	"fmt"
)

// ErrInvariant marks an internal bookkeeping defect. A run that hits one is aborted.
var ErrInvariant = errors.New("ast invariant violated")

// InvariantError describes a state machine defect with the context it happened in
type InvariantError struct {
	Op     string
	Line   int
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: line %d: %s", e.Op, e.Line, e.Detail)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

func invariant(op string, line int, format string, args ...any) error {
	return &InvariantError{Op: op, Line: line, Detail: fmt.Sprintf(format, args...)}
}
