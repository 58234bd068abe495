package template

import (
	"fmt"
	"strings"
)

// CycleError is returned when templated values reference each other in a loop.
// No partial output is produced.
type CycleError struct {
	Paths []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("reference cycle: %s", strings.Join(e.Paths, " -> "))
}

// UnresolvedReferenceError is returned when a placeholder names a path that
// does not exist, or one that is not a scalar.
type UnresolvedReferenceError struct {
	// Ref is the placeholder's dotted path.
	Ref string
	// Node is the path of the value containing the placeholder.
	Node string
	// Reason says why the reference could not be used.
	Reason string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("%s: unresolved reference {{ %s }}: %s", e.Node, e.Ref, e.Reason)
}

// SyntaxError is returned for malformed {{ }} spans.
type SyntaxError struct {
	Node   string
	Text   string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: invalid placeholder %q: %s", e.Node, e.Text, e.Reason)
}
