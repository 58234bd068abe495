package template

// Value is the outcome of resolving one scalar: either Resolved or Deferred.
type Value interface {
	isValue()
}

// Resolved holds a concrete value. A scalar made of a single placeholder keeps
// the referenced value's type; anything else is a string.
type Resolved struct {
	Value any
}

// Deferred marks a scalar that cannot be concrete until an unbound namespace
// is supplied. Text has every resolvable placeholder substituted and the open
// ones left verbatim, so re-resolving it later gives the same answer as
// resolving the source.
type Deferred struct {
	Text string
	// Causes are the open references, e.g. "package.name", sorted.
	Causes []string
}

func (Resolved) isValue() {}
func (Deferred) isValue() {}

// OpenPlaceholder is a reference that stayed open in a static pass.
type OpenPlaceholder struct {
	// Node is the path of the deferred value.
	Node string
	// Ref is the root-cause reference. For a value that is open only because
	// it depends on another open value, Ref is that value's cause, not the
	// intermediate path.
	Ref string
}

// Namespace returns the first segment of the open reference.
func (o OpenPlaceholder) Namespace() string {
	return Placeholder{Ref: o.Ref}.Namespace()
}
