// Package template expands {{ namespace.path }} placeholders in a
// configuration tree.
//
// Resolution is a pure graph evaluation: every templated scalar becomes a
// vertex, every placeholder that points at another templated scalar becomes
// an edge, and vertices are evaluated in topological order. Two namespaces
// are bound from outside the tree:
//
//	this     the build variant being resolved; this.name is its key,
//	         this.<path> reads <variant>.<path>
//	package  build-time values; while unbound, every placeholder reading
//	         package.* stays open and so does everything depending on it
//
// ${NAME} sigils are left untouched; they belong to the credential provider.
package template

import (
	"regexp"
	"strings"
)

var (
	// openRe finds the start of every {{ ... }} span; the closing braces are
	// matched separately so an unclosed span is reported instead of skipped.
	openRe = regexp.MustCompile(`\{\{`)

	// refRe is a dotted path: identifier segments, list indices allowed after the first.
	refRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*(\.[A-Za-z0-9_-]+)*$`)
)

// Placeholder is one {{ ... }} span inside a scalar string.
type Placeholder struct {
	// Raw is the full span including braces, e.g. "{{ path.base }}".
	Raw string
	// Ref is the dotted path inside the braces, e.g. "path.base".
	Ref string
	// Start and End delimit Raw within the containing string.
	Start, End int
}

// Namespace returns the first segment of the reference.
func (p Placeholder) Namespace() string {
	ns, _, _ := strings.Cut(p.Ref, ".")
	return ns
}

// HasPlaceholders reports whether s contains template syntax.
func HasPlaceholders(s string) bool {
	return strings.Contains(s, "{{")
}

// Parse returns the placeholders in s in order of appearance.
// node is the path of the scalar being parsed and is only used in errors.
func Parse(node, s string) ([]Placeholder, error) {
	var out []Placeholder
	for _, loc := range openRe.FindAllStringIndex(s, -1) {
		start := loc[0]
		if len(out) > 0 && start < out[len(out)-1].End {
			continue
		}
		closeIdx := strings.Index(s[start+2:], "}}")
		if closeIdx < 0 {
			return nil, &SyntaxError{Node: node, Text: s, Reason: "unclosed {{"}
		}
		end := start + 2 + closeIdx + 2
		inner := strings.TrimSpace(s[start+2 : end-2])
		if !refRe.MatchString(inner) {
			return nil, &SyntaxError{Node: node, Text: s[start:end], Reason: "expected a dotted reference such as variables.name"}
		}
		out = append(out, Placeholder{
			Raw:   s[start:end],
			Ref:   inner,
			Start: start,
			End:   end,
		})
	}
	return out, nil
}
