package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Lookup returns the node at a dotted path. Map keys are matched exactly,
// list elements are addressed by decimal index ("a.b.0.c").
// Returns nil if any segment is missing.
func Lookup(tree any, path string) any {
	v, _ := LookupOK(tree, path)
	return v
}

// LookupOK is Lookup with an explicit presence flag, so that a present nil
// value can be told apart from a missing one.
func LookupOK(tree any, path string) (any, bool) {
	if path == "" {
		return tree, true
	}
	cur := tree
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// IsScalar reports whether v is a leaf value (string, number, bool or nil).
func IsScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	default:
		return true
	}
}

// ScalarString renders a scalar the way it is substituted into templates.
func ScalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case uint64:
		return strconv.FormatUint(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

// Clone deep-copies a tree of maps, lists and scalars.
func Clone(v any) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[k] = Clone(child)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, child := range node {
			out[i] = Clone(child)
		}
		return out
	default:
		return v
	}
}

// Normalize converts decoder-specific containers into map[string]any and
// []any, and integer types into int, so every tree has the same shape
// regardless of the source format.
func Normalize(v any) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[k] = Normalize(child)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[fmt.Sprint(k)] = Normalize(child)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, child := range node {
			out[i] = Normalize(child)
		}
		return out
	case []map[string]any:
		out := make([]any, len(node))
		for i, child := range node {
			out[i] = Normalize(child)
		}
		return out
	case int64:
		return int(node)
	case uint64:
		return int(node)
	default:
		return v
	}
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Walk calls fn for every scalar leaf in the tree with its dotted path.
// Leaves are visited in lexical path order.
func Walk(tree any, fn func(path string, value any)) {
	walk("", tree, fn)
}

func walk(prefix string, v any, fn func(string, any)) {
	switch node := v.(type) {
	case map[string]any:
		for _, k := range SortedKeys(node) {
			walk(join(prefix, k), node[k], fn)
		}
	case []any:
		for i, child := range node {
			walk(join(prefix, strconv.Itoa(i)), child, fn)
		}
	default:
		fn(prefix, v)
	}
}

// Set replaces the node at path in tree. Intermediate nodes must exist.
func Set(tree any, path string, value any) error {
	parent, last := splitLast(path)
	node, ok := LookupOK(tree, parent)
	if !ok {
		return fmt.Errorf("path %q does not exist", parent)
	}
	switch p := node.(type) {
	case map[string]any:
		p[last] = value
	case []any:
		i, err := strconv.Atoi(last)
		if err != nil || i < 0 || i >= len(p) {
			return fmt.Errorf("index %q out of range at %q", last, parent)
		}
		p[i] = value
	default:
		return fmt.Errorf("path %q is not a container", parent)
	}
	return nil
}

func join(prefix, seg string) string {
	if prefix == "" {
		return seg
	}
	return prefix + "." + seg
}

func splitLast(path string) (string, string) {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
