package template

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"ocm.software/open-component-model/bindings/go/dag"

	"github.com/bytehawks/distillery/src/config"
)

// Namespaces bound from outside the tree.
const (
	NamespaceThis    = "this"
	NamespacePackage = "package"
)

// flatNamespace is where single-segment references ({{ key }}) are looked up
// when the tree has no scalar of that name at its root.
const flatNamespace = "variables"

// Context is the binding environment of one resolution pass.
type Context struct {
	// This binds the this namespace. Nil leaves this.* open.
	This *ThisBinding
	// Package binds the package namespace. Nil leaves package.* open, which
	// is what a static (config-load) pass does.
	Package map[string]any
}

// ThisBinding points this at one entry of the tree.
type ThisBinding struct {
	// Name is what this.name evaluates to.
	Name string
	// Path is the tree path this.<rest> reads from, e.g. "build.variant.stable".
	Path string
}

// Static returns the context of a config-load pass: nothing bound.
func Static() Context { return Context{} }

// BuildTime returns a context with the package namespace bound.
func BuildTime(pkg map[string]any) Context {
	if pkg == nil {
		pkg = map[string]any{}
	}
	return Context{Package: pkg}
}

// WithThis returns a copy of c with this bound to the entry at path.
func (c Context) WithThis(name, path string) Context {
	c.This = &ThisBinding{Name: name, Path: path}
	return c
}

// Result is a resolved tree plus everything that stayed open.
type Result struct {
	// Tree is the resolved tree (or subtree). It shares nothing with the source.
	Tree map[string]any
	// Open lists deferred values and their open references, sorted by node.
	Open []OpenPlaceholder

	full   map[string]any
	values map[string]Value
}

// Value returns the outcome for the scalar at an absolute tree path.
// Literal scalars report as Resolved. Templated scalars a subtree pass did
// not evaluate are reported as absent.
func (r *Result) Value(path string) (Value, bool) {
	if v, ok := r.values[path]; ok {
		return v, true
	}
	v, ok := config.LookupOK(r.full, path)
	if !ok || !config.IsScalar(v) {
		return nil, false
	}
	if s, isString := v.(string); isString && HasPlaceholders(s) {
		return nil, false
	}
	return Resolved{Value: v}, true
}

// String returns the scalar at path as a string and whether it is concrete.
func (r *Result) String(path string) (string, bool) {
	v, ok := r.Value(path)
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case Resolved:
		return config.ScalarString(val.Value), true
	case Deferred:
		return val.Text, false
	}
	return "", false
}

// Deferred reports whether the scalar at path is still open.
func (r *Result) Deferred(path string) bool {
	v, ok := r.values[path]
	if !ok {
		return false
	}
	_, deferred := v.(Deferred)
	return deferred
}

// Resolve expands every placeholder in tree. The source tree is not modified.
//
// It fails with *SyntaxError, *UnresolvedReferenceError or *CycleError; on
// failure nothing is returned.
func Resolve(tree map[string]any, ctx Context) (*Result, error) {
	return resolve(tree, ctx, "")
}

// ResolveSubtree resolves only the values under path, plus whatever they
// reference elsewhere in the tree. Result.Tree is the subtree.
func ResolveSubtree(tree map[string]any, ctx Context, path string) (*Result, error) {
	node, ok := config.LookupOK(tree, path)
	if !ok {
		return nil, fmt.Errorf("path %q does not exist", path)
	}
	if _, isMap := node.(map[string]any); !isMap {
		return nil, fmt.Errorf("path %q is not a mapping", path)
	}
	return resolve(tree, ctx, path)
}

type refKind int

const (
	refConst refKind = iota
	refNode
	refOpen
)

// target is what one placeholder resolved to before evaluation.
type target struct {
	kind  refKind
	value any    // refConst
	node  string // refNode: path of a templated scalar
	cause string // refOpen: the open reference
}

type leaf struct {
	path    string
	raw     string
	holders []Placeholder
	targets []target
}

type evaluator struct {
	tree   map[string]any
	ctx    Context
	leaves map[string]*leaf
	values map[string]Value
}

func resolve(tree map[string]any, ctx Context, scope string) (*Result, error) {
	e := &evaluator{
		tree:   tree,
		ctx:    ctx,
		leaves: make(map[string]*leaf),
		values: make(map[string]Value),
	}

	var parseErr error
	config.Walk(tree, func(path string, v any) {
		s, ok := v.(string)
		if !ok || !HasPlaceholders(s) || parseErr != nil {
			return
		}
		holders, err := Parse(path, s)
		if err != nil {
			parseErr = err
			return
		}
		e.leaves[path] = &leaf{path: path, raw: s, holders: holders}
	})
	if parseErr != nil {
		return nil, parseErr
	}

	closure, err := e.closure(scope)
	if err != nil {
		return nil, err
	}

	order, err := e.order(closure)
	if err != nil {
		return nil, err
	}
	for _, path := range order {
		v, err := e.evaluate(e.leaves[path])
		if err != nil {
			return nil, err
		}
		e.values[path] = v
	}

	out := config.Clone(tree).(map[string]any)
	var open []OpenPlaceholder
	for _, path := range closure {
		switch v := e.values[path].(type) {
		case Resolved:
			_ = config.Set(out, path, v.Value)
		case Deferred:
			_ = config.Set(out, path, v.Text)
			for _, c := range v.Causes {
				open = append(open, OpenPlaceholder{Node: path, Ref: c})
			}
		}
	}

	res := &Result{Tree: out, Open: open, full: out, values: e.values}
	if scope != "" {
		res.Tree = config.Lookup(out, scope).(map[string]any)
	}
	return res, nil
}

// closure classifies the placeholders of every templated scalar under scope
// and of everything they transitively reference. Returned paths are sorted.
func (e *evaluator) closure(scope string) ([]string, error) {
	var queue []string
	for _, path := range sortedLeafPaths(e.leaves) {
		if inScope(path, scope) {
			queue = append(queue, path)
		}
	}

	seen := make(map[string]bool, len(queue))
	for _, p := range queue {
		seen[p] = true
	}

	for i := 0; i < len(queue); i++ {
		l := e.leaves[queue[i]]
		l.targets = make([]target, len(l.holders))
		for j, h := range l.holders {
			t, err := e.classify(l.path, h.Ref)
			if err != nil {
				return nil, err
			}
			l.targets[j] = t
			if t.kind == refNode && !seen[t.node] {
				seen[t.node] = true
				queue = append(queue, t.node)
			}
		}
	}

	slices.Sort(queue)
	return queue, nil
}

// classify decides what a reference points at without evaluating it.
func (e *evaluator) classify(node, ref string) (target, error) {
	ns, rest, _ := strings.Cut(ref, ".")

	switch ns {
	case NamespaceThis:
		if e.ctx.This == nil {
			return target{kind: refOpen, cause: ref}, nil
		}
		if rest == "name" {
			return target{kind: refConst, value: e.ctx.This.Name}, nil
		}
		if rest == "" {
			return target{}, &UnresolvedReferenceError{Ref: ref, Node: node, Reason: "this is not a scalar"}
		}
		return e.lookup(node, ref, e.ctx.This.Path+"."+rest)

	case NamespacePackage:
		if e.ctx.Package == nil {
			return target{kind: refOpen, cause: ref}, nil
		}
		v, ok := config.LookupOK(e.ctx.Package, rest)
		if !ok || rest == "" {
			return target{}, &UnresolvedReferenceError{Ref: ref, Node: node, Reason: "not bound in the package namespace"}
		}
		if !config.IsScalar(v) {
			return target{}, &UnresolvedReferenceError{Ref: ref, Node: node, Reason: "not a scalar"}
		}
		if v == nil {
			return target{}, &UnresolvedReferenceError{Ref: ref, Node: node, Reason: "is null"}
		}
		return target{kind: refConst, value: v}, nil
	}

	if rest == "" {
		if v, ok := e.tree[ref]; !ok || !config.IsScalar(v) {
			if _, flat := config.LookupOK(e.tree, flatNamespace+"."+ref); flat {
				return e.lookup(node, ref, flatNamespace+"."+ref)
			}
		}
	}
	return e.lookup(node, ref, ref)
}

func (e *evaluator) lookup(node, ref, path string) (target, error) {
	v, ok := config.LookupOK(e.tree, path)
	if !ok {
		return target{}, &UnresolvedReferenceError{Ref: ref, Node: node, Reason: fmt.Sprintf("path %s does not exist", path)}
	}
	if !config.IsScalar(v) {
		return target{}, &UnresolvedReferenceError{Ref: ref, Node: node, Reason: fmt.Sprintf("path %s is not a scalar", path)}
	}
	if v == nil {
		return target{}, &UnresolvedReferenceError{Ref: ref, Node: node, Reason: fmt.Sprintf("path %s is null", path)}
	}
	if _, templated := e.leaves[path]; templated {
		return target{kind: refNode, node: path}, nil
	}
	return target{kind: refConst, value: v}, nil
}

// order builds the dependency graph over paths and returns them with every
// dependency ahead of its dependents.
func (e *evaluator) order(paths []string) ([]string, error) {
	graph := dag.NewDirectedAcyclicGraph[string]()
	for _, p := range paths {
		if err := graph.AddVertex(p); err != nil {
			return nil, err
		}
	}
	for _, p := range paths {
		for _, t := range e.leaves[p].targets {
			if t.kind != refNode {
				continue
			}
			if err := graph.AddEdge(p, t.node); err != nil {
				return nil, asCycle(p, err)
			}
		}
	}

	order, err := graph.TopologicalSort()
	if err != nil {
		return nil, asCycle("", err)
	}

	// The sort does not reliably reject cycles, so every dependency must be
	// placed before its dependent.
	pos := make(map[string]int, len(order))
	for i, p := range order {
		pos[p] = i
	}
	for _, p := range order {
		for _, t := range e.leaves[p].targets {
			if t.kind == refNode && pos[t.node] >= pos[p] {
				paths := e.findCycle(p)
				if paths == nil {
					paths = []string{p, t.node}
				}
				return nil, &CycleError{Paths: paths}
			}
		}
	}
	return order, nil
}

// findCycle returns a reference loop reachable from start, first node
// repeated at the end, or nil if there is none.
func (e *evaluator) findCycle(start string) []string {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int)
	var stack []string

	var dfs func(string) []string
	dfs = func(p string) []string {
		state[p] = visiting
		stack = append(stack, p)
		if l, ok := e.leaves[p]; ok {
			for _, t := range l.targets {
				if t.kind != refNode {
					continue
				}
				switch state[t.node] {
				case visiting:
					i := slices.Index(stack, t.node)
					return append(slices.Clone(stack[i:]), t.node)
				case 0:
					if c := dfs(t.node); c != nil {
						return c
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[p] = done
		return nil
	}
	return dfs(start)
}

func asCycle(from string, err error) error {
	if errors.Is(err, dag.ErrSelfReference) {
		return &CycleError{Paths: []string{from, from}}
	}
	var ce *dag.CycleError
	if errors.As(err, &ce) {
		return &CycleError{Paths: ce.Cycle}
	}
	return err
}

// dependency returns the evaluated value of a templated scalar l refers to.
// A missing value means the evaluation order was broken by a cycle.
func (e *evaluator) dependency(l *leaf, node string) (Value, error) {
	v, ok := e.values[node]
	if !ok {
		paths := e.findCycle(l.path)
		if paths == nil {
			paths = []string{l.path, node}
		}
		return nil, &CycleError{Paths: paths}
	}
	return v, nil
}

// evaluate substitutes every placeholder of l. All of l's dependencies must
// have been evaluated already.
func (e *evaluator) evaluate(l *leaf) (Value, error) {
	if len(l.holders) == 1 && l.holders[0].Start == 0 && l.holders[0].End == len(l.raw) {
		t := l.targets[0]
		switch t.kind {
		case refConst:
			return Resolved{Value: t.value}, nil
		case refNode:
			return e.dependency(l, t.node)
		default:
			return Deferred{Text: l.raw, Causes: []string{t.cause}}, nil
		}
	}

	var (
		b      strings.Builder
		causes []string
		last   int
	)
	for i, h := range l.holders {
		b.WriteString(l.raw[last:h.Start])
		t := l.targets[i]
		switch t.kind {
		case refConst:
			b.WriteString(config.ScalarString(t.value))
		case refNode:
			v, err := e.dependency(l, t.node)
			if err != nil {
				return nil, err
			}
			switch dep := v.(type) {
			case Resolved:
				b.WriteString(config.ScalarString(dep.Value))
			case Deferred:
				b.WriteString(dep.Text)
				causes = append(causes, dep.Causes...)
			}
		case refOpen:
			b.WriteString(h.Raw)
			causes = append(causes, t.cause)
		}
		last = h.End
	}
	b.WriteString(l.raw[last:])

	if len(causes) > 0 {
		slices.Sort(causes)
		return Deferred{Text: b.String(), Causes: slices.Compact(causes)}, nil
	}
	return Resolved{Value: b.String()}, nil
}

func sortedLeafPaths(leaves map[string]*leaf) []string {
	paths := make([]string, 0, len(leaves))
	for p := range leaves {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

func inScope(path, scope string) bool {
	return scope == "" || path == scope || strings.HasPrefix(path, scope+".")
}
