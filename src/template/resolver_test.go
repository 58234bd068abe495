package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytehawks/distillery/src/config"
)

func sampleTree() map[string]any {
	return map[string]any{
		"variables": map[string]any{
			"artifact_base_path": "/opt/bytehawks",
			"registry_url":       "harbor.bytehawks.org",
			"namespace":          "distillery",
			"timeout":            45,
		},
		"path": map[string]any{
			"base":      "{{ variables.artifact_base_path }}",
			"downloads": "{{ path.base }}/tmp",
			"sources":   "{{path.base}}/src",
			"build":     "{{ path.base }}/build",
			"generated": map[string]any{
				"libraries":    "{{ path.base }}/libs",
				"applications": "{{ path.base }}/apps/{{ package.name }}",
			},
		},
		"build": map[string]any{
			"type": map[string]any{
				"container": map[string]any{"image_basename": "builda-bar"},
			},
			"variant": map[string]any{
				"stable": map[string]any{
					"image": "{{ variables.registry_url }}/{{ variables.namespace }}/{{ build.type.container.image_basename }}:{{ this.name }}",
					"metadata": map[string]any{
						"alpine_version": "3.22",
						"arch":           "amd64",
					},
					"description": "Alpine {{ this.metadata.alpine_version }} on {{ this.metadata.arch }}",
				},
			},
		},
		"registry": map[string]any{
			"primary": map[string]any{
				"harbor": map[string]any{
					"username": "${HARBOR_USER}",
					"timeout":  "{{ variables.timeout }}",
				},
			},
		},
	}
}

func TestResolvePaths(t *testing.T) {
	res, err := Resolve(sampleTree(), BuildTime(map[string]any{"name": "openssl"}))
	require.NoError(t, err)

	assert.Equal(t, "/opt/bytehawks", config.Lookup(res.Tree, "path.base"))
	assert.Equal(t, "/opt/bytehawks/tmp", config.Lookup(res.Tree, "path.downloads"))
	assert.Equal(t, "/opt/bytehawks/src", config.Lookup(res.Tree, "path.sources"))
	assert.Equal(t, "/opt/bytehawks/build", config.Lookup(res.Tree, "path.build"))
	assert.Equal(t, "/opt/bytehawks/libs", config.Lookup(res.Tree, "path.generated.libraries"))
	assert.Equal(t, "/opt/bytehawks/apps/openssl", config.Lookup(res.Tree, "path.generated.applications"))
	assert.False(t, res.Deferred("path.generated.applications"))
}

func TestResolveStaticPassDefersPackage(t *testing.T) {
	tree := sampleTree()
	config.Lookup(tree, "path").(map[string]any)["bin"] = "{{ path.generated.applications }}/bin"

	res, err := Resolve(tree, Static())
	require.NoError(t, err)

	assert.Equal(t, "/opt/bytehawks/libs", config.Lookup(res.Tree, "path.generated.libraries"))
	assert.Equal(t, "/opt/bytehawks/apps/{{ package.name }}", config.Lookup(res.Tree, "path.generated.applications"))
	assert.Equal(t, "/opt/bytehawks/apps/{{ package.name }}/bin", config.Lookup(res.Tree, "path.bin"))

	v, ok := res.Value("path.bin")
	require.True(t, ok)
	d, isDeferred := v.(Deferred)
	require.True(t, isDeferred)
	assert.Equal(t, []string{"package.name"}, d.Causes)

	assert.Contains(t, res.Open, OpenPlaceholder{Node: "path.generated.applications", Ref: "package.name"})
	assert.Contains(t, res.Open, OpenPlaceholder{Node: "path.bin", Ref: "package.name"})
	assert.Contains(t, res.Open, OpenPlaceholder{Node: "build.variant.stable.image", Ref: "this.name"})
	for _, o := range res.Open {
		assert.Contains(t, []string{NamespacePackage, NamespaceThis}, o.Namespace())
	}
}

func TestResolveDoesNotMutateSource(t *testing.T) {
	tree := sampleTree()
	_, err := Resolve(tree, BuildTime(map[string]any{"name": "zlib"}))
	require.NoError(t, err)
	assert.Equal(t, sampleTree(), tree)
}

func TestResolveIsIdempotent(t *testing.T) {
	first, err := Resolve(sampleTree(), Static())
	require.NoError(t, err)

	second, err := Resolve(first.Tree, Static())
	require.NoError(t, err)

	assert.Equal(t, first.Tree, second.Tree)
	assert.Equal(t, first.Open, second.Open)
}

func TestResolveFullyResolvedTreeIsUnchanged(t *testing.T) {
	tree := map[string]any{
		"variables": map[string]any{"a": "x", "n": 3},
		"list":      []any{"one", "two"},
	}
	res, err := Resolve(tree, Static())
	require.NoError(t, err)
	assert.Equal(t, tree, res.Tree)
	assert.Empty(t, res.Open)
}

func TestResolveKeepsTypeOfWholePlaceholder(t *testing.T) {
	res, err := Resolve(sampleTree(), Static())
	require.NoError(t, err)
	assert.Equal(t, 45, config.Lookup(res.Tree, "registry.primary.harbor.timeout"))
}

func TestResolveLeavesEnvironmentSigils(t *testing.T) {
	res, err := Resolve(sampleTree(), Static())
	require.NoError(t, err)
	assert.Equal(t, "${HARBOR_USER}", config.Lookup(res.Tree, "registry.primary.harbor.username"))
}

func TestResolveFlatVariable(t *testing.T) {
	tree := map[string]any{
		"variables": map[string]any{"root": "/srv"},
		"path":      map[string]any{"base": "{{ root }}/dist"},
	}
	res, err := Resolve(tree, Static())
	require.NoError(t, err)
	assert.Equal(t, "/srv/dist", config.Lookup(res.Tree, "path.base"))
}

func TestResolveListElements(t *testing.T) {
	tree := map[string]any{
		"variables": map[string]any{"caps": []any{"NET_ADMIN", "{{ variables.extra }}"}, "extra": "SYS_PTRACE"},
		"first":     "{{ variables.caps.0 }}",
	}
	res, err := Resolve(tree, Static())
	require.NoError(t, err)
	assert.Equal(t, "NET_ADMIN", res.Tree["first"])
	assert.Equal(t, "SYS_PTRACE", config.Lookup(res.Tree, "variables.caps.1"))
}

func TestResolveCycle(t *testing.T) {
	tests := []struct {
		name string
		tree map[string]any
	}{
		{
			name: "two nodes",
			tree: map[string]any{"variables": map[string]any{
				"a": "{{ variables.b }}/x",
				"b": "{{ variables.a }}/y",
			}},
		},
		{
			name: "three nodes",
			tree: map[string]any{"variables": map[string]any{
				"a": "{{ variables.b }}",
				"b": "{{ variables.c }}",
				"c": "pre-{{ variables.a }}",
			}},
		},
		{
			name: "self reference",
			tree: map[string]any{"path": map[string]any{"base": "{{ path.base }}/x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Resolve(tt.tree, Static())
			require.Nil(t, res)

			var ce *CycleError
			require.ErrorAs(t, err, &ce)
			require.NotEmpty(t, ce.Paths)
			for _, p := range ce.Paths {
				_, ok := config.LookupOK(tt.tree, p)
				assert.True(t, ok, "cycle names unknown path %q", p)
			}
		})
	}
}

func TestResolveSubtreeWithThis(t *testing.T) {
	tree := sampleTree()
	res, err := ResolveSubtree(tree, Static().WithThis("stable", "build.variant.stable"), "build.variant.stable")
	require.NoError(t, err)
	assert.Equal(t, "harbor.bytehawks.org/distillery/builda-bar:stable", res.Tree["image"])
	assert.Equal(t, "Alpine 3.22 on amd64", res.Tree["description"])
}

func TestResolveSelfReferenceThroughThis(t *testing.T) {
	tree := map[string]any{"build": map[string]any{"variant": map[string]any{
		"edge": map[string]any{"image": "{{ this.image }}"},
	}}}
	_, err := ResolveSubtree(tree, Static().WithThis("edge", "build.variant.edge"), "build.variant.edge")
	var ce *CycleError
	require.ErrorAs(t, err, &ce)
}

func TestResolveUnresolvedReference(t *testing.T) {
	tests := []struct {
		name string
		tree map[string]any
		ctx  Context
		ref  string
		node string
	}{
		{
			name: "missing path",
			tree: map[string]any{"path": map[string]any{"base": "{{ variables.nope }}"}},
			ctx:  Static(),
			ref:  "variables.nope",
			node: "path.base",
		},
		{
			name: "mapping is not a scalar",
			tree: map[string]any{
				"variables": map[string]any{"nested": map[string]any{"a": "b"}},
				"x":         "{{ variables.nested }}",
			},
			ctx:  Static(),
			ref:  "variables.nested",
			node: "x",
		},
		{
			name: "unbound package key",
			tree: map[string]any{"x": "{{ package.version }}"},
			ctx:  BuildTime(map[string]any{"name": "zlib"}),
			ref:  "package.version",
			node: "x",
		},
		{
			name: "unknown namespace",
			tree: map[string]any{"x": "{{ secrets.token }}"},
			ctx:  Static(),
			ref:  "secrets.token",
			node: "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.tree, tt.ctx)
			var ue *UnresolvedReferenceError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, tt.ref, ue.Ref)
			assert.Equal(t, tt.node, ue.Node)
		})
	}
}

func TestResolveSubtreeIgnoresUnrelatedErrors(t *testing.T) {
	tree := sampleTree()
	tree["broken"] = map[string]any{"a": "{{ broken.b }}", "b": "{{ broken.a }}"}

	_, err := Resolve(tree, Static())
	require.Error(t, err)

	res, err := ResolveSubtree(tree, Static(), "path")
	require.NoError(t, err)
	assert.Equal(t, "/opt/bytehawks/tmp", res.Tree["downloads"])

	s, concrete := res.String("path.base")
	assert.True(t, concrete)
	assert.Equal(t, "/opt/bytehawks", s)
}

func TestResolveSubtreeMissingPath(t *testing.T) {
	_, err := ResolveSubtree(sampleTree(), Static(), "build.variant.edge")
	require.Error(t, err)
}

func TestResultValueOfLiteral(t *testing.T) {
	res, err := Resolve(sampleTree(), Static())
	require.NoError(t, err)

	v, ok := res.Value("variables.timeout")
	require.True(t, ok)
	assert.Equal(t, Resolved{Value: 45}, v)

	_, ok = res.Value("variables")
	assert.False(t, ok)
}

func TestResolveCycleNamesTheLoop(t *testing.T) {
	tree := map[string]any{"a": map[string]any{
		"x": "{{ a.y }}",
		"y": "{{ a.z }}",
		"z": "{{ a.x }}",
	}}
	_, err := Resolve(tree, Static())
	var ce *CycleError
	require.ErrorAs(t, err, &ce)
	require.Len(t, ce.Paths, 4)
	assert.Equal(t, ce.Paths[0], ce.Paths[3])
	assert.ElementsMatch(t, []string{"a.x", "a.y", "a.z"}, ce.Paths[:3])
}

func cyclicEvaluator(t *testing.T) *evaluator {
	t.Helper()
	e := &evaluator{
		tree:   map[string]any{},
		leaves: map[string]*leaf{},
		values: map[string]Value{},
	}
	for path, raw := range map[string]string{
		"variables.a": "{{ variables.b }}/x",
		"variables.b": "{{ variables.a }}",
	} {
		holders, err := Parse(path, raw)
		require.NoError(t, err)
		e.leaves[path] = &leaf{path: path, raw: raw, holders: holders}
	}
	e.leaves["variables.a"].targets = []target{{kind: refNode, node: "variables.b"}}
	e.leaves["variables.b"].targets = []target{{kind: refNode, node: "variables.a"}}
	return e
}

func TestEvaluateRejectsUnevaluatedDependency(t *testing.T) {
	e := cyclicEvaluator(t)

	for _, path := range []string{"variables.a", "variables.b"} {
		t.Run(path, func(t *testing.T) {
			_, err := e.evaluate(e.leaves[path])
			var ce *CycleError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, path, ce.Paths[0])
			assert.Equal(t, path, ce.Paths[len(ce.Paths)-1])
			assert.Contains(t, ce.Paths, "variables.a")
			assert.Contains(t, ce.Paths, "variables.b")
		})
	}
}

func TestFindCycleOnAcyclicGraph(t *testing.T) {
	e := cyclicEvaluator(t)
	e.leaves["variables.b"].targets = []target{{kind: refConst, value: "/opt"}}
	assert.Nil(t, e.findCycle("variables.a"))
}

func TestResultValueOutsideSubtree(t *testing.T) {
	res, err := ResolveSubtree(sampleTree(), Static(), "path")
	require.NoError(t, err)

	_, ok := res.Value("build.variant.stable.image")
	assert.False(t, ok)
	_, concrete := res.String("build.variant.stable.image")
	assert.False(t, concrete)

	v, ok := res.Value("variables.namespace")
	require.True(t, ok)
	assert.Equal(t, Resolved{Value: "distillery"}, v)
}

func TestResolveNullReference(t *testing.T) {
	tests := []struct {
		name string
		tree map[string]any
		ctx  Context
		ref  string
	}{
		{
			name: "tree value",
			tree: map[string]any{
				"variables": map[string]any{"x": nil},
				"v":         "v={{ variables.x }}",
			},
			ctx: Static(),
			ref: "variables.x",
		},
		{
			name: "package binding",
			tree: map[string]any{"v": "{{ package.name }}"},
			ctx:  BuildTime(map[string]any{"name": nil}),
			ref:  "package.name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.tree, tt.ctx)
			var ue *UnresolvedReferenceError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, tt.ref, ue.Ref)
			assert.Equal(t, "v", ue.Node)
			assert.Contains(t, ue.Reason, "null")
		})
	}
}
