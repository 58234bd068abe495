package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodeTree() map[string]any {
	return map[string]any{
		"a": map[string]any{
			"b": []any{
				map[string]any{"c": "first"},
				"second",
			},
			"empty": nil,
		},
		"n": 7,
	}
}

func TestLookup(t *testing.T) {
	tree := nodeTree()

	tests := []struct {
		path string
		want any
		ok   bool
	}{
		{"n", 7, true},
		{"a.b.0.c", "first", true},
		{"a.b.1", "second", true},
		{"a.empty", nil, true},
		{"a.b.2", nil, false},
		{"a.b.x", nil, false},
		{"a.missing", nil, false},
		{"n.deeper", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := LookupOK(tree, tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, tree, Lookup(tree, ""))
}

func TestScalarString(t *testing.T) {
	assert.Equal(t, "", ScalarString(nil))
	assert.Equal(t, "true", ScalarString(true))
	assert.Equal(t, "45", ScalarString(45))
	assert.Equal(t, "3.22", ScalarString(3.22))
	assert.Equal(t, "x", ScalarString("x"))
}

func TestCloneIsDeep(t *testing.T) {
	tree := nodeTree()
	cp := Clone(tree).(map[string]any)
	require.NoError(t, Set(cp, "a.b.0.c", "changed"))
	require.NoError(t, Set(cp, "a.b.1", "changed"))

	assert.Equal(t, "first", Lookup(tree, "a.b.0.c"))
	assert.Equal(t, "second", Lookup(tree, "a.b.1"))
}

func TestNormalize(t *testing.T) {
	got := Normalize(map[string]any{
		"m":    map[any]any{1: int64(2)},
		"list": []map[string]any{{"u": uint64(3)}},
	})
	assert.Equal(t, map[string]any{
		"m":    map[string]any{"1": 2},
		"list": []any{map[string]any{"u": 3}},
	}, got)
}

func TestWalkOrder(t *testing.T) {
	var paths []string
	Walk(nodeTree(), func(path string, _ any) {
		paths = append(paths, path)
	})
	assert.Equal(t, []string{"a.b.0.c", "a.b.1", "a.empty", "n"}, paths)
}

func TestSetErrors(t *testing.T) {
	tree := nodeTree()
	assert.Error(t, Set(tree, "x.y", 1))
	assert.Error(t, Set(tree, "a.b.5", 1))
	assert.Error(t, Set(tree, "n.x", 1))
}
