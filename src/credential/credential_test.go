package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(env map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
}

func TestResolve(t *testing.T) {
	p := NewProvider(mapLookup(map[string]string{"HARBOR_USER": "robot$ci", "EMPTY": ""}))

	tests := []struct {
		field string
		want  string
	}{
		{field: "admin", want: "admin"},
		{field: "${HARBOR_USER}", want: "robot$ci"},
		{field: "${EMPTY}", want: ""},
		{field: "prefix-${HARBOR_USER}", want: "prefix-${HARBOR_USER}"},
		{field: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, err := p.Resolve(tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveMissing(t *testing.T) {
	p := NewProvider(mapLookup(nil))
	_, err := p.Resolve("${NEXUS_PASSWORD}")

	var me *MissingEnvironmentVariableError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "NEXUS_PASSWORD", me.Name)
}

func TestResolveReadsAtCallTime(t *testing.T) {
	env := map[string]string{}
	p := NewProvider(mapLookup(env))

	_, err := p.Resolve("${TOKEN}")
	require.Error(t, err)

	env["TOKEN"] = "abc"
	got, err := p.Resolve("${TOKEN}")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
}

func TestResolveProcessEnvironment(t *testing.T) {
	t.Setenv("DISTILLERY_TEST_SECRET", "s3cret")
	var p Provider
	got, err := p.Resolve("${DISTILLERY_TEST_SECRET}")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)
}

func TestResolveSet(t *testing.T) {
	p := NewProvider(mapLookup(map[string]string{"U": "user", "P": "pass"}))

	got, err := p.ResolveSet(map[string]string{"username": "${U}", "password": "${P}", "token": ""})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"username": "user", "password": "pass"}, got)

	_, err = p.ResolveSet(map[string]string{"username": "${U}", "password": "${MISSING}"})
	var me *MissingEnvironmentVariableError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "MISSING", me.Name)
	assert.Equal(t, "password", me.Field)
}

func TestReference(t *testing.T) {
	name, ok := Reference("${A_1}")
	assert.True(t, ok)
	assert.Equal(t, "A_1", name)

	_, ok = Reference("${A}${B}")
	assert.False(t, ok)
	_, ok = Reference("$A")
	assert.False(t, ok)
}
