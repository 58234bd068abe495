package variant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytehawks/distillery/src/template"
)

func testTree() map[string]any {
	return map[string]any{
		"variables": map[string]any{
			"registry_url":       "harbor.bytehawks.org",
			"registry_namespace": "distillery",
		},
		"defaults": map[string]any{
			"build": map[string]any{"variant": "stable", "arch": "amd64"},
		},
		"build": map[string]any{
			"type": map[string]any{
				"container": map[string]any{"image_basename": "builda-bar"},
			},
			"variant": map[string]any{
				"stable": map[string]any{
					"image": "{{ variables.registry_url }}/{{ variables.registry_namespace }}/{{ build.type.container.image_basename }}:{{ this.name }}",
					"metadata": map[string]any{
						"alpine_version": "3.22",
						"arch":           "amd64",
					},
					"description":   "Alpine {{ this.metadata.alpine_version }}",
					"support_until": "2027-05-01",
				},
				"edge": map[string]any{
					"image":         "{{ variables.registry_url }}/{{ variables.registry_namespace }}/builda-bar:{{ this.name }}",
					"support_until": "rolling",
				},
				"legacy": map[string]any{
					"image":         "harbor.bytehawks.org/distillery/builda-bar:3.18",
					"support_until": "2024-01-31",
				},
				"arm": map[string]any{
					"image":    "harbor.bytehawks.org/distillery/builda-bar:arm",
					"metadata": map[string]any{"arch": "arm64"},
				},
				"nightly": map[string]any{
					"image": "harbor.bytehawks.org/distillery/{{ package.name }}:nightly",
				},
				"blank": map[string]any{
					"image": "",
				},
			},
		},
	}
}

func fixedClock(day string) func() time.Time {
	return func() time.Time {
		t, _ := time.Parse("2006-01-02 15:04", day)
		return t
	}
}

func TestSelectStable(t *testing.T) {
	s := NewSelector(testTree(), WithClock(fixedClock("2026-10-16 12:00")))

	v, err := s.Select("stable")
	require.NoError(t, err)
	assert.Equal(t, "stable", v.Name)
	assert.Equal(t, "harbor.bytehawks.org/distillery/builda-bar:stable", v.Image)
	assert.Equal(t, "Alpine 3.22", v.Description)
	assert.Equal(t, "amd64", v.Arch)
	assert.Equal(t, "3.22", v.Metadata["alpine_version"])
	assert.Empty(t, v.Warnings)
	assert.False(t, v.Expired())
}

func TestSelectDefault(t *testing.T) {
	v, err := NewSelector(testTree()).Select("")
	require.NoError(t, err)
	assert.Equal(t, "stable", v.Name)
}

func TestSelectDefaultsArchWhenMetadataMissing(t *testing.T) {
	v, err := NewSelector(testTree()).Select("edge")
	require.NoError(t, err)
	assert.Equal(t, "amd64", v.Arch)
	assert.Equal(t, "harbor.bytehawks.org/distillery/builda-bar:edge", v.Image)
}

func TestSelectUnknown(t *testing.T) {
	_, err := NewSelector(testTree()).Select("experimental")

	var ue *UnknownVariantError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "experimental", ue.Name)
	assert.Equal(t, []string{"arm", "blank", "edge", "legacy", "nightly", "stable"}, ue.Known)
}

func TestSelectUnsupportedArchitecture(t *testing.T) {
	_, err := NewSelector(testTree()).Select("arm")

	var ae *UnsupportedArchitectureError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "arm64", ae.Arch)
}

func TestSelectImageMustBeConcrete(t *testing.T) {
	s := NewSelector(testTree())

	_, err := s.Select("nightly")
	var ie *InvalidVariantError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "image", ie.Field)

	_, err = s.Select("blank")
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "blank", ie.Name)
}

func TestSelectWithPackage(t *testing.T) {
	s := NewSelector(testTree(), WithPackage(map[string]any{"name": "openssl"}))
	v, err := s.Select("nightly")
	require.NoError(t, err)
	assert.Equal(t, "harbor.bytehawks.org/distillery/openssl:nightly", v.Image)
}

func TestSelectSupportExpiry(t *testing.T) {
	tests := []struct {
		name    string
		variant string
		today   string
		expired bool
	}{
		{name: "past date", variant: "legacy", today: "2026-10-16 00:00", expired: true},
		{name: "last supported day", variant: "legacy", today: "2024-01-31 23:59", expired: false},
		{name: "day after", variant: "legacy", today: "2024-02-01 00:00", expired: true},
		{name: "future date", variant: "stable", today: "2026-10-16 00:00", expired: false},
		{name: "rolling", variant: "edge", today: "2099-01-01 00:00", expired: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewSelector(testTree(), WithClock(fixedClock(tt.today))).Select(tt.variant)
			require.NoError(t, err)
			assert.Equal(t, tt.expired, v.Expired())
		})
	}
}

func TestSelectExpiredWarningDetail(t *testing.T) {
	v, err := NewSelector(testTree(), WithClock(fixedClock("2026-10-16 00:00"))).Select("legacy")
	require.NoError(t, err)
	require.Len(t, v.Warnings, 1)

	var w *ExpiredSupportWarning
	require.ErrorAs(t, v.Warnings[0], &w)
	assert.Equal(t, "legacy", w.Variant)
	assert.Equal(t, "2024-01-31", w.SupportUntil.Format("2006-01-02"))
}

func TestSelectPropagatesResolverErrors(t *testing.T) {
	tree := testTree()
	tree["build"].(map[string]any)["variant"].(map[string]any)["loop"] = map[string]any{
		"image": "{{ this.image }}",
	}
	_, err := NewSelector(tree).Select("loop")

	var ce *template.CycleError
	require.ErrorAs(t, err, &ce)
}

func TestSelectorDoesNotModifyTree(t *testing.T) {
	tree := testTree()
	_, err := NewSelector(tree).Select("stable")
	require.NoError(t, err)
	assert.Equal(t, testTree(), tree)
}
