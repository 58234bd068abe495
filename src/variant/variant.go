// Package variant selects a named build variant from build.variant and
// resolves it with this bound to that entry.
package variant

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bytehawks/distillery/src/config"
	"github.com/bytehawks/distillery/src/template"
)

const variantsPath = "build.variant"

// SupportedArchitectures is the allow-list for metadata.arch.
var SupportedArchitectures = []string{"amd64"}

const (
	fallbackVariant = "stable"
	fallbackArch    = "amd64"
)

// Variant is a fully resolved build variant.
type Variant struct {
	Name        string
	Image       string
	Description string
	Arch        string
	// SupportUntil is the raw value: a date, "rolling", or free text.
	SupportUntil string
	Metadata     map[string]any
	// Warnings are advisory; today only *ExpiredSupportWarning.
	Warnings []error
}

// Expired reports whether the variant carries an expired-support warning.
func (v *Variant) Expired() bool {
	for _, w := range v.Warnings {
		if _, ok := w.(*ExpiredSupportWarning); ok {
			return true
		}
	}
	return false
}

// Selector picks variants out of a configuration tree.
type Selector struct {
	tree map[string]any
	pkg  map[string]any
	now  func() time.Time
}

// Option configures a Selector.
type Option func(*Selector)

// WithPackage binds the package namespace, so variants referencing
// package.* resolve instead of failing as deferred.
func WithPackage(pkg map[string]any) Option {
	return func(s *Selector) { s.pkg = pkg }
}

// WithClock replaces time.Now for support expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Selector) { s.now = now }
}

// NewSelector returns a Selector over tree. The tree is read, never modified.
func NewSelector(tree map[string]any, opts ...Option) *Selector {
	s := &Selector{tree: tree, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// List returns the defined variant names, sorted.
func (s *Selector) List() []string {
	variants, _ := config.Lookup(s.tree, variantsPath).(map[string]any)
	return config.SortedKeys(variants)
}

// Default returns defaults.build.variant, or "stable".
func (s *Selector) Default() string {
	if v, ok := config.LookupOK(s.tree, "defaults.build.variant"); ok && v != nil {
		if name := config.ScalarString(v); name != "" {
			return name
		}
	}
	return fallbackVariant
}

// Select resolves the named variant. An empty name selects the default.
func (s *Selector) Select(name string) (*Variant, error) {
	if name == "" {
		name = s.Default()
	}
	known := s.List()
	if !slices.Contains(known, name) {
		return nil, &UnknownVariantError{Name: name, Known: known}
	}
	if _, isMap := config.Lookup(s.tree, variantsPath+"."+name).(map[string]any); !isMap {
		return nil, &InvalidVariantError{Name: name, Field: "", Reason: "entry is not a mapping"}
	}

	path := variantsPath + "." + name
	ctx := template.Static()
	if s.pkg != nil {
		ctx = template.BuildTime(s.pkg)
	}
	res, err := template.ResolveSubtree(s.tree, ctx.WithThis(name, path), path)
	if err != nil {
		return nil, fmt.Errorf("resolving variant %s: %w", name, err)
	}

	v := &Variant{Name: name}
	if v.Image, err = requiredString(res, name, "image"); err != nil {
		return nil, err
	}
	v.Description, _ = res.String(path + ".description")
	v.Metadata, _ = res.Tree["metadata"].(map[string]any)

	v.Arch = s.defaultArch()
	if a, ok := v.Metadata["arch"]; ok && a != nil {
		v.Arch = config.ScalarString(a)
	}
	if !slices.Contains(SupportedArchitectures, v.Arch) {
		return nil, &UnsupportedArchitectureError{Variant: name, Arch: v.Arch, Supported: SupportedArchitectures}
	}

	v.SupportUntil, _ = res.String(path + ".support_until")
	if w := s.checkSupport(name, v.SupportUntil); w != nil {
		v.Warnings = append(v.Warnings, w)
	}
	return v, nil
}

func (s *Selector) defaultArch() string {
	if v, ok := config.LookupOK(s.tree, "defaults.build.arch"); ok && v != nil {
		if arch := config.ScalarString(v); arch != "" {
			return arch
		}
	}
	return fallbackArch
}

// checkSupport flags a dated support_until strictly before today (UTC).
// "rolling" and values that are not dates never expire.
func (s *Selector) checkSupport(name, until string) *ExpiredSupportWarning {
	if until == "" || until == config.SupportRolling {
		return nil
	}
	end, err := time.Parse(config.SupportDateLayout, until)
	if err != nil {
		return nil
	}
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if end.Before(today) {
		return &ExpiredSupportWarning{Variant: name, SupportUntil: end}
	}
	return nil
}

func requiredString(res *template.Result, name, field string) (string, error) {
	path := variantsPath + "." + name + "." + field
	v, ok := res.Value(path)
	if !ok {
		return "", &InvalidVariantError{Name: name, Field: field, Reason: "is required"}
	}
	switch val := v.(type) {
	case template.Deferred:
		return "", &InvalidVariantError{Name: name, Field: field,
			Reason: fmt.Sprintf("depends on unbound %s", strings.Join(val.Causes, ", "))}
	case template.Resolved:
		s := config.ScalarString(val.Value)
		if s == "" {
			return "", &InvalidVariantError{Name: name, Field: field, Reason: "is empty"}
		}
		return s, nil
	}
	return "", &InvalidVariantError{Name: name, Field: field, Reason: "is required"}
}
