package variant

import (
	"fmt"
	"strings"
	"time"
)

// UnknownVariantError is returned when build.variant has no such key.
type UnknownVariantError struct {
	Name  string
	Known []string
}

func (e *UnknownVariantError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown variant %q: no variants defined under build.variant", e.Name)
	}
	return fmt.Sprintf("unknown variant %q (defined: %s)", e.Name, strings.Join(e.Known, ", "))
}

// UnsupportedArchitectureError is returned when metadata.arch is outside
// SupportedArchitectures.
type UnsupportedArchitectureError struct {
	Variant   string
	Arch      string
	Supported []string
}

func (e *UnsupportedArchitectureError) Error() string {
	return fmt.Sprintf("variant %s: architecture %q is not supported (supported: %s)",
		e.Variant, e.Arch, strings.Join(e.Supported, ", "))
}

// InvalidVariantError is returned when a required variant field is missing,
// empty, or still open after resolution.
type InvalidVariantError struct {
	Name   string
	Field  string
	Reason string
}

func (e *InvalidVariantError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("variant %s: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("variant %s: %s %s", e.Name, e.Field, e.Reason)
}

// ExpiredSupportWarning is attached to a Variant whose support_until date has
// passed. It never fails selection.
type ExpiredSupportWarning struct {
	Variant      string
	SupportUntil time.Time
}

func (w *ExpiredSupportWarning) Error() string {
	return fmt.Sprintf("variant %s: support ended on %s", w.Variant, w.SupportUntil.Format("2006-01-02"))
}
