package registry

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/bytehawks/distillery/src/target"
)

// Validation regexes based on OCI Distribution Spec.
var (
	// OCI repository path: lowercase, digits, separators (-, _, ., /), max 256 chars.
	ociPathRe = regexp.MustCompile(`^[a-z0-9]+(?:[._-][a-z0-9]+)*(?:/[a-z0-9]+(?:[._-][a-z0-9]+)*)*$`)

	// S3 bucket names: 3-63 lowercase letters, digits, dots and hyphens.
	bucketRe = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)
)

// Known transport values (canonical + aliases).
var knownTransports = map[string]bool{
	"harbor":    true,
	"ghcr":      true,
	"github":    true, // alias → ghcr
	"docker":    true,
	"dockerhub": true, // alias → docker
	"generic":   true,
	"nexus":     true,
	"s3":        true,
	"":          true, // empty = generic
}

// ValidateNamespace checks that a registry namespace conforms to OCI spec.
func ValidateNamespace(ns string) error {
	if ns == "" {
		return fmt.Errorf("namespace is empty")
	}
	if containsControlChars(ns) {
		return fmt.Errorf("namespace %q contains control characters", ns)
	}
	if len(ns) > 256 {
		return fmt.Errorf("namespace %q exceeds 256 characters", ns)
	}
	if !ociPathRe.MatchString(ns) {
		return fmt.Errorf("namespace %q contains invalid characters (OCI spec: lowercase, digits, -, _, ., /)", ns)
	}
	return nil
}

// ValidateBucket checks an S3 bucket name.
func ValidateBucket(bucket string) error {
	if !bucketRe.MatchString(bucket) || strings.Contains(bucket, "..") {
		return fmt.Errorf("bucket %q is not a valid S3 bucket name", bucket)
	}
	return nil
}

// CanonicalTransport normalizes a transport string to its canonical form and
// validates it.
func CanonicalTransport(t string) (string, error) {
	if !knownTransports[strings.ToLower(strings.TrimSpace(t))] {
		return "", fmt.Errorf("unknown transport %q (valid: harbor, ghcr, docker, generic, nexus, s3)", t)
	}
	return NormalizeTransport(t), nil
}

// Validate runs all checks against a target that do not need the network.
// Returns all errors found (not just the first).
func Validate(t target.Target) []error {
	var errs []error

	transport, err := CanonicalTransport(t.Transport)
	if err != nil {
		errs = append(errs, err)
	}
	switch transport {
	case target.TransportS3:
		if err := ValidateBucket(t.Bucket); err != nil {
			errs = append(errs, err)
		}
	case target.TransportNexus:
		if t.URL == "" {
			errs = append(errs, fmt.Errorf("url is empty"))
		} else if _, _, err := splitURL(t.URL); err != nil {
			errs = append(errs, err)
		}
		if t.Repository == "" {
			errs = append(errs, fmt.Errorf("repository is empty"))
		}
	default:
		if _, _, err := splitURL(t.URL); err != nil {
			errs = append(errs, err)
		}
		if err := ValidateNamespace(t.Namespace); err != nil {
			errs = append(errs, err)
		}
	}
	if t.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be > 0, got %s", t.Timeout))
	}
	if t.Retry < 0 {
		errs = append(errs, fmt.Errorf("retry must be >= 0, got %d", t.Retry))
	}
	return errs
}

// containsControlChars returns true if the string has any ASCII control characters.
func containsControlChars(s string) bool {
	for _, r := range s {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
		if r == unicode.ReplacementChar {
			return true
		}
	}
	return false
}
