package config

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

var (
	// Credential fields hold a literal or exactly one ${NAME}; nothing in between.
	envPlaceholderRe = regexp.MustCompile(`^\$\{[A-Za-z_][A-Za-z0-9_]*\}$`)

	tmpfsSizeRe = regexp.MustCompile(`^\d+[kmg]$`)
)

var (
	validRuntimes      = map[string]bool{"docker": true, "podman": true}
	validPullPolicies  = map[string]bool{"always": true, "if-not-present": true, "never": true}
	validLogLevels     = map[string]bool{"DEBUG": true, "INFO": true, "WARNING": true, "ERROR": true}
	validLogFormats    = map[string]bool{"json": true, "text": true}
	validLogOutputs    = map[string]bool{"stdout": true, "file": true}
	validRegistryTypes = map[string]bool{"": true, "harbor": true, "ghcr": true, "github": true, "docker": true, "generic": true}
)

// SupportRolling is the support_until sentinel for variants that never expire.
const SupportRolling = "rolling"

// SupportDateLayout is the layout of a dated support_until value.
const SupportDateLayout = "2006-01-02"

// Validate checks structural invariants of a loaded document.
// Returns warnings (soft issues) and a hard error if the document is invalid.
// Placeholders are not expanded here; fields that still carry {{ }} text are
// checked only where the check does not depend on their value.
func Validate(doc *Document) (warnings []string, err error) {
	var errs []string

	// ── Envelope ──────────────────────────────────────────────────────────

	if doc.Version == "" {
		errs = append(errs, "version: is required")
	} else if _, verr := semver.StrictNewVersion(doc.Version); verr != nil {
		errs = append(errs, fmt.Sprintf("version: %q is not a semantic version (X.Y.Z)", doc.Version))
	}
	if doc.Schema != SchemaName {
		errs = append(errs, fmt.Sprintf("schema: must be %q, got %q", SchemaName, doc.Schema))
	}

	s, derr := Decode(doc.Config)
	if derr != nil {
		errs = append(errs, derr.Error())
		return warnings, fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	// ── Option ────────────────────────────────────────────────────────────

	if u := s.Option.BuildUser; u != nil {
		if u.Name == "" {
			errs = append(errs, "option.build_user: name is required")
		}
		if u.UID < 1000 {
			errs = append(errs, fmt.Sprintf("option.build_user: uid must be >= 1000, got %d", u.UID))
		}
		if u.GID < 1000 {
			errs = append(errs, fmt.Sprintf("option.build_user: gid must be >= 1000, got %d", u.GID))
		}
	}
	if rt := s.Option.Runtime; rt != nil && rt.Tmpfs.Size != "" && !isTemplated(rt.Tmpfs.Size) {
		if !tmpfsSizeRe.MatchString(rt.Tmpfs.Size) {
			errs = append(errs, fmt.Sprintf("option.runtime.tmpfs: size %q must match <n>[kmg]", rt.Tmpfs.Size))
		}
	}

	// ── Build ─────────────────────────────────────────────────────────────

	c := s.Build.Type.Container
	if !validRuntimes[c.Runtime] {
		errs = append(errs, fmt.Sprintf("build.type.container: unknown runtime %q (supported: docker, podman)", c.Runtime))
	}
	if !validPullPolicies[c.PullPolicy] {
		errs = append(errs, fmt.Sprintf("build.type.container: unknown pull_policy %q (supported: always, if-not-present, never)", c.PullPolicy))
	}

	for _, name := range sortedNames(s.Build.Variant) {
		v := s.Build.Variant[name]
		vpath := "build.variant." + name
		if v.Image == "" {
			errs = append(errs, fmt.Sprintf("%s: image is required", vpath))
		}
		if v.SupportUntil != "" && v.SupportUntil != SupportRolling && !isTemplated(v.SupportUntil) {
			if _, perr := time.Parse(SupportDateLayout, v.SupportUntil); perr != nil {
				warnings = append(warnings, fmt.Sprintf("%s: support_until %q is neither a date (YYYY-MM-DD) nor %q", vpath, v.SupportUntil, SupportRolling))
			}
		}
	}
	if len(s.Build.Variant) > 0 {
		if _, ok := s.Build.Variant[s.Defaults.Build.Variant]; !ok && !isTemplated(s.Defaults.Build.Variant) {
			errs = append(errs, fmt.Sprintf("defaults.build: variant %q is not defined under build.variant", s.Defaults.Build.Variant))
		}
	}

	// ── Registry ──────────────────────────────────────────────────────────

	errs = append(errs, validateStrategy("registry", s.Registry.Strategy, len(s.Registry.Primary))...)
	for _, role := range []struct {
		name      string
		endpoints map[string]RegistryEndpoint
	}{{"primary", s.Registry.Primary}, {"fallback", s.Registry.Fallback}} {
		for _, name := range sortedNames(role.endpoints) {
			errs = append(errs, validateRegistry(fmt.Sprintf("registry.%s.%s", role.name, name), role.endpoints[name])...)
		}
	}

	// ── Repository ────────────────────────────────────────────────────────

	errs = append(errs, validateStrategy("repository", s.Repository.Strategy, len(s.Repository.Primary))...)
	for _, role := range []struct {
		name      string
		endpoints map[string]RepositoryEndpoint
	}{{"primary", s.Repository.Primary}, {"fallback", s.Repository.Fallback}} {
		for _, name := range sortedNames(role.endpoints) {
			errs = append(errs, validateRepository(fmt.Sprintf("repository.%s.%s", role.name, name), role.endpoints[name])...)
		}
	}

	// ── Logging ───────────────────────────────────────────────────────────

	if !validLogLevels[strings.ToUpper(s.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("logging: unknown level %q (supported: DEBUG, INFO, WARNING, ERROR)", s.Logging.Level))
	}
	if !validLogFormats[s.Logging.Format] {
		errs = append(errs, fmt.Sprintf("logging: unknown format %q (supported: json, text)", s.Logging.Format))
	}
	if !validLogOutputs[s.Logging.Output] {
		errs = append(errs, fmt.Sprintf("logging: unknown output %q (supported: stdout, file)", s.Logging.Output))
	} else if s.Logging.Output == "file" && s.Logging.File == "" {
		errs = append(errs, "logging: output file requires file")
	}

	if s.GitHub.Token != "" && !isCredentialField(s.GitHub.Token) {
		errs = append(errs, "github.token: must be a literal or a single ${ENV_VAR} placeholder")
	}

	// ── Secrets ───────────────────────────────────────────────────────────

	if len(doc.raw) > 0 {
		findings, serr := ScanSecrets(doc.raw)
		if serr != nil {
			warnings = append(warnings, fmt.Sprintf("secret scan skipped: %v", serr))
		}
		warnings = append(warnings, findings...)
	}

	if len(errs) > 0 {
		return warnings, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return warnings, nil
}

func validateStrategy(section string, strategy Strategy, primaries int) []string {
	var errs []string
	if !IsStrategy(strategy) {
		known := StrategyNames()
		names := make([]string, 0, len(known))
		for _, n := range known {
			names = append(names, string(n))
		}
		errs = append(errs, fmt.Sprintf("%s: unknown strategy %q (supported: %s)", section, strategy, strings.Join(names, ", ")))
	}
	if primaries == 0 {
		errs = append(errs, fmt.Sprintf("%s: at least one primary endpoint is required", section))
	}
	return errs
}

func validateRegistry(path string, ep RegistryEndpoint) []string {
	var errs []string

	if !validRegistryTypes[ep.Type] {
		errs = append(errs, fmt.Sprintf("%s: unknown type %q (supported: harbor, ghcr, docker, generic)", path, ep.Type))
	}
	if ep.URL == "" {
		errs = append(errs, fmt.Sprintf("%s: url is required", path))
	} else if !isTemplated(ep.URL) {
		if uerr := ValidateURL(ep.URL); uerr != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", path, uerr))
		}
	}
	if ep.Namespace == "" {
		errs = append(errs, fmt.Sprintf("%s: namespace is required", path))
	}
	errs = append(errs, validateBudget(path, ep.Timeout, ep.Retries())...)
	errs = append(errs, validateCredentials(path, map[string]string{
		"username": ep.Username,
		"password": ep.Password,
		"token":    ep.Token,
	})...)
	return errs
}

func validateRepository(path string, ep RepositoryEndpoint) []string {
	var errs []string

	switch ep.Type {
	case "nexus":
		if ep.URL == "" {
			errs = append(errs, fmt.Sprintf("%s: type nexus requires url", path))
		} else if !isTemplated(ep.URL) {
			if uerr := ValidateURL(ep.URL); uerr != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", path, uerr))
			}
		}
		if ep.Repository == "" {
			errs = append(errs, fmt.Sprintf("%s: type nexus requires repository", path))
		}
		if ep.Bucket != "" || ep.AccessKey != "" || ep.SecretKey != "" {
			errs = append(errs, fmt.Sprintf("%s: bucket/access_key/secret_key are not valid for type nexus", path))
		}
	case "s3":
		if ep.Bucket == "" {
			errs = append(errs, fmt.Sprintf("%s: type s3 requires bucket", path))
		}
		if ep.Region == "" {
			errs = append(errs, fmt.Sprintf("%s: type s3 requires region", path))
		}
		if ep.Endpoint != "" && !isTemplated(ep.Endpoint) {
			if uerr := ValidateURL(ep.Endpoint); uerr != nil {
				errs = append(errs, fmt.Sprintf("%s: endpoint: %v", path, uerr))
			}
		}
		if ep.Repository != "" || ep.Username != "" || ep.Password != "" {
			errs = append(errs, fmt.Sprintf("%s: repository/username/password are not valid for type s3", path))
		}
	default:
		errs = append(errs, fmt.Sprintf("%s: unknown type %q (supported: nexus, s3)", path, ep.Type))
	}

	errs = append(errs, validateBudget(path, ep.Timeout, ep.Retries())...)
	errs = append(errs, validateCredentials(path, map[string]string{
		"username":   ep.Username,
		"password":   ep.Password,
		"access_key": ep.AccessKey,
		"secret_key": ep.SecretKey,
	})...)
	return errs
}

func validateBudget(path string, timeout, retry int) []string {
	var errs []string
	if timeout <= 0 {
		errs = append(errs, fmt.Sprintf("%s: timeout must be > 0, got %d", path, timeout))
	}
	if retry < 0 {
		errs = append(errs, fmt.Sprintf("%s: retry must be >= 0, got %d", path, retry))
	}
	return errs
}

func validateCredentials(path string, fields map[string]string) []string {
	var errs []string
	for _, name := range []string{"username", "password", "token", "access_key", "secret_key"} {
		v, ok := fields[name]
		if !ok || v == "" {
			continue
		}
		if !isCredentialField(v) {
			errs = append(errs, fmt.Sprintf("%s: %s must be a literal or a single ${ENV_VAR} placeholder", path, name))
		}
	}
	return errs
}

// isCredentialField reports whether v is either fully literal or exactly one
// ${NAME} placeholder.
func isCredentialField(v string) bool {
	if !strings.Contains(v, "${") {
		return true
	}
	return envPlaceholderRe.MatchString(v)
}

func isTemplated(v string) bool {
	return strings.Contains(v, "{{")
}

// ValidateURL checks that an endpoint URL is well-formed.
// Rejects strings with spaces, control characters, or invalid structure.
func ValidateURL(u string) error {
	if u == "" {
		return fmt.Errorf("url is empty")
	}
	for _, r := range u {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("url %q contains control characters", u)
		}
	}
	if strings.ContainsAny(u, " \t\n\r") {
		return fmt.Errorf("url %q contains whitespace", u)
	}

	host := u
	if idx := strings.Index(host, "://"); idx >= 0 {
		scheme := host[:idx]
		if scheme != "http" && scheme != "https" {
			return fmt.Errorf("url %q has invalid scheme %q (expected http or https)", u, scheme)
		}
		host = host[idx+3:]
	}
	if idx := strings.IndexByte(host, '/'); idx >= 0 {
		host = host[:idx]
	}
	if host == "" {
		return fmt.Errorf("url %q has empty host", u)
	}
	if strings.ContainsAny(host, "{}[]<>\"'`") {
		return fmt.Errorf("url %q has invalid host characters", u)
	}
	return nil
}

func sortedNames[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
