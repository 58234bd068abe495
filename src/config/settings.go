package config

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Settings is the typed view of a configuration tree. It is decoded from a
// resolved tree; fields that were deferred to build time still carry their
// placeholder text.
type Settings struct {
	Variables  map[string]any    `yaml:"variables"`
	Defaults   DefaultsConfig    `yaml:"defaults"`
	Path       PathConfig        `yaml:"path"`
	Option     OptionConfig      `yaml:"option"`
	Build      BuildConfig       `yaml:"build"`
	Registry   RegistrySection   `yaml:"registry"`
	Repository RepositorySection `yaml:"repository"`
	Logging    LoggingConfig     `yaml:"logging"`
	GitHub     GitHubConfig      `yaml:"github"`
}

// DefaultsConfig holds the values used when a build request leaves them unset.
type DefaultsConfig struct {
	Build     BuildDefaults     `yaml:"build"`
	Packaging PackagingDefaults `yaml:"packaging"`
}

type BuildDefaults struct {
	Variant          string `yaml:"variant"`
	Arch             string `yaml:"arch"`
	CleanupOnSuccess bool   `yaml:"cleanup_on_success"`
	CleanupOnFailure bool   `yaml:"cleanup_on_failure"`
}

type PackagingDefaults struct {
	Format            string `yaml:"format"`
	GenerateChecksum  bool   `yaml:"generate_checksum"`
	GenerateSBOM      bool   `yaml:"generate_sbom"`
	GenerateSignature bool   `yaml:"generate_signature"`
}

// PathConfig is the filesystem layout handed to the build collaborators.
type PathConfig struct {
	Base      string         `yaml:"base"`
	Downloads string         `yaml:"downloads"`
	Sources   string         `yaml:"sources"`
	Build     string         `yaml:"build"`
	Generated GeneratedPaths `yaml:"generated"`
}

type GeneratedPaths struct {
	Libraries    string `yaml:"libraries"`
	Applications string `yaml:"applications"`
}

// ExpandHome replaces a leading ~ in a path with the user's home directory.
func ExpandHome(path string) (string, error) {
	return homedir.Expand(path)
}

// expandHome expands ~ in every concrete path. Values still carrying
// placeholders are expanded once they resolve.
func (p *PathConfig) expandHome() error {
	for _, f := range []*string{
		&p.Base, &p.Downloads, &p.Sources, &p.Build,
		&p.Generated.Libraries, &p.Generated.Applications,
	} {
		if isTemplated(*f) {
			continue
		}
		v, err := homedir.Expand(*f)
		if err != nil {
			return fmt.Errorf("path: %q: %w", *f, err)
		}
		*f = v
	}
	return nil
}

// OptionConfig carries build container options.
type OptionConfig struct {
	BuildUser *BuildUser     `yaml:"build_user,omitempty"`
	Runtime   *RuntimeConfig `yaml:"runtime,omitempty"`
}

// BuildUser is the unprivileged account builds run as.
type BuildUser struct {
	Name    string `yaml:"name"`
	Group   string `yaml:"group"`
	UID     int    `yaml:"uid"`
	GID     int    `yaml:"gid"`
	Homedir string `yaml:"homedir"`
	Shell   string `yaml:"shell"`
}

type RuntimeConfig struct {
	Tmpfs    TmpfsConfig    `yaml:"tmpfs"`
	Fakeroot FakerootConfig `yaml:"fakeroot"`
	Security SecurityConfig `yaml:"security"`
}

type TmpfsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Size       string `yaml:"size"`
	MountPoint string `yaml:"mount_point"`
}

type FakerootConfig struct {
	Enabled bool `yaml:"enabled"`
}

type SecurityConfig struct {
	NoNewPrivileges  bool     `yaml:"no_new_privileges"`
	DropCapabilities []string `yaml:"drop_capabilities"`
	AddCapabilities  []string `yaml:"add_capabilities"`
}

// BuildConfig holds the build type and the named variants.
type BuildConfig struct {
	Type    BuildTypeConfig          `yaml:"type"`
	Variant map[string]VariantConfig `yaml:"variant"`
}

type BuildTypeConfig struct {
	Container ContainerBuildType `yaml:"container"`
}

type ContainerBuildType struct {
	ImageBasename string `yaml:"image_basename"`
	Runtime       string `yaml:"runtime"`
	PullPolicy    string `yaml:"pull_policy"`
}

// VariantConfig is one entry under build.variant. Metadata is free-form.
type VariantConfig struct {
	Image        string         `yaml:"image"`
	Metadata     map[string]any `yaml:"metadata"`
	Description  string         `yaml:"description"`
	SupportUntil string         `yaml:"support_until"`
}

// Strategy names a target ordering algorithm.
type Strategy string

const (
	StrategyPrimaryOnly         Strategy = "primary-only"
	StrategyPrimaryWithFallback Strategy = "primary-with-fallback"
	StrategyRoundRobin          Strategy = "round-robin"
)

var (
	strategiesMu sync.RWMutex
	strategies   = map[Strategy]bool{
		StrategyPrimaryOnly:         true,
		StrategyPrimaryWithFallback: true,
		StrategyRoundRobin:          true,
	}
)

// RegisterStrategy makes name valid in documents.
func RegisterStrategy(name Strategy) {
	strategiesMu.Lock()
	defer strategiesMu.Unlock()
	strategies[name] = true
}

// IsStrategy reports whether a document may use name.
func IsStrategy(name Strategy) bool {
	strategiesMu.RLock()
	defer strategiesMu.RUnlock()
	return strategies[name]
}

// StrategyNames returns the strategy names a document may use, sorted.
func StrategyNames() []Strategy {
	strategiesMu.RLock()
	defer strategiesMu.RUnlock()
	return slices.Sorted(maps.Keys(strategies))
}

// RegistrySection lists container registries by role.
type RegistrySection struct {
	Strategy Strategy                    `yaml:"strategy"`
	Primary  map[string]RegistryEndpoint `yaml:"primary"`
	Fallback map[string]RegistryEndpoint `yaml:"fallback"`
}

// RegistryEndpoint describes one container registry. Credential fields are
// either literals or a single ${ENV_VAR} placeholder, resolved per attempt.
type RegistryEndpoint struct {
	Type      string `yaml:"type"`
	Public    bool   `yaml:"public"`
	URL       string `yaml:"url"`
	Namespace string `yaml:"namespace"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Token     string `yaml:"token"`
	Timeout   int    `yaml:"timeout"`
	Retry     *int   `yaml:"retry"`
}

// Retries returns the retry budget, defaulting when the document omits it.
func (r RegistryEndpoint) Retries() int { return retries(r.Retry) }

// RepositorySection lists artifact repositories by role.
type RepositorySection struct {
	Strategy Strategy                      `yaml:"strategy"`
	Primary  map[string]RepositoryEndpoint `yaml:"primary"`
	Fallback map[string]RepositoryEndpoint `yaml:"fallback"`
}

// RepositoryEndpoint is a discriminated union keyed by Type (nexus or s3).
type RepositoryEndpoint struct {
	Type         string `yaml:"type"`
	PathTemplate string `yaml:"path_template"`
	Timeout      int    `yaml:"timeout"`
	Retry        *int   `yaml:"retry"`

	// ── type: nexus ───────────────────────────────────────────────────────
	URL        string `yaml:"url,omitempty"`
	Repository string `yaml:"repository,omitempty"`
	Username   string `yaml:"username,omitempty"`
	Password   string `yaml:"password,omitempty"`

	// ── type: s3 ──────────────────────────────────────────────────────────
	Bucket    string `yaml:"bucket,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
}

// Retries returns the retry budget, defaulting when the document omits it.
func (r RepositoryEndpoint) Retries() int { return retries(r.Retry) }

// BaseURL returns where artifacts of this repository live.
func (r RepositoryEndpoint) BaseURL() string {
	switch r.Type {
	case "s3":
		if r.Endpoint != "" {
			return r.Endpoint + "/" + r.Bucket
		}
		return fmt.Sprintf("https://s3.%s.amazonaws.com/%s", r.Region, r.Bucket)
	default:
		return r.URL + "/" + r.Repository
	}
}

// LoggingConfig selects the log level, format and sink.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	File   string `yaml:"file"`
}

type GitHubConfig struct {
	Token  string `yaml:"token"`
	APIURL string `yaml:"api_url"`
}

// Decode converts a configuration tree into Settings, applying defaults for
// everything the tree leaves out.
func Decode(tree map[string]any) (*Settings, error) {
	data, err := yaml.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encoding config tree: %w", err)
	}

	s := defaultSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decoding config tree: %w", err)
	}
	s.applyEndpointDefaults()
	if err := s.Path.expandHome(); err != nil {
		return nil, err
	}
	return s, nil
}

func defaultSettings() *Settings {
	return &Settings{
		Defaults: DefaultsConfig{
			Build: BuildDefaults{
				Variant:          "stable",
				Arch:             "amd64",
				CleanupOnSuccess: true,
			},
			Packaging: PackagingDefaults{
				Format:           "tar.gz",
				GenerateChecksum: true,
				GenerateSBOM:     true,
			},
		},
		Build: BuildConfig{
			Type: BuildTypeConfig{
				Container: ContainerBuildType{
					ImageBasename: "builda-bar",
					Runtime:       "docker",
					PullPolicy:    "if-not-present",
				},
			},
		},
		Registry:   RegistrySection{Strategy: StrategyPrimaryWithFallback},
		Repository: RepositorySection{Strategy: StrategyPrimaryWithFallback},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "json",
			Output: "stdout",
		},
		GitHub: GitHubConfig{APIURL: "https://api.github.com"},
	}
}

// Endpoint defaults. A zero timeout means "not set" since it must be positive.
const (
	defaultRegistryTimeout   = 30
	defaultRepositoryTimeout = 60
	defaultRetry             = 3
	defaultPathTemplate      = "{package}/{major_minor}/{full_version}"
)

func (s *Settings) applyEndpointDefaults() {
	for name, ep := range s.Registry.Primary {
		s.Registry.Primary[name] = registryDefaults(name, ep)
	}
	for name, ep := range s.Registry.Fallback {
		s.Registry.Fallback[name] = registryDefaults(name, ep)
	}
	for name, ep := range s.Repository.Primary {
		s.Repository.Primary[name] = repositoryDefaults(name, ep)
	}
	for name, ep := range s.Repository.Fallback {
		s.Repository.Fallback[name] = repositoryDefaults(name, ep)
	}
	if s.Build.Type.Container.ImageBasename == "" {
		s.Build.Type.Container.ImageBasename = "builda-bar"
	}
}

func retries(r *int) int {
	if r == nil {
		return defaultRetry
	}
	return *r
}

func registryDefaults(name string, ep RegistryEndpoint) RegistryEndpoint {
	if ep.Type == "" && name != "" && validRegistryTypes[name] {
		// Keyed by type name in the document (primary: {harbor: ...}).
		ep.Type = name
	}
	if ep.Timeout == 0 {
		ep.Timeout = defaultRegistryTimeout
	}
	return ep
}

func repositoryDefaults(name string, ep RepositoryEndpoint) RepositoryEndpoint {
	if ep.Type == "" {
		// Keyed by type name in the document (primary: {nexus: ...}).
		ep.Type = name
	}
	if ep.Timeout == 0 {
		ep.Timeout = defaultRepositoryTimeout
	}
	if ep.PathTemplate == "" {
		ep.PathTemplate = defaultPathTemplate
	}
	return ep
}
