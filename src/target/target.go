// Package target turns the registry and repository sections into concrete,
// authenticated endpoints. A strategy orders the candidates, and each target
// is probed within its own timeout and retry budget until one answers.
package target

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/bytehawks/distillery/src/config"
)

// Kind separates container registries from artifact repositories.
type Kind string

const (
	KindRegistry   Kind = "registry"
	KindRepository Kind = "repository"
)

// Role is the section a target was declared under.
type Role string

const (
	RolePrimary  Role = "primary"
	RoleFallback Role = "fallback"
)

// Transports a Prober can dispatch on.
const (
	TransportHarbor  = "harbor"
	TransportGHCR    = "ghcr"
	TransportDocker  = "docker"
	TransportGeneric = "generic"
	TransportNexus   = "nexus"
	TransportS3      = "s3"
)

// Target is one candidate endpoint. Credential values are the raw document
// fields: literals or ${NAME} references, resolved only when attempted.
type Target struct {
	Name      string
	Kind      Kind
	Role      Role
	Transport string

	URL          string
	Namespace    string
	Repository   string
	Bucket       string
	Region       string
	Endpoint     string
	PathTemplate string
	Public       bool

	Credentials map[string]string

	Timeout time.Duration
	Retry   int
}

// ID returns kind/role/name, unique within one document.
func (t Target) ID() string {
	return fmt.Sprintf("%s/%s/%s", t.Kind, t.Role, t.Name)
}

// Location returns the address the target is reached at.
func (t Target) Location() string {
	switch t.Transport {
	case TransportS3:
		return config.RepositoryEndpoint{Type: "s3", Bucket: t.Bucket, Region: t.Region, Endpoint: t.Endpoint}.BaseURL()
	case TransportNexus:
		return strings.TrimSuffix(t.URL, "/") + "/" + t.Repository
	default:
		if t.Namespace == "" {
			return t.URL
		}
		return strings.TrimSuffix(t.URL, "/") + "/" + t.Namespace
	}
}

// Candidates are the targets of one section, split by role.
type Candidates struct {
	Primary  []Target
	Fallback []Target
}

// All returns primaries followed by fallbacks.
func (c Candidates) All() []Target {
	out := make([]Target, 0, len(c.Primary)+len(c.Fallback))
	out = append(out, c.Primary...)
	return append(out, c.Fallback...)
}

// FromRegistry converts a registry endpoint.
func FromRegistry(role Role, name string, ep config.RegistryEndpoint) Target {
	transport := ep.Type
	switch transport {
	case "":
		transport = TransportGeneric
	case "github":
		transport = TransportGHCR
	}
	return Target{
		Name:      name,
		Kind:      KindRegistry,
		Role:      role,
		Transport: transport,
		URL:       ep.URL,
		Namespace: ep.Namespace,
		Public:    ep.Public,
		Credentials: nonEmpty(map[string]string{
			"username": ep.Username,
			"password": ep.Password,
			"token":    ep.Token,
		}),
		Timeout: time.Duration(ep.Timeout) * time.Second,
		Retry:   ep.Retries(),
	}
}

// FromRepository converts a repository endpoint.
func FromRepository(role Role, name string, ep config.RepositoryEndpoint) Target {
	return Target{
		Name:         name,
		Kind:         KindRepository,
		Role:         role,
		Transport:    ep.Type,
		URL:          ep.URL,
		Repository:   ep.Repository,
		Bucket:       ep.Bucket,
		Region:       ep.Region,
		Endpoint:     ep.Endpoint,
		PathTemplate: ep.PathTemplate,
		Credentials: nonEmpty(map[string]string{
			"username":   ep.Username,
			"password":   ep.Password,
			"access_key": ep.AccessKey,
			"secret_key": ep.SecretKey,
		}),
		Timeout: time.Duration(ep.Timeout) * time.Second,
		Retry:   ep.Retries(),
	}
}

// RegistryCandidates converts a registry section. Within a role, targets are
// ordered by name.
func RegistryCandidates(s config.RegistrySection) Candidates {
	var c Candidates
	for _, name := range slices.Sorted(maps.Keys(s.Primary)) {
		c.Primary = append(c.Primary, FromRegistry(RolePrimary, name, s.Primary[name]))
	}
	for _, name := range slices.Sorted(maps.Keys(s.Fallback)) {
		c.Fallback = append(c.Fallback, FromRegistry(RoleFallback, name, s.Fallback[name]))
	}
	return c
}

// RepositoryCandidates converts a repository section. Within a role, targets
// are ordered by name.
func RepositoryCandidates(s config.RepositorySection) Candidates {
	var c Candidates
	for _, name := range slices.Sorted(maps.Keys(s.Primary)) {
		c.Primary = append(c.Primary, FromRepository(RolePrimary, name, s.Primary[name]))
	}
	for _, name := range slices.Sorted(maps.Keys(s.Fallback)) {
		c.Fallback = append(c.Fallback, FromRepository(RoleFallback, name, s.Fallback[name]))
	}
	return c
}

func nonEmpty(m map[string]string) map[string]string {
	for k, v := range m {
		if v == "" {
			delete(m, k)
		}
	}
	return m
}
