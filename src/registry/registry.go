// Package registry checks that registries and artifact repositories are
// reachable with their configured credentials. Every transport goes through
// the target.Prober interface so the target resolver works identically
// regardless of where images and artifacts are hosted.
package registry

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/bytehawks/distillery/src/target"
)

// NormalizeTransport maps transport aliases to their canonical names.
// Canonical names are harbor, ghcr, docker, generic, nexus and s3.
func NormalizeTransport(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	switch t {
	case "dockerhub":
		return target.TransportDocker
	case "github":
		return target.TransportGHCR
	case "":
		return target.TransportGeneric
	default:
		return t
	}
}

// Dispatcher routes each target to the prober for its transport.
type Dispatcher struct {
	probers map[string]target.Prober
}

// NewProber returns a Dispatcher covering every supported transport.
// OCI registries are checked with the distribution API (Harbor additionally
// with a project lookup), Nexus over HTTP, S3 with a bucket lookup.
func NewProber() *Dispatcher {
	oci := NewOCI()
	return &Dispatcher{probers: map[string]target.Prober{
		target.TransportHarbor:  NewHarbor(oci),
		target.TransportGHCR:    oci,
		target.TransportDocker:  oci,
		target.TransportGeneric: oci,
		target.TransportNexus:   NewNexus(),
		target.TransportS3:      NewS3(),
	}}
}

// Handle sets the prober for a transport.
func (d *Dispatcher) Handle(transport string, p target.Prober) {
	d.probers[NormalizeTransport(transport)] = p
}

// Probe implements target.Prober.
func (d *Dispatcher) Probe(ctx context.Context, t target.Target, secrets map[string]string) error {
	p, ok := d.probers[NormalizeTransport(t.Transport)]
	if !ok {
		return fmt.Errorf("registry: unsupported transport %q (valid: harbor, ghcr, docker, generic, nexus, s3)", t.Transport)
	}
	return p.Probe(ctx, t, secrets)
}

// splitURL returns the host[:port] of u and whether it uses plain HTTP.
// A URL without a scheme is taken as https.
func splitURL(u string) (host string, plain bool, err error) {
	if !strings.Contains(u, "://") {
		u = "https://" + u
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return "", false, fmt.Errorf("parsing %q: %w", u, err)
	}
	if parsed.Host == "" {
		return "", false, fmt.Errorf("url %q has empty host", u)
	}
	return parsed.Host, parsed.Scheme == "http", nil
}

// normalizeURL ensures a scheme and strips any trailing slash.
func normalizeURL(u string) string {
	if !strings.Contains(u, "://") {
		u = "https://" + u
	}
	return strings.TrimRight(u, "/")
}
