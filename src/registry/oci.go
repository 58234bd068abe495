package registry

import (
	"context"
	"fmt"
	"net/http"

	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"

	"github.com/bytehawks/distillery/src/target"
)

// OCI checks a container registry through the distribution API (GET /v2/).
// Harbor, GHCR, Docker Hub and generic registries all answer it.
type OCI struct {
	client *http.Client
}

func NewOCI() *OCI {
	return &OCI{client: &http.Client{}}
}

// Probe pings the registry, authenticating with a token when one is set and
// with username/password otherwise. Public targets without credentials ping
// anonymously.
func (o *OCI) Probe(ctx context.Context, t target.Target, secrets map[string]string) error {
	host, plain, err := splitURL(t.URL)
	if err != nil {
		return fmt.Errorf("oci: %w", err)
	}

	reg, err := remote.NewRegistry(host)
	if err != nil {
		return fmt.Errorf("oci: %s: %w", host, err)
	}
	reg.PlainHTTP = plain
	reg.Client = &auth.Client{
		Client:     o.client,
		Cache:      auth.NewCache(),
		Credential: auth.StaticCredential(host, ociCredential(secrets)),
	}

	if err := reg.Ping(ctx); err != nil {
		return fmt.Errorf("oci: ping %s: %w", host, err)
	}
	return nil
}

func ociCredential(secrets map[string]string) auth.Credential {
	if tok := secrets["token"]; tok != "" {
		if user := secrets["username"]; user != "" {
			// Registries such as GHCR take a PAT as the password.
			return auth.Credential{Username: user, Password: tok}
		}
		return auth.Credential{AccessToken: tok}
	}
	if secrets["username"] == "" && secrets["password"] == "" {
		return auth.EmptyCredential
	}
	return auth.Credential{Username: secrets["username"], Password: secrets["password"]}
}
