package registry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bytehawks/distillery/src/target"
)

// Nexus checks a Nexus repository by requesting its base URL
// (<url>/<repository>) with basic auth.
type Nexus struct {
	client *http.Client
}

func NewNexus() *Nexus {
	return &Nexus{client: &http.Client{}}
}

func (n *Nexus) Probe(ctx context.Context, t target.Target, secrets map[string]string) error {
	if t.URL == "" || t.Repository == "" {
		return fmt.Errorf("nexus: url and repository are required")
	}

	headers := map[string]string{}
	if user, pass := secrets["username"], secrets["password"]; user != "" || pass != "" {
		headers["Authorization"] = basicAuth(user, pass)
	}

	c := httpClient{client: n.client, headers: headers}
	base := normalizeURL(t.URL) + "/" + t.Repository + "/"
	if _, err := c.do(ctx, http.MethodGet, base); err != nil {
		return fmt.Errorf("nexus: %w", err)
	}
	return nil
}
