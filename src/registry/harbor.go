package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bytehawks/distillery/src/target"
)

// Harbor checks a Harbor v2 registry: the distribution API must answer and
// the target namespace must exist as a project
// (GET /api/v2.0/projects/:project). Pushing to a missing project fails late,
// so it is caught here.
type Harbor struct {
	oci    *OCI
	client *http.Client
}

func NewHarbor(oci *OCI) *Harbor {
	return &Harbor{oci: oci, client: &http.Client{}}
}

func (h *Harbor) Probe(ctx context.Context, t target.Target, secrets map[string]string) error {
	if err := h.oci.Probe(ctx, t, secrets); err != nil {
		return err
	}
	if t.Namespace == "" {
		return nil
	}

	headers := map[string]string{}
	if user, pass := secrets["username"], secrets["password"]; user != "" && pass != "" {
		headers["Authorization"] = basicAuth(user, pass)
	}
	c := httpClient{client: h.client, headers: headers}

	apiURL := fmt.Sprintf("%s/api/v2.0/projects/%s", normalizeURL(t.URL), url.PathEscape(t.Namespace))
	if _, err := c.do(ctx, http.MethodGet, apiURL); err != nil {
		return fmt.Errorf("harbor: project %s: %w", t.Namespace, err)
	}
	return nil
}
