package registry

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
)

// StatusError is an HTTP response the server answered with an error code.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: %d", e.Method, e.URL, e.Code)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Code, e.Body)
}

// httpClient is a thin wrapper for the plain HTTP checks.
type httpClient struct {
	client  *http.Client
	headers map[string]string
}

// do executes a request and discards the body. Status codes >= 400 are
// returned as *StatusError.
func (c *httpClient) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	hc := c.client
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return resp, &StatusError{Method: method, URL: url, Code: resp.StatusCode, Body: truncateBody(body, 512)}
	}
	return resp, nil
}

func basicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func truncateBody(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
