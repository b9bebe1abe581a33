package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/towerlink-go/internal/infra/buildinfo"
)

// DefaultTimeout bounds each request.
const DefaultTimeout = 5 * time.Second

// OpsClient queries /health, /ready and /version.
type OpsClient struct {
	baseURL string
	client  *http.Client
}

// NewOpsClient creates a client for the ops server at addr
// (host:port or a full http URL).
func NewOpsClient(addr string, timeout time.Duration) *OpsClient {
	baseURL := strings.TrimSuffix(addr, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OpsClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the base URL of the client.
func (c *OpsClient) BaseURL() string {
	return c.baseURL
}

// Health is the /health response body.
type Health struct {
	Status string `json:"status"`
	Role   string `json:"role"`
	Time   string `json:"time"`
}

// Readiness is the /ready response body. Ready is derived from the status code.
type Readiness struct {
	Ready  bool   `json:"ready"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Health fetches /health.
func (c *OpsClient) Health(ctx context.Context) (Health, error) {
	var h Health
	resp, err := c.get(ctx, "/health")
	if err != nil {
		return h, err
	}
	return h, parseResponse(resp, &h)
}

// Ready fetches /ready. A 503 is a valid answer, not an error.
func (c *OpsClient) Ready(ctx context.Context) (Readiness, error) {
	var r Readiness
	resp, err := c.get(ctx, "/ready")
	if err != nil {
		return r, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return r, fmt.Errorf("GET /ready: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return r, fmt.Errorf("parse /ready response: %w", err)
	}
	r.Ready = resp.StatusCode == http.StatusOK
	return r, nil
}

// Version fetches /version.
func (c *OpsClient) Version(ctx context.Context) (buildinfo.Info, error) {
	var info buildinfo.Info
	resp, err := c.get(ctx, "/version")
	if err != nil {
		return info, err
	}
	return info, parseResponse(resp, &info)
}

func (c *OpsClient) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "towerlink/"+buildinfo.Version)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return resp, nil
}

// parseResponse decodes a JSON body into target and closes it.
func parseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: status %d: %s", resp.Request.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
