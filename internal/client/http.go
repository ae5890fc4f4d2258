package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alfredjeanlab/appreg/internal/model"
	"github.com/alfredjeanlab/appreg/internal/presence"
)

// DefaultTimeout bounds a single HTTP request.
const DefaultTimeout = 30 * time.Second

// HTTPClient implements RegistryClient using the registry's HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check that HTTPClient implements RegistryClient.
var _ RegistryClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:7000").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// BaseURL returns the registry URL the client targets.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

type applicationResponse struct {
	Application *model.Application `json:"application"`
}

type applicationsResponse struct {
	Applications []*model.Application `json:"applications"`
}

func (c *HTTPClient) CreateApplication(ctx context.Context, app *model.Application) (*model.Application, error) {
	var resp applicationResponse
	if err := c.doJSON(ctx, http.MethodPost, "/applications", app, &resp); err != nil {
		return nil, err
	}
	if resp.Application == nil {
		return nil, fmt.Errorf("create application: empty response")
	}
	return resp.Application, nil
}

func (c *HTTPClient) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	var resp applicationResponse
	if err := c.doJSON(ctx, http.MethodGet, "/applications/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Application == nil {
		return nil, fmt.Errorf("get application %s: empty response", id)
	}
	return resp.Application, nil
}

func (c *HTTPClient) ListApplications(ctx context.Context) ([]*model.Application, error) {
	var resp applicationsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/applications", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Applications == nil {
		resp.Applications = []*model.Application{}
	}
	return resp.Applications, nil
}

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// ListAgents returns the registry's roster of discovery agents. It is only
// served over HTTP.
func (c *HTTPClient) ListAgents(ctx context.Context) ([]presence.Entry, error) {
	var resp struct {
		Agents []presence.Entry `json:"agents"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/agents", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Agents == nil {
		resp.Agents = []presence.Entry{}
	}
	return resp.Agents, nil
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
