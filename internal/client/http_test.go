package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alfredjeanlab/appreg/internal/model"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method      string
	path        string
	rawPath     string // URL-encoded path (for testing PathEscape)
	body        string
	contentType string

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.rawPath = r.URL.RawPath
	h.contentType = r.Header.Get("Content-Type")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(h http.Handler) (*HTTPClient, *httptest.Server) {
	srv := httptest.NewServer(h)
	c := NewHTTPClient(srv.URL + "/")
	return c, srv
}

const fibonacciJSON = `{
	"id": "5d41402abc4b2a76b9719d911017c592",
	"name": "/fibonacci",
	"category": "Actions",
	"description": "",
	"binding": "ROS",
	"endpoint": [
		{"type": "String", "name": "topic", "value": "/fibonacci"},
		{"type": "String", "name": "type", "value": "action"}
	],
	"parameters": {
		"input": [{"type": "Integer", "name": "order", "value": 0}],
		"output": [{"type": "Array", "name": "sequence", "value": [{"type": "Integer", "name": "", "value": 0}]}]
	}
}`

// --- CreateApplication ---

func TestHTTPClient_CreateApplication(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusCreated,
		responseBody: `{"application": ` + fibonacciJSON + `}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	app := &model.Application{
		Name:     "/fibonacci",
		Category: string(model.CategoryActions),
		Binding:  model.BindingROS,
		Endpoint: model.NewEndpoint("/fibonacci", model.EndpointAction),
		Parameters: model.Parameters{
			Input: model.SchemaList{{Name: "order", Kind: model.KindInteger, Value: 0}},
		},
	}
	got, err := c.CreateApplication(context.Background(), app)
	if err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}

	if h.method != http.MethodPost {
		t.Errorf("method = %q, want POST", h.method)
	}
	if h.path != "/applications" {
		t.Errorf("path = %q, want /applications", h.path)
	}
	if h.contentType != "application/json" {
		t.Errorf("content-type = %q", h.contentType)
	}

	var sent map[string]any
	if err := json.Unmarshal([]byte(h.body), &sent); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if sent["name"] != "/fibonacci" || sent["binding"] != "ROS" {
		t.Errorf("sent = %v", sent)
	}
	if _, ok := sent["created_at"]; ok {
		t.Error("zero created_at should be omitted")
	}

	if got.ID != "5d41402abc4b2a76b9719d911017c592" {
		t.Errorf("id = %q", got.ID)
	}
	if len(got.Parameters.Output) != 1 || got.Parameters.Output[0].Kind != model.KindArray {
		t.Errorf("output = %+v", got.Parameters.Output)
	}
	if len(got.Parameters.Output[0].Children) != 1 {
		t.Errorf("array element = %+v", got.Parameters.Output[0].Children)
	}
}

func TestHTTPClient_CreateApplication_BadRequest(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusBadRequest,
		responseBody: `{"error":"malformed request body"}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	_, err := c.CreateApplication(context.Background(), &model.Application{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", apiErr.StatusCode)
	}
	if apiErr.Message != "malformed request body" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

// --- GetApplication ---

func TestHTTPClient_GetApplication(t *testing.T) {
	h := &testHandler{responseBody: `{"application": ` + fibonacciJSON + `}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	got, err := c.GetApplication(context.Background(), "5d41402abc4b2a76b9719d911017c592")
	if err != nil {
		t.Fatalf("GetApplication: %v", err)
	}
	if h.method != http.MethodGet || h.path != "/applications/5d41402abc4b2a76b9719d911017c592" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if got.Name != "/fibonacci" || got.Category != "Actions" {
		t.Errorf("got %+v", got)
	}
}

func TestHTTPClient_GetApplication_URLEscaping(t *testing.T) {
	h := &testHandler{responseBody: `{"application": {"id": "a/b"}}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	if _, err := c.GetApplication(context.Background(), "a/b"); err != nil {
		t.Fatal(err)
	}
	if h.rawPath != "/applications/a%2Fb" {
		t.Errorf("raw path = %q, want /applications/a%%2Fb", h.rawPath)
	}
}

func TestHTTPClient_GetApplication_NotFound(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusNotFound,
		responseBody: `{"error":"application not found"}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	_, err := c.GetApplication(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// --- ListApplications ---

func TestHTTPClient_ListApplications(t *testing.T) {
	h := &testHandler{responseBody: `{"applications": [` + fibonacciJSON + `, {"id": "other", "name": "/chatter"}]}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	apps, err := c.ListApplications(context.Background())
	if err != nil {
		t.Fatalf("ListApplications: %v", err)
	}
	if len(apps) != 2 {
		t.Fatalf("len = %d, want 2", len(apps))
	}
	if apps[1].Name != "/chatter" {
		t.Errorf("apps[1] = %+v", apps[1])
	}
}

func TestHTTPClient_ListApplications_Empty(t *testing.T) {
	h := &testHandler{responseBody: `{"applications": null}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	apps, err := c.ListApplications(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if apps == nil || len(apps) != 0 {
		t.Errorf("apps = %#v, want empty slice", apps)
	}
}

// --- Health ---

func TestHTTPClient_Health(t *testing.T) {
	h := &testHandler{responseBody: `{"status":"ok"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	status, err := c.Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if status != "ok" || h.path != "/health" {
		t.Errorf("status = %q, path = %q", status, h.path)
	}
}

// --- Agents ---

func TestHTTPClient_ListAgents(t *testing.T) {
	h := &testHandler{responseBody: `{"agents":[{"agent":"/rosdiscover","last_run_id":"run-3","runs":3,"published":12}]}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	agents, err := c.ListAgents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if h.method != http.MethodGet || h.path != "/agents" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if len(agents) != 1 || agents[0].Agent != "/rosdiscover" || agents[0].Runs != 3 || agents[0].Published != 12 {
		t.Errorf("agents = %+v", agents)
	}
}

func TestHTTPClient_ListAgents_Empty(t *testing.T) {
	h := &testHandler{responseBody: `{}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	agents, err := c.ListAgents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if agents == nil || len(agents) != 0 {
		t.Errorf("agents = %#v, want empty slice", agents)
	}
}

// --- error handling ---

func TestHTTPClient_NonJSONError(t *testing.T) {
	h := &testHandler{statusCode: http.StatusInternalServerError, responseBody: "boom"}
	c, srv := newTestClient(h)
	defer srv.Close()

	_, err := c.ListApplications(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Message != "boom" {
		t.Errorf("message = %q, want boom", apiErr.Message)
	}
	if IsNotFound(err) {
		t.Error("500 must not be reported as not found")
	}
}

func TestHTTPClient_MalformedResponse(t *testing.T) {
	h := &testHandler{responseBody: `{not json`}
	c, srv := newTestClient(h)
	defer srv.Close()

	_, err := c.ListApplications(context.Background())
	if err == nil || !strings.Contains(err.Error(), "decoding response") {
		t.Fatalf("err = %v", err)
	}
}

func TestHTTPClient_TrimsTrailingSlash(t *testing.T) {
	c := NewHTTPClient("http://localhost:7000///")
	if c.BaseURL() != "http://localhost:7000" {
		t.Errorf("base = %q", c.BaseURL())
	}
}

func TestHTTPClient_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := NewHTTPClient(srv.URL)
	srv.Close()

	if _, err := c.Health(context.Background()); err == nil {
		t.Fatal("expected connection error")
	}
}
