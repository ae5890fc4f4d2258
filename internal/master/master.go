// Package master talks to a ROS master over XML-RPC and probes service
// providers over TCPROS to learn their types.
package master

import (
	"context"
	"fmt"

	"github.com/kolo/xmlrpc"
)

// statusSuccess is the code a ROS master returns for a successful call.
const statusSuccess = 1

// Caller issues a single XML-RPC call. *xmlrpc.Client satisfies it.
type Caller interface {
	Call(method string, args any, reply any) error
	Close() error
}

// TopicType is one entry of getTopicTypes.
type TopicType struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Provider is a topic or service name and the nodes attached to it.
type Provider struct {
	Name  string   `json:"name"`
	Nodes []string `json:"nodes"`
}

// SystemState is the decoded reply of getSystemState.
type SystemState struct {
	Publishers  []Provider `json:"publishers"`
	Subscribers []Provider `json:"subscribers"`
	Services    []Provider `json:"services"`
}

// Error is a master reply whose status code was not success.
type Error struct {
	Method  string
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("master %s: code %d: %s", e.Method, e.Code, e.Message)
}

// Client is a ROS master API client.
type Client struct {
	caller   Caller
	callerID string
}

// Dial returns a client for the master at uri (e.g. "http://localhost:11311").
func Dial(uri, callerID string) (*Client, error) {
	c, err := xmlrpc.NewClient(uri, nil)
	if err != nil {
		return nil, fmt.Errorf("master %s: %w", uri, err)
	}
	return NewClient(c, callerID), nil
}

// NewClient wraps an existing Caller.
func NewClient(caller Caller, callerID string) *Client {
	return &Client{caller: caller, callerID: callerID}
}

// CallerID returns the caller id sent with every request.
func (c *Client) CallerID() string { return c.callerID }

// Close releases the underlying transport.
func (c *Client) Close() error { return c.caller.Close() }

// GetTopicTypes returns every topic known to the master with its type.
func (c *Client) GetTopicTypes(ctx context.Context) ([]TopicType, error) {
	value, err := c.call(ctx, "getTopicTypes")
	if err != nil {
		return nil, err
	}
	pairs, err := asList(value)
	if err != nil {
		return nil, fmt.Errorf("master getTopicTypes: %w", err)
	}
	out := make([]TopicType, 0, len(pairs))
	for _, p := range pairs {
		pair, err := asStrings(p)
		if err != nil || len(pair) != 2 {
			return nil, fmt.Errorf("master getTopicTypes: malformed entry %v", p)
		}
		out = append(out, TopicType{Name: pair[0], Type: pair[1]})
	}
	return out, nil
}

// GetSystemState returns the publishers, subscribers and services registered
// with the master.
func (c *Client) GetSystemState(ctx context.Context) (*SystemState, error) {
	value, err := c.call(ctx, "getSystemState")
	if err != nil {
		return nil, err
	}
	groups, err := asList(value)
	if err != nil || len(groups) != 3 {
		return nil, fmt.Errorf("master getSystemState: malformed state %v", value)
	}
	var state SystemState
	for i, dst := range []*[]Provider{&state.Publishers, &state.Subscribers, &state.Services} {
		providers, err := asProviders(groups[i])
		if err != nil {
			return nil, fmt.Errorf("master getSystemState: %w", err)
		}
		*dst = providers
	}
	return &state, nil
}

// LookupService returns the rosrpc:// URI of the node providing service.
func (c *Client) LookupService(ctx context.Context, service string) (string, error) {
	value, err := c.call(ctx, "lookupService", service)
	if err != nil {
		return "", err
	}
	uri, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("master lookupService: expected string, got %T", value)
	}
	return uri, nil
}

// call invokes method with the caller id prepended and unwraps the
// [code, statusMessage, value] reply.
func (c *Client) call(ctx context.Context, method string, args ...any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := append([]any{c.callerID}, args...)
	var reply []any
	if err := c.caller.Call(method, params, &reply); err != nil {
		return nil, fmt.Errorf("master %s: %w", method, err)
	}
	if len(reply) != 3 {
		return nil, fmt.Errorf("master %s: malformed reply of length %d", method, len(reply))
	}
	code, ok := asInt(reply[0])
	if !ok {
		return nil, fmt.Errorf("master %s: malformed status code %v", method, reply[0])
	}
	msg, _ := reply[1].(string)
	if code != statusSuccess {
		return nil, &Error{Method: method, Code: code, Message: msg}
	}
	return reply[2], nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	}
	return 0, false
}

func asList(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected list, got %T", v)
	}
	return list, nil
}

func asStrings(v any) ([]string, error) {
	list, err := asList(v)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", item)
		}
		out[i] = s
	}
	return out, nil
}

func asProviders(v any) ([]Provider, error) {
	list, err := asList(v)
	if err != nil {
		return nil, err
	}
	out := make([]Provider, 0, len(list))
	for _, item := range list {
		entry, err := asList(item)
		if err != nil || len(entry) != 2 {
			return nil, fmt.Errorf("malformed provider %v", item)
		}
		name, ok := entry[0].(string)
		if !ok {
			return nil, fmt.Errorf("malformed provider name %v", entry[0])
		}
		nodes, err := asStrings(entry[1])
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}
		out = append(out, Provider{Name: name, Nodes: nodes})
	}
	return out, nil
}
