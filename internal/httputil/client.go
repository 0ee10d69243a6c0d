// Package httputil provides HTTP client abstractions for testability, plus
// shared JSON response helpers for API handlers.
package httputil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
)

// Client abstracts the HTTP operations the archive layer needs. Use
// StandardClient in production and MockClient in tests.
type Client interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
	// Get issues a context-aware GET to the specified URL.
	Get(ctx context.Context, url string) (*http.Response, error)
}

// StandardClient wraps *http.Client to implement Client.
type StandardClient struct {
	*http.Client
}

// NewStandardClient creates a StandardClient. A nil argument falls back to
// http.DefaultClient.
func NewStandardClient(c *http.Client) *StandardClient {
	if c == nil {
		c = http.DefaultClient
	}
	return &StandardClient{Client: c}
}

// Do sends an HTTP request.
func (c *StandardClient) Do(req *http.Request) (*http.Response, error) {
	return c.Client.Do(req)
}

// Get issues a GET request bound to ctx.
func (c *StandardClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Client.Do(req)
}

// MockClient replays canned responses in order and records every request it
// sees. Safe for concurrent use.
type MockClient struct {
	mu        sync.Mutex
	requests  []*http.Request
	responses []mockResponse
	next      int

	// DoFunc overrides the canned responses entirely when set.
	DoFunc func(req *http.Request) (*http.Response, error)
}

type mockResponse struct {
	status int
	body   []byte
	err    error
}

// NewMockClient creates an empty MockClient.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// AddResponse queues a response with the given status and body.
func (m *MockClient) AddResponse(status int, body string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockResponse{status: status, body: []byte(body)})
	return m
}

// AddError queues a transport-level error.
func (m *MockClient) AddError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockResponse{err: err})
	return m
}

// Do records the request and returns the next queued response. Requests past
// the end of the queue get an empty 200.
func (m *MockClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.DoFunc != nil {
		return m.DoFunc(req)
	}

	if m.next >= len(m.responses) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	}

	resp := m.responses[m.next]
	m.next++
	if resp.err != nil {
		return nil, resp.err
	}
	return &http.Response{
		StatusCode: resp.status,
		Body:       io.NopCloser(bytes.NewReader(resp.body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// Get issues a GET request through Do.
func (m *MockClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return m.Do(req)
}

// Request returns the nth recorded request, or nil when out of range.
func (m *MockClient) Request(n int) *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 0 || n >= len(m.requests) {
		return nil
	}
	return m.requests[n]
}

// RequestCount returns the number of recorded requests.
func (m *MockClient) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
