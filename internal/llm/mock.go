package llm

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	domainerrors "github.com/storyloom/storyloom-server/internal/errors"
)

// MockName identifies the mock provider.
const MockName = "mock"

// MockClient is a Client for tests and offline development.
type MockClient struct {
	// Reply returns the content for a request. When nil, ResponseText is
	// returned.
	Reply        func(Request) string
	ResponseText string
	Latency      time.Duration
	ShouldFail   bool

	requestCount atomic.Int64
	mu           sync.Mutex
	last         Request
}

// NewMockClient creates a mock client with a canned reply.
func NewMockClient() *MockClient {
	return &MockClient{
		ResponseText: `{"description":"A mock story summary.","tags":{"mood":["calm"]}}`,
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockName
}

// Chat returns the configured reply after Latency.
func (c *MockClient) Chat(ctx context.Context, req Request) (Response, error) {
	c.requestCount.Add(1)
	c.mu.Lock()
	c.last = req
	c.mu.Unlock()

	if c.Latency > 0 {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case <-time.After(c.Latency):
		}
	}
	if c.ShouldFail {
		return Response{}, domainerrors.Upstream("mock failure")
	}

	content := c.ResponseText
	if c.Reply != nil {
		content = c.Reply(req)
	}
	return Response{Content: content, Model: MockName}, nil
}

// RequestCount returns the number of Chat calls.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// LastRequest returns the most recent request.
func (c *MockClient) LastRequest() Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
