package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is a DocumentClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	Err          error           // Returned from every call when set
	FailAfter    int             // Fail after N requests (0 = never)
	ResponseText string          // Raw content when ResponseFunc is nil
	ResponseFunc func(req *DocumentRequest) (string, error)

	// Rate limiting
	RPM int

	// State
	requestCount atomic.Int64

	mu       sync.Mutex
	requests []*DocumentRequest
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		ResponseText: "{}",
		RPM:          600,
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// RequestsPerMinute returns the RPM limit for rate limiting.
func (c *MockClient) RequestsPerMinute() int {
	return c.RPM
}

// RequestCount returns how many requests were made.
func (c *MockClient) RequestCount() int {
	return int(c.requestCount.Load())
}

// Requests returns a copy of all requests seen so far.
func (c *MockClient) Requests() []*DocumentRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*DocumentRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// ExtractDocument returns the configured response.
func (c *MockClient) ExtractDocument(ctx context.Context, req *DocumentRequest) (*DocumentResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if c.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.Latency):
		}
	}

	if c.Err != nil {
		return nil, c.Err
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		return nil, fmt.Errorf("mock failure after %d requests", c.FailAfter)
	}

	text := c.ResponseText
	if c.ResponseFunc != nil {
		var err error
		text, err = c.ResponseFunc(req)
		if err != nil {
			return nil, err
		}
	}

	result := &DocumentResult{
		Content:       text,
		ExecutionTime: time.Since(start),
		Provider:      MockClientName,
		ModelUsed:     req.Model,
		RequestID:     fmt.Sprintf("mock-%d", count),
		Attempts:      1,
	}

	parsed, err := parseStructuredJSON(text)
	if err != nil {
		return result, err
	}
	if err := validateStructuredJSON(req.Schema, parsed); err != nil {
		return result, err
	}
	result.ParsedJSON = json.RawMessage(parsed)

	return result, nil
}
